package rockset

import (
	"fmt"
	"io"
	"regexp"
	"strings"
)

const traceLoggerPrefix = "HTTP%s\t"

var apiKeyPattern = regexp.MustCompile(`(?i)(apikey\s+)[^\s"]+`)

// traceLogger adapts an io.Writer to the resty logger, one line per entry,
// with API keys masked
type traceLogger struct {
	w io.Writer
}

func newTraceLogger(w io.Writer) *traceLogger {
	if w == nil {
		w = io.Discard
	}

	return &traceLogger{w: w}
}

func (l *traceLogger) Debugf(format string, v ...interface{}) {
	l.logWithoutSecrets("", format, v...)
}

func (l *traceLogger) Warnf(format string, v ...interface{}) {
	l.logWithoutSecrets("-WARN", format, v...)
}

func (l *traceLogger) Errorf(format string, v ...interface{}) {
	l.logWithoutSecrets("-ERROR", format, v...)
}

func (l *traceLogger) logWithoutSecrets(level string, format string, v ...interface{}) {
	msg := fmt.Sprintf(traceLoggerPrefix, level) + fmt.Sprintf(format, v...)
	msg = apiKeyPattern.ReplaceAllString(msg, "$1*****")

	_, _ = io.WriteString(l.w, strings.TrimRight(msg, "\n")+"\n")
}
