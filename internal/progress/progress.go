// Package progress renders export progress: an outer bar over endpoints and an
// inner bar over the collections being described.
package progress

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"
)

// Reporter receives progress events from the exporter
type Reporter interface {
	// StartEndpoints opens the outer bar
	StartEndpoints(total int)
	// EndpointStarted announces the endpoint about to be fetched
	EndpointStarted(name string)
	// EndpointDone advances the outer bar
	EndpointDone()

	// StartCollections opens the inner bar
	StartCollections(total int)
	// CollectionDone advances the inner bar
	CollectionDone()
	// FinishCollections closes the inner bar and leaves it on screen
	FinishCollections()

	// Spin shows an indeterminate indicator until the returned func is called
	Spin(message string) (stop func())

	// Printf writes a line above any active bar
	Printf(format string, args ...interface{})

	// Finish closes the outer bar
	Finish()
}

// New picks a bar renderer for terminals and a line renderer otherwise
func New(f *os.File) Reporter {
	if isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()) {
		return NewBarReporter(f)
	}

	return NewLineReporter(f)
}

// Discard returns a reporter that drops every event
func Discard() Reporter {
	return NewLineReporter(io.Discard)
}
