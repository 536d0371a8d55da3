package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kyleking/rockset-org-metadata/internal/config"
	"github.com/kyleking/rockset-org-metadata/internal/export"
	"github.com/kyleking/rockset-org-metadata/internal/storage"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatLong  OutputFormat = "long"
	FormatShort OutputFormat = "short"
	FormatJSON  OutputFormat = "json"
)

// ParseFormat validates a user supplied format name
func ParseFormat(name string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(name)) {
	case FormatLong:
		return FormatLong, nil
	case FormatShort:
		return FormatShort, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown format %q (must be one of: long, short, json)", name)
	}
}

// Formatter renders export results for the terminal
type Formatter struct {
	now func() time.Time
}

// NewFormatter creates a new formatter instance
func NewFormatter() *Formatter {
	return &Formatter{now: time.Now}
}

// FormatSummary formats the result of an export run
func (f *Formatter) FormatSummary(summary *export.Summary, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return f.formatJSON(summary)
	case FormatShort:
		return fmt.Sprintf("%s endpoints, %s collections (%s without fields) in %s",
			f.formatInt(summary.Endpoints), f.formatInt(summary.Collections),
			f.formatInt(summary.NoFields), f.formatDuration(summary.Duration)), nil
	default:
		return f.formatSummaryLong(summary), nil
	}
}

func (f *Formatter) formatSummaryLong(summary *export.Summary) string {
	lines := []string{
		"Export Summary",
		"==============",
		"Output Directory: " + orDash(summary.OutputDir),
		"Endpoints: " + f.formatInt(summary.Endpoints),
		fmt.Sprintf("Collections: %s (%s without fields)",
			f.formatInt(summary.Collections), f.formatInt(summary.NoFields)),
		"Catalog Run: " + orDash(summary.RunID),
		"Duration: " + f.formatDuration(summary.Duration),
	}

	if len(summary.Files) > 0 {
		lines = append(lines, "Files:")
		for _, file := range summary.Files {
			lines = append(lines, "  "+file)
		}
	}

	return strings.Join(lines, "\n")
}

// FormatRunStats formats a catalog run
func (f *Formatter) FormatRunStats(stats *storage.RunStats, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		return f.formatJSON(stats)
	case FormatShort:
		return fmt.Sprintf("%s  %s  %s  %s documents, %s collections",
			stats.RunID, stats.Status, f.humanizeAge(stats.StartedAt),
			f.formatInt(stats.Documents), f.formatInt(stats.Collections)), nil
	}

	lines := []string{
		"Catalog Run " + stats.RunID,
		"API Server: " + orDash(stats.APIServer),
		"Status: " + stats.Status,
		fmt.Sprintf("Started: %s (%s)", stats.StartedAt.Format(time.DateTime), f.humanizeAge(stats.StartedAt)),
	}

	if stats.CompletedAt != nil {
		lines = append(lines, "Completed: "+stats.CompletedAt.Format(time.DateTime))
	} else {
		lines = append(lines, "Completed: -")
	}

	if stats.Error != "" {
		lines = append(lines, "Error: "+stats.Error)
	}

	lines = append(lines,
		fmt.Sprintf("Documents: %s (%s records)", f.formatInt(stats.Documents), f.formatInt(stats.Records)),
		fmt.Sprintf("Collections: %s (%s fields)", f.formatInt(stats.Collections), f.formatInt(stats.Fields)),
		"Endpoints: "+orDash(strings.Join(stats.Endpoints, ", ")),
	)

	return strings.Join(lines, "\n"), nil
}

// FormatConfig formats the active configuration with the API key masked
func (f *Formatter) FormatConfig(cfg *config.Config) string {
	limit := "none"
	if cfg.Export.Limit != nil {
		limit = strconv.Itoa(*cfg.Export.Limit)
	}

	lines := []string{
		"Active Configuration:",
		"",
		"API:",
		"  Key: " + cfg.MaskedAPIKey(),
		"  Server: " + cfg.API.Server,
		"",
		"Export:",
		"  Output Directory: " + cfg.Export.OutputDir,
		"  Collection Limit: " + limit,
		"",
		"Catalog:",
		"  Path: " + orDash(cfg.Catalog.Path),
		"",
		"Logging:",
		"  Level: " + cfg.Logging.Level,
		"  Format: " + cfg.Logging.Format,
		"  Output: " + cfg.Logging.Output,
	}

	if cfg.Logging.Output == "file" {
		lines = append(lines, "  File: "+cfg.Logging.File)
	}

	lines = append(lines,
		"",
		"Debug:",
		"  Enabled: "+strconv.FormatBool(cfg.Debug.Enabled),
		"  Verbose: "+strconv.FormatBool(cfg.Debug.Verbose),
		"  Trace API: "+strconv.FormatBool(cfg.Debug.TraceAPI),
	)

	return strings.Join(lines, "\n")
}

func (f *Formatter) formatJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal output: %w", err)
	}

	return string(data), nil
}

// formatInt formats an integer, returning "?" for negative values (unknown)
func (f *Formatter) formatInt(value int) string {
	if value < 0 {
		return "?"
	}

	return strconv.Itoa(value)
}

func (f *Formatter) formatDuration(d time.Duration) string {
	if d <= 0 {
		return "0s"
	}

	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}

	return d.Round(100 * time.Millisecond).String()
}

// humanizeAge converts a time to a human-readable age string
func (f *Formatter) humanizeAge(t time.Time) string {
	if t.IsZero() {
		return "?"
	}

	duration := f.now().Sub(t)

	switch {
	case duration < time.Minute:
		return "just now"
	case duration < time.Hour:
		return plural(int(duration.Minutes()), "minute") + " ago"
	case duration < 24*time.Hour:
		return plural(int(duration.Hours()), "hour") + " ago"
	}

	days := int(duration.Hours() / 24)

	if days < 30 {
		return plural(days, "day") + " ago"
	} else if days < 365 {
		return plural(days/30, "month") + " ago"
	}

	return plural(days/365, "year") + " ago"
}

func plural(n int, unit string) string {
	if n == 1 {
		return "1 " + unit
	}

	return fmt.Sprintf("%d %ss", n, unit)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}

	return s
}
