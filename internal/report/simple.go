package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/merrlog/merrlog/internal/model"
)

// maxFailureLines caps the failure list in non-verbose output.
const maxFailureLines = 10

// SimpleWriter outputs human-readable text summaries.
// This format is designed for terminal display at the end of a run.
//
// Design decision: We use plain text with ASCII formatting rather than
// ANSI colors by default because:
// 1. It works in all terminals without compatibility issues
// 2. It's easier to pipe to files or other tools
// 3. Color can be added as an option later if needed
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with nothing to say are shown.
	showEmpty bool

	// verbose lists every failure instead of the first few.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose lists every recorded failure in the output.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		showEmpty:  false,
		verbose:    false,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary in human-readable format.
func (w *SimpleWriter) Write(report *model.CrawlReport) (int, error) {
	var sb strings.Builder

	w.writeHeader(&sb, report)
	w.writeCounters(&sb, report)
	w.writeFailures(&sb, report)
	w.writeOutputs(&sb, report)
	w.writeFooter(&sb)

	return w.output.Write([]byte(sb.String()))
}

// writeHeader writes the report header with run information.
func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                          CRAWL REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("Run ID:     %s\n", report.RunID))
	sb.WriteString(fmt.Sprintf("Target:     %s%s\n", report.BaseURL, report.ListingPath))
	sb.WriteString(fmt.Sprintf("Started:    %s\n", report.StartedAt.Format("2006-01-02 15:04:05 MST")))
	sb.WriteString(fmt.Sprintf("Duration:   %s\n", report.Duration.Round(10*time.Millisecond)))
	sb.WriteString("\n")
}

// writeCounters writes the page and listing counter sections.
func (w *SimpleWriter) writeCounters(sb *strings.Builder, report *model.CrawlReport) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("PAGES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  PLANNED:   %d\n", report.PagesPlanned))
	sb.WriteString(fmt.Sprintf("  INDEXED:   %d\n", report.PagesIndexed))
	sb.WriteString(fmt.Sprintf("  FAILED:    %d\n", report.PagesFailed))
	sb.WriteString("\n")

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("LISTINGS\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  FOUND:     %d\n", report.ListingsFound))
	sb.WriteString(fmt.Sprintf("  COMPLETED: %d\n", report.Completed))
	sb.WriteString(fmt.Sprintf("  FAILED:    %d\n", report.Failed))
	sb.WriteString(fmt.Sprintf("  SKIPPED:   %d\n", report.Skipped))
	sb.WriteString("\n")
}

// writeFailures writes the failure list.
func (w *SimpleWriter) writeFailures(sb *strings.Builder, report *model.CrawlReport) {
	if !report.HasFailures() && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("FAILURES\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if !report.HasFailures() {
		sb.WriteString("  No failures\n\n")
		return
	}

	limit := len(report.Failures)
	if !w.verbose && limit > maxFailureLines {
		limit = maxFailureLines
	}

	for _, f := range report.Failures[:limit] {
		sb.WriteString(fmt.Sprintf("  [%s] %s\n", f.Phase, f.URL))
		sb.WriteString(fmt.Sprintf("      %s (attempts: %d)\n", f.Reason, f.Attempts))
	}
	if remaining := len(report.Failures) - limit; remaining > 0 {
		sb.WriteString(fmt.Sprintf("  ... and %d more (use verbose output for the full list)\n", remaining))
	}
	sb.WriteString("\n")
}

// writeOutputs writes where the run's data went.
func (w *SimpleWriter) writeOutputs(sb *strings.Builder, report *model.CrawlReport) {
	if report.OutputPath == "" && report.StorePath == "" && !w.showEmpty {
		return
	}

	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString("OUTPUT\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")

	if report.OutputPath != "" {
		sb.WriteString(fmt.Sprintf("  CSV:       %s\n", report.OutputPath))
	}
	if report.StorePath != "" {
		sb.WriteString(fmt.Sprintf("  Database:  %s\n", report.StorePath))
	}
	sb.WriteString("\n")
}

// writeFooter writes the report footer.
func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
