package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/merrlog/merrlog/internal/model"
)

// MarkdownWriter outputs reports in Markdown format.
// This format is designed for documentation and sharing.
//
// Design decision: We use the nao1215/markdown library for fluent markdown
// generation which provides:
// 1. Type-safe markdown generation
// 2. Support for tables, lists, and code blocks
// 3. GitHub-flavored markdown alerts
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.CrawlReport) (int, error) {
	md := markdown.NewMarkdown(w.output)

	w.writeHeader(md, report)
	w.writeCounters(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the report header with run information.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.CrawlReport) {
	md.H1("Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + report.RunID + "`"},
			{"Target", report.BaseURL + report.ListingPath},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", report.Duration.Round(10 * time.Millisecond).String()},
			{"Output", w.outputsText(report)},
		},
	})
	md.PlainText("")
}

// outputsText summarizes where the run's data went.
func (w *MarkdownWriter) outputsText(report *model.CrawlReport) string {
	switch {
	case report.OutputPath != "" && report.StorePath != "":
		return "`" + report.OutputPath + "`, `" + report.StorePath + "`"
	case report.OutputPath != "":
		return "`" + report.OutputPath + "`"
	case report.StorePath != "":
		return "`" + report.StorePath + "`"
	default:
		return "-"
	}
}

// writeCounters writes the page and listing counter tables.
func (w *MarkdownWriter) writeCounters(md *markdown.Markdown, report *model.CrawlReport) {
	md.H2("Pages")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Planned", "Indexed", "Failed"},
		Rows: [][]string{{
			strconv.Itoa(report.PagesPlanned),
			strconv.Itoa(report.PagesIndexed),
			strconv.Itoa(report.PagesFailed),
		}},
	})
	md.PlainText("")

	md.H2("Listings")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Found", "Completed", "Failed", "Skipped"},
		Rows: [][]string{{
			strconv.Itoa(report.ListingsFound),
			strconv.Itoa(report.Completed),
			strconv.Itoa(report.Failed),
			strconv.Itoa(report.Skipped),
		}},
	})
	md.PlainText("")

	if report.Completed > 0 || report.Failed > 0 || report.Skipped > 0 {
		w.writePieChart(md, report)
	}

	w.writeAlert(md, report)
}

// writePieChart writes a mermaid pie chart of listing outcomes.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, report *model.CrawlReport) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Listing Outcomes"),
		piechart.WithShowData(true),
	)

	if report.Completed > 0 {
		chart.LabelAndIntValue("Completed", uint64(report.Completed))
	}
	if report.Failed > 0 {
		chart.LabelAndIntValue("Failed", uint64(report.Failed))
	}
	if report.Skipped > 0 {
		chart.LabelAndIntValue("Skipped", uint64(report.Skipped))
	}

	md.PlainText("")
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeAlert writes an alert reflecting how the run went.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.CrawlReport) {
	switch {
	case report.ListingsFound > 0 && report.Completed == 0:
		md.Cautionf(
			"No listings were captured: all %d found listings failed.",
			report.ListingsFound,
		)
	case report.Failed > 0 || report.PagesFailed > 0:
		md.Warningf(
			"%d page(s) and %d listing(s) failed terminally; see the failure table below.",
			report.PagesFailed, report.Failed,
		)
	case report.Completed > 0:
		md.Tip(fmt.Sprintf("All %d listings captured successfully.", report.Completed))
	default:
		md.Note("The run found no listings within the configured page bound.")
	}
	md.PlainText("")
}

// writeFailures writes a table of every terminal failure.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.CrawlReport) {
	if !report.HasFailures() {
		return
	}

	md.H2("Failures")
	md.PlainText("")

	rows := make([][]string, len(report.Failures))
	for i, f := range report.Failures {
		rows[i] = []string{
			f.Phase,
			truncateString(f.URL, 60),
			strconv.Itoa(f.Attempts),
			truncateString(f.Reason, 60),
		}
	}

	md.Table(markdown.TableSet{
		Header: []string{"Phase", "URL", "Attempts", "Reason"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by merrlog*")
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
