package display

import (
	"bytes"
	"fmt"
	"io"

	"github.com/nao1215/markdown"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/csvupload/internal/model"
)

// Section names used as Markdown headings.
const (
	sectionSummary   = "summary"
	sectionHistogram = "histogram"
	sectionHeatmap   = "heatmap"
)

// MarkdownSink writes results as GitHub-flavored Markdown, suitable for a
// report file or a pull request comment.
type MarkdownSink struct {
	output  io.Writer
	baseURL string
	title   cases.Caser
}

// NewMarkdownSink creates a MarkdownSink writing to output. Image links are
// absolute when baseURL is not empty.
func NewMarkdownSink(output io.Writer, baseURL string) *MarkdownSink {
	return &MarkdownSink{
		output:  output,
		baseURL: baseURL,
		title:   cases.Title(language.English),
	}
}

// Show implements Sink. The document is written with a single Write call.
func (s *MarkdownSink) Show(d model.Display) error {
	var buf bytes.Buffer
	md := markdown.NewMarkdown(&buf)

	md.H1("CSV Analysis")
	md.PlainText("")

	md.H2(s.title.String(sectionSummary))
	md.PlainText("")
	if d.Summary == "" {
		md.PlainText("The server returned no summary.")
	} else {
		md.CodeBlocks(markdown.SyntaxHighlightJSON, d.Summary)
	}
	md.PlainText("")

	for _, img := range []struct {
		section string
		path    string
	}{
		{sectionHistogram, d.HistogramPath},
		{sectionHeatmap, d.HeatmapPath},
	} {
		label := s.title.String(img.section)
		md.H2(label)
		md.PlainText("")
		md.PlainTextf("![%s](%s)", label, resolve(s.baseURL, img.path))
		md.PlainText("")
	}

	if err := md.Build(); err != nil {
		return fmt.Errorf("failed to build Markdown output: %w", err)
	}
	if _, err := s.output.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write Markdown output: %w", err)
	}
	return nil
}
