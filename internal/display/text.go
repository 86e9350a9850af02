package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/csvupload/internal/model"
)

// TextSink writes results as plain text for the terminal.
type TextSink struct {
	output  io.Writer
	baseURL string
}

// TextSinkOption configures a TextSink.
type TextSinkOption func(*TextSink)

// WithBaseURL prints image locations as absolute URLs on the given server
// instead of site-root paths.
func WithBaseURL(baseURL string) TextSinkOption {
	return func(s *TextSink) {
		s.baseURL = baseURL
	}
}

// NewTextSink creates a TextSink writing to output.
func NewTextSink(output io.Writer, opts ...TextSinkOption) *TextSink {
	s := &TextSink{output: output}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Show implements Sink.
func (s *TextSink) Show(d model.Display) error {
	var sb strings.Builder

	sb.WriteString("Summary:\n")
	if d.Summary != "" {
		sb.WriteString(d.Summary)
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Histogram: %s\n", resolve(s.baseURL, d.HistogramPath))
	fmt.Fprintf(&sb, "Heatmap:   %s\n", resolve(s.baseURL, d.HeatmapPath))

	if _, err := io.WriteString(s.output, sb.String()); err != nil {
		return fmt.Errorf("failed to write text output: %w", err)
	}
	return nil
}
