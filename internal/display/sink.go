package display

import (
	"fmt"
	"io"

	"github.com/nao1215/csvupload/internal/model"
)

// Sink is the rendering side of uploader.DisplaySink.
type Sink interface {
	Show(d model.Display) error
}

// MultiSink shows a display on several sinks in order.
// It stops at the first error.
type MultiSink struct {
	sinks []Sink
}

// NewMultiSink creates a sink that forwards to all given sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Show implements Sink.
func (m *MultiSink) Show(d model.Display) error {
	for _, s := range m.sinks {
		if err := s.Show(d); err != nil {
			return err
		}
	}
	return nil
}

// WriterNotifier prints alerts to a writer, one per line.
type WriterNotifier struct {
	output io.Writer
}

// NewWriterNotifier creates a notifier writing to output.
func NewWriterNotifier(output io.Writer) *WriterNotifier {
	return &WriterNotifier{output: output}
}

// Alert implements uploader.Notifier.
func (n *WriterNotifier) Alert(message string) {
	_, _ = fmt.Fprintln(n.output, message) //nolint:errcheck // Nothing sensible to do if stderr is gone
}

// resolve turns a site path into an absolute URL when baseURL is set.
// It falls back to the path itself when the URLs cannot be parsed.
func resolve(baseURL, sitePath string) string {
	if baseURL == "" {
		return sitePath
	}
	abs, err := model.ResolveSitePath(baseURL, sitePath)
	if err != nil {
		return sitePath
	}
	return abs
}
