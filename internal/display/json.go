package display

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/nao1215/csvupload/internal/model"
)

// JSONSink writes results as indented JSON, one document per upload.
type JSONSink struct {
	output io.Writer
}

// NewJSONSink creates a JSONSink writing to output.
func NewJSONSink(output io.Writer) *JSONSink {
	return &JSONSink{output: output}
}

// Show implements Sink. The document is written with a single Write call.
func (s *JSONSink) Show(d model.Display) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(d); err != nil {
		return fmt.Errorf("failed to encode JSON output: %w", err)
	}
	if _, err := s.output.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("failed to write JSON output: %w", err)
	}
	return nil
}
