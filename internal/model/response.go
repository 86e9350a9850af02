package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Response decoding errors.
var (
	// ErrEmptyBody is returned when the server answered with no body at all.
	ErrEmptyBody = errors.New("empty response body")

	// ErrInvalidJSON is returned when the body is not syntactically valid JSON.
	ErrInvalidJSON = errors.New("response body is not valid JSON")

	// ErrNotAnObject is returned when the body is valid JSON but not an object.
	ErrNotAnObject = errors.New("response body is not a JSON object")
)

// UploadResponse is the payload returned by POST /upload.
//
// No invariants are enforced on the fields. A missing key is rendered as
// "undefined", so an incomplete response still renders.
type UploadResponse struct {
	// Summary is an arbitrary JSON value. It is kept raw so that key order and
	// number formatting survive until it is rendered.
	Summary json.RawMessage

	// Histogram is a path fragment relative to the site root.
	Histogram PathFragment

	// Heatmap is a path fragment relative to the site root.
	Heatmap PathFragment
}

// wireResponse keeps every field raw so that a missing key can be told apart
// from a JSON null.
type wireResponse struct {
	Summary   json.RawMessage `json:"summary"`
	Histogram json.RawMessage `json:"histogram"`
	Heatmap   json.RawMessage `json:"heatmap"`
}

// DecodeUploadResponse decodes a response body.
// Any syntactically valid JSON object is accepted.
func DecodeUploadResponse(body []byte) (*UploadResponse, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, ErrEmptyBody
	}
	if !json.Valid(trimmed) {
		return nil, ErrInvalidJSON
	}
	if trimmed[0] != '{' {
		return nil, ErrNotAnObject
	}

	var wire wireResponse
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	histogram, err := decodeFragment(wire.Histogram)
	if err != nil {
		return nil, fmt.Errorf("failed to decode histogram: %w", err)
	}
	heatmap, err := decodeFragment(wire.Heatmap)
	if err != nil {
		return nil, fmt.Errorf("failed to decode heatmap: %w", err)
	}
	return &UploadResponse{
		Summary:   wire.Summary,
		Histogram: histogram,
		Heatmap:   heatmap,
	}, nil
}

// SummaryText returns the summary as JSON.stringify(summary, null, 2) would:
// two-space indentation, integer-like keys first, numbers in their shortest
// form and only control characters escaped.
// A missing summary yields an empty string and a JSON null yields "null".
func (r *UploadResponse) SummaryText() (string, error) {
	if len(r.Summary) == 0 {
		return "", nil
	}

	v, err := parseValue(r.Summary)
	if err != nil {
		return "", fmt.Errorf("failed to format summary: %w", err)
	}
	return v.stringify(), nil
}

// Display converts the response into the values written to a display sink.
func (r *UploadResponse) Display() (Display, error) {
	summary, err := r.SummaryText()
	if err != nil {
		return Display{}, err
	}
	return Display{
		Summary:       summary,
		HistogramPath: r.Histogram.SitePath(),
		HeatmapPath:   r.Heatmap.SitePath(),
	}, nil
}

// PathFragment is a server-relative path returned by the analysis server.
type PathFragment string

// decodeFragment converts a raw field to text with string concatenation
// rules: a missing field becomes "undefined", null becomes "null", arrays are
// joined with "," and objects become "[object Object]".
func decodeFragment(raw json.RawMessage) (PathFragment, error) {
	if raw == nil {
		return "undefined", nil
	}
	v, err := parseValue(raw)
	if err != nil {
		return "", err
	}
	return PathFragment(v.coerce()), nil
}

// SitePath returns the fragment prefixed with "/".
// The fragment is not cleaned: "static/h.png" becomes "/static/h.png" and an
// empty fragment becomes "/".
func (p PathFragment) SitePath() string {
	return "/" + string(p)
}

// Display holds what a sink renders after a successful upload.
type Display struct {
	// Summary is the pretty-printed summary JSON.
	Summary string `json:"summary"`

	// HistogramPath is the site-root path of the histogram image.
	HistogramPath string `json:"histogram"`

	// HeatmapPath is the site-root path of the heatmap image.
	HeatmapPath string `json:"heatmap"`
}
