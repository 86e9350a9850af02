package uploader

import (
	"errors"
	"fmt"
	"strconv"
)

// User-facing alert messages.
const (
	// MessageNoFile is shown when the source has no selected file.
	MessageNoFile = "Please upload a CSV file first."

	// MessageUploadFailed is shown for every failure after a file was selected.
	MessageUploadFailed = "Error occurred while uploading file."
)

var (
	// ErrNoFileSelected is returned when the FileSource has nothing selected.
	// No request is sent in that case.
	ErrNoFileSelected = errors.New("no file selected")

	// ErrUploadFailed wraps every failure that happened after a file was selected.
	ErrUploadFailed = errors.New("upload failed")

	// ErrDecodeResponse wraps failures to decode or format the response body.
	ErrDecodeResponse = errors.New("failed to decode upload response")

	// ErrInvalidProxyURL is returned by NewHTTPClient for unusable proxy URLs.
	ErrInvalidProxyURL = errors.New("invalid proxy URL")

	// ErrInvalidServerURL is returned by New when the server URL cannot be used.
	ErrInvalidServerURL = errors.New("invalid server URL")

	// ErrMissingCollaborator is returned by New when the source, sink or notifier is nil.
	ErrMissingCollaborator = errors.New("uploader: source, sink and notifier are required")
)

// StatusError is returned when the server answers with a non-2xx status.
type StatusError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Status is the status line text, e.g. "500 Internal Server Error".
	Status string

	// Detail describes the body, such as the title of an HTML error page.
	Detail string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = strconv.Itoa(e.StatusCode)
	}
	if e.Detail == "" {
		return "server returned " + status
	}
	return fmt.Sprintf("server returned %s: %s", status, e.Detail)
}
