package model

import "time"

// UploadStatus describes how an upload invocation ended.
type UploadStatus string

const (
	// UploadStatusSucceeded means the response was decoded and rendered.
	UploadStatusSucceeded UploadStatus = "succeeded"

	// UploadStatusFailed means the request, the response or rendering failed.
	UploadStatusFailed UploadStatus = "failed"
)

// UploadRecord is one entry of the local upload history.
type UploadRecord struct {
	// ID is a random UUID assigned when the record is saved.
	ID string `json:"id"`

	// FileName is the name sent in the multipart part.
	FileName string `json:"file_name"`

	// Size is the number of content bytes sent.
	Size int64 `json:"size"`

	// Digest is the hex SHA3-256 of the content that was sent.
	Digest string `json:"digest,omitempty"`

	// Server is the base URL the file was posted to.
	Server string `json:"server"`

	// StatusCode is the HTTP status, zero when no response arrived.
	StatusCode int `json:"status_code,omitempty"`

	// Status is the outcome of the invocation.
	Status UploadStatus `json:"status"`

	// Display holds the rendered values for successful uploads.
	Display Display `json:"display"`

	// Error is the failure detail for failed uploads.
	Error string `json:"error,omitempty"`

	// CreatedAt is when the upload finished.
	CreatedAt time.Time `json:"created_at"`
}

// Succeeded reports whether the upload was rendered.
func (r *UploadRecord) Succeeded() bool {
	return r.Status == UploadStatusSucceeded
}
