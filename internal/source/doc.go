// Package source provides FileSource implementations for the uploader.
//
// A source only references the selected file; content is read when the
// uploader opens it, once per upload.
package source
