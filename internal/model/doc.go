// Package model defines the data exchanged with the analysis server and
// kept in the local history.
//
// UploadResponse is the decoded body of POST /upload. Display is the
// rendered form of a response: the pretty-printed summary and two site-root
// image paths. UploadRecord is a history entry describing one attempt.
package model
