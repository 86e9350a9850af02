// Package config provides configuration structures and utilities for csvupload.
// It defines where files are uploaded, how the HTTP client reaches the server,
// how results are rendered and where upload history is kept.
package config
