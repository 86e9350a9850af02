package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers can match them with errors.Is.
var (
	// ErrNoServerURL is returned when no server URL is configured.
	ErrNoServerURL = errors.New("no server URL specified: use --server or set server in the config file")

	// ErrInvalidServerURL is returned when the server URL is not an absolute http(s) URL.
	ErrInvalidServerURL = errors.New("invalid server URL: expected http://host[:port] or https://host[:port]")

	// ErrInvalidTimeout is returned when the timeout is negative.
	// Use 0 to disable the timeout.
	ErrInvalidTimeout = errors.New("invalid timeout: must be non-negative")

	// ErrConflictingReportFormats is returned when both --json and --markdown
	// are specified.
	ErrConflictingReportFormats = errors.New("conflicting report formats: --json and --markdown cannot be used together")

	// ErrInvalidProxyURL is returned when the proxy URL has an unsupported
	// scheme or no host.
	ErrInvalidProxyURL = errors.New("invalid proxy URL: expected socks5://, socks5h://, http:// or https:// with a host")

	// ErrNoDBDir is returned when history is enabled without a directory.
	ErrNoDBDir = errors.New("history is enabled but no database directory is set")

	// ErrUnknownFormat is returned when the config file names an unknown format.
	ErrUnknownFormat = errors.New("unknown format: expected text, json or markdown")

	// ErrUnknownLogFormat is returned when the log format is neither text nor json.
	ErrUnknownLogFormat = errors.New("unknown log format: expected text or json")
)
