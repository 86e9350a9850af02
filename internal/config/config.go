package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultServerURL is the address of a locally running analysis server.
	// Port 5000 is where a development Flask server listens.
	DefaultServerURL = "http://127.0.0.1:5000"

	// DefaultTimeout of zero disables the request timeout. An upload waits for
	// the server for as long as it takes unless the user interrupts it.
	DefaultTimeout time.Duration = 0

	// DefaultHistoryLimit is how many records "history" lists by default.
	DefaultHistoryLimit = 20

	// AppName is the application name used for XDG directory paths.
	AppName = "csvupload"
)

// Output formats for rendering an upload result.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Log formats for diagnostics written to stderr.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

// Config holds all configuration options for csvupload.
// It is populated from CLI flags and the optional config file, then passed
// explicitly to the components that need it.
type Config struct {
	// ServerURL is the base URL of the analysis server. The file is posted to
	// ServerURL + "/upload" and image paths are resolved against it.
	ServerURL string

	// FilePath is the file to upload. Empty means nothing was selected;
	// "-" selects standard input.
	FilePath string

	// ProxyURL routes requests through a proxy. Supported schemes are
	// socks5, socks5h, http and https. Empty means a direct connection.
	ProxyURL string

	// Timeout bounds the whole request. Zero means no timeout.
	Timeout time.Duration

	// Verbose enables debug logging.
	Verbose bool

	// LogFormat selects text or JSON log lines.
	LogFormat string

	// ConfigFilePath is the path to the configuration file.
	// If empty, .csvupload is searched in the current and home directories.
	ConfigFilePath string

	// JSONReport renders the result as JSON. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport renders the result as Markdown. Mutually exclusive with JSONReport.
	MarkdownReport bool

	// ReportFile writes the rendered result to a file instead of stdout.
	ReportFile string

	// ImageDir, when set, downloads the histogram and heatmap images into
	// this directory after a successful upload.
	ImageDir string

	// SaveToDB records every upload in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		ServerURL: DefaultServerURL,
		Timeout:   DefaultTimeout,
		LogFormat: LogFormatText,
		SaveToDB:  true,
		DBDir:     XDGDataDir(),
	}
}

// Format returns the selected output format.
func (c *Config) Format() string {
	switch {
	case c.JSONReport:
		return FormatJSON
	case c.MarkdownReport:
		return FormatMarkdown
	default:
		return FormatText
	}
}

// XDGDataDir returns the XDG data directory for csvupload.
// On Linux: ~/.local/share/csvupload
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// XDGConfigDir returns the XDG config directory for csvupload.
// On Linux: ~/.config/csvupload
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// Validate checks if the configuration is valid and returns the first
// problem found.
//
// A missing file is deliberately not a configuration error: the uploader
// reports it to the user the same way an empty file picker would.
func (c *Config) Validate() error {
	if err := validateServerURL(c.ServerURL); err != nil {
		return err
	}

	if c.Timeout < 0 {
		return ErrInvalidTimeout
	}

	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}

	if c.ProxyURL != "" {
		if err := validateProxyURL(c.ProxyURL); err != nil {
			return err
		}
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return ErrUnknownLogFormat
	}

	if c.SaveToDB && c.DBDir == "" {
		return ErrNoDBDir
	}

	return nil
}

// validateServerURL requires an absolute http(s) URL with a host.
func validateServerURL(raw string) error {
	if raw == "" {
		return ErrNoServerURL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidServerURL
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ErrInvalidServerURL
	}
	if u.Host == "" {
		return ErrInvalidServerURL
	}
	return nil
}

// validateProxyURL requires one of the supported proxy schemes and a host.
func validateProxyURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return ErrInvalidProxyURL
	}
	switch u.Scheme {
	case "socks5", "socks5h", "http", "https":
	default:
		return ErrInvalidProxyURL
	}
	if u.Host == "" {
		return ErrInvalidProxyURL
	}
	return nil
}
