package config

import "time"

// File represents the structure of the .csvupload configuration file.
// Every field is optional; zero values leave the built-in default or the
// command line flag in effect.
type File struct {
	// Server is the base URL of the analysis server.
	Server string `yaml:"server,omitempty"`

	// Proxy routes uploads through a proxy (socks5://, http://).
	Proxy string `yaml:"proxy,omitempty"`

	// Timeout bounds each upload, e.g. "30s". Zero or absent means none.
	Timeout time.Duration `yaml:"timeout,omitempty"`

	// ImageDir downloads the chart images into this directory.
	ImageDir string `yaml:"imageDir,omitempty"`

	// Format selects the output format: text, json or markdown.
	Format string `yaml:"format,omitempty"`

	// LogFormat selects the log line format: text or json.
	LogFormat string `yaml:"logFormat,omitempty"`

	// History disables the upload history when set to false.
	History *bool `yaml:"history,omitempty"`
}

// Apply copies the values set in the file onto cfg.
// Fields listed in explicit were set on the command line and are left alone.
func (f *File) Apply(cfg *Config, explicit map[string]bool) error {
	if f.Server != "" && !explicit["server"] {
		cfg.ServerURL = f.Server
	}
	if f.Proxy != "" && !explicit["proxy"] {
		cfg.ProxyURL = f.Proxy
	}
	if f.Timeout != 0 && !explicit["timeout"] {
		cfg.Timeout = f.Timeout
	}
	if f.ImageDir != "" && !explicit["images"] {
		cfg.ImageDir = f.ImageDir
	}
	if f.LogFormat != "" && !explicit["log-format"] {
		cfg.LogFormat = f.LogFormat
	}
	if f.History != nil && !explicit["no-history"] {
		cfg.SaveToDB = *f.History
	}

	if f.Format != "" && !explicit["json"] && !explicit["markdown"] {
		switch f.Format {
		case FormatText:
			cfg.JSONReport, cfg.MarkdownReport = false, false
		case FormatJSON:
			cfg.JSONReport, cfg.MarkdownReport = true, false
		case FormatMarkdown:
			cfg.JSONReport, cfg.MarkdownReport = false, true
		default:
			return ErrUnknownFormat
		}
	}

	return nil
}
