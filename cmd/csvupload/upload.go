package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/csvupload/internal/config"
	"github.com/nao1215/csvupload/internal/database"
	"github.com/nao1215/csvupload/internal/display"
	"github.com/nao1215/csvupload/internal/images"
	"github.com/nao1215/csvupload/internal/log"
	"github.com/nao1215/csvupload/internal/model"
	"github.com/nao1215/csvupload/internal/source"
	"github.com/nao1215/csvupload/internal/uploader"
)

// stdinPath selects standard input as the file to upload.
const stdinPath = "-"

// stdinFileName is the name standard input is uploaded under.
const stdinFileName = "stdin.csv"

// NewUploadCmd creates the upload command.
func NewUploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload [file]",
		Short: "Upload a CSV file and show the analysis result",
		Long: `Upload posts a CSV file to <server>/upload as multipart/form-data and
renders the JSON answer: the pretty-printed summary and the locations of
the histogram and heatmap images.

Use "-" as the file to read the CSV from standard input.

Examples:
  # Upload to a local development server
  csvupload upload sales.csv

  # Upload to another server and print the result as JSON
  csvupload upload -s https://analysis.example.com -j sales.csv

  # Read from standard input and write a Markdown report
  cat sales.csv | csvupload upload -m -o report.md -

  # Also download the chart images
  csvupload upload -i ./charts sales.csv

Configuration file (.csvupload) example:
  server: http://analysis.internal:5000
  proxy: socks5h://127.0.0.1:1080
  timeout: 30s
  imageDir: ./charts
  format: markdown`,
		Args: cobra.MaximumNArgs(1),
		RunE: runUploadCmd,
	}

	cmd.Flags().StringP("server", "s", config.DefaultServerURL,
		"Base URL of the analysis server")
	cmd.Flags().String("proxy", "",
		"Proxy URL (socks5://, socks5h://, http:// or https://)")
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Request timeout (0 waits indefinitely)")

	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (default: .csvupload in current or home directory)")

	cmd.Flags().BoolP("json", "j", false,
		"Output the result as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output the result as Markdown (mutually exclusive with --json)")
	cmd.Flags().StringP("output", "o", "",
		"Write the result to specified file path (creates directories if needed)")

	cmd.Flags().StringP("images", "i", "",
		"Download the histogram and heatmap into this directory")
	cmd.Flags().Bool("no-history", false,
		"Do not record this upload in the history database")
	cmd.Flags().String("data-dir", "",
		"Directory of the history database (default: XDG data directory)")
	cmd.Flags().String("log-format", config.LogFormatText,
		"Log line format on stderr: text or json")

	return cmd
}

// runUploadCmd executes the upload command.
func runUploadCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := newLogger(cfg, cmd.ErrOrStderr())
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runUpload(ctx, cmd, cfg, logger)
}

// newLogger returns the secure logger for the configured log format.
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	if cfg.LogFormat == config.LogFormatJSON {
		return log.NewSecureJSONLogger(w, cfg.Verbose)
	}
	return log.NewSecureLogger(w, cfg.Verbose)
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// buildConfig creates a Config from the config file and cobra command flags.
// Flags given on the command line override values from the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error

	if cfg.ServerURL, err = flags.GetString("server"); err != nil {
		return nil, err
	}
	if cfg.ProxyURL, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if cfg.ConfigFilePath, err = flags.GetString("config"); err != nil {
		return nil, err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return nil, err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.ImageDir, err = flags.GetString("images"); err != nil {
		return nil, err
	}
	if cfg.LogFormat, err = flags.GetString("log-format"); err != nil {
		return nil, err
	}

	noHistory, err := flags.GetBool("no-history")
	if err != nil {
		return nil, err
	}
	cfg.SaveToDB = !noHistory

	dataDir, err := flags.GetString("data-dir")
	if err != nil {
		return nil, err
	}
	if dataDir != "" {
		cfg.DBDir = dataDir
	}

	cfg.Verbose = getVerboseFlag(cmd)

	if err := applyConfigFile(cmd, cfg); err != nil {
		return nil, err
	}

	if len(args) > 0 {
		cfg.FilePath = args[0]
	}

	return cfg, nil
}

// applyConfigFile loads the configuration file, if any, onto cfg.
// A file given with --config must exist; otherwise a missing file is fine.
func applyConfigFile(cmd *cobra.Command, cfg *config.Config) error {
	configPath := config.FindConfigFile(cfg.ConfigFilePath)
	if configPath == "" {
		if cfg.ConfigFilePath != "" {
			return fmt.Errorf("%w: %s", config.ErrConfigNotFound, cfg.ConfigFilePath)
		}
		return nil
	}

	file, err := config.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config file %s: %w", configPath, err)
	}

	explicit := make(map[string]bool)
	for _, name := range []string{"server", "proxy", "timeout", "images", "no-history", "json", "markdown", "log-format"} {
		explicit[name] = cmd.Flags().Changed(name)
	}

	if err := file.Apply(cfg, explicit); err != nil {
		return fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return nil
}

// runUpload performs one upload with the given configuration.
func runUpload(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger *slog.Logger) error {
	report, closeReport, err := openReport(cfg.ReportFile)
	if err != nil {
		return err
	}
	defer closeReport()

	client, err := uploader.NewHTTPClient(uploader.ClientOptions{
		Timeout:  cfg.Timeout,
		ProxyURL: cfg.ProxyURL,
	})
	if err != nil {
		return err
	}

	opts := []uploader.Option{
		uploader.WithHTTPClient(client),
		uploader.WithLogger(logger),
	}

	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		logger.Debug("database opened", "path", db.Path())

		opts = append(opts, uploader.WithObserver(historyRecorder(ctx, db, cfg.ServerURL, logger)))
	}

	u, err := uploader.New(
		cfg.ServerURL,
		newSource(cmd, cfg.FilePath),
		uploadSink(cfg, cmd.OutOrStdout(), report),
		display.NewWriterNotifier(cmd.ErrOrStderr()),
		opts...,
	)
	if err != nil {
		return err
	}

	result, err := u.Upload(ctx)
	if err != nil {
		return err
	}

	if cfg.ImageDir == "" {
		return nil
	}
	return downloadImages(ctx, cmd.ErrOrStderr(), images.NewFetcher(client, cfg.ServerURL, cfg.ImageDir, logger), result.Display)
}

// newSource maps the file argument to a FileSource. "-" reads standard input.
func newSource(cmd *cobra.Command, path string) uploader.FileSource {
	if path == stdinPath {
		return source.NewReaderSource(stdinFileName, cmd.InOrStdin())
	}
	return source.NewPathSource(path)
}

// newSink returns the sink for the configured output format.
func newSink(cfg *config.Config, output io.Writer) uploader.DisplaySink {
	switch cfg.Format() {
	case config.FormatJSON:
		return display.NewJSONSink(output)
	case config.FormatMarkdown:
		return display.NewMarkdownSink(output, cfg.ServerURL)
	default:
		return display.NewTextSink(output, display.WithBaseURL(cfg.ServerURL))
	}
}

// uploadSink renders to stdout in the configured format. With a report file,
// the terminal gets the text rendering and the file gets the configured format.
func uploadSink(cfg *config.Config, stdout, report io.Writer) uploader.DisplaySink {
	if report == nil {
		return newSink(cfg, stdout)
	}
	return display.NewMultiSink(
		display.NewTextSink(stdout, display.WithBaseURL(cfg.ServerURL)),
		newSink(cfg, report),
	)
}

// openReport creates the report file. It returns a nil writer when path is
// empty. The returned function closes the file.
func openReport(path string) (io.Writer, func(), error) {
	if path == "" {
		return nil, func() {}, nil
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	// Reports are only readable by the owner.
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) // #nosec G304 -- path is chosen by the user
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil //nolint:errcheck // Write errors surface through the sink
}

// historyRecorder returns an observer that saves every attempt to db.
// Saving uses a context that survives cancellation of the upload so that
// interrupted uploads are recorded too.
func historyRecorder(ctx context.Context, db *database.UploadDB, server string, logger *slog.Logger) uploader.Observer {
	saveCtx := context.WithoutCancel(ctx)
	return func(outcome uploader.Outcome) {
		record := newUploadRecord(server, outcome)
		if err := db.SaveUpload(saveCtx, record); err != nil {
			logger.Warn("failed to record upload", "file", record.FileName, "error", err)
			return
		}
		logger.Debug("upload recorded", "id", record.ID, "status", record.Status)
	}
}

// newUploadRecord converts an upload outcome into a history record.
func newUploadRecord(server string, outcome uploader.Outcome) *model.UploadRecord {
	record := &model.UploadRecord{
		Server:    server,
		Status:    model.UploadStatusSucceeded,
		CreatedAt: time.Now(),
	}
	if r := outcome.Result; r != nil {
		record.FileName = r.FileName
		record.Size = r.Size
		record.Digest = r.Digest
		record.StatusCode = r.StatusCode
		record.Display = r.Display
	}
	if outcome.Err != nil {
		record.Status = model.UploadStatusFailed
		record.Error = outcome.Err.Error()
		record.Display = model.Display{}
	}
	return record
}

// downloadImages fetches the chart images and reports where they were saved.
func downloadImages(ctx context.Context, w io.Writer, fetcher *images.Fetcher, d model.Display) error {
	saved, err := fetcher.FetchAll(ctx, d)
	for _, img := range saved {
		if img.Err != nil {
			fmt.Fprintf(w, "Failed to download %s from %s: %v\n", img.Kind, img.URL, img.Err)
			continue
		}
		fmt.Fprintf(w, "Saved %s to %s\n", img.Kind, img.Path)
	}
	if err != nil {
		return fmt.Errorf("failed to download images: %w", err)
	}
	return nil
}
