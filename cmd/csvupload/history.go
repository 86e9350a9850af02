package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/csvupload/internal/config"
	"github.com/nao1215/csvupload/internal/database"
	"github.com/nao1215/csvupload/internal/model"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show previous uploads",
		Long: `History lists uploads recorded in the local history database, most
recent first. Failed uploads are listed too.

Examples:
  # List the last 20 uploads
  csvupload history

  # List the last 5 uploads as JSON
  csvupload history -n 5 -j

  # Show the result of one upload again
  csvupload history --id 9b2f6c1e-8a4d-4c55-9f0e-3e1d2a7b6c90

  # Delete all records
  csvupload history --clear`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", config.DefaultHistoryLimit,
		"Maximum number of uploads to list (0 lists all)")
	cmd.Flags().String("id", "",
		"Render the result of the upload with this ID")
	cmd.Flags().Bool("clear", false,
		"Delete all recorded uploads")
	cmd.Flags().BoolP("json", "j", false,
		"Output as JSON (mutually exclusive with --markdown)")
	cmd.Flags().BoolP("markdown", "m", false,
		"Render --id as Markdown (mutually exclusive with --json)")
	cmd.Flags().String("data-dir", "",
		"Directory of the history database (default: XDG data directory)")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	id, err := flags.GetString("id")
	if err != nil {
		return err
	}
	clearAll, err := flags.GetBool("clear")
	if err != nil {
		return err
	}
	if cfg.JSONReport, err = flags.GetBool("json"); err != nil {
		return err
	}
	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return err
	}
	dataDir, err := flags.GetString("data-dir")
	if err != nil {
		return err
	}
	if dataDir != "" {
		cfg.DBDir = dataDir
	}

	if cfg.JSONReport && cfg.MarkdownReport {
		return fmt.Errorf("configuration error: %w", config.ErrConflictingReportFormats)
	}
	if id != "" && clearAll {
		return errors.New("--id and --clear cannot be used together")
	}

	out := cmd.OutOrStdout()

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if errors.Is(err, os.ErrNotExist) {
		if id != "" {
			return fmt.Errorf("%w: %s", database.ErrNotFound, id)
		}
		fmt.Fprintln(out, "No uploads recorded yet.")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	switch {
	case clearAll:
		return clearHistory(ctx, out, db)
	case id != "":
		return showUpload(ctx, out, db, cfg, id)
	default:
		return listUploads(ctx, out, db, limit, cfg.JSONReport)
	}
}

// listUploads prints the most recent uploads.
func listUploads(ctx context.Context, w io.Writer, db *database.UploadDB, limit int, asJSON bool) error {
	records, err := db.ListUploads(ctx, limit)
	if err != nil {
		return err
	}

	if asJSON {
		if records == nil {
			records = []*model.UploadRecord{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "No uploads recorded yet.")
		fmt.Fprintln(w, "\nUse 'csvupload upload <file>' to upload a CSV file.")
		return nil
	}

	fmt.Fprintf(w, "Recent uploads (%d):\n\n", len(records))
	fmt.Fprintf(w, "  %-36s  %-19s  %-9s  %10s  %s\n", "ID", "Date", "Status", "Bytes", "File")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 96))

	for _, r := range records {
		fmt.Fprintf(w, "  %-36s  %-19s  %-9s  %10d  %s\n",
			r.ID,
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Status,
			r.Size,
			r.FileName,
		)
	}

	fmt.Fprintln(w, "\nUse 'csvupload history --id <id>' to show the result of an upload.")
	return nil
}

// showUpload renders one recorded upload through the configured sink.
func showUpload(ctx context.Context, w io.Writer, db *database.UploadDB, cfg *config.Config, id string) error {
	record, err := db.GetUpload(ctx, id)
	if err != nil {
		return err
	}

	if !record.Succeeded() {
		if cfg.JSONReport {
			encoder := json.NewEncoder(w)
			encoder.SetIndent("", "  ")
			return encoder.Encode(record)
		}
		fmt.Fprintf(w, "Upload of %s to %s failed: %s\n", record.FileName, record.Server, record.Error)
		return nil
	}

	cfg.ServerURL = record.Server
	return newSink(cfg, w).Show(record.Display)
}

// clearHistory deletes every record.
func clearHistory(ctx context.Context, w io.Writer, db *database.UploadDB) error {
	n, err := db.DeleteAll(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Deleted %d upload record(s).\n", n)
	return nil
}
