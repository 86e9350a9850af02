package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/csvupload/internal/uploader"
)

// NewRootCmd creates the root command for csvupload.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "csvupload",
		Short: "Upload CSV files to a data analysis server",
		Long: `csvupload sends a CSV file to a data analysis server and shows the result.

The server is expected to accept a multipart POST on /upload and answer with a
JSON object holding summary statistics and the paths of a histogram and a
heatmap image. Every upload is recorded in a local history database.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewUploadCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		if !alreadyAlerted(err) {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// alreadyAlerted reports whether the user has already been shown a message
// for err, so printing it again would only duplicate the alert.
func alreadyAlerted(err error) bool {
	return errors.Is(err, uploader.ErrNoFileSelected) || errors.Is(err, uploader.ErrUploadFailed)
}
