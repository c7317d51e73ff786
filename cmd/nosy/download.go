package main

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/nosy/internal/progress"
	"github.com/hyperifyio/nosy/internal/whispermodel"
)

func newDownloadWhisperCmd() *cobra.Command {
	var (
		out        string
		overwrite  bool
		noProgress bool
		baseURL    string
	)
	cmd := &cobra.Command{
		Use:       "download-whisper <model>",
		Short:     "Download a Whisper model for audio transcription",
		Long:      "Download a ggml Whisper model. Models: " + strings.Join(whispermodel.ModelNames(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: whispermodel.ModelNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := whispermodel.ParseModel(args[0])
			if err != nil {
				return err
			}
			d := &whispermodel.Downloader{HTTPClient: http.DefaultClient, BaseURL: baseURL}
			if progress.Interactive(!noProgress) {
				d.Progress = os.Stderr
			}
			path, err := d.Download(cmd.Context(), m, out, overwrite)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s (%s) to %s\n%s\n", m.Filename(), whispermodel.Size(path), path, whispermodel.Hint(path))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&out, "out", "o", "", "Output file or directory")
	f.BoolVar(&overwrite, "overwrite", false, "Overwrite an existing file")
	f.BoolVar(&noProgress, "no-progress", false, "Disable the download progress bar")
	f.StringVar(&baseURL, "base-url", "", "Alternative model host (default "+whispermodel.DefaultBaseURL+")")
	_ = cmd.MarkFlagRequired("out")
	return cmd
}
