package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"factfetch/internal/preflight"
	"factfetch/internal/transcribe"
)

type transcriptView struct {
	Video      string `json:"video"`
	Transcript string `json:"transcript,omitempty"`
	Language   string `json:"language,omitempty"`
	Skipped    bool   `json:"skipped,omitempty"`
	Error      string `json:"error,omitempty"`
}

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "transcribe <video>...",
		Short: "Write transcripts next to existing video files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			for _, status := range preflight.CheckSystemDeps(cfg) {
				if status.Name != "yt-dlp" && !status.Available {
					return fmt.Errorf("%s is required for transcription: %s", status.Name, status.Detail)
				}
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := newTranscriber(cfg, logger).Videos(runCtx, args)

			var failed int
			views := make([]transcriptView, 0, len(results))
			for _, r := range results {
				v := transcriptView{Video: r.Video, Transcript: r.Transcript, Language: r.Language, Skipped: r.Skipped}
				if r.Err != nil {
					failed++
					v.Error = r.Err.Error()
				}
				views = append(views, v)
			}

			if ctx.jsonOutput() {
				if err := writeJSON(cmd, views); err != nil {
					return err
				}
			} else {
				printTranscripts(cmd, results)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d transcriptions failed", failed, len(results))
			}
			return nil
		},
	}
}

func printTranscripts(cmd *cobra.Command, results []transcribe.Result) {
	out := cmd.OutOrStdout()
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		status := "written"
		switch {
		case r.Err != nil:
			status = "failed"
			if errors.Is(r.Err, context.Canceled) {
				status = "cancelled"
			}
		case r.Skipped:
			status = "exists"
		}
		rows = append(rows, []string{filepath.Base(r.Video), status, r.Language})
	}
	fmt.Fprintln(out, renderTable(out, []string{"Video", "Status", "Language"}, rows, nil))
}
