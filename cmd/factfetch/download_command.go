package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
)

type downloadResult struct {
	Subject string   `json:"subject"`
	URLs    []string `json:"urls"`
	Saved   []string `json:"saved"`
}

func newDownloadCommand(ctx *commandContext) *cobra.Command {
	var fromText bool
	var withTranscripts bool

	cmd := &cobra.Command{
		Use:   "download <subject> <url|text>...",
		Short: "Download links directly, bypassing the mailbox",
		Long: "Download links directly, bypassing the mailbox.\n\n" +
			"With --text the remaining arguments are joined and scanned for supported links, " +
			"exactly as a mail body would be.",
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}
			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			subject := args[0]
			urls := args[1:]
			var saved []string
			if fromText {
				text := strings.Join(urls, " ")
				saved, err = a.pipeline.ProcessText(runCtx, subject, text)
			} else {
				saved, err = a.pipeline.Process(runCtx, subject, urls)
			}
			if err != nil && !errors.Is(err, runCtx.Err()) {
				return err
			}

			if withTranscripts && len(saved) > 0 {
				newTranscriber(cfg, logger).Videos(runCtx, saved)
			}

			if ctx.jsonOutput() {
				if werr := writeJSON(cmd, downloadResult{Subject: subject, URLs: urls, Saved: saved}); werr != nil {
					return werr
				}
				return err
			}
			out := cmd.OutOrStdout()
			if len(saved) == 0 {
				fmt.Fprintln(out, "No new videos saved")
				return err
			}
			for _, path := range saved {
				fmt.Fprintf(out, "Saved %s\n", filepath.Base(path))
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&fromText, "text", false, "Treat arguments as free text and extract links from it")
	cmd.Flags().BoolVar(&withTranscripts, "transcribe", false, "Write transcripts for the saved videos")
	return cmd
}
