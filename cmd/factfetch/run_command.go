package main

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"factfetch/internal/daemon"
	"factfetch/internal/logging"
	"factfetch/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll the mailbox once and process new link batches",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateInbox(); err != nil {
				return err
			}
			if err := requireReady(cfg); err != nil {
				return err
			}
			logger, err := ctx.ensureLogger()
			if err != nil {
				return err
			}

			lock, err := daemon.AcquireLock(cfg.LockPath())
			if err != nil {
				return err
			}
			defer func() {
				if err := lock.Unlock(); err != nil {
					logger.Warn("failed to release lock", logging.Error(err))
				}
			}()

			a, err := newApp(cfg, logger)
			if err != nil {
				return err
			}
			defer a.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			summary, runErr := a.workflow().RunOnce(runCtx)
			if ctx.jsonOutput() {
				if err := writeJSON(cmd, summary); err != nil {
					return err
				}
			} else {
				printSummary(cmd, summary)
			}
			return runErr
		},
	}
}

func printSummary(cmd *cobra.Command, summary workflow.Summary) {
	out := cmd.OutOrStdout()
	if len(summary.Batches) == 0 {
		fmt.Fprintf(out, "No new link batches (%d messages ignored)\n", summary.Ignored)
		return
	}
	rows := make([][]string, 0, len(summary.Batches))
	for _, b := range summary.Batches {
		rows = append(rows, []string{
			b.Subject,
			strconv.Itoa(b.Submitted),
			strconv.Itoa(len(b.Saved)),
			yesNo(b.FactCheck),
			strconv.Itoa(b.Transcripts),
		})
	}
	fmt.Fprintln(out, renderTable(out,
		[]string{"Subject", "Links", "Saved", "Fact-check", "Transcripts"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft, alignRight},
	))
	fmt.Fprintf(out, "Saved %d videos in %s\n", summary.Saved, summary.Duration.Round(time.Millisecond))
}

func newWatchCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Poll the mailbox on the configured schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ValidateInbox(); err != nil {
				return err
			}
			if err := requireReady(cfg); err != nil {
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

			d, err := daemon.New(cfg, a.workflow(), logger, a.metrics)
			if err != nil {
				return err
			}

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return d.Run(runCtx)
		},
	}
}
