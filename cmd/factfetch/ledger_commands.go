package main

import (
	"context"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"factfetch/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect the download ledger",
	}

	ledgerCmd.AddCommand(newLedgerStatsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerURLsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerContentsCommand(ctx))
	ledgerCmd.AddCommand(newLedgerCheckCommand(ctx))

	return ledgerCmd
}

// withLedger opens the configured ledger for the duration of fn.
func (c *commandContext) withLedger(fn func(*ledger.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		return fmt.Errorf("open ledger: %w", err)
	}
	defer store.Close()
	return fn(store)
}

type ledgerStatsView struct {
	Path         string    `json:"path"`
	URLCount     int       `json:"url_count"`
	ContentCount int       `json:"content_count"`
	LastURLAt    time.Time `json:"last_url_at,omitzero"`
}

func newLedgerStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show ledger totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				stats, err := store.Stats(cmd.Context())
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, ledgerStatsView(stats))
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Ledger:   %s\n", stats.Path)
				fmt.Fprintf(out, "URLs:     %s\n", humanize.Comma(int64(stats.URLCount)))
				fmt.Fprintf(out, "Contents: %s\n", humanize.Comma(int64(stats.ContentCount)))
				last := "never"
				if !stats.LastURLAt.IsZero() {
					last = humanize.Time(stats.LastURLAt)
				}
				fmt.Fprintf(out, "Last URL: %s\n", last)
				return nil
			})
		},
	}
}

type urlEntryView struct {
	URL       string    `json:"url"`
	CreatedAt time.Time `json:"created_at"`
}

func newLedgerURLsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "urls",
		Short: "List recently recorded URLs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				entries, err := store.ListURLs(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]urlEntryView, 0, len(entries))
					for _, e := range entries {
						views = append(views, urlEntryView(e))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Ledger has no URLs")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{e.URL, humanize.Time(e.CreatedAt)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"URL", "Recorded"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}

type contentEntryView struct {
	Hash      string    `json:"hash"`
	Path      string    `json:"path"`
	CreatedAt time.Time `json:"created_at"`
}

func newLedgerContentsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "contents",
		Short: "List recently claimed content fingerprints",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				entries, err := store.ListContents(cmd.Context(), limit)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					views := make([]contentEntryView, 0, len(entries))
					for _, e := range entries {
						views = append(views, contentEntryView(e))
					}
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				if len(entries) == 0 {
					fmt.Fprintln(out, "Ledger has no content fingerprints")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, e := range entries {
					rows = append(rows, []string{shortHash(e.Hash), e.Path, humanize.Time(e.CreatedAt)})
				}
				fmt.Fprintln(out, renderTable(out, []string{"Hash", "Path", "Claimed"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	return cmd
}

type urlCheckView struct {
	URL  string `json:"url"`
	Key  string `json:"key"`
	Seen bool   `json:"seen"`
}

func newLedgerCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check <url>...",
		Short: "Report whether URLs are already recorded",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLedger(func(store *ledger.Store) error {
				views, err := checkURLs(cmd.Context(), store, args)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				out := cmd.OutOrStdout()
				for _, v := range views {
					state := "new"
					if v.Seen {
						state = "seen"
					}
					fmt.Fprintf(out, "%s\t%s\n", state, v.URL)
				}
				return nil
			})
		},
	}
}

func checkURLs(ctx context.Context, store *ledger.Store, urls []string) ([]urlCheckView, error) {
	views := make([]urlCheckView, 0, len(urls))
	for _, raw := range urls {
		seen, err := store.HasURL(ctx, raw)
		if err != nil {
			return nil, err
		}
		views = append(views, urlCheckView{URL: raw, Key: ledger.NormalizeURL(raw), Seen: seen})
	}
	return views, nil
}

func shortHash(hash string) string {
	if len(hash) <= 12 {
		return hash
	}
	return hash[:12]
}
