package ledger

import (
	"context"
	"log/slog"

	"factfetch/internal/logging"
	"factfetch/internal/metrics"
)

// Backend is the error-returning ledger contract satisfied by *Store.
type Backend interface {
	HasURL(ctx context.Context, url string) (bool, error)
	MarkURL(ctx context.Context, url string) error
	RegisterContent(ctx context.Context, hash, path string) (bool, error)
}

// FailOpen adapts a Backend to the pipeline's never-failing ledger contract.
// A re-download is always safe, so storage errors degrade to "unseen" on
// reads and are dropped on writes.
type FailOpen struct {
	backend Backend
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewFailOpen wraps backend. Logger and metrics may be nil.
func NewFailOpen(backend Backend, logger *slog.Logger, m *metrics.Metrics) *FailOpen {
	return &FailOpen{
		backend: backend,
		logger:  logging.NewComponentLogger(logger, "ledger"),
		metrics: m,
	}
}

// HasURL reports false when the lookup fails.
func (f *FailOpen) HasURL(ctx context.Context, url string) bool {
	seen, err := f.backend.HasURL(ctx, url)
	if err != nil {
		f.metrics.LedgerError("has_url")
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "ledger lookup failed; treating url as unseen", "ledger_read_failed",
			logging.URL(url),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger file permissions and disk space"),
			logging.String(logging.FieldImpact, "url may be downloaded again"),
		)
		return false
	}
	return seen
}

// MarkURL records url, logging and dropping any storage error.
func (f *FailOpen) MarkURL(ctx context.Context, url string) {
	if err := f.backend.MarkURL(ctx, url); err != nil {
		f.metrics.LedgerError("mark_url")
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "ledger write failed; url not recorded", "ledger_write_failed",
			logging.URL(url),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger file permissions and disk space"),
			logging.String(logging.FieldImpact, "url may be downloaded again on a later run"),
		)
	}
}

// RegisterContent returns true when the claim fails so the caller keeps its
// file rather than deleting the only copy.
func (f *FailOpen) RegisterContent(ctx context.Context, hash, path string) bool {
	won, err := f.backend.RegisterContent(ctx, hash, path)
	if err != nil {
		f.metrics.LedgerError("register_content")
		logging.WarnWithContext(logging.WithContext(ctx, f.logger), "content claim failed; keeping file", "ledger_write_failed",
			logging.Hash(hash),
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check ledger file permissions and disk space"),
			logging.String(logging.FieldImpact, "duplicate content may be kept on disk"),
		)
		return true
	}
	return won
}
