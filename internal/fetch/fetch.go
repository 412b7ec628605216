// Package fetch drives the external downloader with a bounded, tiered retry
// policy and verifies that each reported success left a file on disk.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"factfetch/internal/fileutil"
	"factfetch/internal/logging"
	"factfetch/internal/metrics"
	"factfetch/internal/pacing"
	"factfetch/internal/services"
	"factfetch/internal/services/ytdlp"
)

const (
	// DefaultMaxAttempts is the total number of downloader invocations per URL.
	DefaultMaxAttempts = 3
	// DefaultBackoffStep multiplies the attempt number to give the wait before the next attempt.
	DefaultBackoffStep = 15 * time.Second
)

// Downloader fetches one URL to an exact path using a named profile.
type Downloader interface {
	Download(ctx context.Context, url, dest string, profile ytdlp.Profile) error
}

// Options tunes the retry policy. Zero values select defaults, except
// BackoffStep and AttemptTimeout where zero disables the wait or limit.
type Options struct {
	MaxAttempts    int
	BackoffStep    time.Duration
	AttemptTimeout time.Duration
	Sleeper        pacing.Sleeper
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
}

// Executor implements fetch(url, dest) -> bool.
type Executor struct {
	downloader     Downloader
	maxAttempts    int
	backoffStep    time.Duration
	attemptTimeout time.Duration
	sleeper        pacing.Sleeper
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

// New builds an Executor around downloader.
func New(downloader Downloader, opts Options) *Executor {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BackoffStep < 0 {
		opts.BackoffStep = 0
	}
	if opts.Sleeper == nil {
		opts.Sleeper = pacing.RealSleeper{}
	}
	return &Executor{
		downloader:     downloader,
		maxAttempts:    opts.MaxAttempts,
		backoffStep:    opts.BackoffStep,
		attemptTimeout: opts.AttemptTimeout,
		sleeper:        opts.Sleeper,
		logger:         logging.NewComponentLogger(opts.Logger, "fetch"),
		metrics:        opts.Metrics,
	}
}

// ProfileFor returns the argument profile used on a 1-based attempt. Only the
// last attempt of a multi-attempt policy falls back.
func (e *Executor) ProfileFor(attempt int) ytdlp.Profile {
	if e.maxAttempts > 1 && attempt == e.maxAttempts {
		return ytdlp.ProfileFallback
	}
	return ytdlp.ProfilePrimary
}

// Fetch downloads url to dest, retrying with linear backoff. It reports true
// only when an attempt exits cleanly and dest exists as a regular file. Any
// file already at dest is removed first, so dest must be a scratch path the
// caller owns, never a file the content ledger may point at.
func (e *Executor) Fetch(ctx context.Context, url, dest string) bool {
	logger := logging.WithContext(ctx, e.logger).With(logging.URL(url))

	for attempt := 1; attempt <= e.maxAttempts; attempt++ {
		if ctx.Err() != nil {
			logger.Info("fetch cancelled", logging.Attempt(attempt))
			return false
		}

		profile := e.ProfileFor(attempt)
		err := e.attempt(ctx, url, dest, profile)
		e.metrics.FetchAttempt(string(profile), err == nil)
		if err == nil {
			logger.Info("fetch succeeded",
				logging.Attempt(attempt),
				logging.Profile(string(profile)),
				logging.Path(dest),
			)
			return true
		}

		logger.Warn("fetch attempt failed",
			logging.Attempt(attempt),
			logging.Int("max_attempts", e.maxAttempts),
			logging.Profile(string(profile)),
			logging.String("cause", services.Kind(err)),
			logging.Error(err),
		)

		if attempt == e.maxAttempts {
			break
		}
		wait := e.backoffStep * time.Duration(attempt)
		if wait > 0 {
			logger.Info("backing off before retry",
				logging.Attempt(attempt),
				logging.Duration("wait", wait),
			)
		}
		if err := e.sleeper.Sleep(ctx, wait); err != nil {
			logger.Info("fetch cancelled during backoff", logging.Attempt(attempt))
			return false
		}
	}

	logging.WarnWithContext(logger, "fetch exhausted all attempts; skipping item", "fetch_exhausted",
		logging.Int("attempts", e.maxAttempts),
		logging.String(logging.FieldErrorHint, "run the url through yt-dlp manually to see the full error"),
		logging.String(logging.FieldImpact, "item skipped; url not recorded and will be retried next run"),
	)
	return false
}

func (e *Executor) attempt(ctx context.Context, url, dest string, profile ytdlp.Profile) (err error) {
	// A leftover file is untrusted: the downloader's partial-file handling is
	// not idempotent.
	for _, stale := range []string{dest, dest + ".part"} {
		if rmErr := fileutil.RemoveIfExists(stale); rmErr != nil {
			return fmt.Errorf("remove stale %s: %w", stale, rmErr)
		}
	}

	attemptCtx := ctx
	if e.attemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.attemptTimeout)
		defer cancel()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("downloader panic: %v", r)
		}
	}()

	if err := e.downloader.Download(attemptCtx, url, dest, profile); err != nil {
		if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return services.Wrap(services.ErrTimeout, "fetch", string(profile), fmt.Sprintf("attempt exceeded %s", e.attemptTimeout), err)
		}
		return err
	}
	if !fileutil.IsRegularFile(dest) {
		return fmt.Errorf("%w: %s", ytdlp.ErrNoOutput, dest)
	}
	return nil
}
