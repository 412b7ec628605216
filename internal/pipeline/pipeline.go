package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"factfetch/internal/fileutil"
	"factfetch/internal/linkextract"
	"factfetch/internal/logging"
	"factfetch/internal/metrics"
	"factfetch/internal/pacing"
)

// ErrDownloadDir reports a download directory the pipeline cannot write to.
var ErrDownloadDir = errors.New("download directory unusable")

// Fetcher downloads one URL to dest and reports whether a file now exists there.
type Fetcher interface {
	Fetch(ctx context.Context, url, dest string) bool
}

// Expander lists the member URLs of a playlist; failures yield nil.
type Expander interface {
	Expand(ctx context.Context, playlistURL string) []string
}

// Ledger is the never-failing dedup contract; see ledger.FailOpen.
type Ledger interface {
	HasURL(ctx context.Context, url string) bool
	MarkURL(ctx context.Context, url string)
	RegisterContent(ctx context.Context, hash, path string) bool
}

// Options configures a Pipeline. Zero delays disable the pre-fetch wait.
type Options struct {
	DownloadDir string
	MinDelay    time.Duration
	MaxDelay    time.Duration
	Jitter      *pacing.Jitter
	Sleeper     pacing.Sleeper
	Logger      *slog.Logger
	Metrics     *metrics.Metrics
	// HashFile defaults to fileutil.HashFile.
	HashFile func(path string) (string, error)
}

// Pipeline processes batches sequentially. It is not safe for concurrent use.
type Pipeline struct {
	fetcher  Fetcher
	expander Expander
	ledger   Ledger
	dir      string
	jitter   *pacing.Jitter
	sleeper  pacing.Sleeper
	hashFile func(string) (string, error)
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type outcome string

const (
	outcomeSaved     outcome = metrics.OutcomeSaved
	outcomeDuplicate outcome = metrics.OutcomeDuplicate
	outcomeSeen      outcome = metrics.OutcomeSeen
	outcomeFailed    outcome = metrics.OutcomeFailed
	outcomeCancelled outcome = "cancelled"
)

// New validates the download directory and assembles a Pipeline.
func New(fetcher Fetcher, expander Expander, ledger Ledger, opts Options) (*Pipeline, error) {
	if fetcher == nil || expander == nil || ledger == nil {
		return nil, errors.New("pipeline requires fetcher, expander and ledger")
	}
	dir := strings.TrimSpace(opts.DownloadDir)
	if dir == "" {
		return nil, fmt.Errorf("%w: path is empty", ErrDownloadDir)
	}
	if err := fileutil.EnsureWritableDir(dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadDir, err)
	}

	jitter := opts.Jitter
	if jitter == nil {
		jitter = pacing.NewJitter(opts.MinDelay, opts.MaxDelay, nil)
	}
	sleeper := opts.Sleeper
	if sleeper == nil {
		sleeper = pacing.RealSleeper{}
	}
	hashFile := opts.HashFile
	if hashFile == nil {
		hashFile = fileutil.HashFile
	}

	return &Pipeline{
		fetcher:  fetcher,
		expander: expander,
		ledger:   ledger,
		dir:      dir,
		jitter:   jitter,
		sleeper:  sleeper,
		hashFile: hashFile,
		logger:   logging.NewComponentLogger(opts.Logger, "pipeline"),
		metrics:  opts.Metrics,
	}, nil
}

// DownloadDir returns the directory new files are written to.
func (p *Pipeline) DownloadDir() string {
	return p.dir
}

// ProcessText extracts recognized links from free-form text and processes them.
func (p *Pipeline) ProcessText(ctx context.Context, subject, text string) ([]string, error) {
	return p.Process(ctx, subject, linkextract.Extract(text))
}

// Process downloads every new link in urls and returns the paths of files
// that were newly saved, in input order. Per-item failures only shorten the
// result. On cancellation the paths saved so far are returned with ctx.Err().
func (p *Pipeline) Process(ctx context.Context, subject string, urls []string) ([]string, error) {
	if len(urls) == 0 {
		return nil, nil
	}
	if err := fileutil.EnsureWritableDir(p.dir); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDownloadDir, err)
	}

	links := make([]string, 0, len(urls))
	for _, raw := range urls {
		if link := strings.TrimSpace(raw); link != "" {
			links = append(links, link)
		}
	}

	ctx = logging.WithBatchID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, p.logger).With(logging.String(logging.FieldSubject, subject))
	logger.Info("batch started", logging.Int("urls", len(links)))

	started := time.Now()
	var saved []string
	counts := map[outcome]int{}

	for idx, link := range links {
		if err := ctx.Err(); err != nil {
			return saved, p.finish(logger, saved, counts, started, err)
		}

		req := Request{Subject: subject, SourceURL: link, IsPlaylist: linkextract.IsPlaylist(link)}
		if len(links) > 1 {
			req.Ordinal = idx + 1
		}

		if req.IsPlaylist {
			paths, err := p.processPlaylist(ctx, logger, req, counts)
			saved = append(saved, paths...)
			if err != nil {
				return saved, p.finish(logger, saved, counts, started, err)
			}
			continue
		}

		path, result := p.processOne(ctx, logger, req)
		counts[result]++
		if result == outcomeSaved {
			saved = append(saved, path)
		}
		if result == outcomeCancelled {
			return saved, p.finish(logger, saved, counts, started, ctx.Err())
		}
	}

	return saved, p.finish(logger, saved, counts, started, nil)
}

func (p *Pipeline) finish(logger *slog.Logger, saved []string, counts map[outcome]int, started time.Time, err error) error {
	attrs := []logging.Attr{
		logging.Int("saved", len(saved)),
		logging.Int("duplicates", counts[outcomeDuplicate]),
		logging.Int("skipped_seen", counts[outcomeSeen]),
		logging.Int("failed", counts[outcomeFailed]),
		logging.Duration("elapsed", time.Since(started).Round(time.Second)),
	}
	if err != nil {
		attrs = append(attrs, logging.Error(err))
		logger.Warn("batch interrupted", logging.Args(attrs...)...)
		return err
	}
	logger.Info("batch finished", logging.Args(attrs...)...)
	return nil
}

func (p *Pipeline) processPlaylist(ctx context.Context, logger *slog.Logger, parent Request, counts map[outcome]int) ([]string, error) {
	logger = logger.With(logging.String("playlist", parent.SourceURL))
	if err := p.jitter.Wait(ctx, p.sleeper); err != nil {
		return nil, err
	}

	members := p.expander.Expand(ctx, parent.SourceURL)
	if len(members) == 0 {
		logger.Info("playlist contributed no items")
		return nil, nil
	}

	var saved []string
	for pos, member := range members {
		if err := ctx.Err(); err != nil {
			return saved, err
		}
		req := Request{
			Subject:   parent.Subject,
			SourceURL: strings.TrimSpace(member),
			Ordinal:   parent.Ordinal,
			Position:  pos + 1,
		}
		path, result := p.processOne(ctx, logger, req)
		counts[result]++
		switch result {
		case outcomeSaved:
			saved = append(saved, path)
		case outcomeCancelled:
			return saved, ctx.Err()
		}
	}
	return saved, nil
}

// processOne runs one single-video request. Panics are contained here so the
// batch continues.
func (p *Pipeline) processOne(ctx context.Context, logger *slog.Logger, req Request) (path string, result outcome) {
	logger = logger.With(logging.URL(req.SourceURL))
	defer func() {
		if r := recover(); r != nil {
			logging.ErrorWithContext(logger, "item processing panicked; continuing batch", "item_panic",
				logging.Any("panic", r),
				logging.String(logging.FieldErrorHint, "report this as a bug with the url above"),
			)
			path, result = "", outcomeFailed
		}
		if result != outcomeCancelled {
			p.metrics.ItemOutcome(string(result))
		}
	}()

	if p.ledger.HasURL(ctx, req.SourceURL) {
		logger.Info("url already processed; skipping")
		return "", outcomeSeen
	}

	if err := p.jitter.Wait(ctx, p.sleeper); err != nil {
		return "", outcomeCancelled
	}

	staging := req.StagingPath(p.dir)
	if !p.fetcher.Fetch(ctx, req.SourceURL, staging) {
		p.discard(logger, staging)
		if ctx.Err() != nil {
			return "", outcomeCancelled
		}
		logger.Warn("download failed; item skipped", logging.Path(staging))
		return "", outcomeFailed
	}

	artifact, err := p.inspect(req, staging)
	if err != nil {
		logging.WarnWithContext(logger, "hashing download failed; discarding file", "hash_failed",
			logging.Path(staging),
			logging.Error(err),
			logging.String(logging.FieldImpact, "item skipped; url not recorded and will be retried next run"),
		)
		p.discard(logger, staging)
		return "", outcomeFailed
	}

	owned, err := p.place(req, staging, &artifact)
	if err != nil {
		logging.WarnWithContext(logger, "moving download into place failed; discarding file", "place_failed",
			logging.Path(staging),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions in the download directory"),
			logging.String(logging.FieldImpact, "item skipped; url not recorded and will be retried next run"),
		)
		p.discard(logger, staging)
		return "", outcomeFailed
	}

	// The file is on disk; commit the ledger even if the batch is being cancelled.
	commitCtx := context.WithoutCancel(ctx)
	if !p.ledger.RegisterContent(commitCtx, artifact.Hash, artifact.Path) {
		logger.Info("duplicate content; discarding download",
			logging.Hash(artifact.Hash),
			logging.Path(artifact.Path),
			logging.Bool("existing_file_kept", !owned),
		)
		if owned {
			p.discard(logger, artifact.Path)
		}
		p.ledger.MarkURL(commitCtx, req.SourceURL)
		return "", outcomeDuplicate
	}

	p.ledger.MarkURL(commitCtx, req.SourceURL)
	p.metrics.FileSaved(artifact.Size)
	logger.Info("video saved",
		logging.Path(artifact.Path),
		logging.String("size", humanize.Bytes(uint64(max(artifact.Size, 0)))),
		logging.Hash(artifact.Hash),
	)
	return artifact.Path, outcomeSaved
}

// place moves a fingerprinted staging file to its final name without ever
// replacing an existing file. When the destination already holds the same
// bytes (a download whose URL mark was lost) the staging copy is dropped and
// the existing file is reused; owned is false in that case, so a lost content
// claim must leave it alone.
func (p *Pipeline) place(req Request, staging string, artifact *Artifact) (owned bool, err error) {
	candidates := []string{req.Destination(p.dir), req.AlternatePath(p.dir, artifact.Hash)}
	for _, final := range candidates {
		if !fileutil.IsRegularFile(final) {
			if err := os.Rename(staging, final); err != nil {
				return false, fmt.Errorf("rename %s: %w", filepath.Base(staging), err)
			}
			artifact.Path = final
			return true, nil
		}
		if existing, hashErr := p.hashFile(final); hashErr == nil && existing == artifact.Hash {
			if err := fileutil.RemoveIfExists(staging); err != nil {
				return false, err
			}
			artifact.Path = final
			return false, nil
		}
	}
	return false, fmt.Errorf("%s and %s are taken by other content", filepath.Base(candidates[0]), filepath.Base(candidates[1]))
}

func (p *Pipeline) inspect(req Request, dest string) (Artifact, error) {
	info, err := os.Stat(dest)
	if err != nil {
		return Artifact{}, err
	}
	hash, err := p.hashFile(dest)
	if err != nil {
		return Artifact{}, err
	}
	return Artifact{Path: dest, Hash: hash, SourceURL: req.SourceURL, Size: info.Size()}, nil
}

func (p *Pipeline) discard(logger *slog.Logger, path string) {
	if err := fileutil.RemoveIfExists(path); err != nil {
		logging.WarnWithContext(logger, "failed to remove discarded file", "discard_failed",
			logging.Path(path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "redundant file left on disk"),
		)
	}
}
