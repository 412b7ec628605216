package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"factfetch/internal/config"
	"factfetch/internal/fetch"
	"factfetch/internal/inbox"
	"factfetch/internal/ledger"
	"factfetch/internal/metrics"
	"factfetch/internal/notifications"
	"factfetch/internal/pipeline"
	"factfetch/internal/playlist"
	"factfetch/internal/preflight"
	"factfetch/internal/services/whisperx"
	"factfetch/internal/services/ytdlp"
	"factfetch/internal/transcribe"
	"factfetch/internal/workflow"
)

// app holds the wired collaborators shared by run, watch and download.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Metrics
	store    *ledger.Store
	pipeline *pipeline.Pipeline
}

func newApp(cfg *config.Config, logger *slog.Logger) (*app, error) {
	m := metrics.New()

	store, err := ledger.Open(cfg.Paths.LedgerPath)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	client, err := ytdlp.New(cfg.Downloader.Binary, cfg.Downloader.UserAgent)
	if err != nil {
		store.Close()
		return nil, err
	}

	fetcher := fetch.New(client, fetch.Options{
		MaxAttempts:    cfg.Downloader.MaxAttempts,
		BackoffStep:    cfg.BackoffStep(),
		AttemptTimeout: cfg.AttemptTimeout(),
		Logger:         logger,
		Metrics:        m,
	})
	expander := playlist.New(client, cfg.Downloader.MaxPlaylistVideos, logger, m)
	minDelay, maxDelay := cfg.DelayRange()

	p, err := pipeline.New(fetcher, expander, ledger.NewFailOpen(store, logger, m), pipeline.Options{
		DownloadDir: cfg.Paths.DownloadDir,
		MinDelay:    minDelay,
		MaxDelay:    maxDelay,
		Logger:      logger,
		Metrics:     m,
	})
	if err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:      cfg,
		logger:   logger,
		metrics:  m,
		store:    store,
		pipeline: p,
	}, nil
}

func (a *app) Close() error {
	if a == nil || a.store == nil {
		return nil
	}
	return a.store.Close()
}

// transcriber returns nil when transcription is disabled.
func (a *app) transcriber() *transcribe.Transcriber {
	if !a.cfg.Transcription.Enabled {
		return nil
	}
	return newTranscriber(a.cfg, a.logger)
}

func newTranscriber(cfg *config.Config, logger *slog.Logger) *transcribe.Transcriber {
	engine := whisperx.NewService(whisperx.Config{
		Model:       cfg.Transcription.Model,
		CUDAEnabled: cfg.Transcription.CUDAEnabled,
		Language:    cfg.Transcription.Language,
	}, cfg.Transcription.FFmpegBinary)
	return transcribe.New(engine, logger)
}

func (a *app) workflow() *workflow.Manager {
	opts := []workflow.ManagerOption{
		workflow.WithNotifier(notifications.NewService(a.cfg)),
		workflow.WithMetrics(a.metrics),
	}
	if t := a.transcriber(); t != nil {
		opts = append(opts, workflow.WithTranscriber(t))
	}
	source := inbox.NewIMAPSource(a.cfg.Inbox, a.logger)
	return workflow.NewManager(source, a.pipeline, a.logger, opts...)
}

// requireReady fails when a required preflight check does not pass.
func requireReady(cfg *config.Config) error {
	failed := preflight.Failures(preflight.RunAll(cfg))
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return errors.New("preflight failed (run `factfetch doctor`): " + strings.Join(parts, "; "))
}
