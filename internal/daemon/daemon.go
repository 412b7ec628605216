package daemon

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/singleflight"

	"factfetch/internal/config"
	"factfetch/internal/logging"
	"factfetch/internal/metrics"
	"factfetch/internal/workflow"
)

const shutdownTimeout = 5 * time.Second

// CycleRunner executes one poll cycle.
type CycleRunner interface {
	RunOnce(ctx context.Context) (workflow.Summary, error)
}

// Daemon schedules poll cycles and enforces single-instance execution.
type Daemon struct {
	logger      *slog.Logger
	runner      CycleRunner
	metrics     *metrics.Metrics
	schedule    cron.Schedule
	lockPath    string
	metricsBind string

	group   singleflight.Group
	running atomic.Bool
	cycles  atomic.Int64
	addr    atomic.Value
}

// New constructs a daemon for cfg.
func New(cfg *config.Config, runner CycleRunner, logger *slog.Logger, m *metrics.Metrics) (*Daemon, error) {
	if cfg == nil || runner == nil {
		return nil, errors.New("daemon requires config and cycle runner")
	}
	schedule, err := cron.ParseStandard(cfg.Watch.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse watch.schedule: %w", err)
	}
	return &Daemon{
		logger:      logging.NewComponentLogger(logger, "daemon"),
		runner:      runner,
		metrics:     m,
		schedule:    schedule,
		lockPath:    cfg.LockPath(),
		metricsBind: strings.TrimSpace(cfg.Watch.MetricsBind),
	}, nil
}

// Run blocks until ctx is cancelled. It returns ErrAlreadyRunning when
// another instance holds the lock.
func (d *Daemon) Run(ctx context.Context) error {
	if !d.running.CompareAndSwap(false, true) {
		return errors.New("daemon already running")
	}
	defer d.running.Store(false)

	lock, err := AcquireLock(d.lockPath)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			d.logger.Warn("failed to release daemon lock", logging.Error(err))
		}
	}()

	stopMetrics, err := d.serveMetrics()
	if err != nil {
		return err
	}
	defer stopMetrics()

	d.logger.Info("factfetch watcher started",
		logging.String("lock", d.lockPath),
		logging.NextRun(d.schedule.Next(time.Now())),
	)

	scheduler := cron.New()
	scheduler.Schedule(d.schedule, cron.FuncJob(func() {
		d.Trigger(ctx, "schedule")
	}))

	d.Trigger(ctx, "startup")
	scheduler.Start()

	<-ctx.Done()
	stopped := scheduler.Stop()
	<-stopped.Done()
	d.logger.Info("factfetch watcher stopped", logging.Int64("cycles", d.cycles.Load()))
	return nil
}

// Trigger runs a poll cycle unless one is already in flight, in which case
// it waits for that cycle and reports shared=true.
func (d *Daemon) Trigger(ctx context.Context, reason string) (summary workflow.Summary, shared bool, err error) {
	if ctx.Err() != nil {
		return summary, false, ctx.Err()
	}
	v, err, shared := d.group.Do("cycle", func() (result any, runErr error) {
		defer func() {
			if r := recover(); r != nil {
				runErr = fmt.Errorf("poll cycle panic: %v", r)
			}
		}()
		d.cycles.Add(1)
		d.logger.Debug("poll cycle triggered", logging.String("reason", reason))
		return d.runner.RunOnce(ctx)
	})
	if s, ok := v.(workflow.Summary); ok {
		summary = s
	}
	if shared {
		d.logger.Debug("trigger joined running cycle", logging.String("reason", reason))
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.WarnWithContext(d.logger, "poll cycle failed", "poll_cycle_failed",
			logging.Error(err),
			logging.String("reason", reason),
			logging.String(logging.FieldImpact, "next scheduled cycle will retry"),
		)
	}
	return summary, shared, err
}

// Cycles reports how many cycles have started.
func (d *Daemon) Cycles() int64 {
	return d.cycles.Load()
}

// MetricsAddr returns the bound metrics address once the server is up.
func (d *Daemon) MetricsAddr() string {
	if v, ok := d.addr.Load().(string); ok {
		return v
	}
	return ""
}

func (d *Daemon) serveMetrics() (func(), error) {
	if d.metricsBind == "" || d.metrics == nil {
		return func() {}, nil
	}
	listener, err := net.Listen("tcp", d.metricsBind)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", d.metricsBind, err)
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	d.addr.Store(listener.Addr().String())
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Warn("metrics server stopped", logging.Error(err))
		}
	}()
	d.logger.Info("metrics endpoint listening", logging.String("addr", listener.Addr().String()))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
