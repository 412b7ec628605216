package daemon_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"factfetch/internal/daemon"
	"factfetch/internal/logging"
	"factfetch/internal/metrics"
	"factfetch/internal/testsupport"
	"factfetch/internal/workflow"
)

type countingRunner struct {
	calls   atomic.Int64
	started chan struct{}
	release chan struct{}
	err     error
}

func (r *countingRunner) RunOnce(ctx context.Context) (workflow.Summary, error) {
	r.calls.Add(1)
	if r.started != nil {
		r.started <- struct{}{}
	}
	if r.release != nil {
		select {
		case <-r.release:
		case <-ctx.Done():
			return workflow.Summary{}, ctx.Err()
		}
	}
	return workflow.Summary{RunID: "run", Saved: 1}, r.err
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRunStartsCycleImmediatelyAndServesMetrics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Schedule = "0 0 1 1 *"
	cfg.Watch.MetricsBind = "127.0.0.1:0"
	runner := &countingRunner{}
	d, err := daemon.New(cfg, runner, logging.NewNop(), metrics.New())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	waitFor(t, func() bool { return runner.calls.Load() == 1 && d.MetricsAddr() != "" })

	resp, err := http.Get("http://" + d.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
	if d.Cycles() != 1 {
		t.Fatalf("expected 1 cycle, got %d", d.Cycles())
	}
}

func TestRunRefusesSecondInstance(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	lock, err := daemon.AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	t.Cleanup(func() { _ = lock.Unlock() })

	runner := &countingRunner{}
	d, err := daemon.New(cfg, runner, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if err := d.Run(context.Background()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if runner.calls.Load() != 0 {
		t.Fatal("no cycle should run without the lock")
	}
}

func TestAcquireLockReleasedCanBeRetaken(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	first, err := daemon.AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}
	if _, err := daemon.AcquireLock(cfg.LockPath()); !errors.Is(err, daemon.ErrAlreadyRunning) {
		t.Fatalf("expected ErrAlreadyRunning, got %v", err)
	}
	if err := first.Unlock(); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	second, err := daemon.AcquireLock(cfg.LockPath())
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	_ = second.Unlock()
}

func TestTriggerCollapsesOverlappingCycles(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &countingRunner{started: make(chan struct{}, 2), release: make(chan struct{})}
	d, err := daemon.New(cfg, runner, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}

	ctx := context.Background()
	var wg sync.WaitGroup
	var sharedCount atomic.Int64
	trigger := func() {
		defer wg.Done()
		summary, shared, err := d.Trigger(ctx, "test")
		if err != nil {
			t.Errorf("Trigger: %v", err)
		}
		if summary.Saved != 1 {
			t.Errorf("unexpected summary %+v", summary)
		}
		if shared {
			sharedCount.Add(1)
		}
	}

	wg.Add(1)
	go trigger()
	<-runner.started

	wg.Add(1)
	go trigger()
	// Give the second trigger time to join the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(runner.release)
	wg.Wait()

	if runner.calls.Load() != 1 {
		t.Fatalf("expected one cycle, got %d", runner.calls.Load())
	}
	if sharedCount.Load() == 0 {
		t.Fatal("expected overlapping trigger to share the running cycle")
	}
}

func TestTriggerReportsCycleError(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	boom := errors.New("inbox down")
	d, err := daemon.New(cfg, &countingRunner{err: boom}, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	if _, _, err := d.Trigger(context.Background(), "test"); !errors.Is(err, boom) {
		t.Fatalf("expected cycle error, got %v", err)
	}
}

func TestNewRejectsInvalidSchedule(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Watch.Schedule = "every so often"
	if _, err := daemon.New(cfg, &countingRunner{}, logging.NewNop(), nil); err == nil {
		t.Fatal("expected schedule error")
	}
}
