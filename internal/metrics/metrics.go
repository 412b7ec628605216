// Package metrics exposes Prometheus counters for download and dedup outcomes.
//
// A nil *Metrics is valid and records nothing, so components accept one
// without guarding every call site.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "factfetch"

// Item outcomes recorded by the pipeline.
const (
	OutcomeSaved     = "saved"
	OutcomeDuplicate = "duplicate"
	OutcomeSeen      = "skipped_seen"
	OutcomeFailed    = "failed"
)

// Metrics owns a private registry so tests and multiple daemons never collide
// on the global one.
type Metrics struct {
	registry *prometheus.Registry

	items         *prometheus.CounterVec
	fetchAttempts *prometheus.CounterVec
	ledgerErrors  *prometheus.CounterVec
	playlists     *prometheus.CounterVec
	cycles        *prometheus.CounterVec
	savedBytes    prometheus.Histogram
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{registry: prometheus.NewRegistry()}

	m.items = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "items_total",
		Help:      "Pipeline items by outcome.",
	}, []string{"outcome"})

	m.fetchAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetch_attempts_total",
		Help:      "Downloader invocations by argument profile and result.",
	}, []string{"profile", "result"})

	m.ledgerErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_errors_total",
		Help:      "Ledger storage errors absorbed by the pipeline, by operation.",
	}, []string{"op"})

	m.playlists = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "playlist_expansions_total",
		Help:      "Playlist expansions by result.",
	}, []string{"result"})

	m.cycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "poll_cycles_total",
		Help:      "Mailbox poll cycles by result.",
	}, []string{"result"})

	// 1MB .. 4GB
	m.savedBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "saved_file_bytes",
		Help:      "Size of newly saved video files.",
		Buckets:   prometheus.ExponentialBuckets(1<<20, 4, 7),
	})

	m.registry.MustRegister(m.items, m.fetchAttempts, m.ledgerErrors, m.playlists, m.cycles, m.savedBytes)
	return m
}

// Registry returns the registry backing m.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ItemOutcome counts one processed pipeline item.
func (m *Metrics) ItemOutcome(outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(outcome).Inc()
}

// FetchAttempt counts one downloader invocation.
func (m *Metrics) FetchAttempt(profile string, ok bool) {
	if m == nil {
		return
	}
	m.fetchAttempts.WithLabelValues(profile, resultLabel(ok)).Inc()
}

// LedgerError counts a swallowed ledger failure.
func (m *Metrics) LedgerError(op string) {
	if m == nil {
		return
	}
	m.ledgerErrors.WithLabelValues(op).Inc()
}

// PlaylistExpanded counts one expansion.
func (m *Metrics) PlaylistExpanded(ok bool) {
	if m == nil {
		return
	}
	m.playlists.WithLabelValues(resultLabel(ok)).Inc()
}

// CycleCompleted counts one poll cycle.
func (m *Metrics) CycleCompleted(ok bool) {
	if m == nil {
		return
	}
	m.cycles.WithLabelValues(resultLabel(ok)).Inc()
}

// FileSaved observes the size of a kept download.
func (m *Metrics) FileSaved(bytes int64) {
	if m == nil || bytes < 0 {
		return
	}
	m.savedBytes.Observe(float64(bytes))
}

func resultLabel(ok bool) string {
	if ok {
		return "ok"
	}
	return "failed"
}
