// Package daemon runs the mailbox watcher as a long-lived process.
//
// It takes a flock-based single-instance lock, runs one poll cycle right
// away, then follows the configured cron schedule until the context is
// cancelled. Triggers that fire while a cycle is still running join that
// cycle instead of starting another. When watch.metrics_bind is set the
// Prometheus collectors are served on /metrics.
package daemon
