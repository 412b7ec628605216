package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"factfetch/internal/inbox"
	"factfetch/internal/logging"
)

// BatchResult describes one processed message.
type BatchResult struct {
	UID         uint32   `json:"uid"`
	Subject     string   `json:"subject"`
	Submitted   int      `json:"submitted"`
	Saved       []string `json:"saved"`
	FactCheck   bool     `json:"factcheck"`
	Transcripts int      `json:"transcripts"`
	Failed      int      `json:"transcripts_failed"`
}

// Summary reports the outcome of one cycle.
type Summary struct {
	RunID    string        `json:"run_id"`
	Batches  []BatchResult `json:"batches"`
	Ignored  int           `json:"ignored"`
	Saved    int           `json:"saved"`
	Duration time.Duration `json:"duration_ns"`
}

// RunOnce executes one poll cycle. Mailbox failures and pipeline
// misconfiguration are returned; per-message problems are logged.
func (m *Manager) RunOnce(ctx context.Context) (Summary, error) {
	started := time.Now()
	summary := Summary{RunID: uuid.NewString()}
	ctx = logging.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, m.logger)

	logger.Info("poll cycle started")
	poll, err := m.mailbox.Unseen(ctx)
	if err != nil {
		m.metrics.CycleCompleted(false)
		logging.ErrorWithContext(logger, "mailbox poll failed", "inbox_poll_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check inbox credentials and network access"),
		)
		m.notifyError(ctx, logger, err, "inbox")
		summary.Duration = time.Since(started)
		return summary, fmt.Errorf("poll inbox: %w", err)
	}

	seen := append([]uint32(nil), poll.Handled...)
	summary.Ignored = len(poll.Handled)

	var runErr error
	for _, msg := range poll.Batches {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		result, err := m.processBatch(ctx, logger, msg)
		summary.Batches = append(summary.Batches, result)
		summary.Saved += len(result.Saved)
		if err != nil {
			runErr = err
			break
		}
		seen = append(seen, msg.UID)
	}

	m.markSeen(ctx, logger, seen)

	summary.Duration = time.Since(started)
	m.metrics.CycleCompleted(runErr == nil)
	logger.Info("poll cycle finished",
		logging.Int("batches", len(summary.Batches)),
		logging.Int("ignored", summary.Ignored),
		logging.Int("saved", summary.Saved),
		logging.Duration("duration", summary.Duration.Round(time.Millisecond)),
	)
	return summary, runErr
}

func (m *Manager) processBatch(ctx context.Context, logger *slog.Logger, msg inbox.Message) (BatchResult, error) {
	result := BatchResult{
		UID:       msg.UID,
		Subject:   msg.Subject,
		Submitted: len(msg.URLs),
		FactCheck: msg.FactCheck,
	}
	logger = logger.With(
		logging.Int64("uid", int64(msg.UID)),
		logging.String(logging.FieldSubject, msg.Subject),
	)

	saved, err := m.processor.Process(ctx, msg.Subject, msg.URLs)
	result.Saved = saved
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			logging.ErrorWithContext(logger, "batch aborted", "batch_aborted",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check download directory permissions"),
			)
			m.notifyError(ctx, logger, err, "download "+msg.Subject)
		}
		return result, fmt.Errorf("process %q: %w", msg.Subject, err)
	}

	if len(saved) > 0 {
		m.notifyBatchSaved(ctx, logger, msg.Subject, len(saved), len(msg.URLs))
	}

	if msg.FactCheck && len(saved) > 0 {
		if m.transcriber == nil {
			logger.Info("fact-check batch saved; transcription disabled")
			return result, nil
		}
		for _, r := range m.transcriber.Videos(ctx, saved) {
			switch {
			case r.Err != nil:
				result.Failed++
			case !r.Skipped:
				result.Transcripts++
			}
		}
		m.notifyTranscripts(ctx, logger, msg.Subject, result.Transcripts, result.Failed)
	}
	return result, nil
}

func (m *Manager) markSeen(ctx context.Context, logger *slog.Logger, uids []uint32) {
	if len(uids) == 0 {
		return
	}
	if err := m.mailbox.MarkSeen(context.WithoutCancel(ctx), uids); err != nil {
		logging.WarnWithContext(logger, "failed to mark messages seen", "inbox_mark_seen_failed",
			logging.Error(err),
			logging.Int("messages", len(uids)),
			logging.String(logging.FieldErrorHint, "check mailbox permissions"),
			logging.String(logging.FieldImpact, "messages will be polled again; saved links are skipped by the ledger"),
		)
		return
	}
	logger.Debug("messages marked seen", logging.Int("messages", len(uids)))
}
