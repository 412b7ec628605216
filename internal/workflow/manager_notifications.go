package workflow

import (
	"context"
	"errors"
	"log/slog"

	"factfetch/internal/logging"
)

func (m *Manager) notifyBatchSaved(ctx context.Context, logger *slog.Logger, subject string, saved, submitted int) {
	if err := m.notifier.NotifyBatchSaved(ctx, subject, saved, submitted); err != nil {
		m.notificationFailed(logger, "batch", err)
	}
}

func (m *Manager) notifyTranscripts(ctx context.Context, logger *slog.Logger, subject string, written, failed int) {
	if written == 0 && failed == 0 {
		return
	}
	if err := m.notifier.NotifyTranscripts(ctx, subject, written, failed); err != nil {
		m.notificationFailed(logger, "transcripts", err)
	}
}

func (m *Manager) notifyError(ctx context.Context, logger *slog.Logger, cause error, label string) {
	if err := m.notifier.NotifyError(ctx, cause, label); err != nil {
		m.notificationFailed(logger, "error", err)
	}
}

func (m *Manager) notificationFailed(logger *slog.Logger, kind string, err error) {
	if errors.Is(err, context.Canceled) {
		logger.Debug("shutting down, could not send notification", logging.String("notification", kind))
		return
	}
	logger.Debug("notification failed", logging.String("notification", kind), logging.Error(err))
}
