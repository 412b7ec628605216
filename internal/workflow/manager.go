package workflow

import (
	"context"
	"log/slog"

	"factfetch/internal/inbox"
	"factfetch/internal/logging"
	"factfetch/internal/metrics"
	"factfetch/internal/notifications"
	"factfetch/internal/transcribe"
)

// Mailbox supplies link batches and acknowledges them.
type Mailbox interface {
	Unseen(ctx context.Context) (inbox.Poll, error)
	MarkSeen(ctx context.Context, uids []uint32) error
}

// Processor downloads one link batch.
type Processor interface {
	Process(ctx context.Context, subject string, urls []string) ([]string, error)
}

// Transcriber writes transcripts for saved videos.
type Transcriber interface {
	Videos(ctx context.Context, videos []string) []transcribe.Result
}

// Manager coordinates one poll cycle across the collaborators.
type Manager struct {
	mailbox     Mailbox
	processor   Processor
	transcriber Transcriber
	notifier    notifications.Service
	metrics     *metrics.Metrics
	logger      *slog.Logger
}

// ManagerOption configures optional Manager behavior.
type ManagerOption func(*Manager)

// WithTranscriber enables transcripts for fact-check batches.
func WithTranscriber(t Transcriber) ManagerOption {
	return func(m *Manager) {
		m.transcriber = t
	}
}

// WithNotifier sets the notification service.
func WithNotifier(n notifications.Service) ManagerOption {
	return func(m *Manager) {
		if n != nil {
			m.notifier = n
		}
	}
}

// WithMetrics records cycle outcomes.
func WithMetrics(mt *metrics.Metrics) ManagerOption {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// NewManager constructs a workflow manager.
func NewManager(mailbox Mailbox, processor Processor, logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		mailbox:   mailbox,
		processor: processor,
		notifier:  notifications.NewService(nil),
		logger:    logging.NewComponentLogger(logger, "workflow"),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}
