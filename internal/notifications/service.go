package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"factfetch/internal/config"
)

const (
	userAgent     = "factfetch/0.1.0"
	defaultServer = "https://ntfy.sh/"
)

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyBatchSaved(ctx context.Context, subject string, saved, submitted int) error
	NotifyTranscripts(ctx context.Context, subject string, written, failed int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: Endpoint(topic),
		client:   &http.Client{Timeout: timeout},
	}
}

// Endpoint resolves a topic name or URL to the URL notifications are posted to.
func Endpoint(topic string) string {
	topic = strings.TrimSpace(topic)
	if strings.HasPrefix(topic, "http://") || strings.HasPrefix(topic, "https://") {
		return topic
	}
	return defaultServer + strings.TrimPrefix(topic, "/")
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyBatchSaved(ctx context.Context, subject string, saved, submitted int) error {
	subject = displaySubject(subject)
	data := payload{
		title:   "factfetch - Videos Saved",
		message: fmt.Sprintf("📥 %s: saved %d of %d", subject, saved, submitted),
		tags:    []string{"factfetch", "download", "saved"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyTranscripts(ctx context.Context, subject string, written, failed int) error {
	subject = displaySubject(subject)
	message := fmt.Sprintf("📝 %s: %d transcripts ready", subject, written)
	if failed > 0 {
		message = fmt.Sprintf("%s, %d failed", message, failed)
	}
	data := payload{
		title:   "factfetch - Transcripts",
		message: message,
		tags:    []string{"factfetch", "transcribe", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "factfetch - Error",
		message:  builder.String(),
		tags:     []string{"factfetch", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "factfetch - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"factfetch", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func displaySubject(subject string) string {
	if subject = strings.TrimSpace(subject); subject != "" {
		return subject
	}
	return "(no subject)"
}

type noopService struct{}

func (noopService) NotifyBatchSaved(context.Context, string, int, int) error  { return nil }
func (noopService) NotifyTranscripts(context.Context, string, int, int) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error          { return nil }
func (noopService) TestNotification(context.Context) error                    { return nil }
