package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
)

const userAgent = "Loom-Go/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyTranscriptionCompleted(ctx context.Context, title, provider string, wordCount int) error
	NotifySynthesisCompleted(ctx context.Context, title string, actionItems int) error
	NotifyDeliveryCompleted(ctx context.Context, title string, recipients int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:      topic,
		client:        client,
		transcription: cfg.Notifications.Transcription,
		synthesis:     cfg.Notifications.Synthesis,
		delivery:      cfg.Notifications.Delivery,
		errors:        cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	transcription bool
	synthesis     bool
	delivery      bool
	errors        bool
}

func (n *ntfyService) NotifyTranscriptionCompleted(ctx context.Context, title, provider string, wordCount int) error {
	if !n.transcription {
		return nil
	}
	title = strings.TrimSpace(title)
	provider = strings.TrimSpace(provider)
	if provider == "" {
		provider = "unknown"
	}
	data := payload{
		title:   "Loom - Transcribed",
		message: fmt.Sprintf("Transcription complete: %s (%s, %d words)", title, provider, wordCount),
		tags:    []string{"loom", "transcription", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySynthesisCompleted(ctx context.Context, title string, actionItems int) error {
	if !n.synthesis {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Loom - Synthesized",
		message: fmt.Sprintf("Synthesis complete: %s (%d action items)", title, actionItems),
		tags:    []string{"loom", "synthesis", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDeliveryCompleted(ctx context.Context, title string, recipients int) error {
	if !n.delivery {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Loom - Delivered",
		message: fmt.Sprintf("Synthesis email sent: %s (%d recipients)", title, recipients),
		tags:    []string{"loom", "delivery", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
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
		title:    "Loom - Error",
		message:  builder.String(),
		tags:     []string{"loom", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Loom - Test",
		message:  "Notification system test",
		tags:     []string{"loom", "test"},
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

type noopService struct{}

func (noopService) NotifyTranscriptionCompleted(context.Context, string, string, int) error { return nil }
func (noopService) NotifySynthesisCompleted(context.Context, string, int) error             { return nil }
func (noopService) NotifyDeliveryCompleted(context.Context, string, int) error              { return nil }
func (noopService) NotifyError(context.Context, error, string) error                        { return nil }
func (noopService) TestNotification(context.Context) error                                  { return nil }
