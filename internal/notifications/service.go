package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tracuu/internal/config"
)

const userAgent = "Tracuu/0.1.0"

// Service defines the notification surface exposed to the pipeline.
type Service interface {
	NotifyBatchStarted(ctx context.Context, batchName string, rows int) error
	NotifyBatchCompleted(ctx context.Context, batchName string, resolved, failed int, duration time.Duration) error
	NotifyChallenge(ctx context.Context, pageURL string) error
	NotifyError(ctx context.Context, err error, contextLabel string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when a topic
// is configured; otherwise a noop implementation is returned. The
// per-event switches in the config suppress individual notifications
// without disabling the service.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		challenge: cfg.Notifications.Challenge,
		lifecycle: cfg.Notifications.BatchComplete,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	challenge bool
	lifecycle bool
	errors    bool
}

func (n *ntfyService) NotifyBatchStarted(ctx context.Context, batchName string, rows int) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Tracuu - Batch Started",
		message: fmt.Sprintf("Started %s with %d rows", strings.TrimSpace(batchName), rows),
		tags:    []string{"tracuu", "batch", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBatchCompleted(ctx context.Context, batchName string, resolved, failed int, duration time.Duration) error {
	if !n.lifecycle {
		return nil
	}
	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	batchName = strings.TrimSpace(batchName)
	var title, message string
	if failed == 0 {
		title = "Tracuu - Batch Complete"
		message = fmt.Sprintf("✅ %s: %d rows resolved in %s", batchName, resolved, durationText)
	} else {
		title = "Tracuu - Batch Complete (with failures)"
		message = fmt.Sprintf("%s: %d resolved, %d failed in %s", batchName, resolved, failed, durationText)
	}

	data := payload{
		title:   title,
		message: message,
		tags:    []string{"tracuu", "batch", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyChallenge(ctx context.Context, pageURL string) error {
	if !n.challenge {
		return nil
	}
	data := payload{
		title:    "Tracuu - Challenge",
		message:  fmt.Sprintf("🛑 Verification challenge at %s\nOperator action required", strings.TrimSpace(pageURL)),
		tags:     []string{"tracuu", "challenge", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
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
		title:    "Tracuu - Error",
		message:  builder.String(),
		tags:     []string{"tracuu", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tracuu - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"tracuu", "test"},
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

func (noopService) NotifyBatchStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyBatchCompleted(context.Context, string, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyChallenge(context.Context, string) error    { return nil }
func (noopService) NotifyError(context.Context, error, string) error { return nil }
func (noopService) TestNotification(context.Context) error           { return nil }
