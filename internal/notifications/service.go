// Package notifications pushes lifecycle events to an ntfy topic. With no
// topic configured every notification is a silent no-op.
package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"splice/internal/config"
)

const userAgent = "Splice-Go/0.1.0"

// Service defines the notification surface exposed to the session manager
// and daemon.
type Service interface {
	NotifyMediaReady(ctx context.Context, name string) error
	NotifyMediaFailed(ctx context.Context, name, reason string) error
	NotifyMediaMissing(ctx context.Context, name, path string) error
	NotifyIngestStarted(ctx context.Context, device string, count int) error
	NotifyDaemonStarted(ctx context.Context) error
	NotifyDaemonStopped(ctx context.Context) error
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

	return &ntfyService{
		endpoint:    topic,
		client:      &http.Client{Timeout: timeout},
		mediaReady:  cfg.Notifications.MediaReady,
		mediaFailed: cfg.Notifications.MediaFailed,
		lifecycle:   cfg.Notifications.Lifecycle,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint    string
	client      *http.Client
	mediaReady  bool
	mediaFailed bool
	lifecycle   bool
}

func (n *ntfyService) NotifyMediaReady(ctx context.Context, name string) error {
	if !n.mediaReady {
		return nil
	}
	name = strings.TrimSpace(name)
	data := payload{
		title:   "Splice - Media Ready",
		message: fmt.Sprintf("Ready for editing: %s", name),
		tags:    []string{"splice", "media", "ready"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMediaFailed(ctx context.Context, name, reason string) error {
	if !n.mediaFailed {
		return nil
	}
	name = strings.TrimSpace(name)
	reason = strings.TrimSpace(reason)
	message := fmt.Sprintf("Import failed: %s", name)
	if reason != "" {
		message = fmt.Sprintf("%s\n%s", message, reason)
	}
	data := payload{
		title:    "Splice - Import Failed",
		message:  message,
		tags:     []string{"splice", "media", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyMediaMissing(ctx context.Context, name, path string) error {
	if !n.mediaFailed {
		return nil
	}
	name = strings.TrimSpace(name)
	path = strings.TrimSpace(path)
	message := fmt.Sprintf("Media offline: %s", name)
	if path != "" {
		message = fmt.Sprintf("%s\nLast seen at: %s", message, path)
	}
	data := payload{
		title:   "Splice - Media Missing",
		message: message,
		tags:    []string{"splice", "media", "missing"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyIngestStarted(ctx context.Context, device string, count int) error {
	if !n.lifecycle {
		return nil
	}
	device = strings.TrimSpace(device)
	if device == "" {
		device = "removable storage"
	}
	data := payload{
		title:   "Splice - Ingest Started",
		message: fmt.Sprintf("Importing %d files from %s", count, device),
		tags:    []string{"splice", "ingest", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStarted(ctx context.Context) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Splice - Started",
		message: "Daemon is running",
		tags:    []string{"splice", "daemon", "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDaemonStopped(ctx context.Context) error {
	if !n.lifecycle {
		return nil
	}
	data := payload{
		title:   "Splice - Stopped",
		message: "Daemon shut down",
		tags:    []string{"splice", "daemon", "stopped"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
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
		title:    "Splice - Error",
		message:  builder.String(),
		tags:     []string{"splice", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Splice - Test",
		message:  "Notification system test",
		tags:     []string{"splice", "test"},
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

func (noopService) NotifyMediaReady(context.Context, string) error           { return nil }
func (noopService) NotifyMediaFailed(context.Context, string, string) error  { return nil }
func (noopService) NotifyMediaMissing(context.Context, string, string) error { return nil }
func (noopService) NotifyIngestStarted(context.Context, string, int) error   { return nil }
func (noopService) NotifyDaemonStarted(context.Context) error                { return nil }
func (noopService) NotifyDaemonStopped(context.Context) error                { return nil }
func (noopService) NotifyError(context.Context, error, string) error         { return nil }
func (noopService) TestNotification(context.Context) error                   { return nil }
