package notifications_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"splice/internal/notifications"
	"splice/internal/testsupport"
)

type capture struct {
	mu       sync.Mutex
	requests []capturedRequest
}

type capturedRequest struct {
	title    string
	priority string
	body     string
}

func (c *capture) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		c.requests = append(c.requests, capturedRequest{
			title:    r.Header.Get("Title"),
			priority: r.Header.Get("Priority"),
			body:     string(body),
		})
		c.mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}
}

func (c *capture) all() []capturedRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]capturedRequest(nil), c.requests...)
}

func newTestService(t *testing.T, topic string) notifications.Service {
	t.Helper()
	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(topic))
	cfg.Notifications.MediaReady = true
	cfg.Notifications.MediaFailed = true
	cfg.Notifications.Lifecycle = true
	return notifications.NewService(cfg)
}

func TestMediaReadyNotification(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler())
	defer server.Close()

	svc := newTestService(t, server.URL)
	if err := svc.NotifyMediaReady(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("NotifyMediaReady: %v", err)
	}

	reqs := cap.all()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 request, got %d", len(reqs))
	}
	if reqs[0].title != "Splice - Media Ready" {
		t.Fatalf("unexpected title %q", reqs[0].title)
	}
}

func TestMediaFailedIsHighPriority(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler())
	defer server.Close()

	svc := newTestService(t, server.URL)
	if err := svc.NotifyMediaFailed(context.Background(), "clip.mp4", "download timed out"); err != nil {
		t.Fatalf("NotifyMediaFailed: %v", err)
	}
	if err := svc.NotifyError(context.Background(), errors.New("boom"), "catalog"); err != nil {
		t.Fatalf("NotifyError: %v", err)
	}

	reqs := cap.all()
	if len(reqs) != 2 {
		t.Fatalf("expected 2 requests, got %d", len(reqs))
	}
	for _, req := range reqs {
		if req.priority != "high" {
			t.Fatalf("expected high priority, got %q (%+v)", req.priority, req)
		}
	}
}

func TestServerErrorSurfaces(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer server.Close()

	svc := newTestService(t, server.URL)
	if err := svc.TestNotification(context.Background()); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestNoTopicIsNoop(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	svc := notifications.NewService(cfg)
	if err := svc.NotifyMediaReady(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("noop service returned error: %v", err)
	}
	if err := svc.TestNotification(context.Background()); err != nil {
		t.Fatalf("noop test notification returned error: %v", err)
	}
}

func TestDisabledCategoriesSkipSend(t *testing.T) {
	cap := &capture{}
	server := httptest.NewServer(cap.handler())
	defer server.Close()

	cfg := testsupport.NewConfig(t, testsupport.WithNtfyTopic(server.URL))
	cfg.Notifications.MediaReady = false
	cfg.Notifications.Lifecycle = false
	svc := notifications.NewService(cfg)

	if err := svc.NotifyMediaReady(context.Background(), "clip.mp4"); err != nil {
		t.Fatalf("NotifyMediaReady: %v", err)
	}
	if err := svc.NotifyDaemonStarted(context.Background()); err != nil {
		t.Fatalf("NotifyDaemonStarted: %v", err)
	}
	if got := len(cap.all()); got != 0 {
		t.Fatalf("expected no requests, got %d", got)
	}
}
