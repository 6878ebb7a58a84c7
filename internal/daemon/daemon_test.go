package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"splice/internal/api"
	"splice/internal/catalog"
	"splice/internal/config"
	"splice/internal/daemon"
	"splice/internal/logging"
	"splice/internal/session"
	"splice/internal/testsupport"
)

const testToken = "test-token"

func startDaemon(t *testing.T) (*daemon.Daemon, *config.Config) {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	cfg.Daemon.APIToken = testToken

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	mgr := session.New(cfg, store, nil, logging.NewNop())
	d, err := daemon.New(cfg, store, mgr, nil, logging.NewNop(), logging.NewStreamHub(256))
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d, cfg
}

func apiRequest(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+testToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s %s response: %v", method, url, err)
		}
	}
	return resp
}

func TestDaemonSingleInstance(t *testing.T) {
	d, cfg := startDaemon(t)
	if !d.Running() {
		t.Fatal("daemon not running after start")
	}

	store, err := catalog.Open(cfg)
	if err != nil {
		t.Fatalf("open catalog: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	mgr := session.New(cfg, store, nil, logging.NewNop())
	t.Cleanup(mgr.Close)

	second, err := daemon.New(cfg, store, mgr, nil, logging.NewNop(), nil)
	if err != nil {
		t.Fatalf("new daemon: %v", err)
	}
	if err := second.Start(context.Background()); err == nil {
		second.Stop()
		t.Fatal("second instance acquired the lock")
	}

	d.Stop()
	if d.Running() {
		t.Fatal("daemon still running after stop")
	}
}

func TestHTTPAPIRequiresToken(t *testing.T) {
	d, _ := startDaemon(t)
	base := "http://" + d.APIAddr()

	resp, err := http.Get(base + "/healthz")
	if err != nil {
		t.Fatalf("healthz: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("healthz status %d", resp.StatusCode)
	}

	resp, err = http.Get(base + "/api/status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("unauthenticated status request got %d, want 401", resp.StatusCode)
	}
}

func TestHTTPAPISessionAndMediaFlow(t *testing.T) {
	d, _ := startDaemon(t)
	base := "http://" + d.APIAddr()

	var sess api.SessionView
	resp := apiRequest(t, http.MethodPost, base+"/api/sessions", api.CreateSessionRequest{Name: "webapi"}, &sess)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create session status %d", resp.StatusCode)
	}

	mediaPath := filepath.Join(t.TempDir(), "notes.txt")
	testsupport.WriteFile(t, mediaPath, 64)
	var media api.MediaItemView
	resp = apiRequest(t, http.MethodPost, fmt.Sprintf("%s/api/sessions/%s/media", base, sess.ID),
		api.ImportRequest{Path: mediaPath}, &media)
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("import status %d", resp.StatusCode)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		var got api.MediaItemView
		apiRequest(t, http.MethodGet, base+"/api/media/"+media.ID, nil, &got)
		if got.Status == "ready" {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("media stuck in %s", got.Status)
		}
		time.Sleep(20 * time.Millisecond)
	}

	var placed api.TimelineItemView
	resp = apiRequest(t, http.MethodPost, fmt.Sprintf("%s/api/sessions/%s/timeline", base, sess.ID),
		api.PlaceRequest{MediaItemID: media.ID, TrackID: "track-1", Duration: 48}, &placed)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("place status %d", resp.StatusCode)
	}

	deadline = time.Now().Add(5 * time.Second)
	for {
		var items []api.TimelineItemView
		apiRequest(t, http.MethodGet, fmt.Sprintf("%s/api/sessions/%s/timeline", base, sess.ID), nil, &items)
		if len(items) == 1 && items[0].Status == "ready" {
			if items[0].Handle == nil || items[0].Handle.Path != mediaPath {
				t.Fatalf("unexpected handle %+v", items[0].Handle)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("timeline item never became ready")
		}
		time.Sleep(20 * time.Millisecond)
	}

	resp = apiRequest(t, http.MethodDelete, base+"/api/timeline/"+placed.ID, nil, nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("timeline remove status %d", resp.StatusCode)
	}

	var status api.StatusView
	apiRequest(t, http.MethodGet, base+"/api/status", nil, &status)
	if !status.Running || status.Sessions != 1 {
		t.Fatalf("unexpected status %+v", status)
	}
	if status.MediaByStatus["ready"] != 1 {
		t.Fatalf("media stats %+v", status.MediaByStatus)
	}
}
