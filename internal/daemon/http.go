package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"splice/internal/api"
	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/services"
	"splice/internal/timeline"
)

// apiServer is the daemon's HTTP surface: health and metrics in the clear,
// everything under /api behind the bearer token when one is configured.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Daemon.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
	}

	r := chi.NewRouter()
	r.Get("/healthz", srv.handleHealthz)
	r.Method(http.MethodGet, "/metrics", d.metrics.Handler())
	r.Route("/api", func(r chi.Router) {
		r.Use(bearerAuth(cfg.Daemon.APIToken))
		r.Get("/status", srv.handleStatus)
		r.Get("/sessions", srv.handleSessionList)
		r.Post("/sessions", srv.handleSessionCreate)
		r.Delete("/sessions/{id}", srv.handleSessionDelete)
		r.Get("/sessions/{id}/media", srv.handleMediaList)
		r.Post("/sessions/{id}/media", srv.handleMediaImport)
		r.Get("/sessions/{id}/timeline", srv.handleTimelineList)
		r.Post("/sessions/{id}/timeline", srv.handleTimelinePlace)
		r.Get("/media/{id}", srv.handleMediaGet)
		r.Post("/media/{id}/cancel", srv.handleMediaCancel)
		r.Post("/media/{id}/retry", srv.handleMediaRetry)
		r.Post("/media/{id}/relink", srv.handleMediaRelink)
		r.Delete("/media/{id}", srv.handleMediaRemove)
		r.Put("/timeline/{id}", srv.handleTimelineMove)
		r.Delete("/timeline/{id}", srv.handleTimelineRemove)
		r.Get("/logs", srv.handleLogs)
		r.Get("/files", srv.handleFileList)
		r.Get("/files/*", srv.handleFileServe)
	})

	srv.server = &http.Server{
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return err
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

// Addr returns the bound address, for tests that bind to port 0.
func (s *apiServer) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// bearerAuth validates "Authorization: Bearer <token>". An empty configured
// token leaves the API open (loopback deployments).
func bearerAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeJSON(w, http.StatusUnauthorized, api.ErrorResponse{Error: "unauthorized"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, library.ErrDuplicateItem):
		status = http.StatusConflict
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid request body"})
		return false
	}
	return true
}

func (s *apiServer) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) handleSessionList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.SessionViews(s.daemon.Manager().Sessions()))
}

func (s *apiServer) handleSessionCreate(w http.ResponseWriter, r *http.Request) {
	var req api.CreateSessionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sess, err := s.daemon.Manager().CreateSession(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.SessionViewOf(sess))
}

func (s *apiServer) handleSessionDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Manager().RemoveSession(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleMediaList(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.daemon.Manager().MediaSnapshots(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MediaViews(snaps))
}

func (s *apiServer) handleMediaImport(w http.ResponseWriter, r *http.Request) {
	var req api.ImportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	sessionID := chi.URLParam(r, "id")
	mgr := s.daemon.Manager()

	var (
		snap library.Snapshot
		err  error
	)
	switch {
	case req.Path != "":
		snap, err = mgr.ImportFile(r.Context(), sessionID, req.Path)
	case req.ProjectRef != "":
		snap, err = mgr.ImportProjectReference(r.Context(), sessionID, req.ProjectRef)
	case req.URL != "":
		snap, err = mgr.ImportURL(r.Context(), sessionID, req.URL)
	default:
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "import needs path, project_ref, or url"})
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, api.MediaView(snap))
}

func (s *apiServer) handleMediaGet(w http.ResponseWriter, r *http.Request) {
	_, item, err := s.daemon.Manager().FindMedia(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.MediaView(item.Snapshot()))
}

func (s *apiServer) handleMediaCancel(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Manager().CancelMedia(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleMediaRetry(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.Manager().RetryMedia(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleMediaRelink(w http.ResponseWriter, r *http.Request) {
	var req api.RelinkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := s.daemon.Manager().RelinkMedia(r.Context(), chi.URLParam(r, "id"), req.Path); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleMediaRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mgr := s.daemon.Manager()
	sess, _, err := mgr.FindMedia(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := mgr.RemoveMedia(r.Context(), sess.ID(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleTimelineList(w http.ResponseWriter, r *http.Request) {
	sess, err := s.daemon.Manager().Session(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TimelineViews(sess))
}

func (s *apiServer) handleTimelinePlace(w http.ResponseWriter, r *http.Request) {
	var req api.PlaceRequest
	if !decodeBody(w, r, &req) {
		return
	}
	placement := timeline.Placement{
		Position: req.Position,
		Duration: req.Duration,
		Transform: timeline.Transform{
			X:        req.Transform.X,
			Y:        req.Transform.Y,
			Scale:    req.Transform.Scale,
			Rotation: req.Transform.Rotation,
			Opacity:  req.Transform.Opacity,
		},
	}
	snap, err := s.daemon.Manager().Place(r.Context(), chi.URLParam(r, "id"), req.MediaItemID, req.TrackID, placement)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, api.TimelineView(snap))
}

func (s *apiServer) handleTimelineMove(w http.ResponseWriter, r *http.Request) {
	var req api.MoveRequest
	if !decodeBody(w, r, &req) {
		return
	}
	id := chi.URLParam(r, "id")
	mgr := s.daemon.Manager()
	sess, item, err := mgr.FindTimeline(id)
	if err != nil {
		writeError(w, err)
		return
	}
	placement := timeline.Placement{
		Position: req.Position,
		Duration: req.Duration,
		Transform: timeline.Transform{
			X:        req.Transform.X,
			Y:        req.Transform.Y,
			Scale:    req.Transform.Scale,
			Rotation: req.Transform.Rotation,
			Opacity:  req.Transform.Opacity,
		},
	}
	if err := mgr.MovePlacement(r.Context(), sess.ID(), id, placement); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.TimelineView(item.Snapshot()))
}

func (s *apiServer) handleTimelineRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	mgr := s.daemon.Manager()
	sess, _, err := mgr.FindTimeline(id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := mgr.RemoveTimelineItem(r.Context(), sess.ID(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	hub := s.daemon.LogStream()
	if hub == nil {
		writeJSON(w, http.StatusOK, api.LogsResponse{})
		return
	}

	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	wait := query.Get("wait") == "true"

	events, next, err := hub.Fetch(r.Context(), since, limit, wait)
	if err != nil && !errors.Is(err, context.Canceled) {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, api.LogsResponse{Events: events, Next: next})
}

func (s *apiServer) handleFileList(w http.ResponseWriter, r *http.Request) {
	entries, err := os.ReadDir(s.daemon.cfg.Paths.LibraryDir)
	if err != nil {
		writeError(w, err)
		return
	}
	files := make([]api.FileEntry, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, api.FileEntry{
			Name:     entry.Name(),
			Size:     info.Size(),
			MIMEType: library.MIMEForPath(entry.Name()),
		})
	}
	writeJSON(w, http.StatusOK, files)
}

// handleFileServe streams a library file with range support so the editor can
// seek without downloading the whole asset.
func (s *apiServer) handleFileServe(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "*")
	root := s.daemon.cfg.Paths.LibraryDir
	target := filepath.Join(root, filepath.Clean("/"+name))
	if !strings.HasPrefix(target, filepath.Clean(root)+string(os.PathSeparator)) {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid file path"})
		return
	}
	info, err := os.Stat(target)
	if err != nil || info.IsDir() {
		writeJSON(w, http.StatusNotFound, api.ErrorResponse{Error: "file not found"})
		return
	}
	w.Header().Set("Content-Type", library.MIMEForPath(target))
	http.ServeFile(w, r, target)
}
