package ipc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"os"
	"sync"
	"time"

	"splice/internal/api"
	"splice/internal/daemon"
	"splice/internal/library"
	"splice/internal/logging"
	"splice/internal/timeline"
)

// Server exposes daemon control via JSON-RPC over a Unix domain socket.
type Server struct {
	path      string
	logger    *slog.Logger
	listener  net.Listener
	rpcServer *rpc.Server

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewServer configures the IPC server at the given socket path.
func NewServer(ctx context.Context, path string, d *daemon.Daemon, logger *slog.Logger) (*Server, error) {
	if d == nil {
		return nil, errors.New("ipc server requires daemon")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	if err := os.RemoveAll(path); err != nil {
		return nil, fmt.Errorf("remove existing socket: %w", err)
	}
	listener, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen on socket: %w", err)
	}

	rpcServer := rpc.NewServer()
	svc := &service{daemon: d, logger: logger.With(logging.String(logging.FieldComponent, "ipc")), ctx: ctx}
	if err := rpcServer.RegisterName("Splice", svc); err != nil {
		listener.Close()
		return nil, fmt.Errorf("register rpc service: %w", err)
	}

	serverCtx, cancel := context.WithCancel(ctx)
	return &Server{
		path:      path,
		logger:    logger,
		listener:  listener,
		rpcServer: rpcServer,
		ctx:       serverCtx,
		cancel:    cancel,
	}, nil
}

// Serve accepts RPC connections until the context is cancelled.
func (s *Server) Serve() {
	s.logger.Debug("ipc server listening", logging.String("socket", s.path))
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			conn, err := s.listener.Accept()
			if err != nil {
				select {
				case <-s.ctx.Done():
					return
				default:
				}
				s.logger.Warn("ipc accept failed", logging.Error(err))
				continue
			}
			s.wg.Add(1)
			go func(c net.Conn) {
				defer s.wg.Done()
				s.rpcServer.ServeCodec(jsonrpc.NewServerCodec(c))
			}(conn)
		}
	}()
}

// Close stops the server and removes the socket file.
func (s *Server) Close() {
	s.cancel()
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.wg.Wait()
	if err := os.RemoveAll(s.path); err != nil {
		s.logger.Warn("failed to remove socket",
			logging.String("socket", s.path),
			logging.Error(err))
	}
}

type service struct {
	daemon *daemon.Daemon
	logger *slog.Logger
	ctx    context.Context
}

func (s *service) Start(_ StartRequest, resp *StartResponse) error {
	if err := s.daemon.Start(s.ctx); err != nil {
		resp.Started = false
		resp.Message = err.Error()
		return nil
	}
	resp.Started = true
	resp.Message = "daemon started"
	return nil
}

func (s *service) Stop(_ StopRequest, resp *StopResponse) error {
	s.daemon.Stop()
	resp.Stopped = true
	return nil
}

func (s *service) Status(_ StatusRequest, resp *StatusResponse) error {
	resp.Status = s.daemon.Status(s.ctx)
	resp.LockPath = s.daemon.LockPath()
	return nil
}

func (s *service) SessionList(_ SessionListRequest, resp *SessionListResponse) error {
	resp.Sessions = api.SessionViews(s.daemon.Manager().Sessions())
	return nil
}

func (s *service) SessionCreate(req SessionCreateRequest, resp *SessionCreateResponse) error {
	sess, err := s.daemon.Manager().CreateSession(s.ctx, req.Name)
	if err != nil {
		return err
	}
	resp.Session = api.SessionViewOf(sess)
	return nil
}

func (s *service) SessionRemove(req SessionRemoveRequest, resp *SessionRemoveResponse) error {
	if err := s.daemon.Manager().RemoveSession(s.ctx, req.SessionID); err != nil {
		return err
	}
	resp.Removed = true
	return nil
}

func (s *service) MediaList(req MediaListRequest, resp *MediaListResponse) error {
	snaps, err := s.daemon.Manager().MediaSnapshots(req.SessionID)
	if err != nil {
		return err
	}
	resp.Items = api.MediaViews(snaps)
	return nil
}

func (s *service) Import(req ImportRequest, resp *ImportResponse) error {
	mgr := s.daemon.Manager()
	var (
		snap library.Snapshot
		err  error
	)
	switch {
	case req.Path != "":
		snap, err = mgr.ImportFile(s.ctx, req.SessionID, req.Path)
	case req.ProjectRef != "":
		snap, err = mgr.ImportProjectReference(s.ctx, req.SessionID, req.ProjectRef)
	case req.URL != "":
		snap, err = mgr.ImportURL(s.ctx, req.SessionID, req.URL)
	default:
		return errors.New("import needs path, project_ref, or url")
	}
	if err != nil {
		return err
	}
	resp.Item = api.MediaView(snap)
	return nil
}

func (s *service) Cancel(req CancelRequest, resp *CancelResponse) error {
	return s.daemon.Manager().CancelMedia(s.ctx, req.MediaID)
}

func (s *service) Retry(req RetryRequest, resp *RetryResponse) error {
	return s.daemon.Manager().RetryMedia(s.ctx, req.MediaID)
}

func (s *service) Relink(req RelinkRequest, resp *RelinkResponse) error {
	return s.daemon.Manager().RelinkMedia(s.ctx, req.MediaID, req.Path)
}

func (s *service) RemoveMedia(req RemoveMediaRequest, resp *RemoveMediaResponse) error {
	mgr := s.daemon.Manager()
	sess, _, err := mgr.FindMedia(req.MediaID)
	if err != nil {
		return err
	}
	return mgr.RemoveMedia(s.ctx, sess.ID(), req.MediaID)
}

func (s *service) Place(req PlaceRequest, resp *PlaceResponse) error {
	placement := timeline.Placement{
		Position: req.Position,
		Duration: req.Duration,
		Transform: timeline.Transform{
			Scale:   req.Scale,
			Opacity: req.Opacity,
		},
	}
	snap, err := s.daemon.Manager().Place(s.ctx, req.SessionID, req.MediaItemID, req.TrackID, placement)
	if err != nil {
		return err
	}
	resp.Item = api.TimelineView(snap)
	return nil
}

func (s *service) TimelineList(req TimelineListRequest, resp *TimelineListResponse) error {
	sess, err := s.daemon.Manager().Session(req.SessionID)
	if err != nil {
		return err
	}
	resp.Items = api.TimelineViews(sess)
	return nil
}

func (s *service) MoveTimelineItem(req MoveTimelineItemRequest, resp *MoveTimelineItemResponse) error {
	mgr := s.daemon.Manager()
	sess, item, err := mgr.FindTimeline(req.TimelineItemID)
	if err != nil {
		return err
	}
	placement := timeline.Placement{
		Position: req.Position,
		Duration: req.Duration,
		Transform: timeline.Transform{
			Scale:   req.Scale,
			Opacity: req.Opacity,
		},
	}
	if err := mgr.MovePlacement(s.ctx, sess.ID(), req.TimelineItemID, placement); err != nil {
		return err
	}
	resp.Item = api.TimelineView(item.Snapshot())
	return nil
}

func (s *service) RemoveTimelineItem(req RemoveTimelineItemRequest, resp *RemoveTimelineItemResponse) error {
	mgr := s.daemon.Manager()
	sess, _, err := mgr.FindTimeline(req.TimelineItemID)
	if err != nil {
		return err
	}
	return mgr.RemoveTimelineItem(s.ctx, sess.ID(), req.TimelineItemID)
}

func (s *service) LogTail(req LogTailRequest, resp *LogTailResponse) error {
	hub := s.daemon.LogStream()
	if hub == nil {
		return nil
	}
	ctx := s.ctx
	if req.Follow {
		wait := time.Duration(req.WaitMillis) * time.Millisecond
		if wait <= 0 {
			wait = time.Second
		}
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(s.ctx, wait)
		defer cancel()
	}
	events, next, err := hub.Fetch(ctx, req.Since, req.Limit, req.Follow)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
		return err
	}
	resp.Events = events
	resp.Next = next
	return nil
}

func (s *service) CatalogHealth(_ CatalogHealthRequest, resp *CatalogHealthResponse) error {
	health, err := s.daemon.CatalogHealth(s.ctx)
	resp.Health = health
	if err != nil && health.Error == "" {
		return err
	}
	return nil
}

func (s *service) TestNotification(_ TestNotificationRequest, resp *TestNotificationResponse) error {
	sent, message, err := s.daemon.TestNotification(s.ctx)
	resp.Sent = sent
	resp.Message = message
	return err
}
