// Package api holds the wire-level views shared by the daemon HTTP API, the
// IPC surface, and the CLI. Views are flattened JSON-friendly copies of the
// internal snapshots; they never reference live state machines.
package api

import (
	"time"

	"splice/internal/library"
	"splice/internal/session"
	"splice/internal/timeline"
)

// SourceView describes a media item's acquisition source.
type SourceView struct {
	Kind         string `json:"kind"`
	Status       string `json:"status"`
	Progress     int    `json:"progress"`
	Path         string `json:"path,omitempty"`
	URL          string `json:"url,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// MetadataView mirrors decoded media metadata.
type MetadataView struct {
	Width           int     `json:"width,omitempty"`
	Height          int     `json:"height,omitempty"`
	DurationSeconds float64 `json:"duration_seconds,omitempty"`
	DurationFrames  int64   `json:"duration_frames,omitempty"`
	FrameRate       float64 `json:"frame_rate,omitempty"`
	VideoCodec      string  `json:"video_codec,omitempty"`
	AudioCodec      string  `json:"audio_codec,omitempty"`
	Container       string  `json:"container,omitempty"`
	SizeBytes       int64   `json:"size_bytes"`
	HasVideo        bool    `json:"has_video"`
	HasAudio        bool    `json:"has_audio"`
}

// MediaItemView is the external form of a library item.
type MediaItemView struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	MediaType    string        `json:"media_type"`
	Status       string        `json:"status"`
	Progress     int           `json:"progress"`
	ErrorMessage string        `json:"error_message,omitempty"`
	Source       SourceView    `json:"source"`
	Metadata     *MetadataView `json:"metadata,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// HandleView is the external form of a timeline runtime handle.
type HandleView struct {
	Path           string `json:"path"`
	Proxy          bool   `json:"proxy"`
	Width          int    `json:"width,omitempty"`
	Height         int    `json:"height,omitempty"`
	DurationFrames int64  `json:"duration_frames,omitempty"`
	ThumbnailPath  string `json:"thumbnail_path,omitempty"`
}

// TransformView mirrors a clip transform.
type TransformView struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Scale    float64 `json:"scale"`
	Rotation float64 `json:"rotation"`
	Opacity  float64 `json:"opacity"`
}

// TimelineItemView is the external form of a timeline placement.
type TimelineItemView struct {
	ID            string        `json:"id"`
	MediaItemID   string        `json:"media_item_id"`
	TrackID       string        `json:"track_id"`
	Status        string        `json:"status"`
	StatusMessage string        `json:"status_message,omitempty"`
	CanRetry      bool          `json:"can_retry"`
	Position      int64         `json:"position"`
	Duration      int64         `json:"duration"`
	Transform     TransformView `json:"transform"`
	Handle        *HandleView   `json:"handle,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// SessionView is the external form of an editing session.
type SessionView struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	FrameRate     float64   `json:"frame_rate"`
	MediaCount    int       `json:"media_count"`
	TimelineCount int       `json:"timeline_count"`
	CreatedAt     time.Time `json:"created_at"`
}

// StatusView is the daemon-wide status summary.
type StatusView struct {
	Running       bool           `json:"running"`
	PID           int            `json:"pid"`
	Version       string         `json:"version,omitempty"`
	StartedAt     time.Time      `json:"started_at"`
	Sessions      int            `json:"sessions"`
	MediaByStatus map[string]int `json:"media_by_status,omitempty"`
	IngestRunning bool           `json:"ingest_running"`
}

// MediaView converts a library snapshot.
func MediaView(snap library.Snapshot) MediaItemView {
	view := MediaItemView{
		ID:           snap.ID,
		Name:         snap.Name,
		MediaType:    string(snap.MediaType),
		Status:       string(snap.Status),
		Progress:     snap.Progress,
		ErrorMessage: snap.ErrorMessage,
		Source: SourceView{
			Kind:         string(snap.Source.Kind),
			Status:       string(snap.Source.Status),
			Progress:     snap.Source.Progress,
			Path:         snap.Source.Path,
			URL:          snap.Source.URL,
			ErrorMessage: snap.Source.ErrorMessage,
		},
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Metadata != nil {
		md := MetadataView{
			Width:           snap.Metadata.Width,
			Height:          snap.Metadata.Height,
			DurationSeconds: snap.Metadata.DurationSeconds,
			DurationFrames:  snap.Metadata.DurationFrames,
			FrameRate:       snap.Metadata.FrameRate,
			VideoCodec:      snap.Metadata.VideoCodec,
			AudioCodec:      snap.Metadata.AudioCodec,
			Container:       snap.Metadata.Container,
			SizeBytes:       snap.Metadata.SizeBytes,
			HasVideo:        snap.Metadata.HasVideo,
			HasAudio:        snap.Metadata.HasAudio,
		}
		view.Metadata = &md
	}
	return view
}

// MediaViews converts a slice of library snapshots.
func MediaViews(snaps []library.Snapshot) []MediaItemView {
	views := make([]MediaItemView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, MediaView(snap))
	}
	return views
}

// TimelineView converts a timeline snapshot.
func TimelineView(snap timeline.Snapshot) TimelineItemView {
	view := TimelineItemView{
		ID:            snap.ID,
		MediaItemID:   snap.MediaItemID,
		TrackID:       snap.TrackID,
		Status:        string(snap.Status),
		StatusMessage: snap.StatusContext.Message,
		CanRetry:      snap.StatusContext.CanRetry,
		Position:      snap.Placement.Position,
		Duration:      snap.Placement.Duration,
		Transform: TransformView{
			X:        snap.Placement.Transform.X,
			Y:        snap.Placement.Transform.Y,
			Scale:    snap.Placement.Transform.Scale,
			Rotation: snap.Placement.Transform.Rotation,
			Opacity:  snap.Placement.Transform.Opacity,
		},
		CreatedAt: snap.CreatedAt,
		UpdatedAt: snap.UpdatedAt,
	}
	if snap.Handle != nil {
		view.Handle = &HandleView{
			Path:           snap.Handle.Path,
			Proxy:          snap.Handle.Proxy,
			Width:          snap.Handle.Width,
			Height:         snap.Handle.Height,
			DurationFrames: snap.Handle.DurationFrames,
			ThumbnailPath:  snap.Handle.ThumbnailPath,
		}
	}
	return view
}

// SessionViewOf converts a live session.
func SessionViewOf(sess *session.Session) SessionView {
	return SessionView{
		ID:            sess.ID(),
		Name:          sess.Name(),
		FrameRate:     sess.FrameRate(),
		MediaCount:    len(sess.MediaItems()),
		TimelineCount: len(sess.PlacedItems()),
		CreatedAt:     sess.CreatedAt(),
	}
}

// SessionViews converts live sessions.
func SessionViews(sessions []*session.Session) []SessionView {
	views := make([]SessionView, 0, len(sessions))
	for _, sess := range sessions {
		views = append(views, SessionViewOf(sess))
	}
	return views
}

// TimelineViews converts the session's placements.
func TimelineViews(sess *session.Session) []TimelineItemView {
	items := sess.PlacedItems()
	views := make([]TimelineItemView, 0, len(items))
	for _, item := range items {
		views = append(views, TimelineView(item.Snapshot()))
	}
	return views
}
