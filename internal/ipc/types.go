package ipc

import (
	"splice/internal/api"
	"splice/internal/catalog"
	"splice/internal/logging"
)

// StartRequest triggers daemon startup.
type StartRequest struct{}

// StartResponse indicates whether the daemon was started.
type StartResponse struct {
	Started bool   `json:"started"`
	Message string `json:"message"`
}

// StopRequest stops the daemon.
type StopRequest struct{}

// StopResponse indicates stop result.
type StopResponse struct {
	Stopped bool `json:"stopped"`
}

// StatusRequest fetches daemon status.
type StatusRequest struct{}

// StatusResponse carries the daemon-wide summary.
type StatusResponse struct {
	Status   api.StatusView `json:"status"`
	LockPath string         `json:"lock_path"`
}

// SessionListRequest lists editing sessions.
type SessionListRequest struct{}

// SessionListResponse contains session summaries.
type SessionListResponse struct {
	Sessions []api.SessionView `json:"sessions"`
}

// SessionCreateRequest creates a session.
type SessionCreateRequest struct {
	Name string `json:"name"`
}

// SessionCreateResponse returns the created session.
type SessionCreateResponse struct {
	Session api.SessionView `json:"session"`
}

// SessionRemoveRequest deletes a session and everything in it.
type SessionRemoveRequest struct {
	SessionID string `json:"session_id"`
}

// SessionRemoveResponse acknowledges the removal.
type SessionRemoveResponse struct {
	Removed bool `json:"removed"`
}

// MediaListRequest lists a session's media.
type MediaListRequest struct {
	SessionID string `json:"session_id"`
}

// MediaListResponse contains media items.
type MediaListResponse struct {
	Items []api.MediaItemView `json:"items"`
}

// ImportRequest adds media to a session. Exactly one locator must be set.
type ImportRequest struct {
	SessionID  string `json:"session_id"`
	Path       string `json:"path,omitempty"`
	ProjectRef string `json:"project_ref,omitempty"`
	URL        string `json:"url,omitempty"`
}

// ImportResponse returns the imported item's initial snapshot.
type ImportResponse struct {
	Item api.MediaItemView `json:"item"`
}

// CancelRequest aborts an in-flight acquisition.
type CancelRequest struct {
	MediaID string `json:"media_id"`
}

// CancelResponse acknowledges the cancel.
type CancelResponse struct{}

// RetryRequest re-runs a failed or cancelled acquisition.
type RetryRequest struct {
	MediaID string `json:"media_id"`
}

// RetryResponse acknowledges the retry.
type RetryResponse struct{}

// RelinkRequest points missing media at a replacement path.
type RelinkRequest struct {
	MediaID string `json:"media_id"`
	Path    string `json:"path"`
}

// RelinkResponse acknowledges the relink.
type RelinkResponse struct{}

// RemoveMediaRequest deletes a media item and detaches its placements.
type RemoveMediaRequest struct {
	MediaID string `json:"media_id"`
}

// RemoveMediaResponse acknowledges the removal.
type RemoveMediaResponse struct{}

// PlaceRequest puts media on a timeline track.
type PlaceRequest struct {
	SessionID   string  `json:"session_id"`
	MediaItemID string  `json:"media_item_id"`
	TrackID     string  `json:"track_id"`
	Position    int64   `json:"position"`
	Duration    int64   `json:"duration"`
	Scale       float64 `json:"scale,omitempty"`
	Opacity     float64 `json:"opacity,omitempty"`
}

// PlaceResponse returns the created placement.
type PlaceResponse struct {
	Item api.TimelineItemView `json:"item"`
}

// TimelineListRequest lists a session's placements.
type TimelineListRequest struct {
	SessionID string `json:"session_id"`
}

// TimelineListResponse contains timeline items.
type TimelineListResponse struct {
	Items []api.TimelineItemView `json:"items"`
}

// MoveTimelineItemRequest updates a placement's position, duration, or
// transform.
type MoveTimelineItemRequest struct {
	TimelineItemID string  `json:"timeline_item_id"`
	Position       int64   `json:"position"`
	Duration       int64   `json:"duration"`
	Scale          float64 `json:"scale,omitempty"`
	Opacity        float64 `json:"opacity,omitempty"`
}

// MoveTimelineItemResponse returns the updated placement.
type MoveTimelineItemResponse struct {
	Item api.TimelineItemView `json:"item"`
}

// RemoveTimelineItemRequest detaches a placement.
type RemoveTimelineItemRequest struct {
	TimelineItemID string `json:"timeline_item_id"`
}

// RemoveTimelineItemResponse acknowledges the removal.
type RemoveTimelineItemResponse struct{}

// LogTailRequest fetches buffered log events after a cursor.
type LogTailRequest struct {
	Since      uint64 `json:"since"`
	Limit      int    `json:"limit"`
	Follow     bool   `json:"follow"`
	WaitMillis int    `json:"wait_millis"`
}

// LogTailResponse returns log events and the next cursor.
type LogTailResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// CatalogHealthRequest fetches catalog diagnostics.
type CatalogHealthRequest struct{}

// CatalogHealthResponse reports catalog health.
type CatalogHealthResponse struct {
	Health catalog.DatabaseHealth `json:"health"`
}

// TestNotificationRequest triggers a notification test.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}
