package api

import "splice/internal/logging"

// CreateSessionRequest names a new editing session.
type CreateSessionRequest struct {
	Name string `json:"name"`
}

// ImportRequest adds media to a session. Exactly one of Path, ProjectRef, or
// URL must be set.
type ImportRequest struct {
	Path       string `json:"path,omitempty"`
	ProjectRef string `json:"project_ref,omitempty"`
	URL        string `json:"url,omitempty"`
}

// RelinkRequest points a missing media item at a replacement file.
type RelinkRequest struct {
	Path string `json:"path"`
}

// PlaceRequest puts a media item on a timeline track.
type PlaceRequest struct {
	MediaItemID string        `json:"media_item_id"`
	TrackID     string        `json:"track_id"`
	Position    int64         `json:"position"`
	Duration    int64         `json:"duration"`
	Transform   TransformView `json:"transform"`
}

// MoveRequest updates a placement's position, duration, or transform.
type MoveRequest struct {
	Position  int64         `json:"position"`
	Duration  int64         `json:"duration"`
	Transform TransformView `json:"transform"`
}

// LogsResponse carries buffered log events plus the cursor for the next poll.
type LogsResponse struct {
	Events []logging.LogEvent `json:"events"`
	Next   uint64             `json:"next"`
}

// FileEntry describes one file in the media library directory.
type FileEntry struct {
	Name     string `json:"name"`
	Size     int64  `json:"size"`
	MIMEType string `json:"mime_type"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}
