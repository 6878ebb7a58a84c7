package catalog

import (
	"encoding/json"
	"fmt"
	"time"

	"splice/internal/library"
	"splice/internal/source"
	"splice/internal/timeline"
)

// SessionRecord is the persisted form of an editing session.
type SessionRecord struct {
	ID        string
	Name      string
	FrameRate float64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MediaRecord is the persisted form of a media item together with its
// acquisition source.
type MediaRecord struct {
	ID           string
	SessionID    string
	Name         string
	MediaType    library.MediaType
	Status       library.Status
	Progress     int
	ErrorMessage string
	SourceKind   source.Kind
	SourceStatus source.Status
	SourcePath   string
	SourceURL    string
	Metadata     *library.Metadata
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TimelineRecord is the persisted form of a timeline placement. Runtime
// handles and status contexts are rebuilt after restart, not stored.
type TimelineRecord struct {
	ID          string
	SessionID   string
	MediaItemID string
	TrackID     string
	Status      timeline.Status
	Placement   timeline.Placement
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// MediaRecordFromSnapshot builds the persisted form from a live snapshot.
func MediaRecordFromSnapshot(sessionID string, snap library.Snapshot) *MediaRecord {
	return &MediaRecord{
		ID:           snap.ID,
		SessionID:    sessionID,
		Name:         snap.Name,
		MediaType:    snap.MediaType,
		Status:       snap.Status,
		Progress:     snap.Progress,
		ErrorMessage: snap.ErrorMessage,
		SourceKind:   snap.Source.Kind,
		SourceStatus: snap.Source.Status,
		SourcePath:   snap.Source.Path,
		SourceURL:    snap.Source.URL,
		Metadata:     snap.Metadata,
		CreatedAt:    snap.CreatedAt,
		UpdatedAt:    snap.UpdatedAt,
	}
}

// TimelineRecordFromSnapshot builds the persisted form from a live snapshot.
func TimelineRecordFromSnapshot(sessionID string, snap timeline.Snapshot) *TimelineRecord {
	return &TimelineRecord{
		ID:          snap.ID,
		SessionID:   sessionID,
		MediaItemID: snap.MediaItemID,
		TrackID:     snap.TrackID,
		Status:      snap.Status,
		Placement:   snap.Placement,
		CreatedAt:   snap.CreatedAt,
		UpdatedAt:   snap.UpdatedAt,
	}
}

func marshalMetadata(md *library.Metadata) (any, error) {
	if md == nil {
		return nil, nil
	}
	data, err := json.Marshal(md)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}
	return string(data), nil
}

func unmarshalMetadata(raw string) (*library.Metadata, error) {
	if raw == "" {
		return nil, nil
	}
	var md library.Metadata
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return &md, nil
}

func marshalPlacement(p timeline.Placement) (string, error) {
	data, err := json.Marshal(p.Transform)
	if err != nil {
		return "", fmt.Errorf("marshal transform: %w", err)
	}
	return string(data), nil
}

func unmarshalTransform(raw string) (timeline.Transform, error) {
	if raw == "" {
		return timeline.Transform{}, nil
	}
	var tr timeline.Transform
	if err := json.Unmarshal([]byte(raw), &tr); err != nil {
		return timeline.Transform{}, fmt.Errorf("unmarshal transform: %w", err)
	}
	return tr, nil
}
