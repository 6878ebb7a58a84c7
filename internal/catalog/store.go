package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"splice/internal/config"
	"splice/internal/library"
	"splice/internal/source"
	"splice/internal/timeline"
)

// Store manages catalog persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the catalog database.
func Open(cfg *config.Config) (*Store, error) {
	dbPath := cfg.Paths.CatalogDBPath
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create catalog directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// SaveSession inserts or updates a session row.
func (s *Store) SaveSession(ctx context.Context, rec *SessionRecord) error {
	if rec == nil {
		return errors.New("session record is nil")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sessions (id, name, frame_rate, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?)
         ON CONFLICT(id) DO UPDATE SET
             name = excluded.name,
             frame_rate = excluded.frame_rate,
             updated_at = excluded.updated_at`,
		rec.ID,
		rec.Name,
		rec.FrameRate,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// GetSession fetches one session, or nil when absent.
func (s *Store) GetSession(ctx context.Context, id string) (*SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, frame_rate, created_at, updated_at FROM sessions WHERE id = ?`, id)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return rec, nil
}

// ListSessions returns all sessions ordered by creation time.
func (s *Store) ListSessions(ctx context.Context) ([]*SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, frame_rate, created_at, updated_at FROM sessions ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var records []*SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteSession removes a session and, through foreign keys, its media and
// timeline rows.
func (s *Store) DeleteSession(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpsertMedia inserts or refreshes a media item row.
func (s *Store) UpsertMedia(ctx context.Context, rec *MediaRecord) error {
	if rec == nil {
		return errors.New("media record is nil")
	}
	metadata, err := marshalMetadata(rec.Metadata)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO media_items (
            id, session_id, name, media_type, status, progress, error_message,
            source_kind, source_status, source_path, source_url, metadata_json,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            name = excluded.name,
            media_type = excluded.media_type,
            status = excluded.status,
            progress = excluded.progress,
            error_message = excluded.error_message,
            source_kind = excluded.source_kind,
            source_status = excluded.source_status,
            source_path = excluded.source_path,
            source_url = excluded.source_url,
            metadata_json = excluded.metadata_json,
            updated_at = excluded.updated_at`,
		rec.ID,
		rec.SessionID,
		rec.Name,
		string(rec.MediaType),
		string(rec.Status),
		rec.Progress,
		nullableString(rec.ErrorMessage),
		string(rec.SourceKind),
		string(rec.SourceStatus),
		nullableString(rec.SourcePath),
		nullableString(rec.SourceURL),
		metadata,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert media item: %w", err)
	}
	return nil
}

// GetMedia fetches one media item, or nil when absent.
func (s *Store) GetMedia(ctx context.Context, id string) (*MediaRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+mediaColumns+` FROM media_items WHERE id = ?`, id)
	rec, err := scanMedia(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media item: %w", err)
	}
	return rec, nil
}

// ListMedia returns a session's media items ordered by creation time.
func (s *Store) ListMedia(ctx context.Context, sessionID string) ([]*MediaRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+mediaColumns+` FROM media_items WHERE session_id = ? ORDER BY created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list media items: %w", err)
	}
	defer rows.Close()

	var records []*MediaRecord
	for rows.Next() {
		rec, err := scanMedia(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteMedia removes a media item and its timeline placements.
func (s *Store) DeleteMedia(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM media_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete media item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// UpsertTimelineItem inserts or refreshes a timeline placement row.
func (s *Store) UpsertTimelineItem(ctx context.Context, rec *TimelineRecord) error {
	if rec == nil {
		return errors.New("timeline record is nil")
	}
	transform, err := marshalPlacement(rec.Placement)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO timeline_items (
            id, session_id, media_item_id, track, status, position, duration,
            transform_json, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
            track = excluded.track,
            status = excluded.status,
            position = excluded.position,
            duration = excluded.duration,
            transform_json = excluded.transform_json,
            updated_at = excluded.updated_at`,
		rec.ID,
		rec.SessionID,
		rec.MediaItemID,
		nullableString(rec.TrackID),
		string(rec.Status),
		rec.Placement.Position,
		rec.Placement.Duration,
		transform,
		formatTime(rec.CreatedAt),
		formatTime(rec.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("upsert timeline item: %w", err)
	}
	return nil
}

// ListTimelineItems returns a session's placements ordered by position.
func (s *Store) ListTimelineItems(ctx context.Context, sessionID string) ([]*TimelineRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+timelineColumns+` FROM timeline_items WHERE session_id = ? ORDER BY position, created_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list timeline items: %w", err)
	}
	defer rows.Close()

	var records []*TimelineRecord
	for rows.Next() {
		rec, err := scanTimeline(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// DeleteTimelineItem removes one placement.
func (s *Store) DeleteTimelineItem(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM timeline_items WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete timeline item: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// ResetInFlight returns media rows caught mid-acquisition or mid-decode back
// to pending. In-flight work does not survive a restart; the restored items
// re-run acquisition instead of resuming.
func (s *Store) ResetInFlight(ctx context.Context) (int64, error) {
	now := formatTime(time.Now().UTC())
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE media_items
         SET status = ?, source_status = ?, progress = 0, error_message = NULL, updated_at = ?
         WHERE status IN (?, ?)`,
		string(library.StatusPending),
		string(source.StatusPending),
		now,
		string(library.StatusAsyncProcessing),
		string(library.StatusWebAVDecoding),
	)
	if err != nil {
		return 0, fmt.Errorf("reset in-flight media: %w", err)
	}
	return res.RowsAffected()
}

// Stats returns a count of media items grouped by status.
func (s *Store) Stats(ctx context.Context) (map[library.Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM media_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("catalog stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[library.Status]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[library.Status(status)] = count
	}
	return stats, rows.Err()
}

const mediaColumns = "id, session_id, name, media_type, status, progress, error_message, source_kind, source_status, source_path, source_url, metadata_json, created_at, updated_at"

const timelineColumns = "id, session_id, media_item_id, track, status, position, duration, transform_json, created_at, updated_at"

func scanSession(scanner interface{ Scan(dest ...any) error }) (*SessionRecord, error) {
	var (
		rec        SessionRecord
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&rec.ID, &rec.Name, &rec.FrameRate, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)
	return &rec, nil
}

func scanMedia(scanner interface{ Scan(dest ...any) error }) (*MediaRecord, error) {
	var (
		rec          MediaRecord
		mediaType    string
		status       string
		errorMessage sql.NullString
		sourceKind   string
		sourceStatus string
		sourcePath   sql.NullString
		sourceURL    sql.NullString
		metadataRaw  sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.Name,
		&mediaType,
		&status,
		&rec.Progress,
		&errorMessage,
		&sourceKind,
		&sourceStatus,
		&sourcePath,
		&sourceURL,
		&metadataRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec.MediaType = library.MediaType(mediaType)
	rec.Status = library.Status(status)
	rec.ErrorMessage = errorMessage.String
	rec.SourceKind = source.Kind(sourceKind)
	rec.SourceStatus = source.Status(sourceStatus)
	rec.SourcePath = sourcePath.String
	rec.SourceURL = sourceURL.String
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)

	md, err := unmarshalMetadata(metadataRaw.String)
	if err != nil {
		return nil, err
	}
	rec.Metadata = md
	return &rec, nil
}

func scanTimeline(scanner interface{ Scan(dest ...any) error }) (*TimelineRecord, error) {
	var (
		rec          TimelineRecord
		track        sql.NullString
		status       string
		transformRaw sql.NullString
		createdRaw   string
		updatedRaw   string
	)
	if err := scanner.Scan(
		&rec.ID,
		&rec.SessionID,
		&rec.MediaItemID,
		&track,
		&status,
		&rec.Placement.Position,
		&rec.Placement.Duration,
		&transformRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	rec.TrackID = track.String
	rec.Status = timeline.Status(status)
	rec.CreatedAt = parseTime(createdRaw)
	rec.UpdatedAt = parseTime(updatedRaw)

	tr, err := unmarshalTransform(transformRaw.String)
	if err != nil {
		return nil, err
	}
	rec.Placement.Transform = tr
	return &rec, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func formatTime(value time.Time) string {
	if value.IsZero() {
		value = time.Now().UTC()
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
