package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/couchgate/couchgate/internal/models"
)

// ActivityStore persists per-profile viewing state: watchlist entries and
// resume positions. Both are plain keyed records; the interesting logic
// lives upstream of this store.
type ActivityStore struct {
	db *sql.DB
}

func NewActivityStore(db *sql.DB) (*ActivityStore, error) {
	store := &ActivityStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ActivityStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS watchlist (
			id SERIAL PRIMARY KEY,
			profile_id VARCHAR(36) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			stream_id VARCHAR(64) NOT NULL,
			stream_type VARCHAR(16) NOT NULL,
			title VARCHAR(500) NOT NULL,
			poster TEXT,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(profile_id, stream_id, stream_type)
		)`,
		`CREATE TABLE IF NOT EXISTS playback_progress (
			profile_id VARCHAR(36) NOT NULL REFERENCES profiles(id) ON DELETE CASCADE,
			stream_id VARCHAR(64) NOT NULL,
			stream_type VARCHAR(16) NOT NULL,
			position_seconds INTEGER NOT NULL DEFAULT 0,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (profile_id, stream_id, stream_type)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_profile ON watchlist(profile_id)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create activity tables: %w", err)
		}
	}
	return nil
}

// AddToWatchlist records a watchlist entry; re-adding is a no-op.
func (s *ActivityStore) AddToWatchlist(ctx context.Context, item *models.WatchlistItem) error {
	var poster interface{}
	if item.Poster != "" {
		poster = item.Poster
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO watchlist (profile_id, stream_id, stream_type, title, poster)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (profile_id, stream_id, stream_type) DO NOTHING
	`, item.ProfileID, item.StreamID, item.StreamType, item.Title, poster)
	return err
}

// RemoveFromWatchlist deletes a watchlist entry if present.
func (s *ActivityStore) RemoveFromWatchlist(ctx context.Context, profileID, streamID, streamType string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM watchlist
		WHERE profile_id = $1 AND stream_id = $2 AND stream_type = $3
	`, profileID, streamID, streamType)
	return err
}

// Watchlist returns a profile's watchlist, newest first.
func (s *ActivityStore) Watchlist(ctx context.Context, profileID string) ([]models.WatchlistItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, profile_id, stream_id, stream_type, title, poster, added_at
		FROM watchlist
		WHERE profile_id = $1
		ORDER BY added_at DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]models.WatchlistItem, 0)
	for rows.Next() {
		var item models.WatchlistItem
		var poster sql.NullString
		if err := rows.Scan(&item.ID, &item.ProfileID, &item.StreamID, &item.StreamType, &item.Title, &poster, &item.AddedAt); err != nil {
			return nil, err
		}
		if poster.Valid {
			item.Poster = poster.String
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// SaveProgress upserts a resume position.
func (s *ActivityStore) SaveProgress(ctx context.Context, p *models.PlaybackProgress) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO playback_progress (profile_id, stream_id, stream_type, position_seconds, duration_seconds, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (profile_id, stream_id, stream_type)
		DO UPDATE SET position_seconds = $4, duration_seconds = $5, updated_at = NOW()
	`, p.ProfileID, p.StreamID, p.StreamType, p.PositionSeconds, p.DurationSeconds)
	return err
}

// Progress returns a profile's resume positions, most recent first.
func (s *ActivityStore) Progress(ctx context.Context, profileID string) ([]models.PlaybackProgress, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT profile_id, stream_id, stream_type, position_seconds, duration_seconds, updated_at
		FROM playback_progress
		WHERE profile_id = $1
		ORDER BY updated_at DESC
	`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]models.PlaybackProgress, 0)
	for rows.Next() {
		var p models.PlaybackProgress
		if err := rows.Scan(&p.ProfileID, &p.StreamID, &p.StreamType, &p.PositionSeconds, &p.DurationSeconds, &p.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, p)
	}
	return entries, rows.Err()
}
