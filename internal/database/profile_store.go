package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/couchgate/couchgate/internal/models"
)

// ErrProfileLimit is returned when a code already holds its maximum number
// of profiles.
var ErrProfileLimit = errors.New("maximum profiles limit reached")

const defaultParentalPIN = "0000"

// ProfileStore persists viewer profiles under access codes.
type ProfileStore struct {
	db *sql.DB
}

func NewProfileStore(db *sql.DB) (*ProfileStore, error) {
	store := &ProfileStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ProfileStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS profiles (
			id VARCHAR(36) PRIMARY KEY,
			access_code VARCHAR(16) NOT NULL REFERENCES access_codes(code) ON DELETE CASCADE,
			name VARCHAR(255) NOT NULL,
			is_child BOOLEAN NOT NULL DEFAULT false,
			avatar TEXT,
			parental_pin VARCHAR(16) NOT NULL DEFAULT '0000',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_profiles_code ON profiles(access_code)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create profile tables: %w", err)
		}
	}
	return nil
}

// Create inserts a profile under a code, enforcing the code's profile
// limit inside a transaction so concurrent creates cannot overshoot it.
func (s *ProfileStore) Create(ctx context.Context, code string, maxProfiles int, p *models.Profile) (*models.Profile, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var count int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM profiles WHERE access_code = $1`, code).Scan(&count); err != nil {
		return nil, err
	}
	if count >= maxProfiles {
		return nil, ErrProfileLimit
	}

	created := models.Profile{
		ID:          uuid.NewString(),
		AccessCode:  code,
		Name:        p.Name,
		IsChild:     p.IsChild,
		Avatar:      p.Avatar,
		ParentalPIN: defaultParentalPIN,
	}

	var avatar interface{}
	if created.Avatar != "" {
		avatar = created.Avatar
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO profiles (id, access_code, name, is_child, avatar, parental_pin)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, created.ID, created.AccessCode, created.Name, created.IsChild, avatar, created.ParentalPIN).Scan(&created.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListByCode returns all profiles under an access code.
func (s *ProfileStore) ListByCode(ctx context.Context, code string) ([]models.Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, access_code, name, is_child, avatar, parental_pin, created_at
		FROM profiles
		WHERE access_code = $1
		ORDER BY created_at
	`, code)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.Profile, 0)
	for rows.Next() {
		var p models.Profile
		var avatar sql.NullString
		if err := rows.Scan(&p.ID, &p.AccessCode, &p.Name, &p.IsChild, &avatar, &p.ParentalPIN, &p.CreatedAt); err != nil {
			return nil, err
		}
		if avatar.Valid {
			p.Avatar = avatar.String
		}
		profiles = append(profiles, p)
	}
	return profiles, rows.Err()
}

// Get returns one profile by id, or sql.ErrNoRows.
func (s *ProfileStore) Get(ctx context.Context, id string) (*models.Profile, error) {
	var p models.Profile
	var avatar sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, access_code, name, is_child, avatar, parental_pin, created_at
		FROM profiles
		WHERE id = $1
	`, id).Scan(&p.ID, &p.AccessCode, &p.Name, &p.IsChild, &avatar, &p.ParentalPIN, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		p.Avatar = avatar.String
	}
	return &p, nil
}

// UpdateParentalPIN sets a profile's parental PIN. Returns sql.ErrNoRows
// for an unknown profile.
func (s *ProfileStore) UpdateParentalPIN(ctx context.Context, id, pin string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE profiles SET parental_pin = $1 WHERE id = $2`, pin, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete removes a profile and, via cascade, its watchlist and progress.
func (s *ProfileStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM profiles WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
