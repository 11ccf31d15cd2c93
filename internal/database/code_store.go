package database

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"

	"github.com/couchgate/couchgate/internal/models"
)

const (
	codeAlphabet    = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength      = 8
	defaultProfiles = 5
)

// CodeStore persists the shared access codes that group profiles.
type CodeStore struct {
	db *sql.DB
}

func NewCodeStore(db *sql.DB) (*CodeStore, error) {
	store := &CodeStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *CodeStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS access_codes (
			code VARCHAR(16) PRIMARY KEY,
			is_active BOOLEAN NOT NULL DEFAULT true,
			max_profiles INTEGER NOT NULL DEFAULT 5,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create access code tables: %w", err)
		}
	}
	return nil
}

// Create generates a fresh unique code. Collisions with existing codes are
// retried; with a 36^8 space they are effectively theoretical.
func (s *CodeStore) Create(ctx context.Context, maxProfiles int) (*models.AccessCode, error) {
	if maxProfiles <= 0 {
		maxProfiles = defaultProfiles
	}

	for attempt := 0; attempt < 10; attempt++ {
		code, err := randomCode()
		if err != nil {
			return nil, err
		}

		var created models.AccessCode
		err = s.db.QueryRowContext(ctx, `
			INSERT INTO access_codes (code, max_profiles)
			VALUES ($1, $2)
			ON CONFLICT (code) DO NOTHING
			RETURNING code, is_active, max_profiles, created_at
		`, code, maxProfiles).Scan(&created.Code, &created.IsActive, &created.MaxProfiles, &created.CreatedAt)

		if err == sql.ErrNoRows {
			continue // collision, try another code
		}
		if err != nil {
			return nil, fmt.Errorf("failed to insert access code: %w", err)
		}
		return &created, nil
	}

	return nil, fmt.Errorf("failed to generate a unique access code")
}

// GetActive returns an active code by value, or sql.ErrNoRows.
func (s *CodeStore) GetActive(ctx context.Context, code string) (*models.AccessCode, error) {
	var ac models.AccessCode
	err := s.db.QueryRowContext(ctx, `
		SELECT code, is_active, max_profiles, created_at
		FROM access_codes
		WHERE code = $1 AND is_active = true
	`, code).Scan(&ac.Code, &ac.IsActive, &ac.MaxProfiles, &ac.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &ac, nil
}

// List returns all codes, newest first, with their profile counts.
func (s *CodeStore) List(ctx context.Context) ([]models.AccessCode, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.code, c.is_active, c.max_profiles, c.created_at,
			COUNT(p.id) AS profile_count
		FROM access_codes c
		LEFT JOIN profiles p ON p.access_code = c.code
		GROUP BY c.code
		ORDER BY c.created_at DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	codes := make([]models.AccessCode, 0)
	for rows.Next() {
		var ac models.AccessCode
		if err := rows.Scan(&ac.Code, &ac.IsActive, &ac.MaxProfiles, &ac.CreatedAt, &ac.ProfileCount); err != nil {
			return nil, err
		}
		codes = append(codes, ac)
	}
	return codes, rows.Err()
}

// Deactivate disables a code without deleting its profiles. Returns
// sql.ErrNoRows for an unknown code.
func (s *CodeStore) Deactivate(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx, `UPDATE access_codes SET is_active = false WHERE code = $1`, code)
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

func randomCode() (string, error) {
	buf := make([]byte, codeLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeAlphabet))))
		if err != nil {
			return "", fmt.Errorf("failed to generate access code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}
