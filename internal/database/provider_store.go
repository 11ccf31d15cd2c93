package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/couchgate/couchgate/internal/models"
)

// ErrNotConfigured is returned when no provider credential set is active.
// Callers must handle it explicitly; it is never substituted with empty
// credentials.
var ErrNotConfigured = errors.New("no active provider configured")

// ProviderStore persists Xtream provider credential sets. At most one row
// is active at any time; Replace swaps the active set in one transaction.
type ProviderStore struct {
	db *sql.DB
}

func NewProviderStore(db *sql.DB) (*ProviderStore, error) {
	store := &ProviderStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *ProviderStore) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS provider_credentials (
			id VARCHAR(36) PRIMARY KEY,
			base_url TEXT NOT NULL,
			username VARCHAR(255) NOT NULL,
			password VARCHAR(255) NOT NULL,
			alternate_base_url TEXT,
			is_active BOOLEAN NOT NULL DEFAULT false,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_provider_credentials_active ON provider_credentials(is_active)`,
	}

	for _, query := range queries {
		if _, err := s.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create provider tables: %w", err)
		}
	}
	return nil
}

// Active returns the single active credential set, or ErrNotConfigured.
func (s *ProviderStore) Active(ctx context.Context) (*models.ProviderCredentials, error) {
	var creds models.ProviderCredentials
	var alt sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, base_url, username, password, alternate_base_url, created_at
		FROM provider_credentials
		WHERE is_active = true
		ORDER BY created_at DESC
		LIMIT 1
	`).Scan(&creds.ID, &creds.BaseURL, &creds.Username, &creds.Password, &alt, &creds.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrNotConfigured
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load active provider: %w", err)
	}

	if alt.Valid {
		creds.AlternateBaseURL = alt.String
	}
	return &creds, nil
}

// Replace deactivates every existing credential set and inserts the
// candidate as the new active one in a single transaction, so there is no
// window with zero or two active rows.
func (s *ProviderStore) Replace(ctx context.Context, creds *models.ProviderCredentials) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin credential swap: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE provider_credentials SET is_active = false WHERE is_active = true`); err != nil {
		return fmt.Errorf("failed to deactivate previous credentials: %w", err)
	}

	if creds.ID == "" {
		creds.ID = uuid.NewString()
	}

	var alt interface{}
	if creds.AlternateBaseURL != "" {
		alt = creds.AlternateBaseURL
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO provider_credentials (id, base_url, username, password, alternate_base_url, is_active)
		VALUES ($1, $2, $3, $4, $5, true)
		RETURNING created_at
	`, creds.ID, creds.BaseURL, creds.Username, creds.Password, alt).Scan(&creds.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert credentials: %w", err)
	}

	return tx.Commit()
}
