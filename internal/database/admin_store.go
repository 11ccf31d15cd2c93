package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Admin is an operator account allowed to configure the provider and
// issue access codes.
type Admin struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// AdminStore persists operator accounts with bcrypt-hashed passwords.
type AdminStore struct {
	db *sql.DB
}

func NewAdminStore(db *sql.DB) (*AdminStore, error) {
	store := &AdminStore{db: db}
	if err := store.initTables(); err != nil {
		return nil, err
	}
	return store, nil
}

func (s *AdminStore) initTables() error {
	query := `CREATE TABLE IF NOT EXISTS admins (
		id SERIAL PRIMARY KEY,
		username VARCHAR(255) UNIQUE NOT NULL,
		password VARCHAR(255) NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`

	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("failed to create admin tables: %w", err)
	}
	return nil
}

// Count returns the number of admin accounts.
func (s *AdminStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&n)
	return n, err
}

// Create inserts an admin with a bcrypt-hashed password.
func (s *AdminStore) Create(ctx context.Context, username, password string) (int, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, err
	}

	var id int
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO admins (username, password)
		VALUES ($1, $2)
		RETURNING id
	`, username, string(hashed)).Scan(&id)
	return id, err
}

// VerifyPassword checks credentials and returns the matching admin.
func (s *AdminStore) VerifyPassword(ctx context.Context, username, password string) (*Admin, error) {
	var admin Admin
	err := s.db.QueryRowContext(ctx, `
		SELECT id, username, password, created_at
		FROM admins
		WHERE username = $1
	`, username).Scan(&admin.ID, &admin.Username, &admin.Password, &admin.CreatedAt)
	if err != nil {
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.Password), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid password")
	}
	return &admin, nil
}
