package cache

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"
)

// CatalogCache stores successful upstream catalog responses in Postgres
// with an in-memory read-through layer, so browsing does not hammer the
// provider on every request. Failures are never cached.
type CatalogCache struct {
	db     *sql.DB
	ttl    time.Duration
	mu     sync.RWMutex
	memory map[string]*entry
}

type entry struct {
	data      []byte
	expiresAt time.Time
}

// New creates the cache and starts its hourly cleanup worker. A zero or
// negative ttl disables caching entirely.
func New(db *sql.DB, ttl time.Duration) (*CatalogCache, error) {
	c := &CatalogCache{
		db:     db,
		ttl:    ttl,
		memory: make(map[string]*entry),
	}

	if err := c.initTables(); err != nil {
		return nil, err
	}

	go c.cleanupWorker()
	return c, nil
}

func (c *CatalogCache) initTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalog_cache (
			key TEXT PRIMARY KEY,
			data BYTEA NOT NULL,
			expires_at TIMESTAMP NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_cache_expires ON catalog_cache(expires_at)`,
	}

	for _, query := range queries {
		if _, err := c.db.Exec(query); err != nil {
			return fmt.Errorf("failed to create cache tables: %w", err)
		}
	}
	return nil
}

// Get returns the cached payload for key, or nil on a miss.
func (c *CatalogCache) Get(ctx context.Context, key string) []byte {
	if c.ttl <= 0 {
		return nil
	}

	c.mu.RLock()
	if e, ok := c.memory[key]; ok && time.Now().Before(e.expiresAt) {
		c.mu.RUnlock()
		return e.data
	}
	c.mu.RUnlock()

	var data []byte
	var expiresAt time.Time
	err := c.db.QueryRowContext(ctx,
		`SELECT data, expires_at FROM catalog_cache WHERE key = $1 AND expires_at > NOW()`,
		key,
	).Scan(&data, &expiresAt)
	if err != nil {
		return nil // miss or store failure; caller goes upstream either way
	}

	c.mu.Lock()
	c.memory[key] = &entry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()

	return data
}

// Set stores a payload under key for the configured TTL.
func (c *CatalogCache) Set(ctx context.Context, key string, data []byte) {
	if c.ttl <= 0 {
		return
	}

	expiresAt := time.Now().Add(c.ttl)

	_, err := c.db.ExecContext(ctx, `
		INSERT INTO catalog_cache (key, data, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (key)
		DO UPDATE SET data = $2, expires_at = $3
	`, key, data, expiresAt)
	if err != nil {
		log.Printf("cache write failed for %s: %v", key, err)
		return
	}

	c.mu.Lock()
	c.memory[key] = &entry{data: data, expiresAt: expiresAt}
	c.mu.Unlock()
}

// Invalidate drops every cached payload; used when credentials change.
func (c *CatalogCache) Invalidate(ctx context.Context) {
	c.mu.Lock()
	c.memory = make(map[string]*entry)
	c.mu.Unlock()

	if _, err := c.db.ExecContext(ctx, `DELETE FROM catalog_cache`); err != nil {
		log.Printf("cache invalidation failed: %v", err)
	}
}

func (c *CatalogCache) cleanupWorker() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for range ticker.C {
		c.Cleanup()
	}
}

// Cleanup removes expired entries from both layers.
func (c *CatalogCache) Cleanup() {
	now := time.Now()

	c.mu.Lock()
	for key, e := range c.memory {
		if now.After(e.expiresAt) {
			delete(c.memory, key)
		}
	}
	c.mu.Unlock()

	if _, err := c.db.Exec(`DELETE FROM catalog_cache WHERE expires_at < NOW()`); err != nil {
		log.Printf("cache cleanup failed: %v", err)
	}
}
