package models

import "time"

// ProviderCredentials is the Xtream-Codes account used for all upstream
// calls. Exactly one row is active at a time; requests snapshot the active
// row at the start of a call and are unaffected by later reconfiguration.
type ProviderCredentials struct {
	ID               string    `json:"id"`
	BaseURL          string    `json:"base_url"`
	Username         string    `json:"username"`
	Password         string    `json:"-"`
	AlternateBaseURL string    `json:"alternate_base_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// VerificationResult is the outcome of probing a candidate credential set
// against the upstream account endpoint. It is not persisted on its own.
type VerificationResult struct {
	Username          string `json:"username"`
	AccountStatus     string `json:"account_status"`
	ExpirationDisplay string `json:"expiration"`
	MaxConnections    string `json:"max_connections"`
	ActiveConnections string `json:"active_connections"`
}

// AccessCode groups a household of profiles under one shared login code.
type AccessCode struct {
	Code         string    `json:"code"`
	IsActive     bool      `json:"is_active"`
	MaxProfiles  int       `json:"max_profiles"`
	ProfileCount int       `json:"profile_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is one viewer under an access code.
type Profile struct {
	ID          string    `json:"id"`
	AccessCode  string    `json:"access_code"`
	Name        string    `json:"name"`
	IsChild     bool      `json:"is_child"`
	Avatar      string    `json:"avatar,omitempty"`
	ParentalPIN string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

// WatchlistItem is a saved catalog entry on a profile's watchlist.
type WatchlistItem struct {
	ID         int       `json:"id"`
	ProfileID  string    `json:"profile_id"`
	StreamID   string    `json:"stream_id"`
	StreamType string    `json:"stream_type"`
	Title      string    `json:"title"`
	Poster     string    `json:"poster,omitempty"`
	AddedAt    time.Time `json:"added_at"`
}

// PlaybackProgress is a resume position, keyed by (profile, stream, type).
type PlaybackProgress struct {
	ProfileID       string    `json:"profile_id"`
	StreamID        string    `json:"stream_id"`
	StreamType      string    `json:"stream_type"`
	PositionSeconds int       `json:"position_seconds"`
	DurationSeconds int       `json:"duration_seconds"`
	UpdatedAt       time.Time `json:"updated_at"`
}
