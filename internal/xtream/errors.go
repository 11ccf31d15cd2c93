package xtream

import (
	"errors"
	"fmt"
)

// ErrInvalidStreamType is returned for playback URL requests with a stream
// type outside live/movie/series. It is a caller bug, not an upstream fault.
var ErrInvalidStreamType = errors.New("invalid stream type")

// Kind classifies an upstream failure so the API layer can pick a status
// code and the admin UI can tell "retry later" from "fix your credentials".
type Kind string

const (
	// KindTimeout: the per-call deadline elapsed before the provider answered.
	KindTimeout Kind = "timeout"
	// KindBlocked: edge protection (Cloudflare or similar) refused the request.
	KindBlocked Kind = "blocked"
	// KindRejected: the provider answered but refused the credentials or request.
	KindRejected Kind = "rejected"
	// KindMalformed: a 2xx response whose body is not usable (bad JSON, empty playlist).
	KindMalformed Kind = "malformed"
	// KindNetwork: transport-level failure other than a timeout.
	KindNetwork Kind = "network"
)

// Error carries the upstream failure classification plus enough original
// detail (HTTP status, provider message) for a user-facing rendering.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("upstream %s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("upstream %s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf returns the upstream failure kind, or "" if err is not an upstream error.
func KindOf(err error) Kind {
	var ue *Error
	if errors.As(err, &ue) {
		return ue.Kind
	}
	return ""
}
