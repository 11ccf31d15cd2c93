package provision

import (
	"context"
	"strconv"
	"time"

	"github.com/couchgate/couchgate/internal/models"
	"github.com/couchgate/couchgate/internal/xtream"
)

// unknownExpiration is shown when the provider reports no parseable
// account expiration (lifetime accounts send null or junk).
const unknownExpiration = "Unknown"

// Store is the persistence collaborator for provider credentials. The
// database implementation applies Replace as one atomic swap.
type Store interface {
	Active(ctx context.Context) (*models.ProviderCredentials, error)
	Replace(ctx context.Context, creds *models.ProviderCredentials) error
}

// Prober is the upstream probe used by the verify-then-commit flow.
type Prober interface {
	VerifyAccount(ctx context.Context, creds *models.ProviderCredentials) (*xtream.AccountInfo, error)
}

// Resolver owns the active provider credential set: reading it for
// request snapshots and swapping it through a verified commit.
type Resolver struct {
	store  Store
	prober Prober
}

func NewResolver(store Store, prober Prober) *Resolver {
	return &Resolver{store: store, prober: prober}
}

// Active returns a snapshot of the active credentials. The absence of an
// active set surfaces as database.ErrNotConfigured, untouched, so callers
// can distinguish "admin never configured this" from real failures.
func (r *Resolver) Active(ctx context.Context) (*models.ProviderCredentials, error) {
	return r.store.Active(ctx)
}

// VerifyAndActivate probes the candidate once; only a successful probe
// commits it as the new active set. On probe failure nothing is written
// and the probe error propagates with its classification intact.
func (r *Resolver) VerifyAndActivate(ctx context.Context, candidate *models.ProviderCredentials) (*models.VerificationResult, error) {
	info, err := r.prober.VerifyAccount(ctx, candidate)
	if err != nil {
		return nil, err
	}

	if err := r.store.Replace(ctx, candidate); err != nil {
		return nil, err
	}

	return &models.VerificationResult{
		Username:          info.Username,
		AccountStatus:     info.Status,
		ExpirationDisplay: formatExpiration(info.ExpDate),
		MaxConnections:    info.MaxConnections,
		ActiveConnections: info.ActiveConnections,
	}, nil
}

// formatExpiration renders the provider's epoch-seconds expiration as a
// display string.
func formatExpiration(expDate string) string {
	if expDate == "" {
		return unknownExpiration
	}
	epoch, err := strconv.ParseInt(expDate, 10, 64)
	if err != nil {
		return unknownExpiration
	}
	return time.Unix(epoch, 0).UTC().Format("2006-01-02 15:04")
}
