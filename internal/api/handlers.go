package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/couchgate/couchgate/internal/cache"
	"github.com/couchgate/couchgate/internal/database"
	"github.com/couchgate/couchgate/internal/models"
	"github.com/couchgate/couchgate/internal/playlist"
	"github.com/couchgate/couchgate/internal/provision"
	"github.com/couchgate/couchgate/internal/xtream"
)

// Store collaborators, satisfied by the internal/database stores.
type codeStore interface {
	Create(ctx context.Context, maxProfiles int) (*models.AccessCode, error)
	GetActive(ctx context.Context, code string) (*models.AccessCode, error)
	List(ctx context.Context) ([]models.AccessCode, error)
	Deactivate(ctx context.Context, code string) error
}

type profileStore interface {
	Create(ctx context.Context, code string, maxProfiles int, p *models.Profile) (*models.Profile, error)
	ListByCode(ctx context.Context, code string) ([]models.Profile, error)
	Get(ctx context.Context, id string) (*models.Profile, error)
	UpdateParentalPIN(ctx context.Context, id, pin string) error
	Delete(ctx context.Context, id string) error
}

type activityStore interface {
	AddToWatchlist(ctx context.Context, item *models.WatchlistItem) error
	RemoveFromWatchlist(ctx context.Context, profileID, streamID, streamType string) error
	Watchlist(ctx context.Context, profileID string) ([]models.WatchlistItem, error)
	SaveProgress(ctx context.Context, p *models.PlaybackProgress) error
	Progress(ctx context.Context, profileID string) ([]models.PlaybackProgress, error)
}

type adminStore interface {
	VerifyPassword(ctx context.Context, username, password string) (*database.Admin, error)
}

type Handler struct {
	resolver      *provision.Resolver
	client        *xtream.Client
	catalog       *xtream.Catalog
	catalogCache  *cache.CatalogCache
	codeStore     codeStore
	profileStore  profileStore
	activityStore activityStore
	adminStore    adminStore
}

func NewHandler(
	resolver *provision.Resolver,
	client *xtream.Client,
	catalog *xtream.Catalog,
	catalogCache *cache.CatalogCache,
	codeStore codeStore,
	profileStore profileStore,
	activityStore activityStore,
	adminStore adminStore,
) *Handler {
	return &Handler{
		resolver:      resolver,
		client:        client,
		catalog:       catalog,
		catalogCache:  catalogCache,
		codeStore:     codeStore,
		profileStore:  profileStore,
		activityStore: activityStore,
		adminStore:    adminStore,
	}
}

// Response helpers
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondRawJSON(w http.ResponseWriter, payload []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(payload)
}

// respondFailure maps the error taxonomy onto HTTP statuses: missing
// configuration is the admin's problem (404), invalid input the caller's
// (400), upstream timeouts 504, and every other upstream fault 502 with
// the original detail preserved.
func respondFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotConfigured):
		respondError(w, http.StatusNotFound, "IPTV provider not configured")
		return
	case errors.Is(err, xtream.ErrInvalidStreamType):
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	switch xtream.KindOf(err) {
	case xtream.KindTimeout:
		respondError(w, http.StatusGatewayTimeout, err.Error())
	case xtream.KindBlocked, xtream.KindRejected, xtream.KindMalformed, xtream.KindNetwork:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) RootHandler(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"message": "CouchGate IPTV Gateway",
		"version": "1.0.0",
	})
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ==================== CATALOG PROXY ====================

// AccountInfo handles GET /api/xtream/info
func (h *Handler) AccountInfo(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	creds, err := h.resolver.Active(ctx)
	if err != nil {
		respondFailure(w, err)
		return
	}

	payload, err := h.catalog.AccountInfo(ctx, creds)
	if err != nil {
		respondFailure(w, err)
		return
	}
	respondRawJSON(w, payload)
}

// catalogProxy runs one cached catalog action and writes the upstream
// JSON through unchanged.
func (h *Handler) catalogProxy(w http.ResponseWriter, r *http.Request, cacheKey string, fetch func(ctx context.Context) (json.RawMessage, error)) {
	ctx := r.Context()

	if cacheKey != "" && h.catalogCache != nil {
		if cached := h.catalogCache.Get(ctx, cacheKey); cached != nil {
			respondRawJSON(w, cached)
			return
		}
	}

	payload, err := fetch(ctx)
	if err != nil {
		respondFailure(w, err)
		return
	}

	if cacheKey != "" && h.catalogCache != nil {
		h.catalogCache.Set(ctx, cacheKey, payload)
	}
	respondRawJSON(w, payload)
}

// LiveCategories handles GET /api/xtream/live-categories
func (h *Handler) LiveCategories(w http.ResponseWriter, r *http.Request) {
	h.catalogProxy(w, r, "live_categories", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.LiveCategories(ctx, creds)
	})
}

// LiveStreams handles GET /api/xtream/live-streams. The provider playlist
// is the primary source; when the fetch is blocked or unreachable the
// JSON get_live_streams action serves as fallback. Category filtering is
// applied after parsing so ordinal channel ids stay stable.
func (h *Handler) LiveStreams(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	categoryID := r.URL.Query().Get("category_id")

	creds, err := h.resolver.Active(ctx)
	if err != nil {
		respondFailure(w, err)
		return
	}

	channels, plErr := h.liveChannels(ctx, creds)
	if plErr != nil {
		switch xtream.KindOf(plErr) {
		case xtream.KindBlocked, xtream.KindTimeout, xtream.KindNetwork:
			payload, jsonErr := h.catalog.LiveStreams(ctx, creds, categoryID)
			if jsonErr == nil {
				log.Printf("playlist fetch failed (%v), served JSON live streams instead", plErr)
				respondRawJSON(w, payload)
				return
			}
		}
		respondFailure(w, plErr)
		return
	}

	if categoryID != "" {
		channels = playlist.FilterByCategory(channels, categoryID)
	}
	respondJSON(w, http.StatusOK, channels)
}

// liveChannels returns the full parsed playlist, via cache when possible.
// The unfiltered list is what gets cached so ordinal ids are the same no
// matter which category a client asks for.
func (h *Handler) liveChannels(ctx context.Context, creds *models.ProviderCredentials) ([]playlist.Channel, error) {
	const cacheKey = "live_channels"

	if h.catalogCache != nil {
		if cached := h.catalogCache.Get(ctx, cacheKey); cached != nil {
			var channels []playlist.Channel
			if err := json.Unmarshal(cached, &channels); err == nil {
				return channels, nil
			}
		}
	}

	raw, err := h.client.FetchPlaylist(ctx, creds)
	if err != nil {
		return nil, err
	}

	channels := playlist.Parse(raw)
	if len(channels) == 0 {
		return nil, &xtream.Error{
			Kind:    xtream.KindMalformed,
			Message: "playlist contained no channels",
		}
	}

	if h.catalogCache != nil {
		if payload, err := json.Marshal(channels); err == nil {
			h.catalogCache.Set(ctx, cacheKey, payload)
		}
	}
	return channels, nil
}

// VODCategories handles GET /api/xtream/vod-categories
func (h *Handler) VODCategories(w http.ResponseWriter, r *http.Request) {
	h.catalogProxy(w, r, "vod_categories", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.VODCategories(ctx, creds)
	})
}

// VODStreams handles GET /api/xtream/vod-streams
func (h *Handler) VODStreams(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("category_id")
	h.catalogProxy(w, r, "vod_streams:"+categoryID, func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.VODStreams(ctx, creds, categoryID)
	})
}

// SeriesCategories handles GET /api/xtream/series-categories
func (h *Handler) SeriesCategories(w http.ResponseWriter, r *http.Request) {
	h.catalogProxy(w, r, "series_categories", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.SeriesCategories(ctx, creds)
	})
}

// SeriesStreams handles GET /api/xtream/series-streams
func (h *Handler) SeriesStreams(w http.ResponseWriter, r *http.Request) {
	categoryID := r.URL.Query().Get("category_id")
	h.catalogProxy(w, r, "series_streams:"+categoryID, func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.Series(ctx, creds, categoryID)
	})
}

// SeriesInfo handles GET /api/xtream/series-info/{id}
func (h *Handler) SeriesInfo(w http.ResponseWriter, r *http.Request) {
	seriesID := mux.Vars(r)["id"]
	h.catalogProxy(w, r, "", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.SeriesInfo(ctx, creds, seriesID)
	})
}

// VODInfo handles GET /api/xtream/vod-info/{id}
func (h *Handler) VODInfo(w http.ResponseWriter, r *http.Request) {
	vodID := mux.Vars(r)["id"]
	h.catalogProxy(w, r, "", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.VODInfo(ctx, creds, vodID)
	})
}

// ShortEPG handles GET /api/xtream/epg/{id}
func (h *Handler) ShortEPG(w http.ResponseWriter, r *http.Request) {
	streamID := mux.Vars(r)["id"]
	h.catalogProxy(w, r, "", func(ctx context.Context) (json.RawMessage, error) {
		creds, err := h.resolver.Active(ctx)
		if err != nil {
			return nil, err
		}
		return h.catalog.ShortEPG(ctx, creds, streamID)
	})
}

// StreamURL handles GET /api/xtream/stream-url/{type}/{id}
func (h *Handler) StreamURL(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	streamType := vars["type"]
	streamID := vars["id"]
	extension := r.URL.Query().Get("extension")

	creds, err := h.resolver.Active(r.Context())
	if err != nil {
		respondFailure(w, err)
		return
	}

	url, err := xtream.BuildStreamURL(creds, streamType, streamID, extension)
	if err != nil {
		respondFailure(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": url})
}
