package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/couchgate/couchgate/internal/auth"
)

// SetupRoutes wires the HTTP surface onto a router.
func SetupRoutes(h *Handler) *mux.Router {
	r := mux.NewRouter()

	r.Use(corsMiddleware)
	r.Use(loggingMiddleware)

	r.HandleFunc("/", h.RootHandler).Methods(http.MethodGet)
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	// Admin surface, JWT-protected except for login.
	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(auth.RequireAdmin)
	admin.HandleFunc("/login", h.AdminLogin).Methods(http.MethodPost)
	admin.HandleFunc("/xtream-config", h.GetXtreamConfig).Methods(http.MethodGet)
	admin.HandleFunc("/xtream-config", h.SetXtreamConfig).Methods(http.MethodPost)
	admin.HandleFunc("/user-codes", h.ListUserCodes).Methods(http.MethodGet)
	admin.HandleFunc("/user-codes", h.CreateUserCode).Methods(http.MethodPost)
	admin.HandleFunc("/user-codes/{code}", h.DeactivateUserCode).Methods(http.MethodDelete)

	// Viewer auth and profiles.
	api.HandleFunc("/auth/verify-code", h.VerifyCode).Methods(http.MethodPost)
	api.HandleFunc("/profiles", h.ListProfiles).Methods(http.MethodGet)
	api.HandleFunc("/profiles", h.CreateProfile).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}", h.DeleteProfile).Methods(http.MethodDelete)
	api.HandleFunc("/profiles/{id}/parental-pin", h.SetParentalPIN).Methods(http.MethodPut)
	api.HandleFunc("/profiles/{id}/verify-pin", h.VerifyParentalPIN).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}/watchlist", h.GetWatchlist).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/watchlist", h.AddWatchlistItem).Methods(http.MethodPost)
	api.HandleFunc("/profiles/{id}/watchlist/{type}/{streamId}", h.RemoveWatchlistItem).Methods(http.MethodDelete)
	api.HandleFunc("/profiles/{id}/progress", h.GetProgress).Methods(http.MethodGet)
	api.HandleFunc("/profiles/{id}/progress", h.SaveProgress).Methods(http.MethodPut)

	// Upstream catalog proxy.
	xt := api.PathPrefix("/xtream").Subrouter()
	xt.HandleFunc("/info", h.AccountInfo).Methods(http.MethodGet)
	xt.HandleFunc("/live-categories", h.LiveCategories).Methods(http.MethodGet)
	xt.HandleFunc("/live-streams", h.LiveStreams).Methods(http.MethodGet)
	xt.HandleFunc("/vod-categories", h.VODCategories).Methods(http.MethodGet)
	xt.HandleFunc("/vod-streams", h.VODStreams).Methods(http.MethodGet)
	xt.HandleFunc("/series-categories", h.SeriesCategories).Methods(http.MethodGet)
	xt.HandleFunc("/series-streams", h.SeriesStreams).Methods(http.MethodGet)
	xt.HandleFunc("/series-info/{id}", h.SeriesInfo).Methods(http.MethodGet)
	xt.HandleFunc("/vod-info/{id}", h.VODInfo).Methods(http.MethodGet)
	xt.HandleFunc("/epg/{id}", h.ShortEPG).Methods(http.MethodGet)
	xt.HandleFunc("/stream-url/{type}/{id}", h.StreamURL).Methods(http.MethodGet)

	return r
}
