package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/couchgate/couchgate/internal/database"
	"github.com/couchgate/couchgate/internal/models"
)

// ==================== ACCESS CODES ====================

// VerifyCode handles POST /api/auth/verify-code. A valid code returns the
// code record plus its profiles so the client can go straight to the
// profile picker.
func (h *Handler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code string `json:"code"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		respondError(w, http.StatusBadRequest, "Access code is required")
		return
	}

	ac, err := h.codeStore.GetActive(r.Context(), code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Invalid or inactive access code")
			return
		}
		log.Printf("code lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	profiles, err := h.profileStore.ListByCode(r.Context(), ac.Code)
	if err != nil {
		log.Printf("profile list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"code":     ac,
		"profiles": profiles,
	})
}

// ==================== PROFILES ====================

// ListProfiles handles GET /api/profiles?code=XXXX
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("code")))
	if code == "" {
		respondError(w, http.StatusBadRequest, "code parameter is required")
		return
	}

	ac, err := h.codeStore.GetActive(r.Context(), code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Invalid or inactive access code")
			return
		}
		log.Printf("code lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	profiles, err := h.profileStore.ListByCode(r.Context(), ac.Code)
	if err != nil {
		log.Printf("profile list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, profiles)
}

// CreateProfile handles POST /api/profiles
func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Code    string `json:"code"`
		Name    string `json:"name"`
		IsChild bool   `json:"is_child"`
		Avatar  string `json:"avatar"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	code := strings.ToUpper(strings.TrimSpace(req.Code))
	name := strings.TrimSpace(req.Name)
	if code == "" || name == "" {
		respondError(w, http.StatusBadRequest, "code and name are required")
		return
	}

	ac, err := h.codeStore.GetActive(r.Context(), code)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Invalid or inactive access code")
			return
		}
		log.Printf("code lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	profile, err := h.profileStore.Create(r.Context(), ac.Code, ac.MaxProfiles, &models.Profile{
		Name:    name,
		IsChild: req.IsChild,
		Avatar:  req.Avatar,
	})
	if err != nil {
		if errors.Is(err, database.ErrProfileLimit) {
			respondError(w, http.StatusBadRequest, "Maximum profiles limit reached")
			return
		}
		log.Printf("profile create failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, profile)
}

// DeleteProfile handles DELETE /api/profiles/{id}
func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	if err := h.profileStore.Delete(r.Context(), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("profile delete failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Profile deleted"})
}

// SetParentalPIN handles PUT /api/profiles/{id}/parental-pin
func (h *Handler) SetParentalPIN(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if len(req.PIN) != 4 {
		respondError(w, http.StatusBadRequest, "PIN must be exactly 4 digits")
		return
	}
	for _, c := range req.PIN {
		if c < '0' || c > '9' {
			respondError(w, http.StatusBadRequest, "PIN must be exactly 4 digits")
			return
		}
	}

	if err := h.profileStore.UpdateParentalPIN(r.Context(), id, req.PIN); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("pin update failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "PIN updated"})
}

// VerifyParentalPIN handles POST /api/profiles/{id}/verify-pin
func (h *Handler) VerifyParentalPIN(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		PIN string `json:"pin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	profile, err := h.profileStore.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Profile not found")
			return
		}
		log.Printf("profile lookup failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]bool{"valid": profile.ParentalPIN == req.PIN})
}

// ==================== WATCHLIST ====================

// GetWatchlist handles GET /api/profiles/{id}/watchlist
func (h *Handler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	items, err := h.activityStore.Watchlist(r.Context(), id)
	if err != nil {
		log.Printf("watchlist read failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, items)
}

// AddWatchlistItem handles POST /api/profiles/{id}/watchlist
func (h *Handler) AddWatchlistItem(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		StreamID   string `json:"stream_id"`
		StreamType string `json:"stream_type"`
		Title      string `json:"title"`
		Poster     string `json:"poster"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StreamID == "" || req.StreamType == "" || req.Title == "" {
		respondError(w, http.StatusBadRequest, "stream_id, stream_type and title are required")
		return
	}

	err := h.activityStore.AddToWatchlist(r.Context(), &models.WatchlistItem{
		ProfileID:  id,
		StreamID:   req.StreamID,
		StreamType: req.StreamType,
		Title:      req.Title,
		Poster:     req.Poster,
	})
	if err != nil {
		log.Printf("watchlist add failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, map[string]string{"message": "Added to watchlist"})
}

// RemoveWatchlistItem handles DELETE /api/profiles/{id}/watchlist/{type}/{streamId}
func (h *Handler) RemoveWatchlistItem(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	err := h.activityStore.RemoveFromWatchlist(r.Context(), vars["id"], vars["streamId"], vars["type"])
	if err != nil {
		log.Printf("watchlist remove failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Removed from watchlist"})
}

// ==================== PLAYBACK PROGRESS ====================

// GetProgress handles GET /api/profiles/{id}/progress
func (h *Handler) GetProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	entries, err := h.activityStore.Progress(r.Context(), id)
	if err != nil {
		log.Printf("progress read failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

// SaveProgress handles PUT /api/profiles/{id}/progress
func (h *Handler) SaveProgress(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req struct {
		StreamID        string `json:"stream_id"`
		StreamType      string `json:"stream_type"`
		PositionSeconds int    `json:"position_seconds"`
		DurationSeconds int    `json:"duration_seconds"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.StreamID == "" || req.StreamType == "" {
		respondError(w, http.StatusBadRequest, "stream_id and stream_type are required")
		return
	}
	if req.PositionSeconds < 0 || req.DurationSeconds < 0 {
		respondError(w, http.StatusBadRequest, "position and duration must not be negative")
		return
	}

	err := h.activityStore.SaveProgress(r.Context(), &models.PlaybackProgress{
		ProfileID:       id,
		StreamID:        req.StreamID,
		StreamType:      req.StreamType,
		PositionSeconds: req.PositionSeconds,
		DurationSeconds: req.DurationSeconds,
	})
	if err != nil {
		log.Printf("progress save failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Progress saved"})
}
