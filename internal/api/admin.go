package api

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/couchgate/couchgate/internal/auth"
	"github.com/couchgate/couchgate/internal/database"
	"github.com/couchgate/couchgate/internal/models"
)

// AdminLogin handles POST /api/admin/login
func (h *Handler) AdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	admin, err := h.adminStore.VerifyPassword(r.Context(), req.Username, req.Password)
	if err != nil {
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := auth.GenerateToken(admin.ID, admin.Username)
	if err != nil {
		log.Printf("token generation failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"token":    token,
		"username": admin.Username,
	})
}

// GetXtreamConfig handles GET /api/admin/xtream-config. The password never
// leaves the server; the response only says what is configured.
func (h *Handler) GetXtreamConfig(w http.ResponseWriter, r *http.Request) {
	creds, err := h.resolver.Active(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrNotConfigured) {
			respondJSON(w, http.StatusOK, map[string]interface{}{"configured": false})
			return
		}
		log.Printf("credential read failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"configured":         true,
		"base_url":           creds.BaseURL,
		"username":           creds.Username,
		"alternate_base_url": creds.AlternateBaseURL,
		"created_at":         creds.CreatedAt,
	})
}

// SetXtreamConfig handles POST /api/admin/xtream-config. The candidate is
// probed against the provider first; only a successful probe replaces the
// active credentials, so a typo cannot take down a working setup.
func (h *Handler) SetXtreamConfig(w http.ResponseWriter, r *http.Request) {
	var req struct {
		BaseURL          string `json:"base_url"`
		Username         string `json:"username"`
		Password         string `json:"password"`
		AlternateBaseURL string `json:"alternate_base_url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	baseURL := strings.TrimRight(strings.TrimSpace(req.BaseURL), "/")
	if baseURL == "" || req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "base_url, username and password are required")
		return
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		respondError(w, http.StatusBadRequest, "base_url must start with http:// or https://")
		return
	}

	candidate := &models.ProviderCredentials{
		BaseURL:          baseURL,
		Username:         strings.TrimSpace(req.Username),
		Password:         req.Password,
		AlternateBaseURL: strings.TrimRight(strings.TrimSpace(req.AlternateBaseURL), "/"),
	}

	result, err := h.resolver.VerifyAndActivate(r.Context(), candidate)
	if err != nil {
		respondFailure(w, err)
		return
	}

	// Stale catalog entries belong to the previous provider account.
	if h.catalogCache != nil {
		h.catalogCache.Invalidate(r.Context())
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"message":      "Provider configured",
		"verification": result,
	})
}

// ==================== ACCESS CODE MANAGEMENT ====================

// ListUserCodes handles GET /api/admin/user-codes
func (h *Handler) ListUserCodes(w http.ResponseWriter, r *http.Request) {
	codes, err := h.codeStore.List(r.Context())
	if err != nil {
		log.Printf("code list failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, codes)
}

// CreateUserCode handles POST /api/admin/user-codes
func (h *Handler) CreateUserCode(w http.ResponseWriter, r *http.Request) {
	var req struct {
		MaxProfiles int `json:"max_profiles"`
	}
	// Body is optional; an empty request gets the default profile limit.
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	code, err := h.codeStore.Create(r.Context(), req.MaxProfiles)
	if err != nil {
		log.Printf("code create failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusCreated, code)
}

// DeactivateUserCode handles DELETE /api/admin/user-codes/{code}
func (h *Handler) DeactivateUserCode(w http.ResponseWriter, r *http.Request) {
	code := strings.ToUpper(mux.Vars(r)["code"])

	if err := h.codeStore.Deactivate(r.Context(), code); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(w, http.StatusNotFound, "Access code not found")
			return
		}
		log.Printf("code deactivate failed: %v", err)
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "Access code deactivated"})
}
