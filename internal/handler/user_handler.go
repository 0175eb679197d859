package handler

import (
	"net/http"
	"time"

	"github.com/hexclash/arena/internal/auth"
	"github.com/hexclash/arena/internal/repository"
)

// Faucet limits: one claim per day, fixed amount.
const (
	faucetAmount   = 500.0
	faucetCooldown = 24 * time.Hour
)

// UserHandler handles user profile and faucet endpoints.
type UserHandler struct {
	userRepo repository.UserRepository
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(userRepo repository.UserRepository) *UserHandler {
	return &UserHandler{userRepo: userRepo}
}

// GetMe handles GET /api/v1/users/me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	user, err := h.userRepo.FindByID(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateMe handles PATCH /api/v1/users/me
func (h *UserHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())
	var req struct {
		DisplayName string `json:"display_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.DisplayName == "" {
		writeError(w, http.StatusBadRequest, "display_name is required")
		return
	}

	if err := h.userRepo.UpdateDisplayName(r.Context(), userID, req.DisplayName); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user, _ := h.userRepo.FindByID(r.Context(), userID)
	writeJSON(w, http.StatusOK, user)
}

// GetUser handles GET /api/v1/users/{id}
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	user, err := h.userRepo.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// ClaimFaucet handles POST /api/v1/users/me/faucet — a daily balance top-up
// so broke spectators can keep betting.
func (h *UserHandler) ClaimFaucet(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserIDFromContext(r.Context())

	last, err := h.userRepo.LastFaucetClaim(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if last != nil && time.Since(last.ClaimedAt) < faucetCooldown {
		writeError(w, http.StatusTooManyRequests, "faucet already claimed today")
		return
	}

	if err := h.userRepo.AdjustBalance(r.Context(), userID, faucetAmount); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := h.userRepo.RecordFaucetClaim(r.Context(), userID, faucetAmount); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	user, _ := h.userRepo.FindByID(r.Context(), userID)
	writeJSON(w, http.StatusOK, user)
}
