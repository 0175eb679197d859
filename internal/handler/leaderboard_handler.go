package handler

import (
	"net/http"
	"strconv"

	"github.com/hexclash/arena/internal/rating"
)

// LeaderboardHandler serves the cross-battle agent rankings.
type LeaderboardHandler struct {
	ratings *rating.Service
}

// NewLeaderboardHandler creates a LeaderboardHandler.
func NewLeaderboardHandler(ratings *rating.Service) *LeaderboardHandler {
	return &LeaderboardHandler{ratings: ratings}
}

// GetLeaderboard handles GET /api/v1/leaderboard?category=composite&limit=20
func (h *LeaderboardHandler) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	limit := 0
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 || n > 100 {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	entries, err := h.ratings.Leaderboard(r.Context(), category, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, entries)
}
