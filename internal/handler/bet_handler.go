package handler

import (
	"errors"
	"net/http"

	"github.com/hexclash/arena/internal/auth"
	"github.com/hexclash/arena/internal/betting"
	"github.com/hexclash/arena/internal/service"
)

// BetHandler handles wagering endpoints.
type BetHandler struct {
	battleSvc *service.BattleService
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(battleSvc *service.BattleService) *BetHandler {
	return &BetHandler{battleSvc: battleSvc}
}

// PlaceBet handles POST /api/v1/battles/{id}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		AgentID string  `json:"agent_id"`
		Amount  float64 `json:"amount"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" {
		writeError(w, http.StatusBadRequest, "agent_id is required")
		return
	}

	bet, err := h.battleSvc.PlaceBet(r.Context(), battleID, userID, req.AgentID, req.Amount)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, betting.ErrInvalidPhase) || errors.Is(err, betting.ErrInvalidAmount) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, bet)
}
