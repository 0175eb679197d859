package handler

import (
	"errors"
	"net/http"

	"github.com/hexclash/arena/internal/auth"
	"github.com/hexclash/arena/internal/service"
	"github.com/hexclash/arena/internal/sponsor"
)

// SponsorHandler handles sponsorship endpoints.
type SponsorHandler struct {
	battleSvc *service.BattleService
}

// NewSponsorHandler creates a SponsorHandler.
func NewSponsorHandler(battleSvc *service.BattleService) *SponsorHandler {
	return &SponsorHandler{battleSvc: battleSvc}
}

// Sponsor handles POST /api/v1/battles/{id}/sponsorships
func (h *SponsorHandler) Sponsor(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	userID := auth.UserIDFromContext(r.Context())

	var req struct {
		AgentID string  `json:"agent_id"`
		Amount  float64 `json:"amount"`
		Tier    string  `json:"tier"`
		Message string  `json:"message,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.AgentID == "" || req.Tier == "" {
		writeError(w, http.StatusBadRequest, "agent_id and tier are required")
		return
	}

	sp, err := h.battleSvc.Sponsor(r.Context(), battleID, req.AgentID, userID, req.Amount, req.Tier, req.Message)
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, service.ErrBattleNotFound):
			status = http.StatusNotFound
		case errors.Is(err, service.ErrBattleNotActive), errors.Is(err, sponsor.ErrUnknownTier):
			status = http.StatusBadRequest
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sp)
}
