package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/internal/service"
	"github.com/hexclash/arena/pkg/arena"
)

// BattleHandler handles battle lifecycle and spectator read endpoints.
type BattleHandler struct {
	battleSvc *service.BattleService
	battles   repository.BattleRepository
}

// NewBattleHandler creates a BattleHandler.
func NewBattleHandler(battleSvc *service.BattleService, battles repository.BattleRepository) *BattleHandler {
	return &BattleHandler{battleSvc: battleSvc, battles: battles}
}

// CreateBattle handles POST /api/v1/battles
func (h *BattleHandler) CreateBattle(w http.ResponseWriter, r *http.Request) {
	state, err := h.battleSvc.StartBattle(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

// ListBattles handles GET /api/v1/battles?status=ACTIVE,COMPLETED
func (h *BattleHandler) ListBattles(w http.ResponseWriter, r *http.Request) {
	var statuses []string
	if q := r.URL.Query().Get("status"); q != "" {
		statuses = append(statuses, q)
	}
	battles, err := h.battleSvc.ListBattles(r.Context(), statuses...)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if battles == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, battles)
}

// GetBattle handles GET /api/v1/battles/{id}
func (h *BattleHandler) GetBattle(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	battle, state, err := h.battleSvc.GetBattle(r.Context(), battleID)
	if err != nil {
		if errors.Is(err, service.ErrBattleNotFound) {
			writeError(w, http.StatusNotFound, "battle not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Battle any                `json:"battle"`
		State  *arena.BattleState `json:"state,omitempty"`
	}{Battle: battle, State: state})
}

// ListEpochs handles GET /api/v1/battles/{id}/epochs — the sealed epoch
// records, for replay.
func (h *BattleHandler) ListEpochs(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	if b, err := h.battles.FindByID(r.Context(), battleID); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	} else if b == nil {
		writeError(w, http.StatusNotFound, "battle not found")
		return
	}

	epochs, err := h.battles.ListEpochs(r.Context(), battleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if epochs == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, epochs)
}

// GetOdds handles GET /api/v1/battles/{id}/odds
func (h *BattleHandler) GetOdds(w http.ResponseWriter, r *http.Request) {
	battleID := r.PathValue("id")
	raw, err := h.battleSvc.Odds(r.Context(), battleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if raw == nil {
		writeError(w, http.StatusNotFound, "no odds for this battle yet")
		return
	}
	writeJSON(w, http.StatusOK, json.RawMessage(raw))
}
