package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hexclash/arena/internal/betting"
	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/internal/repository"
	"github.com/hexclash/arena/internal/sponsor"
	"github.com/hexclash/arena/pkg/arena"
)

// BattleService is the control surface over the coordinator's battles:
// start, inspect, wager, sponsor.
type BattleService struct {
	battles  repository.BattleRepository
	cache    repository.BattleCache
	betting  *betting.Service
	sponsors *sponsor.Service

	maxEpochs     int
	epochInterval time.Duration
}

// NewBattleService wires the battle control surface.
func NewBattleService(
	battles repository.BattleRepository,
	cache repository.BattleCache,
	bet *betting.Service,
	sp *sponsor.Service,
	maxEpochs int,
	epochInterval time.Duration,
) *BattleService {
	return &BattleService{
		battles:       battles,
		cache:         cache,
		betting:       bet,
		sponsors:      sp,
		maxEpochs:     maxEpochs,
		epochInterval: epochInterval,
	}
}

// StartBattle creates a five-gladiator battle, hibernates the opening state,
// and arms the epoch clock. The roster always carries one agent per class.
func (s *BattleService) StartBattle(ctx context.Context) (*arena.BattleState, error) {
	seed := time.Now().UnixNano()
	battle, err := s.battles.Create(ctx, s.maxEpochs, seed)
	if err != nil {
		return nil, fmt.Errorf("create battle: %w", err)
	}

	ids := make([]string, len(arena.Classes))
	for i := range ids {
		ids[i] = uuid.NewString()
	}
	state := arena.NewBattleState(battle.ID, ids, arena.Classes, s.maxEpochs, seed)
	state.Status = arena.StatusActive

	if err := s.battles.UpdateStatus(ctx, battle.ID, string(arena.StatusActive)); err != nil {
		return nil, fmt.Errorf("activate battle: %w", err)
	}
	payload, err := json.Marshal(state)
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	if err := s.cache.SetState(ctx, battle.ID, payload); err != nil {
		return nil, fmt.Errorf("hibernate opening state: %w", err)
	}
	if err := s.cache.SetTick(ctx, battle.ID, s.epochInterval); err != nil {
		return nil, fmt.Errorf("arm epoch clock: %w", err)
	}

	log.Info().Str("battleId", battle.ID).Int("maxEpochs", s.maxEpochs).
		Int64("seed", seed).Msg("battle started")
	return state, nil
}

// GetBattle returns the durable battle row plus the live state when the
// battle is still hibernating in the cache. State is nil for finished or
// cancelled battles.
func (s *BattleService) GetBattle(ctx context.Context, battleID string) (*model.Battle, *arena.BattleState, error) {
	battle, err := s.battles.FindByID(ctx, battleID)
	if err != nil {
		return nil, nil, fmt.Errorf("find battle: %w", err)
	}
	if battle == nil {
		return nil, nil, ErrBattleNotFound
	}

	raw, err := s.cache.GetState(ctx, battleID)
	if err != nil {
		return nil, nil, fmt.Errorf("get cached state: %w", err)
	}
	if raw == nil {
		return battle, nil, nil
	}
	var state arena.BattleState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, nil, fmt.Errorf("unmarshal battle state: %w", err)
	}
	return battle, &state, nil
}

// ListBattles returns battles in the given lifecycle states, defaulting to
// everything still running.
func (s *BattleService) ListBattles(ctx context.Context, statuses ...string) ([]model.Battle, error) {
	if len(statuses) == 0 {
		statuses = []string{string(arena.StatusActive)}
	}
	return s.battles.ListByStatus(ctx, statuses...)
}

// PlaceBet forwards to the betting pool; the OPEN-phase gate lives there.
func (s *BattleService) PlaceBet(ctx context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error) {
	return s.betting.PlaceBet(ctx, battleID, bettor, agentID, amount)
}

// Sponsor records a tiered sponsorship for the battle's next epoch. Only
// live battles accept sponsorships.
func (s *BattleService) Sponsor(ctx context.Context, battleID, agentID, sponsorID string, amount float64, tier, message string) (*model.Sponsorship, error) {
	battle, state, err := s.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if battle.Status != string(arena.StatusActive) || state == nil {
		return nil, ErrBattleNotActive
	}
	if a := state.AgentByID(agentID); a == nil || !a.Alive {
		return nil, fmt.Errorf("agent %s is not alive in battle %s", agentID, battleID)
	}
	return s.sponsors.Sponsor(ctx, battleID, agentID, sponsorID, amount, tier, state.Epoch+1, message)
}

// Odds returns the cached odds snapshot for a battle, if any.
func (s *BattleService) Odds(ctx context.Context, battleID string) (json.RawMessage, error) {
	return s.cache.GetOdds(ctx, battleID)
}

// Snapshot builds the synthetic epoch_end payload late subscribers receive
// on connect, so they can initialise without event replay.
func (s *BattleService) Snapshot(ctx context.Context, battleID string) (*arena.EpochEndData, error) {
	_, state, err := s.GetBattle(ctx, battleID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, ErrBattleNotActive
	}
	return &arena.EpochEndData{
		AgentStates:    arena.Summaries(state),
		BattleComplete: false,
	}, nil
}
