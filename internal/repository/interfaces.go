package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hexclash/arena/internal/model"
)

// UserRepository defines spectator account operations.
type UserRepository interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByProviderID(ctx context.Context, provider, providerID string) (*model.User, error)
	Upsert(ctx context.Context, provider, providerID, displayName, avatarURL string) (*model.User, error)
	UpdateDisplayName(ctx context.Context, id, displayName string) error
	AdjustBalance(ctx context.Context, id string, delta float64) error
	RecordFaucetClaim(ctx context.Context, userID string, amount float64) error
	LastFaucetClaim(ctx context.Context, userID string) (*model.FaucetClaim, error)
}

// BattleRepository defines battle lifecycle and epoch persistence.
type BattleRepository interface {
	Create(ctx context.Context, maxEpochs int, seed int64) (*model.Battle, error)
	FindByID(ctx context.Context, id string) (*model.Battle, error)
	ListByStatus(ctx context.Context, statuses ...string) ([]model.Battle, error)
	UpdateStatus(ctx context.Context, id, status string) error
	UpdateBettingPhase(ctx context.Context, id, phase string) error
	SetResult(ctx context.Context, id, winnerID string, epoch int) error
	SaveEpoch(ctx context.Context, battleID string, epoch int, market, decisions, events json.RawMessage) error
	ListEpochs(ctx context.Context, battleID string) ([]model.EpochRecord, error)
}

// BetRepository defines wager persistence and settlement bookkeeping.
type BetRepository interface {
	Create(ctx context.Context, battleID, bettor, agentID string, amount float64) (*model.Bet, error)
	ListByBattle(ctx context.Context, battleID string) ([]model.Bet, error)
	MarkSettled(ctx context.Context, betID string, payout float64) error
	Jackpot(ctx context.Context) (*model.JackpotPool, error)
	SetJackpot(ctx context.Context, amount float64) error
}

// SponsorshipRepository defines sponsorship persistence.
type SponsorshipRepository interface {
	Create(ctx context.Context, s *model.Sponsorship) (*model.Sponsorship, error)
	ListByBattleEpoch(ctx context.Context, battleID string, epoch int) ([]model.Sponsorship, error)
	MarkAccepted(ctx context.Context, id string) error
}

// MemoryRepository defines the three-layer agent memory store.
type MemoryRepository interface {
	SaveObservation(ctx context.Context, o *model.Observation) error
	SaveReflection(ctx context.Context, r *model.Reflection) error
	SavePlan(ctx context.Context, p *model.Plan) error
	UpdatePlanStatus(ctx context.Context, planID, status string) error
	RecentObservations(ctx context.Context, agentID string, limit int) ([]model.Observation, error)
	ObservationsByTags(ctx context.Context, agentID string, tags []string, limit int) ([]model.Observation, error)
	ReflectionsByAgent(ctx context.Context, agentID string, limit int) ([]model.Reflection, error)
	ActivePlan(ctx context.Context, agentID string) (*model.Plan, error)
}

// RatingRepository defines per-category skill rating persistence.
type RatingRepository interface {
	Get(ctx context.Context, agentID, category string) (*model.Rating, error)
	Upsert(ctx context.Context, r *model.Rating) error
	SaveHistory(ctx context.Context, h *model.RatingHistory) error
	History(ctx context.Context, agentID, category string) ([]model.RatingHistory, error)
	Leaderboard(ctx context.Context, category string, limit int) ([]model.Rating, error)
	GetProfile(ctx context.Context, agentID string) (*model.AgentProfile, error)
	UpsertProfile(ctx context.Context, p *model.AgentProfile) error
}

// BattleCache defines live battle state operations (Redis). Hibernation
// stores the full serialized state under a battle key so a restarted server
// can resume mid-battle; the tick key carries a TTL that doubles as the
// epoch clock.
type BattleCache interface {
	SetState(ctx context.Context, battleID string, state json.RawMessage) error
	GetState(ctx context.Context, battleID string) (json.RawMessage, error)
	DeleteState(ctx context.Context, battleID string) error
	SetTick(ctx context.Context, battleID string, fireIn time.Duration) error
	ClearTick(ctx context.Context, battleID string) error
	ExpiredTicks(ctx context.Context) ([]string, error)
	SetOdds(ctx context.Context, battleID string, odds json.RawMessage) error
	GetOdds(ctx context.Context, battleID string) (json.RawMessage, error)
	ActiveBattles(ctx context.Context) ([]string, error)
}
