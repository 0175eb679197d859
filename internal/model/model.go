package model

import (
	"encoding/json"
	"time"
)

// User represents a registered spectator.
type User struct {
	ID          string    `json:"id"`
	Provider    string    `json:"provider"`
	ProviderID  string    `json:"provider_id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Balance     float64   `json:"balance"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Battle is the persisted battle row. The live hex state is serialized
// separately; this carries lifecycle and settlement bookkeeping.
type Battle struct {
	ID           string     `json:"id"`
	Status       string     `json:"status"` // PENDING..SETTLED, or CANCELLED
	BettingPhase string     `json:"betting_phase"`
	Epoch        int        `json:"epoch"`
	MaxEpochs    int        `json:"max_epochs"`
	WinnerID     string     `json:"winner_id,omitempty"`
	Seed         int64      `json:"seed"`
	CreatedAt    time.Time  `json:"created_at"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
}

// EpochRecord is one sealed epoch: the market snapshot, the validated
// decisions, and the ordered sub-event list, all stored as JSON documents.
type EpochRecord struct {
	ID        string          `json:"id"`
	BattleID  string          `json:"battle_id"`
	Epoch     int             `json:"epoch"`
	Market    json.RawMessage `json:"market"`
	Decisions json.RawMessage `json:"decisions"`
	Events    json.RawMessage `json:"events"`
	CreatedAt time.Time       `json:"created_at"`
}

// Bet is an append-only wager on a battle agent.
type Bet struct {
	ID       string    `json:"id"`
	BattleID string    `json:"battle_id"`
	Bettor   string    `json:"bettor"`
	AgentID  string    `json:"agent_id"`
	Amount   float64   `json:"amount"`
	PlacedAt time.Time `json:"placed_at"`
	Settled  bool      `json:"settled"`
	Payout   float64   `json:"payout"`
}

// Sponsorship grants an agent a tiered effect for one epoch. Only the first
// accepted sponsorship per agent per epoch is applied.
type Sponsorship struct {
	ID       string    `json:"id"`
	BattleID string    `json:"battle_id"`
	AgentID  string    `json:"agent_id"`
	Sponsor  string    `json:"sponsor"`
	Amount   float64   `json:"amount"`
	Tier     string    `json:"tier"` // T1..T5
	Epoch    int       `json:"epoch"`
	Accepted bool      `json:"accepted"`
	Message  string    `json:"message,omitempty"`
	PlacedAt time.Time `json:"placed_at"`
}

// Observation is a raw memory entry appended from a significant sub-event.
type Observation struct {
	ID         string    `json:"id"`
	AgentID    string    `json:"agent_id"`
	BattleID   string    `json:"battle_id"`
	Epoch      int       `json:"epoch"`
	Content    string    `json:"content"`
	Importance int       `json:"importance"` // 1..10
	Tags       []string  `json:"tags"`
	CreatedAt  time.Time `json:"created_at"`
}

// Reflection is an insight synthesised from at least three observations.
type Reflection struct {
	ID             string    `json:"id"`
	AgentID        string    `json:"agent_id"`
	Content        string    `json:"content"`
	Abstraction    int       `json:"abstraction"` // 1 tactical .. 3 strategic
	ObservationIDs []string  `json:"observation_ids"`
	Tags           []string  `json:"tags"`
	CreatedAt      time.Time `json:"created_at"`
}

// Plan statuses.
const (
	PlanActive     = "active"
	PlanApplied    = "applied"
	PlanSuperseded = "superseded"
	PlanExpired    = "expired"
)

// Plan is an actionable strategy derived from reflections.
type Plan struct {
	ID            string    `json:"id"`
	AgentID       string    `json:"agent_id"`
	Content       string    `json:"content"`
	Status        string    `json:"status"`
	ReflectionIDs []string  `json:"reflection_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Rating categories.
const (
	CategoryPrediction = "prediction"
	CategoryCombat     = "combat"
	CategorySurvival   = "survival"
	CategoryComposite  = "composite"
)

// Rating is one per-agent per-category Gaussian skill estimate.
type Rating struct {
	AgentID   string    `json:"agent_id"`
	Category  string    `json:"category"`
	Mu        float64   `json:"mu"`
	Sigma     float64   `json:"sigma"`
	Battles   int       `json:"battles"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RatingHistory records the mu shift one battle produced, the raw material
// for bootstrap confidence intervals.
type RatingHistory struct {
	ID       string    `json:"id"`
	AgentID  string    `json:"agent_id"`
	BattleID string    `json:"battle_id"`
	Category string    `json:"category"`
	MuDelta  float64   `json:"mu_delta"`
	SavedAt  time.Time `json:"saved_at"`
}

// AgentProfile is the persistent identity an agent carries across battles.
type AgentProfile struct {
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Class    string    `json:"class"`
	Battles  int       `json:"battles"`
	Wins     int       `json:"wins"`
	Kills    int       `json:"kills"`
	Created  time.Time `json:"created"`
	LastSeen time.Time `json:"last_seen"`
}

// JackpotPool carries the unclaimed settlement cuts forward between battles.
type JackpotPool struct {
	Amount    float64   `json:"amount"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FaucetClaim records one balance top-up so the faucet can rate-limit.
type FaucetClaim struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Amount    float64   `json:"amount"`
	ClaimedAt time.Time `json:"claimed_at"`
}
