package arena

// Event types emitted per epoch, in stream-grammar order.
const (
	EventEpochStart       = "epoch_start"
	EventAgentAction      = "agent_action"
	EventSponsorBoost     = "sponsor_boost"
	EventSkillActivation  = "skill_activation"
	EventPredictionResult = "prediction_result"
	EventCombatResult     = "combat_result"
	EventDefendCost       = "defend_cost"
	EventBleed            = "bleed"
	EventAgentDeath       = "agent_death"
	EventEpochEnd         = "epoch_end"
	EventBattleEnd        = "battle_end"
	EventOddsUpdate       = "odds_update"
)

// Event is the tagged envelope for every battle event. Data is one of the
// payload structs below, keyed by Type.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// EpochStartData opens an epoch with the market snapshot driving it.
type EpochStartData struct {
	EpochNumber int        `json:"epochNumber"`
	MarketData  MarketData `json:"marketData"`
}

// ActionAttack is the aggressive part of an agent action, if any.
type ActionAttack struct {
	Target string `json:"target"`
	Stake  int    `json:"stake"`
}

// AgentActionData summarises one agent's validated decision.
type AgentActionData struct {
	AgentID    string        `json:"agentId"`
	AgentName  string        `json:"agentName"`
	Prediction Prediction    `json:"prediction"`
	Attack     *ActionAttack `json:"attack,omitempty"`
	Defend     bool          `json:"defend"`
	Reasoning  string        `json:"reasoning"`
}

// SponsorBoostData records a sponsor HP boost applied before combat.
type SponsorBoostData struct {
	AgentID     string `json:"agentId"`
	HPBefore    int    `json:"hpBefore"`
	HPAfter     int    `json:"hpAfter"`
	Boost       int    `json:"boost"`
	FreeDefend  bool   `json:"freeDefend"`
	AttackBoost bool   `json:"attackBoost"`
}

// SkillActivationData records a class skill firing.
type SkillActivationData struct {
	AgentID string `json:"agentId"`
	Skill   Skill  `json:"skill"`
	Target  string `json:"target,omitempty"`
}

// PredictionResultData records the HP outcome of a market prediction.
type PredictionResultData struct {
	AgentID      string    `json:"agentId"`
	Asset        Asset     `json:"asset"`
	Direction    Direction `json:"direction"`
	ActualChange float64   `json:"actualChange"`
	Correct      bool      `json:"correct"`
	HPChange     int       `json:"hpChange"`
	HPAfter      int       `json:"hpAfter"`
}

// CombatResultData records one resolved combat action.
type CombatResultData struct {
	AttackerID       string `json:"attackerId"`
	TargetID         string `json:"targetId"`
	Stance           Stance `json:"stance"`
	Outcome          string `json:"outcome"`
	Stake            int    `json:"stake"`
	HPChangeAttacker int    `json:"hpChangeAttacker"`
	HPChangeTarget   int    `json:"hpChangeTarget"`
	Damage           int    `json:"damage"`
	Blocked          bool   `json:"blocked"`
}

// DefendCostData records the HP price of holding a DEFEND stance.
type DefendCostData struct {
	AgentID string `json:"agentId"`
	Cost    int    `json:"cost"`
	HPAfter int    `json:"hpAfter"`
	Waived  bool   `json:"waived"`
}

// BleedData records the end-of-epoch attrition tick.
type BleedData struct {
	AgentID string `json:"agentId"`
	Amount  int    `json:"amount"`
	HPAfter int    `json:"hpAfter"`
}

// DeathCause classifies what pushed an agent to zero HP.
type DeathCause string

const (
	CausePrediction DeathCause = "prediction"
	CauseCombat     DeathCause = "combat"
	CauseBleed      DeathCause = "bleed"
	CauseMulti      DeathCause = "multi"
)

// AgentDeathData records a death. KilledBy is set only when a single killer
// can be attributed; a bleed death after combat damage is cause "multi"
// with no killer credited.
type AgentDeathData struct {
	AgentID     string     `json:"agentId"`
	AgentName   string     `json:"agentName"`
	AgentClass  Class      `json:"agentClass"`
	EpochNumber int        `json:"epochNumber"`
	Cause       DeathCause `json:"cause"`
	FinalWords  string     `json:"finalWords"`
	KilledBy    string     `json:"killedBy,omitempty"`
}

// AgentSummary is the compact per-agent state sent in epoch_end.
type AgentSummary struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Class   Class  `json:"class"`
	HP      int    `json:"hp"`
	IsAlive bool   `json:"isAlive"`
}

// EpochEndData closes an epoch. Late subscribers receive a synthetic
// epoch_end on connect so they can initialise without replay.
type EpochEndData struct {
	AgentStates    []AgentSummary `json:"agentStates"`
	BattleComplete bool           `json:"battleComplete"`
}

// BattleEndData announces the winner.
type BattleEndData struct {
	WinnerID    string `json:"winnerId"`
	WinnerName  string `json:"winnerName"`
	TotalEpochs int    `json:"totalEpochs"`
}

// OddsUpdateData carries the post-epoch decimal odds per alive agent.
type OddsUpdateData struct {
	Odds map[string]float64 `json:"odds"`
}

// Summaries builds the epoch_end agent list from a battle state.
func Summaries(s *BattleState) []AgentSummary {
	out := make([]AgentSummary, 0, len(s.Agents))
	for _, a := range s.Agents {
		out = append(out, AgentSummary{ID: a.ID, Name: a.Name, Class: a.Class, HP: a.HP, IsAlive: a.Alive})
	}
	return out
}
