package arena

// Stance is an agent's combat choice for an epoch.
type Stance string

const (
	StanceAttack   Stance = "ATTACK"
	StanceSabotage Stance = "SABOTAGE"
	StanceDefend   Stance = "DEFEND"
	StanceNone     Stance = "NONE"
)

// ValidStance reports whether a string names a known stance.
func ValidStance(s Stance) bool {
	switch s {
	case StanceAttack, StanceSabotage, StanceDefend, StanceNone:
		return true
	}
	return false
}

// Aggressive reports whether a stance targets another agent.
func (s Stance) Aggressive() bool { return s == StanceAttack || s == StanceSabotage }

// Direction is a predicted price direction.
type Direction string

const (
	DirUp   Direction = "UP"
	DirDown Direction = "DOWN"
)

// Prediction stake bounds, in percent of current HP.
const (
	MinStakePercent = 5
	MaxStakePercent = 50
)

// Prediction is the mandatory market call every agent makes each epoch.
type Prediction struct {
	Asset        Asset     `json:"asset"`
	Direction    Direction `json:"direction"`
	StakePercent int       `json:"stake_percent"`
}

// Decision is an agent's complete intent for one epoch. Strategies produce
// it, the secretary repairs it, and the resolution pipeline consumes it.
type Decision struct {
	Prediction  Prediction `json:"prediction"`
	Stance      Stance     `json:"stance,omitempty"`
	TargetName  string     `json:"target_name,omitempty"`
	CombatStake int        `json:"combat_stake,omitempty"` // absolute HP, required for ATTACK/SABOTAGE
	Move        *Axial     `json:"move,omitempty"`
	UseSkill    bool       `json:"use_skill,omitempty"`
	SkillTarget string     `json:"skill_target,omitempty"`
	ProposeAlly string     `json:"propose_ally,omitempty"`
	BreakAlly   bool       `json:"break_ally,omitempty"`
	Reasoning   string     `json:"reasoning,omitempty"`
}

// ClampStakePercent forces a prediction stake into [MinStakePercent, MaxStakePercent].
func ClampStakePercent(p int) int {
	if p < MinStakePercent {
		return MinStakePercent
	}
	if p > MaxStakePercent {
		return MaxStakePercent
	}
	return p
}
