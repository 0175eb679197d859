package arena

import "unicode/utf8"

// Class is one of the five gladiator classes.
type Class string

const (
	ClassWarrior  Class = "WARRIOR"
	ClassTrader   Class = "TRADER"
	ClassSurvivor Class = "SURVIVOR"
	ClassParasite Class = "PARASITE"
	ClassGambler  Class = "GAMBLER"
)

// Classes lists every class in canonical order.
var Classes = []Class{ClassWarrior, ClassTrader, ClassSurvivor, ClassParasite, ClassGambler}

// Skill is a unique per-class ability with an epoch cooldown.
type Skill string

const (
	SkillBerserk     Skill = "BERSERK"      // double ATTACK damage, +50% incoming this epoch
	SkillInsiderInfo Skill = "INSIDER_INFO" // prediction auto-wins this epoch
	SkillFortify     Skill = "FORTIFY"      // total damage immunity this epoch, bleed included
	SkillSiphon      Skill = "SIPHON"       // steal 10% of a target's current HP
	SkillAllIn       Skill = "ALL_IN"       // double the prediction's signed HP delta
)

// SkillCooldownEpochs is the default cooldown applied after a skill fires.
const SkillCooldownEpochs = 5

// SkillFor returns the unique skill of a class.
func SkillFor(c Class) Skill {
	switch c {
	case ClassWarrior:
		return SkillBerserk
	case ClassTrader:
		return SkillInsiderInfo
	case ClassSurvivor:
		return SkillFortify
	case ClassParasite:
		return SkillSiphon
	default:
		return SkillAllIn
	}
}

const (
	// MaxHP is the hit point ceiling for every agent.
	MaxHP = 1000

	// maxThoughts bounds the rolling thought buffer.
	maxThoughts = 5
	// maxThoughtLen bounds each entry; longer reasoning is truncated with an ellipsis.
	maxThoughtLen = 120
)

// Ally is a temporary non-aggression pact with another agent.
type Ally struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Remaining int    `json:"remaining"` // epochs left before natural expiry
}

// Agent is the full mutable state of one gladiator for the duration of a
// battle. Agents are owned by the battle state; they hold no references to
// each other — relationships are by ID.
type Agent struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Class          Class    `json:"class"`
	HP             int      `json:"hp"`
	MaxHP          int      `json:"max_hp"`
	Alive          bool     `json:"alive"`
	Kills          int      `json:"kills"`
	EpochsSurvived int      `json:"epochs_survived"`
	Lessons        []string `json:"lessons,omitempty"`
	Thoughts       []string `json:"thoughts,omitempty"`
	Pos            *Axial   `json:"pos,omitempty"`
	SkillCooldown  int      `json:"skill_cooldown"`
	SkillActive    bool     `json:"skill_active"`
	Ally           *Ally    `json:"ally,omitempty"`

	// Per-battle combat/prediction stats, used for rating placement.
	DamageDealt        int `json:"damage_dealt"`
	DamageTaken        int `json:"damage_taken"`
	PredictionsCorrect int `json:"predictions_correct"`
	PredictionsTotal   int `json:"predictions_total"`
}

// NewAgent creates a full-health agent of the given class.
func NewAgent(id, name string, class Class) *Agent {
	return &Agent{
		ID:    id,
		Name:  name,
		Class: class,
		HP:    MaxHP,
		MaxHP: MaxHP,
		Alive: true,
	}
}

// Skill returns the agent's class skill.
func (a *Agent) Skill() Skill { return SkillFor(a.Class) }

// Heal raises HP by n, capped at MaxHP. Returns the actual amount applied.
func (a *Agent) Heal(n int) int {
	if n <= 0 || !a.Alive {
		return 0
	}
	before := a.HP
	a.HP = minInt(a.HP+n, a.MaxHP)
	return a.HP - before
}

// Damage lowers HP by n, floored at 0. Returns the actual amount applied.
// Death is not decided here; the pipeline's death check owns the transition.
func (a *Agent) Damage(n int) int {
	if n <= 0 || !a.Alive {
		return 0
	}
	before := a.HP
	a.HP = maxInt(a.HP-n, 0)
	return before - a.HP
}

// RecordThought appends reasoning to the rolling thought buffer, truncating
// to maxThoughtLen with an ellipsis and keeping only the last maxThoughts.
// The cut lands on a rune boundary so multi-byte reasoning stays valid UTF-8.
func (a *Agent) RecordThought(s string) {
	if s == "" {
		return
	}
	if len(s) > maxThoughtLen {
		cut := maxThoughtLen - 1
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "…"
	}
	a.Thoughts = append(a.Thoughts, s)
	if len(a.Thoughts) > maxThoughts {
		a.Thoughts = a.Thoughts[len(a.Thoughts)-maxThoughts:]
	}
}

// SetAlly establishes a pact with another agent for the given epoch count.
func (a *Agent) SetAlly(id, name string, epochs int) {
	a.Ally = &Ally{ID: id, Name: name, Remaining: epochs}
}

// BreakAlly clears any active pact.
func (a *Agent) BreakAlly() { a.Ally = nil }

// IsAlliedWith reports whether the agent has an active pact with id.
func (a *Agent) IsAlliedWith(id string) bool {
	return a.Ally != nil && a.Ally.ID == id
}
