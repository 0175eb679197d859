package arena

import (
	"fmt"
	"strings"
)

// Issue severity and action tags, used for logging and metrics.
const (
	SeverityInfo    = "INFO"
	SeverityWarning = "WARNING"
	SeverityError   = "ERROR"

	ActionKept      = "KEPT"
	ActionCorrected = "CORRECTED"
	ActionRemoved   = "REMOVED"
	ActionDefaulted = "DEFAULTED"
)

// Issue describes one correction the secretary applied to a decision field.
type Issue struct {
	Severity string `json:"severity"`
	Action   string `json:"action"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// Sanitize is the secretary's programmatic correction layer. It never fails:
// every input decision comes out structurally valid against the battle
// state. The returned issue list records every repair for observability.
//
// alwaysInjectMove forces the fallback centre-ward move even when the agent
// submitted none and is on safe ground.
func Sanitize(d Decision, self *Agent, s *BattleState, alwaysInjectMove bool) (Decision, []Issue) {
	var issues []Issue
	note := func(sev, action, field, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Action: action, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	// 1. Prediction coercion.
	if a := Asset(strings.ToUpper(string(d.Prediction.Asset))); a != d.Prediction.Asset {
		d.Prediction.Asset = a
		note(SeverityInfo, ActionCorrected, "prediction.asset", "normalised case")
	}
	if !ValidAsset(d.Prediction.Asset) {
		note(SeverityWarning, ActionDefaulted, "prediction.asset", "unknown asset %q, defaulting to ETH", d.Prediction.Asset)
		d.Prediction.Asset = AssetETH
	}
	switch Direction(strings.ToUpper(string(d.Prediction.Direction))) {
	case DirUp:
		d.Prediction.Direction = DirUp
	case DirDown:
		d.Prediction.Direction = DirDown
	default:
		note(SeverityWarning, ActionDefaulted, "prediction.direction", "unknown direction %q, defaulting to UP", d.Prediction.Direction)
		d.Prediction.Direction = DirUp
	}
	if c := ClampStakePercent(d.Prediction.StakePercent); c != d.Prediction.StakePercent {
		note(SeverityInfo, ActionCorrected, "prediction.stake", "clamped %d to %d", d.Prediction.StakePercent, c)
		d.Prediction.StakePercent = c
	}

	if !ValidStance(d.Stance) {
		if d.Stance != "" {
			note(SeverityWarning, ActionDefaulted, "stance", "unknown stance %q", d.Stance)
		}
		d.Stance = StanceNone
	}

	// 2. Combat target resolution with fuzzy matching.
	if d.Stance.Aggressive() {
		target := resolveTarget(d.TargetName, self, s)
		if target == nil {
			note(SeverityWarning, ActionRemoved, "stance", "no valid adjacent target for %q, downgrading to NONE", d.TargetName)
			d.Stance = StanceNone
			d.TargetName = ""
			d.CombatStake = 0
		} else {
			if target.Name != d.TargetName {
				note(SeverityInfo, ActionCorrected, "target", "fuzzy-matched %q to %q", d.TargetName, target.Name)
			}
			d.TargetName = target.Name
			// 3. Stake bounds against current HP.
			if d.CombatStake <= 0 {
				d.CombatStake = maxInt(1, self.HP/10)
				note(SeverityInfo, ActionDefaulted, "combat_stake", "missing stake, defaulting to 10%% of HP")
			} else if d.CombatStake > self.HP {
				d.CombatStake = maxInt(1, self.HP*30/100)
				note(SeverityWarning, ActionCorrected, "combat_stake", "stake exceeds HP, capped at 30%% of HP")
			}
		}
	} else {
		d.TargetName = ""
		d.CombatStake = 0
	}

	// 4. Skill gating.
	if d.UseSkill {
		if self.SkillCooldown > 0 {
			note(SeverityInfo, ActionRemoved, "skill", "%s on cooldown (%d epochs)", self.Skill(), self.SkillCooldown)
			d.UseSkill = false
			d.SkillTarget = ""
		} else if self.Skill() == SkillSiphon {
			if t := s.AgentByName(d.SkillTarget); t == nil || !t.Alive || t.ID == self.ID {
				if pick := highestHPOther(self, s); pick != nil {
					note(SeverityInfo, ActionCorrected, "skill_target", "siphon target invalid, picked %s", pick.Name)
					d.SkillTarget = pick.Name
				} else {
					note(SeverityWarning, ActionRemoved, "skill", "no siphon target available")
					d.UseSkill = false
					d.SkillTarget = ""
				}
			}
		}
	}

	// 5. Move legality.
	if d.Move != nil {
		if err := validMove(*d.Move, self, s); err != "" {
			note(SeverityWarning, ActionRemoved, "move", "%s", err)
			d.Move = nil
		}
	}

	// 6. Alliance hygiene.
	if d.ProposeAlly != "" {
		t := s.AgentByName(d.ProposeAlly)
		switch {
		case d.BreakAlly:
			note(SeverityInfo, ActionRemoved, "propose_ally", "proposal and break in same decision, keeping break")
			d.ProposeAlly = ""
		case t == nil || !t.Alive || t.ID == self.ID:
			note(SeverityWarning, ActionRemoved, "propose_ally", "invalid alliance target %q", d.ProposeAlly)
			d.ProposeAlly = ""
		case self.Ally != nil:
			note(SeverityInfo, ActionRemoved, "propose_ally", "already allied with %s", self.Ally.Name)
			d.ProposeAlly = ""
		}
	}
	if d.BreakAlly && self.Ally == nil {
		d.BreakAlly = false
	}

	// 7. Fallback move injection.
	phase := s.CurrentPhase()
	inStorm := self.Pos != nil && InStorm(*self.Pos, phase)
	if d.Move == nil && self.Pos != nil && (inStorm || alwaysInjectMove) {
		if m := fallbackMove(self, s, phase); m != nil {
			d.Move = m
			note(SeverityInfo, ActionDefaulted, "move", "injected centre-ward move to (%d,%d)", m.Q, m.R)
		}
	}

	return d, issues
}

// validMove returns an empty string if a move is legal, else the reason.
func validMove(m Axial, self *Agent, s *BattleState) string {
	if self.Pos == nil {
		return "agent has no position"
	}
	if !InBounds(m) {
		return fmt.Sprintf("(%d,%d) outside the arena", m.Q, m.R)
	}
	if m == *self.Pos {
		return "move target equals current position"
	}
	if !Adjacent(m, *self.Pos) {
		return fmt.Sprintf("(%d,%d) not adjacent", m.Q, m.R)
	}
	if occ := s.Grid.OccupantAt(m); occ != "" && occ != self.ID {
		if t := s.AgentByID(occ); t != nil && t.Alive {
			return "target tile occupied"
		}
	}
	return ""
}

// fallbackMove picks the adjacent unoccupied non-storm tile closest to
// centre; failing that, the adjacent unoccupied tile closest to centre.
// Nil when boxed in.
func fallbackMove(self *Agent, s *BattleState, phase Phase) *Axial {
	empty := s.Grid.EmptyNeighbors(*self.Pos)
	var best *Axial
	bestStorm, bestLevel := true, GridRadius+1
	for i := range empty {
		storm := InStorm(empty[i], phase)
		lvl := Level(empty[i])
		if (bestStorm && !storm) || (storm == bestStorm && lvl < bestLevel) {
			bestStorm, bestLevel = storm, lvl
			best = &empty[i]
		}
	}
	return best
}

// resolveTarget maps a combat target name to a live, adjacent, non-self
// agent, trying exact, substring, class-name, and Levenshtein(<=3) matches.
func resolveTarget(name string, self *Agent, s *BattleState) *Agent {
	candidates := adjacentEnemies(self, s)
	if len(candidates) == 0 {
		return nil
	}
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper == "" {
		return nil
	}
	for _, c := range candidates {
		if strings.ToUpper(c.Name) == upper {
			return c
		}
	}
	for _, c := range candidates {
		cu := strings.ToUpper(c.Name)
		if strings.Contains(cu, upper) || strings.Contains(upper, cu) {
			return c
		}
	}
	for _, c := range candidates {
		if strings.ToUpper(string(c.Class)) == upper {
			return c
		}
	}
	var best *Agent
	bestDist := 4
	for _, c := range candidates {
		if d := levenshtein(upper, strings.ToUpper(c.Name)); d < bestDist {
			bestDist = d
			best = c
		}
	}
	return best
}

func adjacentEnemies(self *Agent, s *BattleState) []*Agent {
	var out []*Agent
	if self.Pos == nil {
		return out
	}
	for _, a := range s.AliveAgents() {
		if a.ID == self.ID || a.Pos == nil {
			continue
		}
		if Adjacent(*self.Pos, *a.Pos) {
			out = append(out, a)
		}
	}
	return out
}

func highestHPOther(self *Agent, s *BattleState) *Agent {
	var best *Agent
	for _, a := range s.AliveAgents() {
		if a.ID == self.ID {
			continue
		}
		if best == nil || a.HP > best.HP {
			best = a
		}
	}
	return best
}

// levenshtein computes edit distance with the classic two-row method.
func levenshtein(a, b string) int {
	if a == b {
		return 0
	}
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		curr[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			curr[j] = minInt(minInt(curr[j-1]+1, prev[j]+1), prev[j-1]+cost)
		}
		prev, curr = curr, prev
	}
	return prev[len(b)]
}
