package strategy

import (
	"github.com/hexclash/arena/pkg/arena"
)

// Per-class prediction stake bands, in percent of current HP. The Warrior's
// band is prompt guidance only (it depends on confidence, which no guardrail
// can observe); the Gambler is unconstrained by design.
const (
	traderStakeMin, traderStakeMax     = 15, 25
	survivorStakeMin, survivorStakeMax = 5, 10
	parasiteStakeMin, parasiteStakeMax = 5, 15

	survivorCautionHPPct = 30 // HP at or under this percent forces the minimum stake
	parasitePreyHPPct    = 15 // SABOTAGE allowed only against targets under this percent
	warriorDefendHPPct   = 20 // DEFEND allowed only under this percent
)

// classGuard enforces the stance and stake rules a class can never drift
// past, whatever its model replied. It runs on sanitised decisions, so any
// combat target present is already resolved to an exact roster name.
func classGuard(d arena.Decision, self *arena.Agent, s *arena.BattleState) (arena.Decision, []arena.Issue) {
	var issues []arena.Issue
	note := func(sev, action, field, msg string) {
		issues = append(issues, arena.Issue{Severity: sev, Action: action, Field: field, Message: msg})
	}
	clampStake := func(lo, hi int) {
		p := d.Prediction.StakePercent
		switch {
		case p < lo:
			d.Prediction.StakePercent = lo
		case p > hi:
			d.Prediction.StakePercent = hi
		default:
			return
		}
		note(arena.SeverityInfo, arena.ActionCorrected, "prediction.stake", "clamped to class band")
	}
	dropAggression := func(msg string) {
		d.Stance = arena.StanceNone
		d.TargetName = ""
		d.CombatStake = 0
		note(arena.SeverityWarning, arena.ActionCorrected, "stance", msg)
	}

	switch self.Class {
	case arena.ClassWarrior:
		if d.Stance == arena.StanceDefend && self.HP*100 >= self.MaxHP*warriorDefendHPPct {
			d.Stance = arena.StanceNone
			note(arena.SeverityInfo, arena.ActionCorrected, "stance", "warriors hold DEFEND for desperation only")
		}

	case arena.ClassTrader:
		clampStake(traderStakeMin, traderStakeMax)
		if d.Stance == arena.StanceAttack {
			if d.TargetName != "" {
				d.Stance = arena.StanceSabotage
				note(arena.SeverityWarning, arena.ActionCorrected, "stance", "traders do not ATTACK, converted to SABOTAGE")
			} else {
				dropAggression("traders do not ATTACK")
			}
		}

	case arena.ClassSurvivor:
		if self.HP*100 <= self.MaxHP*survivorCautionHPPct {
			clampStake(survivorStakeMin, survivorStakeMin)
		} else {
			clampStake(survivorStakeMin, survivorStakeMax)
		}
		if d.Stance.Aggressive() {
			dropAggression("survivors never strike first")
		}

	case arena.ClassParasite:
		clampStake(parasiteStakeMin, parasiteStakeMax)
		if d.Stance == arena.StanceSabotage {
			t := s.AgentByName(d.TargetName)
			if t == nil || t.HP*100 >= t.MaxHP*parasitePreyHPPct {
				dropAggression("parasites only sabotage the nearly dead")
			}
		}
	}

	return d, issues
}
