package arena

import "math"

// Combat outcome names, as they appear in combat_result events.
const (
	OutcomeOverpower   = "overpower"
	OutcomeAbsorb      = "absorb"
	OutcomeUncontested = "uncontested"
	OutcomeBypass      = "bypass"
	OutcomeStalemate   = "stalemate"
)

// Effects collects the per-epoch modifiers that shape one combat event for a
// single agent: sponsor boosts, active skills, and the Gambler's roll.
type Effects struct {
	SponsorAttackBoost float64 // additive attack modifier from sponsorship
	Berserk            bool    // double ATTACK damage, 1.5x damage received
	Fortify            bool    // all damage to this agent clamped to zero
	GamblerMod         float64 // uniform [0, 0.15], sampled per combat event
}

// attackMod returns the additive class modifier for an aggressive stance.
func attackMod(c Class, stance Stance, eff Effects) float64 {
	m := eff.SponsorAttackBoost + eff.GamblerMod
	switch c {
	case ClassWarrior:
		if stance == StanceAttack {
			m += 0.20
		}
	case ClassSurvivor:
		if stance == StanceAttack {
			m -= 0.20
		}
	case ClassTrader, ClassParasite:
		if stance == StanceSabotage {
			m += 0.10
		}
	}
	if eff.Berserk && stance == StanceAttack {
		m += 1.00
	}
	return m
}

// defendMod returns the additive defend potency of a class. A positive
// potency scales residual damage down and reflection up by the same factor;
// the Warrior's weak defend works in reverse.
func defendMod(c Class, eff Effects) float64 {
	m := eff.GamblerMod
	switch c {
	case ClassSurvivor:
		m += 0.20
	case ClassWarrior:
		m -= 0.10
	}
	return m
}

// ResolveCombat resolves one aggressive action against its target's stance
// and returns the event payload. It does not commit HP changes; the
// resolution pipeline owns mutation order.
//
// Damage arithmetic: magnitudes are computed in float64 and floored to
// integers at the end. When the target DEFENDs against an ATTACK, the
// engagement is dictated by the defense — the attacker's class modifier does
// not apply; residual damage scales by (1 - defend potency) and reflection
// by (1 + defend potency). SABOTAGE bypasses the defense entirely, so defend
// modifiers never touch it. Stalemate splash is unmodified.
func ResolveCombat(attacker, target *Agent, stance Stance, stake int, targetStance Stance, attEff, tgtEff Effects, betrayal bool) CombatResultData {
	stake = minInt(maxInt(stake, 1), attacker.HP)
	am := attackMod(attacker.Class, stance, attEff)
	s := float64(stake)

	var outcome string
	var dmg, hpAtt float64 // dmg: magnitude dealt to target; hpAtt: signed attacker delta

	switch {
	case stance == StanceAttack && targetStance == StanceSabotage:
		outcome = OutcomeOverpower
		dmg = s * (1 + am)
		hpAtt = dmg // stolen
	case stance == StanceAttack && targetStance == StanceDefend:
		outcome = OutcomeAbsorb
		dm := defendMod(target.Class, tgtEff)
		dmg = s * 0.25 * (1 - dm)
		hpAtt = -s * 0.5 * (1 + dm)
	case stance == StanceAttack:
		outcome = OutcomeUncontested
		dmg = s * (1 + am)
		hpAtt = dmg
	case stance == StanceSabotage && targetStance == StanceSabotage:
		outcome = OutcomeStalemate
		dmg = s * 0.3 * (1 + am)
		hpAtt = -s * 0.15
	case stance == StanceSabotage && targetStance == StanceDefend:
		outcome = OutcomeBypass
		dmg = s * 0.6 * (1 + am)
	default:
		outcome = OutcomeUncontested
		dmg = s * 0.6 * (1 + am)
	}

	if betrayal {
		dmg *= 2
	}
	if tgtEff.Berserk && dmg > 0 {
		dmg *= 1.5
	}
	if attEff.Berserk && hpAtt < 0 {
		hpAtt *= 1.5
	}

	blocked := false
	if tgtEff.Fortify {
		dmg = 0
		blocked = true
	}
	if attEff.Fortify && hpAtt < 0 {
		hpAtt = 0
	}

	damage := floorMagnitude(dmg)
	attDelta := floorSigned(hpAtt)
	return CombatResultData{
		AttackerID:       attacker.ID,
		TargetID:         target.ID,
		Stance:           stance,
		Outcome:          outcome,
		Stake:            stake,
		HPChangeAttacker: attDelta,
		HPChangeTarget:   -damage,
		Damage:           damage,
		Blocked:          blocked,
	}
}

// floatSlack absorbs float64 representation error (1.2 is really
// 1.1999...), so a product that is mathematically whole floors to itself.
const floatSlack = 1e-9

// floorMagnitude floors a non-negative magnitude to an integer.
func floorMagnitude(x float64) int { return int(math.Floor(x + floatSlack)) }

// floorSigned floors the magnitude and reapplies the sign, so +119.9 becomes
// +119 and -119.9 becomes -119.
func floorSigned(x float64) int {
	if x < 0 {
		return -floorMagnitude(-x)
	}
	return floorMagnitude(x)
}
