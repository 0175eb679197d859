package arena

import (
	"math"
	"math/rand"
)

// AllianceEpochs is how long a freshly formed pact lasts.
const AllianceEpochs = 3

// flatEpsilon: a percentage change smaller than this resolves flat.
const flatEpsilon = 1e-9

// EpochRecord is the sealed, append-only result of one resolved epoch.
type EpochRecord struct {
	Epoch     int                 `json:"epoch"`
	Market    MarketData          `json:"market"`
	Decisions map[string]Decision `json:"decisions"`
	Events    []Event             `json:"events"`
	Complete  bool                `json:"complete"`
	WinnerID  string              `json:"winner_id,omitempty"`
}

// pendingDeath tracks an agent that crossed zero HP mid-epoch, so the death
// check can emit a single event with the right cause.
type pendingDeath struct {
	cause  DeathCause
	killer string
}

// ResolveEpoch runs the full resolution pipeline exactly once: epoch
// advance, thoughts, alliances, movement, sponsor boosts, skills,
// predictions, combat, defend cost, siphon, bleed, deaths, survival tick,
// win check, cooldown tick. HP mutations commit eagerly so later phases see
// post-mutation state. Dead agents are skipped by every subsequent phase.
//
// Decisions must already be secretary-validated. The RNG drives only the
// Gambler's combat roll, so a fixed seed makes resolution bit-identical.
func ResolveEpoch(s *BattleState, decisions map[string]Decision, market MarketData, effects map[string]SponsorEffect, rng *rand.Rand) *EpochRecord {
	// 1. Epoch advance.
	s.Epoch++
	rec := &EpochRecord{Epoch: s.Epoch, Market: market, Decisions: decisions}
	emit := func(t string, data any) { rec.Events = append(rec.Events, Event{Type: t, Data: data}) }
	emit(EventEpochStart, EpochStartData{EpochNumber: s.Epoch, MarketData: market})

	phase := s.CurrentPhase()
	deaths := make(map[string]*pendingDeath)
	combatHit := make(map[string]bool) // combat damage landed this epoch

	// markDead records the first zero-HP crossing for an agent.
	markDead := func(a *Agent, cause DeathCause, killer string) {
		if a.HP > 0 || deaths[a.ID] != nil || !a.Alive {
			return
		}
		deaths[a.ID] = &pendingDeath{cause: cause, killer: killer}
	}
	// active reports whether an agent still participates in later phases.
	active := func(a *Agent) bool { return a.Alive && a.HP > 0 }

	// 2. Thought recording and action events.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		d, ok := decisions[a.ID]
		if !ok {
			continue
		}
		a.RecordThought(d.Reasoning)
		action := AgentActionData{
			AgentID:    a.ID,
			AgentName:  a.Name,
			Prediction: d.Prediction,
			Defend:     d.Stance == StanceDefend,
			Reasoning:  d.Reasoning,
		}
		if d.Stance.Aggressive() && d.TargetName != "" {
			action.Attack = &ActionAttack{Target: d.TargetName, Stake: d.CombatStake}
		}
		emit(EventAgentAction, action)
	}

	// Alliance bookkeeping: explicit breaks first, then mutual proposals.
	resolveAlliances(s, decisions, active)

	// 3. Movement, in ID order; first mover wins a contested tile.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		d := decisions[a.ID]
		if d.Move == nil || a.Pos == nil {
			continue
		}
		m := *d.Move
		if validMove(m, a, s) != "" {
			continue
		}
		if s.Grid.Place(a.ID, m) {
			a.Pos = &m
		}
	}

	// 4. Sponsor boosts.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		eff, ok := effects[a.ID]
		if !ok {
			continue
		}
		before := a.HP
		boost := a.Heal(eff.HPBoost)
		emit(EventSponsorBoost, SponsorBoostData{
			AgentID: a.ID, HPBefore: before, HPAfter: a.HP, Boost: boost,
			FreeDefend: eff.FreeDefend, AttackBoost: eff.AttackBoost > 0,
		})
	}

	// 5. Skill activation. SIPHON defers its effect to after combat.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		d := decisions[a.ID]
		if !d.UseSkill || a.SkillCooldown > 0 {
			continue
		}
		a.SkillActive = true
		a.SkillCooldown = SkillCooldownEpochs
		emit(EventSkillActivation, SkillActivationData{AgentID: a.ID, Skill: a.Skill(), Target: d.SkillTarget})
	}

	// 6. Prediction resolution.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		d, ok := decisions[a.ID]
		if !ok {
			continue
		}
		resolvePrediction(s, a, d, market, emit, markDead)
	}

	// 7+8. Combat target resolution and the combat triangle. Defend cost is
	// based on pre-combat HP, so snapshot before any blow lands.
	preCombatHP := make(map[string]int, len(s.Agents))
	for _, a := range s.Agents {
		preCombatHP[a.ID] = a.HP
	}
	if CombatEnabled(phase) {
		resolveCombatPhase(s, decisions, effects, rng, active, emit, markDead, combatHit)
	}

	// 9. Defend cost, waived by a freeDefend sponsor effect.
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		if decisions[a.ID].Stance != StanceDefend {
			continue
		}
		waived := effects[a.ID].FreeDefend
		cost := 0
		if !waived {
			cost = a.Damage(preCombatHP[a.ID] * 3 / 100)
		}
		emit(EventDefendCost, DefendCostData{AgentID: a.ID, Cost: cost, HPAfter: a.HP, Waived: waived})
	}

	// 10. Siphon, sequentially in agent iteration order.
	for _, a := range s.Agents {
		if !active(a) || !a.SkillActive || a.Skill() != SkillSiphon {
			continue
		}
		t := s.AgentByName(decisions[a.ID].SkillTarget)
		if t == nil || !active(t) || fortified(t) {
			continue
		}
		steal := maxInt(1, t.HP/10)
		stolen := t.Damage(steal)
		a.Heal(stolen)
		a.DamageDealt += stolen
		t.DamageTaken += stolen
		combatHit[t.ID] = true
		markDead(t, CauseCombat, a.ID)
	}

	// 11. Bleed: 2% attrition for every alive agent, waived by FORTIFY.
	for _, a := range s.Agents {
		if !active(a) || fortified(a) {
			continue
		}
		amount := a.Damage(maxInt(1, a.HP*2/100))
		emit(EventBleed, BleedData{AgentID: a.ID, Amount: amount, HPAfter: a.HP})
		if combatHit[a.ID] {
			markDead(a, CauseMulti, "")
		} else {
			markDead(a, CauseBleed, "")
		}
	}

	// 12. Death check.
	for _, a := range s.Agents {
		pd := deaths[a.ID]
		if pd == nil || !a.Alive {
			continue
		}
		a.Alive = false
		a.HP = 0
		s.Grid.Remove(a.ID)
		if other := s.AgentByID(pd.killer); other != nil && pd.killer != "" {
			other.Kills++
		}
		clearAllyReferences(s, a.ID)
		emit(EventAgentDeath, AgentDeathData{
			AgentID: a.ID, AgentName: a.Name, AgentClass: a.Class,
			EpochNumber: s.Epoch, Cause: pd.cause,
			FinalWords: lastThought(a), KilledBy: pd.killer,
		})
	}

	// 13. Survival tick.
	for _, a := range s.Agents {
		if a.Alive {
			a.EpochsSurvived++
		}
	}

	// 14. Win check.
	finishBattle(s, rec, deaths)
	emit(EventEpochEnd, EpochEndData{AgentStates: Summaries(s), BattleComplete: rec.Complete})
	if rec.Complete {
		winner := s.AgentByID(rec.WinnerID)
		name := ""
		if winner != nil {
			name = winner.Name
		}
		emit(EventBattleEnd, BattleEndData{WinnerID: rec.WinnerID, WinnerName: name, TotalEpochs: s.Epoch})
	}

	// 15. Cooldown and alliance ticks.
	for _, a := range s.Agents {
		if a.SkillCooldown > 0 {
			a.SkillCooldown--
		}
		a.SkillActive = false
		if a.Ally != nil {
			a.Ally.Remaining--
			if a.Ally.Remaining <= 0 {
				a.Ally = nil
			}
		}
	}

	return rec
}

// resolvePrediction settles one agent's market call and commits the HP change.
func resolvePrediction(s *BattleState, a *Agent, d Decision, market MarketData, emit func(string, any), markDead func(*Agent, DeathCause, string)) {
	stake := a.HP * d.Prediction.StakePercent / 100
	change := market.Changes[d.Prediction.Asset]

	insider := a.SkillActive && a.Skill() == SkillInsiderInfo
	allIn := a.SkillActive && a.Skill() == SkillAllIn

	correct := false
	delta := 0
	switch {
	case insider:
		// Insider info: the prediction auto-wins this epoch.
		correct = true
		delta = stake
	case math.Abs(change) < flatEpsilon:
		// Flat market: no HP change either way.
	case (d.Prediction.Direction == DirUp) == (change > 0):
		correct = true
		delta = stake
	default:
		delta = -stake
	}
	if allIn {
		delta *= 2
	}
	if fortified(a) && delta < 0 {
		delta = 0
	}

	a.PredictionsTotal++
	if correct {
		a.PredictionsCorrect++
	}
	if delta > 0 {
		delta = a.Heal(delta)
	} else if delta < 0 {
		delta = -a.Damage(-delta)
	}
	emit(EventPredictionResult, PredictionResultData{
		AgentID: a.ID, Asset: d.Prediction.Asset, Direction: d.Prediction.Direction,
		ActualChange: change, Correct: correct, HPChange: delta, HPAfter: a.HP,
	})
	markDead(a, CausePrediction, "")
}

// resolveCombatPhase converts combat targets to IDs, drops entries made
// invalid by movement, and resolves each aggressive action in ID order.
func resolveCombatPhase(s *BattleState, decisions map[string]Decision, effects map[string]SponsorEffect, rng *rand.Rand, active func(*Agent) bool, emit func(string, any), markDead func(*Agent, DeathCause, string), combatHit map[string]bool) {
	// An Overpower consumes the target's mutual sabotage: it never lands,
	// regardless of which side resolves first. Pre-scan the mutual
	// ATTACK-vs-SABOTAGE pairs so preemption is independent of ID order.
	consumed := make(map[string]bool)
	for _, a := range s.Agents {
		if !active(a) {
			continue
		}
		d := decisions[a.ID]
		if d.Stance != StanceAttack || d.TargetName == "" {
			continue
		}
		t := s.AgentByName(d.TargetName)
		if t == nil || t.ID == a.ID || !active(t) {
			continue
		}
		if a.Pos == nil || t.Pos == nil || !Adjacent(*a.Pos, *t.Pos) {
			continue
		}
		if td, ok := decisions[t.ID]; ok && td.Stance == StanceSabotage && td.TargetName == a.Name {
			consumed[t.ID] = true
		}
	}

	for _, a := range s.Agents {
		if !active(a) || consumed[a.ID] {
			continue
		}
		d := decisions[a.ID]
		if !d.Stance.Aggressive() || d.TargetName == "" {
			continue
		}
		t := s.AgentByName(d.TargetName)
		if t == nil || t.ID == a.ID || !active(t) {
			continue
		}
		if a.Pos == nil || t.Pos == nil || !Adjacent(*a.Pos, *t.Pos) {
			continue
		}

		tStance := StanceNone
		if td, ok := decisions[t.ID]; ok {
			tStance = td.Stance
		}

		betrayal := a.IsAlliedWith(t.ID)
		attEff := effectsFor(a, effects, rng, d.Stance)
		tgtEff := effectsFor(t, effects, rng, tStance)
		result := ResolveCombat(a, t, d.Stance, d.CombatStake, tStance, attEff, tgtEff, betrayal)

		if betrayal {
			a.BreakAlly()
			t.BreakAlly()
		}

		t.Damage(result.Damage)
		a.DamageDealt += result.Damage
		t.DamageTaken += result.Damage
		if result.HPChangeAttacker > 0 {
			a.Heal(result.HPChangeAttacker)
		} else if result.HPChangeAttacker < 0 {
			a.Damage(-result.HPChangeAttacker)
			a.DamageTaken += -result.HPChangeAttacker
		}

		if result.Damage > 0 {
			combatHit[t.ID] = true
		}
		emit(EventCombatResult, result)
		markDead(t, CauseCombat, a.ID)
		markDead(a, CauseCombat, t.ID)
	}
}

// effectsFor assembles the combat modifiers in force for one agent.
func effectsFor(a *Agent, effects map[string]SponsorEffect, rng *rand.Rand, stance Stance) Effects {
	eff := Effects{SponsorAttackBoost: effects[a.ID].AttackBoost}
	if a.SkillActive {
		switch a.Skill() {
		case SkillBerserk:
			eff.Berserk = true
		case SkillFortify:
			eff.Fortify = true
		}
	}
	if a.Class == ClassGambler && stance != StanceNone {
		eff.GamblerMod = rng.Float64() * 0.15
	}
	return eff
}

// resolveAlliances applies explicit breaks, then forms pacts from mutual
// proposals made in the same epoch.
func resolveAlliances(s *BattleState, decisions map[string]Decision, active func(*Agent) bool) {
	for _, a := range s.Agents {
		if active(a) && decisions[a.ID].BreakAlly && a.Ally != nil {
			if other := s.AgentByID(a.Ally.ID); other != nil {
				other.BreakAlly()
			}
			a.BreakAlly()
		}
	}
	for _, a := range s.Agents {
		if !active(a) || a.Ally != nil {
			continue
		}
		proposal := decisions[a.ID].ProposeAlly
		if proposal == "" {
			continue
		}
		t := s.AgentByName(proposal)
		if t == nil || !active(t) || t.Ally != nil || t.ID <= a.ID {
			continue
		}
		if decisions[t.ID].ProposeAlly == a.Name {
			a.SetAlly(t.ID, t.Name, AllianceEpochs)
			t.SetAlly(a.ID, a.Name, AllianceEpochs)
		}
	}
}

// finishBattle applies the win check: last agent standing, the max-epoch
// timeout tiebreak, or — when the roster wiped simultaneously — the last
// agents to fall this epoch, lowest ID first.
func finishBattle(s *BattleState, rec *EpochRecord, deaths map[string]*pendingDeath) {
	alive := s.AliveAgents()
	switch {
	case len(alive) == 1:
		rec.Complete = true
		rec.WinnerID = alive[0].ID
	case len(alive) == 0:
		rec.Complete = true
		for id := range deaths {
			if rec.WinnerID == "" || id < rec.WinnerID {
				rec.WinnerID = id
			}
		}
	case s.Epoch >= s.MaxEpochs:
		rec.Complete = true
		best := alive[0]
		for _, a := range alive[1:] {
			if a.HP > best.HP {
				best = a
			}
		}
		rec.WinnerID = best.ID
	}
	if rec.Complete {
		s.Status = StatusCompleted
		s.WinnerID = rec.WinnerID
	}
}

func fortified(a *Agent) bool { return a.SkillActive && a.Skill() == SkillFortify }

func clearAllyReferences(s *BattleState, deadID string) {
	for _, a := range s.Agents {
		if a.IsAlliedWith(deadID) {
			a.BreakAlly()
		}
	}
}

func lastThought(a *Agent) string {
	if len(a.Thoughts) == 0 {
		return ""
	}
	return a.Thoughts[len(a.Thoughts)-1]
}
