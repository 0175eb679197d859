package arena

import "testing"

func combatant(id, name string, class Class, hp int) *Agent {
	a := NewAgent(id, name, class)
	a.HP = hp
	return a
}

// Scenario: Warrior overpowers a sabotaging Parasite. The Warrior's +20%
// attack bonus scales the stolen amount.
func TestCombatOverpower(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "LEECHLING", ClassParasite, 500)

	r := ResolveCombat(a, b, StanceAttack, 100, StanceSabotage, Effects{}, Effects{}, false)
	if r.Outcome != OutcomeOverpower {
		t.Fatalf("outcome = %s, want overpower", r.Outcome)
	}
	if r.Damage != 120 {
		t.Errorf("damage = %d, want 120 (100 * 1.20 warrior bonus)", r.Damage)
	}
	if r.HPChangeAttacker != 120 {
		t.Errorf("attacker delta = %d, want +120 (stolen)", r.HPChangeAttacker)
	}
	// Stealing conserves HP.
	if r.HPChangeAttacker+r.HPChangeTarget != 0 {
		t.Errorf("overpower should conserve HP, attacker %+d target %+d", r.HPChangeAttacker, r.HPChangeTarget)
	}
}

// Scenario: Warrior attacks a defending Survivor. Residual damage scales
// down by the defend potency, reflection scales up by it, and the attacker's
// class bonus does not apply to a blocked attack.
func TestCombatAbsorb(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "HOLDFAST", ClassSurvivor, 500)

	r := ResolveCombat(a, b, StanceAttack, 200, StanceDefend, Effects{}, Effects{}, false)
	if r.Outcome != OutcomeAbsorb {
		t.Fatalf("outcome = %s, want absorb", r.Outcome)
	}
	if r.Damage != 40 {
		t.Errorf("damage = %d, want 40 (floor(200*0.25*0.8))", r.Damage)
	}
	if r.HPChangeAttacker != -120 {
		t.Errorf("attacker delta = %d, want -120 (floor(200*0.5*1.2) reflected)", r.HPChangeAttacker)
	}
}

func TestCombatBypassAndStalemate(t *testing.T) {
	a := combatant("a1", "MIDAS", ClassTrader, 500)
	b := combatant("a2", "HOLDFAST", ClassSurvivor, 500)

	r := ResolveCombat(a, b, StanceSabotage, 100, StanceDefend, Effects{}, Effects{}, false)
	if r.Outcome != OutcomeBypass {
		t.Fatalf("outcome = %s, want bypass", r.Outcome)
	}
	// 100 * 0.6 * 1.10 trader sabotage bonus; defend mods never touch a bypass.
	if r.Damage != 66 {
		t.Errorf("bypass damage = %d, want 66", r.Damage)
	}
	if r.HPChangeAttacker != 0 {
		t.Errorf("bypass attacker delta = %d, want 0", r.HPChangeAttacker)
	}

	c := combatant("a3", "TAPEWORM", ClassParasite, 400)
	r2 := ResolveCombat(a, c, StanceSabotage, 100, StanceSabotage, Effects{}, Effects{}, false)
	if r2.Outcome != OutcomeStalemate {
		t.Fatalf("outcome = %s, want stalemate", r2.Outcome)
	}
	if r2.Damage != 33 {
		t.Errorf("stalemate damage = %d, want 33 (floor(100*0.3*1.1))", r2.Damage)
	}
	if r2.HPChangeAttacker != -15 {
		t.Errorf("stalemate splash = %d, want -15", r2.HPChangeAttacker)
	}
}

func TestCombatStakeClampedToHP(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 50)
	b := combatant("a2", "WREN", ClassSurvivor, 500)
	r := ResolveCombat(a, b, StanceAttack, 400, StanceNone, Effects{}, Effects{}, false)
	if r.Stake != 50 {
		t.Errorf("stake = %d, want clamped to attacker HP 50", r.Stake)
	}
}

func TestCombatFortifyBlocks(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "HOLDFAST", ClassSurvivor, 500)
	r := ResolveCombat(a, b, StanceAttack, 200, StanceNone, Effects{}, Effects{Fortify: true}, false)
	if !r.Blocked || r.Damage != 0 {
		t.Errorf("fortified target should take 0 damage, got %d (blocked=%v)", r.Damage, r.Blocked)
	}
}

func TestCombatBerserk(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "LEECHLING", ClassParasite, 500)
	// Berserk adds +100% on top of the warrior's +20%.
	r := ResolveCombat(a, b, StanceAttack, 100, StanceNone, Effects{Berserk: true}, Effects{}, false)
	if r.Damage != 220 {
		t.Errorf("berserk damage = %d, want 220", r.Damage)
	}
	// A berserk target takes 1.5x.
	r2 := ResolveCombat(b, a, StanceSabotage, 100, StanceAttack, Effects{}, Effects{Berserk: true}, false)
	want := 99 // floor(100 * 0.6 * 1.10 parasite) = 66, * 1.5 = 99
	if r2.Damage != want {
		t.Errorf("damage into berserker = %d, want %d", r2.Damage, want)
	}
}

func TestCombatBetrayalDoubles(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "WREN", ClassSurvivor, 500)
	plain := ResolveCombat(a, b, StanceAttack, 100, StanceNone, Effects{}, Effects{}, false)
	betrayed := ResolveCombat(a, b, StanceAttack, 100, StanceNone, Effects{}, Effects{}, true)
	if betrayed.Damage != plain.Damage*2 {
		t.Errorf("betrayal damage = %d, want double %d", betrayed.Damage, plain.Damage)
	}
}

func TestCombatSponsorAttackBoost(t *testing.T) {
	a := combatant("a1", "KRATOS", ClassWarrior, 500)
	b := combatant("a2", "WREN", ClassSurvivor, 500)
	r := ResolveCombat(a, b, StanceAttack, 100, StanceNone, Effects{SponsorAttackBoost: 0.10}, Effects{}, false)
	if r.Damage != 130 {
		t.Errorf("boosted damage = %d, want 130 (1 + 0.20 + 0.10)", r.Damage)
	}
}
