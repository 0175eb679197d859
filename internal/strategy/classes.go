package strategy

import (
	"math"

	"github.com/hexclash/arena/pkg/arena"
)

// profiles holds the five class flavours. The heuristics are the no-LLM
// fallback: phase-aware, conservative, and always producing something the
// guardrail layer will accept.
var profiles = map[arena.Class]classProfile{
	arena.ClassWarrior: {
		class: arena.ClassWarrior,
		personality: "Blunt, honourable, and relentless. You respect strength, despise schemers, " +
			"and would rather die swinging than outlast anyone by hiding.",
		skillDef: "BERSERK: your ATTACK deals double damage this epoch, but you take 50% more " +
			"from every hit. Five epoch cooldown.",
		heuristic: warriorHeuristic,
	},
	arena.ClassTrader: {
		class: arena.ClassTrader,
		personality: "Cold, calculating, and allergic to unpriced risk. Combat is a cost centre; " +
			"the market is where battles are actually won.",
		skillDef: "INSIDER_INFO: your prediction automatically resolves correct this epoch. " +
			"Five epoch cooldown.",
		heuristic: traderHeuristic,
	},
	arena.ClassSurvivor: {
		class: arena.ClassSurvivor,
		personality: "Patient, paranoid, and unkillable. Every epoch you are still breathing is a " +
			"victory. Let the aggressive ones thin each other out.",
		skillDef: "FORTIFY: total damage immunity this epoch, storm bleed included. " +
			"Five epoch cooldown.",
		heuristic: survivorHeuristic,
	},
	arena.ClassParasite: {
		class: arena.ClassParasite,
		personality: "Charming, treacherous, and always adjacent to someone stronger. Alliances " +
			"are tools; loyalty is for people with more HP than sense.",
		skillDef: "SIPHON: steal 10% of an adjacent agent's current HP. Five epoch cooldown.",
		heuristic: parasiteHeuristic,
	},
	arena.ClassGambler: {
		class: arena.ClassGambler,
		personality: "Manic, superstitious, and in love with variance. Safe plays are for cowards; " +
			"the arena rewards whoever dares the biggest swing.",
		skillDef: "ALL_IN: your prediction's HP swing is doubled this epoch, win or lose. " +
			"Five epoch cooldown.",
		heuristic: gamblerHeuristic,
	},
}

// bestPrediction stakes on the asset with the strongest recent move,
// following its direction. A flat market defaults to ETH up.
func bestPrediction(m arena.MarketData, stakePct int) arena.Prediction {
	asset, change := arena.AssetETH, 0.0
	for _, a := range arena.Assets {
		if c := m.Changes[a]; math.Abs(c) > math.Abs(change) {
			asset, change = a, c
		}
	}
	dir := arena.DirUp
	if change < 0 {
		dir = arena.DirDown
	}
	return arena.Prediction{Asset: asset, Direction: dir, StakePercent: arena.ClampStakePercent(stakePct)}
}

// adjacentEnemies lists living non-allied agents one hex away.
func adjacentEnemies(req Request) []*arena.Agent {
	var out []*arena.Agent
	if req.Self.Pos == nil {
		return out
	}
	for _, a := range req.State.Agents {
		if a.ID == req.Self.ID || !a.Alive || a.Pos == nil || req.Self.IsAlliedWith(a.ID) {
			continue
		}
		if arena.Adjacent(*req.Self.Pos, *a.Pos) {
			out = append(out, a)
		}
	}
	return out
}

func weakest(agents []*arena.Agent) *arena.Agent {
	var w *arena.Agent
	for _, a := range agents {
		if w == nil || a.HP < w.HP {
			w = a
		}
	}
	return w
}

func strongest(agents []*arena.Agent) *arena.Agent {
	var s *arena.Agent
	for _, a := range agents {
		if s == nil || a.HP > s.HP {
			s = a
		}
	}
	return s
}

func warriorHeuristic(req Request) arena.Decision {
	d := arena.Decision{
		Prediction: bestPrediction(req.Market, 10),
		Stance:     arena.StanceNone,
		Reasoning:  "No one in reach. I predict small and close the distance.",
	}
	if !arena.CombatEnabled(req.State.CurrentPhase()) {
		d.Reasoning = "No fighting yet. I take position and wait for the horn."
		return d
	}
	if target := weakest(adjacentEnemies(req)); target != nil {
		d.Stance = arena.StanceAttack
		d.TargetName = target.Name
		d.CombatStake = req.Self.HP / 6
		d.UseSkill = req.Self.SkillCooldown == 0 && req.Self.HP > req.Self.MaxHP/2
		d.Reasoning = "The weakest throat in reach gets the blade."
	}
	return d
}

func traderHeuristic(req Request) arena.Decision {
	d := arena.Decision{
		Prediction: bestPrediction(req.Market, traderStakeMax),
		Stance:     arena.StanceDefend,
		Reasoning:  "Hedge the body, leverage the market.",
	}
	// Insider info is most valuable when the stake is forced high and HP is low.
	if req.Self.SkillCooldown == 0 && req.Self.HP < req.Self.MaxHP/2 {
		d.UseSkill = true
		d.Reasoning = "Guaranteed information deserves maximum size."
	}
	return d
}

func survivorHeuristic(req Request) arena.Decision {
	d := arena.Decision{
		Prediction: bestPrediction(req.Market, arena.MinStakePercent),
		Stance:     arena.StanceDefend,
		Reasoning:  "Outlasting is winning. Minimum exposure everywhere.",
	}
	if req.Self.SkillCooldown == 0 && (req.Self.HP < req.Self.MaxHP/3 || len(adjacentEnemies(req)) >= 2) {
		d.UseSkill = true
		d.Reasoning = "Too much pressure. I wall up and let the storm of blades pass."
	}
	return d
}

func parasiteHeuristic(req Request) arena.Decision {
	d := arena.Decision{
		Prediction: bestPrediction(req.Market, 15),
		Stance:     arena.StanceNone,
		Reasoning:  "Stay close, stay harmless-looking, stay fed.",
	}
	neighbors := adjacentEnemies(req)
	if host := strongest(neighbors); host != nil {
		if req.Self.SkillCooldown == 0 {
			d.UseSkill = true
			d.SkillTarget = host.Name
			d.Reasoning = "A tithe from the healthiest neighbour, as is tradition."
		} else if arena.CombatEnabled(req.State.CurrentPhase()) {
			if prey := weakest(neighbors); prey != nil && prey.HP*100 < prey.MaxHP*parasitePreyHPPct {
				d.Stance = arena.StanceSabotage
				d.TargetName = prey.Name
				d.CombatStake = req.Self.HP / 10
				d.Reasoning = "A quiet knife for whoever is already bleeding."
			}
		}
		if req.Self.Ally == nil {
			d.ProposeAlly = host.Name
		}
	}
	return d
}

func gamblerHeuristic(req Request) arena.Decision {
	pred := bestPrediction(req.Market, arena.MaxStakePercent)
	if req.Rng != nil {
		pred.Asset = arena.Assets[req.Rng.Intn(len(arena.Assets))]
		if req.Rng.Intn(2) == 0 {
			pred.Direction = arena.DirUp
		} else {
			pred.Direction = arena.DirDown
		}
	}
	d := arena.Decision{
		Prediction: pred,
		Stance:     arena.StanceNone,
		UseSkill:   req.Self.SkillCooldown == 0 && req.Self.HP > req.Self.MaxHP/2,
		Reasoning:  "Fortune favours the unhinged. Everything on the spin.",
	}
	if d.UseSkill {
		d.Reasoning = "Doubling down. Fortune favours the unhinged."
	}
	return d
}
