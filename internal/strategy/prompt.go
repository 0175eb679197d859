package strategy

import (
	"fmt"
	"strings"

	"github.com/hexclash/arena/pkg/arena"
)

// decisionSchema is the exact JSON contract quoted to the model. Field
// names match arena.Decision's tags so the reply unmarshals directly.
const decisionSchema = `{
  "prediction": {"asset": "ETH|BTC|SOL|MON", "direction": "UP|DOWN", "stake_percent": 5-50},
  "stance": "ATTACK|SABOTAGE|DEFEND|NONE",
  "target_name": "name, required for ATTACK/SABOTAGE",
  "combat_stake": "HP to commit, required for ATTACK/SABOTAGE",
  "move": {"q": 0, "r": 0},
  "use_skill": false,
  "skill_target": "name, SIPHON only",
  "propose_ally": "name or empty",
  "break_ally": false,
  "reasoning": "one or two sentences, in character"
}`

// SystemPrompt sets the agent's identity, class rules, and output contract.
func SystemPrompt(p classProfile, self *arena.Agent) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a %s gladiator in a fight to the death on a hexagonal arena.\n\n", self.Name, self.Class)
	b.WriteString("PERSONALITY: " + p.personality + "\n\n")
	b.WriteString("YOUR SKILL: " + p.skillDef + "\n\n")
	b.WriteString("RULES:\n")
	b.WriteString("- Every epoch you MUST predict one asset's direction, staking 5-50% of your current HP. Correct predictions heal you, wrong ones hurt you.\n")
	b.WriteString("- ATTACK and SABOTAGE commit HP as a combat stake against an adjacent agent. DEFEND costs a little HP and blunts attacks. ATTACK beats SABOTAGE, DEFEND absorbs ATTACK, SABOTAGE slips past DEFEND.\n")
	b.WriteString("- The storm shrinks the safe zone as phases advance. Standing in the storm bleeds HP every epoch.\n")
	b.WriteString("- Alliances are non-aggression pacts. Attacking an ally is betrayal: the hit doubles and the pact shatters.\n")
	b.WriteString("- Last gladiator standing wins.\n\n")
	b.WriteString("Respond with ONLY a JSON object in this schema, no markdown, no prose outside the reasoning field:\n")
	b.WriteString(decisionSchema)
	return b.String()
}

// UserPrompt renders the per-epoch situation: phase, vitals, spatial
// context, market snapshot, and retrieved memory.
func UserPrompt(req Request) string {
	s, self := req.State, req.Self
	phase := s.CurrentPhase()

	var b strings.Builder
	fmt.Fprintf(&b, "EPOCH %d of %d, phase %s.\n", s.Epoch, s.MaxEpochs, phase)
	fmt.Fprintf(&b, "You have %d/%d HP.", self.HP, self.MaxHP)
	if self.SkillCooldown > 0 {
		fmt.Fprintf(&b, " Skill on cooldown for %d more epochs.", self.SkillCooldown)
	} else {
		b.WriteString(" Skill is ready.")
	}
	if self.Ally != nil {
		fmt.Fprintf(&b, " Allied with %s for %d more epochs.", self.Ally.Name, self.Ally.Remaining)
	}
	b.WriteString("\n\n")

	b.WriteString(arena.SpatialContext(s, self))
	b.WriteString("\n")

	b.WriteString("MARKET:\n")
	for _, a := range arena.Assets {
		fmt.Fprintf(&b, "- %s: $%.2f (%+.2f%% last epoch)\n", a, req.Market.Prices[a], req.Market.Changes[a])
	}

	if req.Memory != "" {
		b.WriteString("\n" + req.Memory)
	}

	b.WriteString("\nDecide your action for this epoch.")
	return b.String()
}

// SituationTags picks memory-retrieval tags from the current state.
func SituationTags(s *arena.BattleState, self *arena.Agent) []string {
	tags := []string{"prediction", "combat"}
	if self.HP < self.MaxHP/4 {
		tags = append(tags, "death")
	}
	if self.Ally != nil {
		tags = append(tags, "betrayal")
	}
	return tags
}
