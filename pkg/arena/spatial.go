package arena

import (
	"fmt"
	"sort"
	"strings"
)

// SpatialContext renders the human-readable spatial block for one agent's
// decision request. This block is the only spatial information a strategy
// receives.
func SpatialContext(s *BattleState, self *Agent) string {
	if self.Pos == nil {
		return "You have no position on the grid."
	}
	pos := *self.Pos
	phase := s.CurrentPhase()

	var b strings.Builder
	fmt.Fprintf(&b, "Position: (%d,%d) level %d, distance %d from centre\n", pos.Q, pos.R, Level(pos), Level(pos))
	fmt.Fprintf(&b, "Phase: %s", phase)
	if rem := s.Schedule.EpochsRemaining(s.Epoch); rem >= 0 {
		fmt.Fprintf(&b, " (%d epochs until next phase)", rem)
	}
	b.WriteString("\n")
	if InStorm(pos, phase) {
		b.WriteString("WARNING: you are standing in the STORM. Move toward the centre.\n")
	} else {
		fmt.Fprintf(&b, "Safe zone: tiles at level %d or below\n", SafeLevel(phase))
	}

	b.WriteString("Empty adjacent hexes:")
	empty := s.Grid.EmptyNeighbors(pos)
	if len(empty) == 0 {
		b.WriteString(" none (boxed in)")
	}
	for _, c := range empty {
		fmt.Fprintf(&b, " (%d,%d)", c.Q, c.R)
		if InStorm(c, phase) {
			b.WriteString("[STORM]")
		}
	}
	b.WriteString("\n")

	b.WriteString("Agents within 2 tiles:\n")
	seen := false
	for _, a := range s.AliveAgents() {
		if a.ID == self.ID || a.Pos == nil {
			continue
		}
		d := Distance(pos, *a.Pos)
		if d > 2 {
			continue
		}
		seen = true
		fmt.Fprintf(&b, "  %s (%s) HP %d, distance %d", a.Name, a.Class, a.HP, d)
		if d == 1 {
			b.WriteString(" ADJACENT")
		}
		b.WriteString("\n")
	}
	if !seen {
		b.WriteString("  none\n")
	}

	items := itemsWithin(s, pos, 2)
	if len(items) > 0 {
		b.WriteString("Items within 2 tiles:\n")
		for _, it := range items {
			b.WriteString("  " + it + "\n")
		}
	}
	return b.String()
}

func itemsWithin(s *BattleState, pos Axial, radius int) []string {
	var out []string
	for c, t := range s.Grid.Tiles {
		if len(t.Items) == 0 || Distance(pos, c) > radius {
			continue
		}
		for _, it := range t.Items {
			out = append(out, fmt.Sprintf("%s at (%d,%d)", it, c.Q, c.R))
		}
	}
	sort.Strings(out)
	return out
}
