// Package arena implements the battle rules engine: the hex grid, storm
// phases, agent state, decision validation, and the per-epoch resolution
// pipeline. The package is pure — it performs no I/O and is deterministic
// given the same inputs and RNG seed.
package arena

import (
	"fmt"
	"strconv"
	"strings"
)

// GridRadius is the hex radius of the arena. A radius-3 hex contains 37 tiles.
const GridRadius = 3

// Axial is a hex coordinate in axial form. The implicit third cube
// coordinate is s = -q - r.
type Axial struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// MarshalText encodes the coordinate as "q,r". Grid.Tiles is keyed by Axial,
// and map keys must marshal to text for the state to serialise.
func (a Axial) MarshalText() ([]byte, error) {
	return []byte(strconv.Itoa(a.Q) + "," + strconv.Itoa(a.R)), nil
}

// UnmarshalText parses the "q,r" form. Decisions arriving as JSON objects
// ({"q":1,"r":0}) bypass this and decode field-wise.
func (a *Axial) UnmarshalText(b []byte) error {
	q, r, ok := strings.Cut(string(b), ",")
	if !ok {
		return fmt.Errorf("malformed axial coordinate %q", b)
	}
	qv, err := strconv.Atoi(strings.TrimSpace(q))
	if err != nil {
		return fmt.Errorf("malformed axial coordinate %q: %w", b, err)
	}
	rv, err := strconv.Atoi(strings.TrimSpace(r))
	if err != nil {
		return fmt.Errorf("malformed axial coordinate %q: %w", b, err)
	}
	a.Q, a.R = qv, rv
	return nil
}

// directions are the six axial neighbor offsets, in canonical order.
var directions = [6]Axial{
	{1, 0}, {0, 1}, {-1, 1}, {-1, 0}, {0, -1}, {1, -1},
}

// Add returns the component-wise sum of two coordinates.
func (a Axial) Add(b Axial) Axial { return Axial{a.Q + b.Q, a.R + b.R} }

// Distance returns the hex distance between two axial coordinates.
func Distance(a, b Axial) int {
	dq := a.Q - b.Q
	dr := a.R - b.R
	return maxInt(absInt(dq), maxInt(absInt(dr), absInt(dq+dr)))
}

// Level returns the ring index of a coordinate from the center (0..GridRadius).
func Level(a Axial) int { return Distance(a, Axial{0, 0}) }

// InBounds reports whether a coordinate lies inside the arena.
func InBounds(a Axial) bool { return Level(a) <= GridRadius }

// Adjacent reports whether two coordinates are exactly one tile apart.
func Adjacent(a, b Axial) bool { return Distance(a, b) == 1 }

// Neighbors returns the in-bounds neighbors of a coordinate in canonical order.
func Neighbors(a Axial) []Axial {
	out := make([]Axial, 0, 6)
	for _, d := range directions {
		n := a.Add(d)
		if InBounds(n) {
			out = append(out, n)
		}
	}
	return out
}

// Tile is a single arena hex.
type Tile struct {
	Coord    Axial    `json:"coord"`
	Level    int      `json:"level"`
	Occupant string   `json:"occupant,omitempty"` // agent ID, empty if free
	Items    []string `json:"items,omitempty"`
}

// Grid is the radius-3 arena: 37 tiles indexed by axial coordinate.
type Grid struct {
	Tiles map[Axial]*Tile `json:"tiles"`
}

// NewGrid builds an empty arena grid.
func NewGrid() *Grid {
	g := &Grid{Tiles: make(map[Axial]*Tile, 37)}
	for q := -GridRadius; q <= GridRadius; q++ {
		for r := -GridRadius; r <= GridRadius; r++ {
			c := Axial{q, r}
			if InBounds(c) {
				g.Tiles[c] = &Tile{Coord: c, Level: Level(c)}
			}
		}
	}
	return g
}

// At returns the tile at a coordinate, or nil if out of bounds.
func (g *Grid) At(c Axial) *Tile { return g.Tiles[c] }

// OccupantAt returns the agent ID occupying a coordinate, or "".
func (g *Grid) OccupantAt(c Axial) string {
	if t := g.Tiles[c]; t != nil {
		return t.Occupant
	}
	return ""
}

// Place sets an agent as the occupant of a coordinate, clearing any previous
// position held by the same agent.
func (g *Grid) Place(agentID string, c Axial) bool {
	t := g.Tiles[c]
	if t == nil || (t.Occupant != "" && t.Occupant != agentID) {
		return false
	}
	g.Remove(agentID)
	t.Occupant = agentID
	return true
}

// Remove clears an agent from whatever tile it occupies.
func (g *Grid) Remove(agentID string) {
	for _, t := range g.Tiles {
		if t.Occupant == agentID {
			t.Occupant = ""
		}
	}
}

// EmptyNeighbors returns the unoccupied in-bounds neighbors of a coordinate.
func (g *Grid) EmptyNeighbors(c Axial) []Axial {
	var out []Axial
	for _, n := range Neighbors(c) {
		if g.OccupantAt(n) == "" {
			out = append(out, n)
		}
	}
	return out
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
