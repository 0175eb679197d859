package arena

import (
	"math/rand"
	"sort"
)

// Status is a battle lifecycle state. Status only advances forward through
// the declared sequence, except CANCELLED which is reachable from any
// pre-ACTIVE state.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusLobby       Status = "LOBBY"
	StatusCountdown   Status = "COUNTDOWN"
	StatusBettingOpen Status = "BETTING_OPEN"
	StatusActive      Status = "ACTIVE"
	StatusCompleted   Status = "COMPLETED"
	StatusCancelled   Status = "CANCELLED"
	StatusSettled     Status = "SETTLED"
)

// statusRank orders the forward lifecycle sequence.
var statusRank = map[Status]int{
	StatusPending: 0, StatusLobby: 1, StatusCountdown: 2, StatusBettingOpen: 3,
	StatusActive: 4, StatusCompleted: 5, StatusSettled: 6,
}

// CanTransition reports whether a status change is legal.
func CanTransition(from, to Status) bool {
	if to == StatusCancelled {
		return statusRank[from] < statusRank[StatusActive]
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr > fr
}

// BettingPhase gates bet acceptance.
type BettingPhase string

const (
	BettingOpen    BettingPhase = "OPEN"
	BettingLocked  BettingPhase = "LOCKED"
	BettingSettled BettingPhase = "SETTLED"
)

// SponsorEffect is the per-epoch effect of an accepted sponsorship tier.
type SponsorEffect struct {
	HPBoost     int     `json:"hp_boost"`
	AttackBoost float64 `json:"attack_boost"` // additive attack modifier, e.g. 0.10
	FreeDefend  bool    `json:"free_defend"`
}

// BattleState is the complete mutable state of one battle. It serialises to
// JSON so the coordinator can hibernate it between epoch ticks.
type BattleState struct {
	ID           string       `json:"id"`
	Status       Status       `json:"status"`
	BettingPhase BettingPhase `json:"betting_phase"`
	Epoch        int          `json:"epoch"`
	MaxEpochs    int          `json:"max_epochs"`
	Schedule     Schedule     `json:"schedule"`
	Agents       []*Agent     `json:"agents"`
	Grid         *Grid        `json:"grid"`
	WinnerID     string       `json:"winner_id,omitempty"`
	Seed         int64        `json:"seed"`
}

// NewBattleState creates a battle with the given roster classes, placing
// agents on distinct outer-ring tiles. IDs are supplied by the caller so
// persistence owns identity.
func NewBattleState(id string, ids []string, classes []Class, maxEpochs int, seed int64) *BattleState {
	rng := rand.New(rand.NewSource(seed))
	s := &BattleState{
		ID:           id,
		Status:       StatusPending,
		BettingPhase: BettingOpen,
		MaxEpochs:    maxEpochs,
		Schedule:     DefaultSchedule(maxEpochs),
		Grid:         NewGrid(),
		Seed:         seed,
	}
	taken := make(map[string]bool)
	spawns := spawnTiles(s.Grid, len(classes), rng)
	for i, class := range classes {
		a := NewAgent(ids[i], DrawName(rng, class, taken), class)
		if i < len(spawns) {
			c := spawns[i]
			a.Pos = &c
			s.Grid.Place(a.ID, c)
		}
		s.Agents = append(s.Agents, a)
	}
	s.SortAgents()
	return s
}

// spawnTiles picks n distinct outer-ring coordinates, spread by shuffling.
func spawnTiles(g *Grid, n int, rng *rand.Rand) []Axial {
	var ring []Axial
	for c := range g.Tiles {
		if Level(c) == GridRadius {
			ring = append(ring, c)
		}
	}
	sort.Slice(ring, func(i, j int) bool {
		if ring[i].Q != ring[j].Q {
			return ring[i].Q < ring[j].Q
		}
		return ring[i].R < ring[j].R
	})
	rng.Shuffle(len(ring), func(i, j int) { ring[i], ring[j] = ring[j], ring[i] })
	if n > len(ring) {
		n = len(ring)
	}
	return ring[:n]
}

// SortAgents orders the roster by ID so every pipeline iteration is
// deterministic regardless of fan-out completion order.
func (s *BattleState) SortAgents() {
	sort.Slice(s.Agents, func(i, j int) bool { return s.Agents[i].ID < s.Agents[j].ID })
}

// AgentByID returns the roster member with the given ID, or nil.
func (s *BattleState) AgentByID(id string) *Agent {
	for _, a := range s.Agents {
		if a.ID == id {
			return a
		}
	}
	return nil
}

// AgentByName returns the roster member with the given display name, or nil.
func (s *BattleState) AgentByName(name string) *Agent {
	for _, a := range s.Agents {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// AliveAgents returns the living roster members in ID order.
func (s *BattleState) AliveAgents() []*Agent {
	var out []*Agent
	for _, a := range s.Agents {
		if a.Alive {
			out = append(out, a)
		}
	}
	return out
}

// CurrentPhase returns the storm phase for the battle's current epoch.
func (s *BattleState) CurrentPhase() Phase { return s.Schedule.PhaseFor(s.Epoch) }

// Clone deep-copies the battle state. The coordinator resolves each epoch on
// a clone so a failed persist leaves the committed state untouched.
func (s *BattleState) Clone() *BattleState {
	cp := *s
	cp.Agents = make([]*Agent, len(s.Agents))
	for i, a := range s.Agents {
		ac := *a
		if a.Pos != nil {
			p := *a.Pos
			ac.Pos = &p
		}
		if a.Ally != nil {
			al := *a.Ally
			ac.Ally = &al
		}
		ac.Lessons = append([]string(nil), a.Lessons...)
		ac.Thoughts = append([]string(nil), a.Thoughts...)
		cp.Agents[i] = &ac
	}
	cp.Grid = &Grid{Tiles: make(map[Axial]*Tile, len(s.Grid.Tiles))}
	for c, t := range s.Grid.Tiles {
		tc := *t
		tc.Items = append([]string(nil), t.Items...)
		cp.Grid.Tiles[c] = &tc
	}
	return &cp
}
