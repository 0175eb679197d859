package arena

import "testing"

func TestGridHas37Tiles(t *testing.T) {
	g := NewGrid()
	if len(g.Tiles) != 37 {
		t.Fatalf("expected 37 tiles, got %d", len(g.Tiles))
	}
	// Ring sizes for radius 3: 1 + 6 + 12 + 18.
	counts := make(map[int]int)
	for c := range g.Tiles {
		counts[Level(c)]++
	}
	want := map[int]int{0: 1, 1: 6, 2: 12, 3: 18}
	for lvl, n := range want {
		if counts[lvl] != n {
			t.Errorf("level %d: expected %d tiles, got %d", lvl, n, counts[lvl])
		}
	}
}

func TestDistance(t *testing.T) {
	tests := []struct {
		a, b Axial
		want int
	}{
		{Axial{0, 0}, Axial{0, 0}, 0},
		{Axial{0, 0}, Axial{1, 0}, 1},
		{Axial{0, 0}, Axial{1, -1}, 1},
		{Axial{0, 0}, Axial{3, 0}, 3},
		{Axial{0, 0}, Axial{2, -3}, 3},
		{Axial{-2, 1}, Axial{2, -1}, 4},
	}
	for _, tt := range tests {
		if got := Distance(tt.a, tt.b); got != tt.want {
			t.Errorf("Distance(%v,%v) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
		if got := Distance(tt.b, tt.a); got != tt.want {
			t.Errorf("Distance not symmetric for %v,%v", tt.a, tt.b)
		}
	}
}

func TestNeighborsCenter(t *testing.T) {
	n := Neighbors(Axial{0, 0})
	if len(n) != 6 {
		t.Fatalf("centre should have 6 neighbors, got %d", len(n))
	}
	for _, c := range n {
		if Distance(Axial{0, 0}, c) != 1 {
			t.Errorf("neighbor %v not adjacent to centre", c)
		}
	}
	// Corner tile has fewer in-bounds neighbors.
	corner := Neighbors(Axial{3, 0})
	if len(corner) >= 6 {
		t.Errorf("corner should have fewer than 6 in-bounds neighbors, got %d", len(corner))
	}
}

func TestPlaceAndMoveConflicts(t *testing.T) {
	g := NewGrid()
	if !g.Place("a1", Axial{0, 0}) {
		t.Fatal("placing on empty tile should succeed")
	}
	if g.Place("a2", Axial{0, 0}) {
		t.Fatal("placing on occupied tile should fail")
	}
	if !g.Place("a1", Axial{1, 0}) {
		t.Fatal("moving to empty tile should succeed")
	}
	if g.OccupantAt(Axial{0, 0}) != "" {
		t.Error("old tile should be vacated after move")
	}
}

func TestPhaseStormMapping(t *testing.T) {
	tests := []struct {
		phase     Phase
		safeLevel int
		safeTiles int
		combat    bool
	}{
		{PhaseLoot, 3, 37, false},
		{PhaseHunt, 2, 19, true},
		{PhaseBlood, 1, 7, true},
		{PhaseFinalStand, 0, 1, true},
	}
	g := NewGrid()
	for _, tt := range tests {
		if SafeLevel(tt.phase) != tt.safeLevel {
			t.Errorf("%s: safe level %d, want %d", tt.phase, SafeLevel(tt.phase), tt.safeLevel)
		}
		if CombatEnabled(tt.phase) != tt.combat {
			t.Errorf("%s: combat enabled = %v", tt.phase, CombatEnabled(tt.phase))
		}
		safe := 0
		for c := range g.Tiles {
			if !InStorm(c, tt.phase) {
				safe++
			}
		}
		if safe != tt.safeTiles {
			t.Errorf("%s: %d safe tiles, want %d", tt.phase, safe, tt.safeTiles)
		}
	}
}

func TestScheduleMonotone(t *testing.T) {
	for _, maxEpochs := range []int{4, 10, 20, 50} {
		s := DefaultSchedule(maxEpochs)
		rank := map[Phase]int{PhaseLoot: 0, PhaseHunt: 1, PhaseBlood: 2, PhaseFinalStand: 3}
		prev := -1
		for e := 1; e <= maxEpochs+5; e++ {
			r := rank[s.PhaseFor(e)]
			if r < prev {
				t.Fatalf("maxEpochs=%d: phase went backwards at epoch %d", maxEpochs, e)
			}
			prev = r
		}
		if s.PhaseFor(maxEpochs + 1) != PhaseFinalStand {
			t.Errorf("maxEpochs=%d: expected FINAL_STAND past the cap", maxEpochs)
		}
	}
}
