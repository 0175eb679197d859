package arena

import (
	"encoding/json"
	"testing"
)

func TestBattleStateJSONRoundTrip(t *testing.T) {
	ids := []string{"a1", "a2", "a3", "a4", "a5"}
	s := NewBattleState("b1", ids, Classes, 20, 7)
	s.Epoch = 3
	s.Agents[0].HP = 310
	s.Grid.At(Axial{0, 0}).Items = append(s.Grid.At(Axial{0, 0}).Items, "SUPPLY_CACHE")

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal battle state: %v", err)
	}

	var back BattleState
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal battle state: %v", err)
	}
	if len(back.Grid.Tiles) != 37 {
		t.Fatalf("grid lost tiles: %d", len(back.Grid.Tiles))
	}
	if back.Epoch != 3 || len(back.Agents) != 5 {
		t.Errorf("state fields lost: epoch=%d agents=%d", back.Epoch, len(back.Agents))
	}
	for i, a := range s.Agents {
		b := back.Agents[i]
		if b.ID != a.ID || b.HP != a.HP {
			t.Errorf("agent %s: got %s/%d", a.ID, b.ID, b.HP)
		}
		if a.Pos != nil {
			if b.Pos == nil || *b.Pos != *a.Pos {
				t.Errorf("agent %s position lost: %v vs %v", a.ID, b.Pos, a.Pos)
			}
			if occ := back.Grid.OccupantAt(*a.Pos); occ != a.ID {
				t.Errorf("occupant at %v = %q, want %s", *a.Pos, occ, a.ID)
			}
		}
	}
	if items := back.Grid.At(Axial{0, 0}).Items; len(items) != 1 || items[0] != "SUPPLY_CACHE" {
		t.Errorf("tile items lost: %v", items)
	}
}

func TestAxialTextEncoding(t *testing.T) {
	tests := []Axial{{0, 0}, {1, -3}, {-2, 2}}
	for _, c := range tests {
		b, err := c.MarshalText()
		if err != nil {
			t.Fatalf("marshal %v: %v", c, err)
		}
		var back Axial
		if err := back.UnmarshalText(b); err != nil {
			t.Fatalf("unmarshal %q: %v", b, err)
		}
		if back != c {
			t.Errorf("round trip %v -> %q -> %v", c, b, back)
		}
	}

	var bad Axial
	if err := bad.UnmarshalText([]byte("nonsense")); err == nil {
		t.Error("malformed coordinate must not parse")
	}

	// Object form still decodes; models reply with {"q":..,"r":..}.
	var d Decision
	if err := json.Unmarshal([]byte(`{"prediction":{"asset":"ETH","direction":"UP","stake_percent":10},"move":{"q":1,"r":-1}}`), &d); err != nil {
		t.Fatalf("object-form move: %v", err)
	}
	if d.Move == nil || *d.Move != (Axial{1, -1}) {
		t.Errorf("move = %v", d.Move)
	}
}
