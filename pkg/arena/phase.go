package arena

// Phase is the storm phase of the battle. The safe zone shrinks as the
// battle progresses; combat is disabled during the opening LOOT phase.
type Phase string

const (
	PhaseLoot       Phase = "LOOT"
	PhaseHunt       Phase = "HUNT"
	PhaseBlood      Phase = "BLOOD"
	PhaseFinalStand Phase = "FINAL_STAND"
)

// Schedule maps epoch numbers to phases. Boundaries are epoch numbers at
// which the next phase begins; they must be non-decreasing.
type Schedule struct {
	HuntAt  int `json:"hunt_at"`
	BloodAt int `json:"blood_at"`
	FinalAt int `json:"final_at"`
}

// DefaultSchedule derives phase boundaries from the epoch cap:
// LOOT for the first quarter, HUNT to the halfway mark, BLOOD to 80%,
// FINAL_STAND after that. Boundaries are clamped so short battles still
// pass through every phase in order.
func DefaultSchedule(maxEpochs int) Schedule {
	s := Schedule{
		HuntAt:  maxEpochs / 4,
		BloodAt: maxEpochs / 2,
		FinalAt: maxEpochs * 4 / 5,
	}
	if s.HuntAt < 1 {
		s.HuntAt = 1
	}
	if s.BloodAt <= s.HuntAt {
		s.BloodAt = s.HuntAt + 1
	}
	if s.FinalAt <= s.BloodAt {
		s.FinalAt = s.BloodAt + 1
	}
	return s
}

// PhaseFor returns the phase for an epoch number (1-based).
func (s Schedule) PhaseFor(epoch int) Phase {
	switch {
	case epoch >= s.FinalAt:
		return PhaseFinalStand
	case epoch >= s.BloodAt:
		return PhaseBlood
	case epoch >= s.HuntAt:
		return PhaseHunt
	default:
		return PhaseLoot
	}
}

// EpochsRemaining returns how many epochs remain before the next phase
// begins, or -1 during FINAL_STAND.
func (s Schedule) EpochsRemaining(epoch int) int {
	switch s.PhaseFor(epoch) {
	case PhaseLoot:
		return s.HuntAt - epoch
	case PhaseHunt:
		return s.BloodAt - epoch
	case PhaseBlood:
		return s.FinalAt - epoch
	default:
		return -1
	}
}

// SafeLevel returns the maximum tile level that is outside the storm.
func SafeLevel(p Phase) int {
	switch p {
	case PhaseLoot:
		return 3
	case PhaseHunt:
		return 2
	case PhaseBlood:
		return 1
	default:
		return 0
	}
}

// CombatEnabled reports whether combat actions resolve during a phase.
func CombatEnabled(p Phase) bool { return p != PhaseLoot }

// InStorm reports whether a coordinate is inside the storm for a phase.
func InStorm(c Axial, p Phase) bool { return Level(c) > SafeLevel(p) }
