package trueskill

import (
	"math/rand"
	"sort"
)

// MinBootstrapBattles is the smallest per-battle sample a confidence
// interval is computed from.
const MinBootstrapBattles = 3

// Interval is a bootstrap confidence interval around a mean mu shift.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// BootstrapCI resamples per-battle mu deltas with replacement and returns
// the central confidence interval of the resampled means. confidence is a
// fraction such as 0.95. Returns ok=false when fewer than
// MinBootstrapBattles samples exist.
func BootstrapCI(deltas []float64, iterations int, confidence float64, rng *rand.Rand) (Interval, bool) {
	if len(deltas) < MinBootstrapBattles {
		return Interval{}, false
	}
	if iterations <= 0 {
		iterations = 1000
	}
	means := make([]float64, iterations)
	for i := 0; i < iterations; i++ {
		var sum float64
		for range deltas {
			sum += deltas[rng.Intn(len(deltas))]
		}
		means[i] = sum / float64(len(deltas))
	}
	sort.Float64s(means)
	tail := (1 - confidence) / 2
	lo := int(tail * float64(iterations))
	hi := int((1 - tail) * float64(iterations))
	if hi >= iterations {
		hi = iterations - 1
	}
	return Interval{Low: means[lo], High: means[hi]}, true
}
