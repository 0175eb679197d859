// Package trueskill implements a free-for-all TrueSkill rating update as a
// pairwise decomposition of the final placement order. Each player's rating
// is a Gaussian (mu, sigma); matches shift mu toward the observed outcome and
// shrink sigma as evidence accumulates.
package trueskill

import "math"

const (
	InitialMu    = 25.0
	InitialSigma = 8.333
	Beta         = 4.167
	Tau          = 0.0833
)

// Rating is one Gaussian skill estimate.
type Rating struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
}

// Default returns the prior assigned to an unrated player.
func Default() Rating { return Rating{Mu: InitialMu, Sigma: InitialSigma} }

// Conservative is the leaderboard rating: mu minus three standard
// deviations, so an uncertain player ranks low until proven.
func (r Rating) Conservative() float64 { return r.Mu - 3*r.Sigma }

// Update takes ratings in placement order (index 0 won) and returns the
// post-battle ratings in the same order. The free-for-all result is
// decomposed into every win/loss pair and each pairwise shift is scaled by
// 1/(n-1) so a player is not over-corrected for a single battle.
func Update(placed []Rating) []Rating {
	n := len(placed)
	out := make([]Rating, n)
	copy(out, placed)
	if n < 2 {
		return out
	}

	// Dynamics noise keeps sigma from collapsing to zero over a career.
	pre := make([]Rating, n)
	for i, r := range placed {
		pre[i] = Rating{Mu: r.Mu, Sigma: math.Sqrt(r.Sigma*r.Sigma + Tau*Tau)}
		out[i] = pre[i]
	}

	scale := 1.0 / float64(n-1)
	muDelta := make([]float64, n)
	sigmaScale := make([]float64, n)
	for i := range sigmaScale {
		sigmaScale[i] = 1.0
	}

	for wi := 0; wi < n; wi++ {
		for li := wi + 1; li < n; li++ {
			w, l := pre[wi], pre[li]
			c2 := 2*Beta*Beta + w.Sigma*w.Sigma + l.Sigma*l.Sigma
			c := math.Sqrt(c2)
			t := (w.Mu - l.Mu) / c
			v := vWin(t)
			g := v * (v + t)

			muDelta[wi] += scale * (w.Sigma * w.Sigma / c) * v
			muDelta[li] -= scale * (l.Sigma * l.Sigma / c) * v
			sigmaScale[wi] *= 1 - scale*(w.Sigma*w.Sigma/c2)*g
			sigmaScale[li] *= 1 - scale*(l.Sigma*l.Sigma/c2)*g
		}
	}

	for i := range out {
		out[i].Mu += muDelta[i]
		out[i].Sigma *= math.Sqrt(math.Max(sigmaScale[i], 1e-6))
	}
	return out
}

// Composite folds the three per-category ratings into the headline rating.
// Variances combine with squared weights, treating categories as independent.
func Composite(prediction, combat, survival Rating) Rating {
	mu := 0.3*prediction.Mu + 0.3*combat.Mu + 0.4*survival.Mu
	variance := 0.09*prediction.Sigma*prediction.Sigma +
		0.09*combat.Sigma*combat.Sigma +
		0.16*survival.Sigma*survival.Sigma
	return Rating{Mu: mu, Sigma: math.Sqrt(variance)}
}

// vWin is the additive truncated-Gaussian correction for a win, pdf/cdf of
// the performance gap. Falls back to the asymptote when the cdf underflows.
func vWin(t float64) float64 {
	denom := normCDF(t)
	if denom < 1e-10 {
		return -t
	}
	return normPDF(t) / denom
}

func normPDF(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

func normCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
