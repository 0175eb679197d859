// Package betting implements the spectator wager pool: bet acceptance,
// live odds, and pari-mutuel settlement with a carry-forward jackpot.
package betting

import (
	"math"
	"sort"

	"github.com/hexclash/arena/internal/model"
	"github.com/hexclash/arena/pkg/arena"
)

const (
	minProbability = 0.02
	maxProbability = 0.95

	// imputedWinRate stands in for agents with no battle history.
	imputedWinRate = 0.5
)

// AgentOdds is one agent's live market line.
type AgentOdds struct {
	AgentID     string  `json:"agentId"`
	Probability float64 `json:"probability"`
	Decimal     float64 `json:"decimal"`
}

// ComputeOdds prices every alive agent from three signals: HP share,
// inverse pool share (the crowd's money makes an agent cheaper), and
// historical win rate. Probabilities are normalised and clamped, then
// inverted into decimal odds.
func ComputeOdds(s *arena.BattleState, bets []model.Bet, winRates map[string]float64) []AgentOdds {
	alive := s.AliveAgents()
	if len(alive) == 0 {
		return nil
	}

	totalHP := 0
	for _, a := range alive {
		totalHP += a.HP
	}
	totalPool := 0.0
	poolByAgent := make(map[string]float64)
	for _, b := range bets {
		totalPool += b.Amount
		poolByAgent[b.AgentID] += b.Amount
	}

	raw := make(map[string]float64, len(alive))
	var sum float64
	for _, a := range alive {
		hpShare := 0.0
		if totalHP > 0 {
			hpShare = float64(a.HP) / float64(totalHP)
		}
		poolShare := 0.0
		if totalPool > 0 {
			poolShare = poolByAgent[a.ID] / totalPool
		}
		winRate, ok := winRates[a.ID]
		if !ok {
			winRate = imputedWinRate
		}
		p := 0.4*hpShare + 0.3*(1-poolShare) + 0.3*winRate
		raw[a.ID] = p
		sum += p
	}

	out := make([]AgentOdds, 0, len(alive))
	for _, a := range alive {
		p := raw[a.ID]
		if sum > 0 {
			p /= sum
		}
		p = math.Min(math.Max(p, minProbability), maxProbability)
		out = append(out, AgentOdds{
			AgentID:     a.ID,
			Probability: p,
			Decimal:     math.Round(100/p) / 100,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}
