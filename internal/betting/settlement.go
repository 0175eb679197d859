package betting

import (
	"math"
	"sort"

	"github.com/hexclash/arena/internal/model"
)

// Pari-mutuel splits of the total pool.
const (
	winnersShare   = 0.85
	treasuryShare  = 0.05
	burnShare      = 0.05
	jackpotShare   = 0.03
	topBettorShare = 0.02
)

// Settlement is the outcome of settling one battle's pool.
type Settlement struct {
	TotalPool   float64            `json:"totalPool"`
	Payouts     map[string]float64 `json:"payouts"` // bet ID -> payout
	TopBettor   string             `json:"topBettor,omitempty"`
	Treasury    float64            `json:"treasury"`
	Burn        float64            `json:"burn"`
	NextJackpot float64            `json:"nextJackpot"`
}

// Settle divides the pool for a decided battle. Winning bets split the
// winners pool (85% of the pot plus the carried jackpot) pro rata; the
// single largest winning bettor takes a 2% bonus, ties broken by earliest
// bet. When nobody backed the winner, the winners pool and bonus roll into
// the next battle's jackpot.
func Settle(bets []model.Bet, winnerID string, carriedJackpot float64) Settlement {
	var totalPool, winningStake float64
	for _, b := range bets {
		totalPool += b.Amount
		if b.AgentID == winnerID {
			winningStake += b.Amount
		}
	}

	out := Settlement{
		TotalPool:   totalPool,
		Payouts:     make(map[string]float64, len(bets)),
		Treasury:    totalPool * treasuryShare,
		Burn:        totalPool * burnShare,
		NextJackpot: totalPool * jackpotShare,
	}
	for _, b := range bets {
		out.Payouts[b.ID] = 0
	}

	winnersPool := totalPool*winnersShare + carriedJackpot
	topCut := totalPool * topBettorShare

	if winningStake == 0 {
		out.NextJackpot += winnersPool + topCut
		return out
	}

	for _, b := range bets {
		if b.AgentID != winnerID {
			continue
		}
		out.Payouts[b.ID] = floor2(winnersPool * b.Amount / winningStake)
	}

	top := topBettorBet(bets, winnerID)
	if top != nil {
		out.TopBettor = top.Bettor
		out.Payouts[top.ID] += topCut
	}
	return out
}

// topBettorBet finds the earliest bet of the winning bettor with the
// largest total stake on the winner.
func topBettorBet(bets []model.Bet, winnerID string) *model.Bet {
	totals := make(map[string]float64)
	for _, b := range bets {
		if b.AgentID == winnerID {
			totals[b.Bettor] += b.Amount
		}
	}
	if len(totals) == 0 {
		return nil
	}

	// Earliest bet per bettor decides ties, so scan in placement order.
	ordered := make([]model.Bet, len(bets))
	copy(ordered, bets)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].PlacedAt.Before(ordered[j].PlacedAt) })

	var best *model.Bet
	var bestTotal float64
	seen := make(map[string]bool)
	for i := range ordered {
		b := &ordered[i]
		if b.AgentID != winnerID || seen[b.Bettor] {
			continue
		}
		seen[b.Bettor] = true
		if total := totals[b.Bettor]; best == nil || total > bestTotal {
			best, bestTotal = b, total
		}
	}
	return best
}

func floor2(x float64) float64 {
	return math.Floor(x*100+1e-9) / 100
}
