package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/hexclash/arena/pkg/arena"
)

// Base prices for the simulated walk.
var basePrices = map[arena.Asset]float64{
	arena.AssetETH: 3200.0,
	arena.AssetBTC: 64000.0,
	arena.AssetSOL: 145.0,
	arena.AssetMON: 2.4,
}

// Per-step volatility: MON swings harder than the majors.
const (
	simVolatility = 0.04
	monVolatility = 0.08
	upwardBias    = 0.002
)

// SimOracle is a seeded random-walk price feed. The same seed yields the
// same sequence of snapshots, which keeps replays deterministic.
type SimOracle struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[arena.Asset]float64
	now    func() time.Time
}

// NewSimOracle builds a simulator from a seed.
func NewSimOracle(seed int64) *SimOracle {
	prices := make(map[arena.Asset]float64, len(basePrices))
	for a, p := range basePrices {
		prices[a] = p
	}
	return &SimOracle{
		rng:    rand.New(rand.NewSource(seed)),
		prices: prices,
		now:    time.Now,
	}
}

// Snapshot advances the walk one step and returns the new prices.
func (o *SimOracle) Snapshot(_ context.Context) (arena.MarketData, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	m := arena.MarketData{
		Prices:    make(map[arena.Asset]float64, len(o.prices)),
		Changes:   make(map[arena.Asset]float64, len(o.prices)),
		Timestamp: o.now().Unix(),
	}
	// Canonical asset order keeps the rng draw sequence stable.
	for _, a := range arena.Assets {
		vol := simVolatility
		if a == arena.AssetMON {
			vol = monVolatility
		}
		change := (o.rng.Float64()*2-1)*vol + upwardBias
		o.prices[a] *= 1 + change
		m.Prices[a] = o.prices[a]
		m.Changes[a] = change * 100
	}
	return m, nil
}
