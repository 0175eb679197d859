// Package market supplies per-epoch price snapshots, either from an
// external HTTP price feed or from a seeded random-walk simulator.
package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hexclash/arena/pkg/arena"
)

// Oracle produces one market snapshot per call.
type Oracle interface {
	Snapshot(ctx context.Context) (arena.MarketData, error)
}

// HTTPOracle polls an external price feed that serves the snapshot JSON
// directly: {"prices": {...}, "changes": {...}, "timestamp": ...}.
type HTTPOracle struct {
	url   string
	httpc *http.Client
}

// NewHTTPOracle builds an oracle against the given feed URL.
func NewHTTPOracle(url string) *HTTPOracle {
	return &HTTPOracle{
		url:   url,
		httpc: &http.Client{Timeout: 10 * time.Second},
	}
}

// Snapshot fetches the current prices.
func (o *HTTPOracle) Snapshot(ctx context.Context) (arena.MarketData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, o.url, nil)
	if err != nil {
		return arena.MarketData{}, fmt.Errorf("oracle request: %w", err)
	}
	resp, err := o.httpc.Do(req)
	if err != nil {
		return arena.MarketData{}, fmt.Errorf("oracle fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return arena.MarketData{}, fmt.Errorf("oracle status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return arena.MarketData{}, fmt.Errorf("oracle read: %w", err)
	}

	var m arena.MarketData
	if err := json.Unmarshal(raw, &m); err != nil {
		return arena.MarketData{}, fmt.Errorf("oracle decode: %w", err)
	}
	for _, a := range arena.Assets {
		if _, ok := m.Prices[a]; !ok {
			return arena.MarketData{}, fmt.Errorf("oracle missing asset %s", a)
		}
	}
	return m, nil
}
