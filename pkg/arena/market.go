package arena

// Asset is a tradable asset agents can stake predictions on.
type Asset string

const (
	AssetETH Asset = "ETH"
	AssetBTC Asset = "BTC"
	AssetSOL Asset = "SOL"
	AssetMON Asset = "MON"
)

// Assets lists every asset in canonical order.
var Assets = []Asset{AssetETH, AssetBTC, AssetSOL, AssetMON}

// ValidAsset reports whether a string names a known asset.
func ValidAsset(a Asset) bool {
	switch a {
	case AssetETH, AssetBTC, AssetSOL, AssetMON:
		return true
	}
	return false
}

// MarketData is a point-in-time snapshot of asset prices and the percentage
// change of each since the previous snapshot.
type MarketData struct {
	Prices    map[Asset]float64 `json:"prices"`
	Changes   map[Asset]float64 `json:"changes"`
	Timestamp int64             `json:"timestamp"`
}

// FlatMarket returns a snapshot with zero change for every asset. Used when
// the oracle is unavailable: predictions resolve flat, nobody gains or loses.
func FlatMarket(ts int64) MarketData {
	m := MarketData{
		Prices:    make(map[Asset]float64, len(Assets)),
		Changes:   make(map[Asset]float64, len(Assets)),
		Timestamp: ts,
	}
	for _, a := range Assets {
		m.Changes[a] = 0
	}
	return m
}
