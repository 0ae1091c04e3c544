// internal/market/snapshot.go
package market

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/laurent357/Sniping-bot/internal/types"
)

// PoolSnapshot is one venue's view of a liquidity pool at a point in time.
// Snapshots are owned by the monitor that produced them and replaced
// wholesale on every tick; they are keyed uniquely per venue and pool id.
type PoolSnapshot struct {
	Venue        string
	PoolID       string
	TokenA       string // tracked token mint
	TokenB       string // quote token mint
	PriceUSD     decimal.Decimal
	LiquidityUSD decimal.Decimal
	Volume24hUSD decimal.Decimal
	LastSeen     time.Time
}

// Key returns the cache key for the snapshot within its monitor.
func (s *PoolSnapshot) Key() string {
	return s.PoolID
}

// changedFrom reports whether the snapshot differs from prev on the mutable
// fields the diff tracks (price and liquidity).
func (s *PoolSnapshot) changedFrom(prev *PoolSnapshot) bool {
	if prev == nil {
		return true
	}
	return !s.PriceUSD.Equal(prev.PriceUSD) || !s.LiquidityUSD.Equal(prev.LiquidityUSD)
}

// SnipingOpportunity is a scored, timestamped candidate trade derived from a
// single pool observation. Immutable once created.
type SnipingOpportunity struct {
	TokenAddress    string          `json:"token_address"`
	PoolID          string          `json:"pool_id"`
	Price           decimal.Decimal `json:"price"`
	Liquidity       decimal.Decimal `json:"liquidity"`
	Volume24h       decimal.Decimal `json:"volume_24h"`
	PriceChange1h   decimal.Decimal `json:"price_change_1h"`
	EstimatedProfit decimal.Decimal `json:"estimated_profit"`
	RiskLevel       types.RiskLevel `json:"risk_level"`
	Timestamp       time.Time       `json:"timestamp"`
}
