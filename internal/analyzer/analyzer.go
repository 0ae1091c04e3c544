// internal/analyzer/analyzer.go
package analyzer

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/types"
)

// QuoteResult is the venue's answer to a fixed-size probe swap.
type QuoteResult struct {
	PriceImpactPct decimal.Decimal
	OutAmount      uint64
}

// Quoter fetches a price-impact quote from a venue.
type Quoter interface {
	Quote(ctx context.Context, inputMint, outputMint string, amountLamports uint64) (*QuoteResult, error)
}

// Config holds the scoring thresholds. Monetary thresholds are decimals so
// profit and threshold comparisons never drift.
type Config struct {
	MinLiquidityUSD    decimal.Decimal
	MinVolume24hUSD    decimal.Decimal
	MaxPriceImpactPct  decimal.Decimal
	MinProfitThreshold decimal.Decimal
	ProbeLamports      uint64 // probe size for the impact quote
}

// DefaultProbeLamports is 1 SOL.
const DefaultProbeLamports = 1_000_000_000

var (
	two        = decimal.NewFromInt(2)
	five       = decimal.NewFromInt(5)
	hundred    = decimal.NewFromInt(100)
	baseProfit = decimal.NewFromInt(3) // base expected profit, percent
	half       = decimal.RequireFromString("0.5")
)

// Analyzer scores changed pool snapshots into sniping opportunities.
type Analyzer struct {
	cfg     Config
	quoter  Quoter
	history *market.PriceHistory
	logger  *zap.Logger
}

func New(cfg Config, quoter Quoter, history *market.PriceHistory, logger *zap.Logger) (*Analyzer, error) {
	if quoter == nil {
		return nil, fmt.Errorf("quoter cannot be nil")
	}
	if history == nil {
		return nil, fmt.Errorf("price history cannot be nil")
	}
	if cfg.ProbeLamports == 0 {
		cfg.ProbeLamports = DefaultProbeLamports
	}
	return &Analyzer{
		cfg:     cfg,
		quoter:  quoter,
		history: history,
		logger:  logger.Named("analyzer"),
	}, nil
}

// Analyze scores a snapshot. It returns nil without error when the snapshot
// does not qualify; an error only signals an upstream quote failure.
func (a *Analyzer) Analyze(ctx context.Context, snap *market.PoolSnapshot) (*market.SnipingOpportunity, error) {
	if snap.LiquidityUSD.LessThan(a.cfg.MinLiquidityUSD) {
		return nil, nil
	}
	if snap.Volume24hUSD.LessThan(a.cfg.MinVolume24hUSD) {
		return nil, nil
	}

	priceChange1h := a.priceChange1h(snap)

	quote, err := a.quoter.Quote(ctx, snap.TokenB, snap.TokenA, a.cfg.ProbeLamports)
	if err != nil {
		return nil, fmt.Errorf("price impact quote for pool %s: %w", snap.PoolID, err)
	}
	if quote.PriceImpactPct.GreaterThan(a.cfg.MaxPriceImpactPct) {
		a.logger.Debug("Rejected on price impact",
			zap.String("pool_id", snap.PoolID),
			zap.String("price_impact", quote.PriceImpactPct.String()))
		return nil, nil
	}

	profit := EstimateProfit(snap.Volume24hUSD, snap.LiquidityUSD, quote.PriceImpactPct)
	if profit.LessThanOrEqual(a.cfg.MinProfitThreshold) {
		return nil, nil
	}

	risk := RiskLevel(quote.PriceImpactPct, snap.LiquidityUSD, snap.Volume24hUSD,
		a.cfg.MinLiquidityUSD, a.cfg.MinVolume24hUSD)

	return &market.SnipingOpportunity{
		TokenAddress:    snap.TokenA,
		PoolID:          snap.PoolID,
		Price:           snap.PriceUSD,
		Liquidity:       snap.LiquidityUSD,
		Volume24h:       snap.Volume24hUSD,
		PriceChange1h:   priceChange1h,
		EstimatedProfit: profit,
		RiskLevel:       risk,
		Timestamp:       time.Now(),
	}, nil
}

// priceChange1h returns the percentage change against the earliest sample in
// the trailing hour, or zero when no sample exists.
func (a *Analyzer) priceChange1h(snap *market.PoolSnapshot) decimal.Decimal {
	old, ok := a.history.OldestWithin(snap.TokenA, time.Hour)
	if !ok || old.IsZero() {
		return decimal.Zero
	}
	return snap.PriceUSD.Sub(old).Div(old).Mul(hundred)
}

// EstimateProfit computes the expected profit percentage:
// 3 * volumeScore * impactScore, each score clamped to [0,1], so the result
// always lies in [0,3].
func EstimateProfit(volume24h, liquidity, priceImpact decimal.Decimal) decimal.Decimal {
	volumeScore := decimal.Zero
	if liquidity.IsPositive() {
		volumeScore = clamp01(volume24h.Div(liquidity.Mul(two)))
	}
	impactScore := clamp01(hundred.Sub(priceImpact).Div(hundred))
	return baseProfit.Mul(volumeScore).Mul(impactScore)
}

// RiskLevel accumulates a 0-6 point score: price impact above 1%/0.5% adds
// 2/1, liquidity below 2x/5x the minimum adds 2/1, volume below 2x/5x the
// minimum adds 2/1. Scores of 4 and above (6 included) are HIGH, 2 and above
// MEDIUM, otherwise LOW.
func RiskLevel(priceImpact, liquidity, volume24h, minLiquidity, minVolume decimal.Decimal) types.RiskLevel {
	score := 0

	switch {
	case priceImpact.GreaterThan(decimal.NewFromInt(1)):
		score += 2
	case priceImpact.GreaterThan(half):
		score++
	}

	switch {
	case liquidity.LessThan(minLiquidity.Mul(two)):
		score += 2
	case liquidity.LessThan(minLiquidity.Mul(five)):
		score++
	}

	switch {
	case volume24h.LessThan(minVolume.Mul(two)):
		score += 2
	case volume24h.LessThan(minVolume.Mul(five)):
		score++
	}

	switch {
	case score >= 4:
		return types.RiskHigh
	case score >= 2:
		return types.RiskMedium
	default:
		return types.RiskLow
	}
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	if d.GreaterThan(decimal.NewFromInt(1)) {
		return decimal.NewFromInt(1)
	}
	return d
}
