package analyzer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/types"
)

type stubQuoter struct {
	impact decimal.Decimal
	err    error
	calls  int
}

func (q *stubQuoter) Quote(_ context.Context, _, _ string, _ uint64) (*QuoteResult, error) {
	q.calls++
	if q.err != nil {
		return nil, q.err
	}
	return &QuoteResult{PriceImpactPct: q.impact}, nil
}

func testConfig() Config {
	return Config{
		MinLiquidityUSD:    decimal.NewFromInt(1000),
		MinVolume24hUSD:    decimal.NewFromInt(5000),
		MaxPriceImpactPct:  decimal.NewFromInt(2),
		MinProfitThreshold: decimal.RequireFromString("0.5"),
	}
}

func newTestAnalyzer(t *testing.T, quoter Quoter) (*Analyzer, *market.PriceHistory) {
	t.Helper()
	history := market.NewPriceHistory(24 * time.Hour)
	a, err := New(testConfig(), quoter, history, zaptest.NewLogger(t))
	require.NoError(t, err)
	return a, history
}

func snapshot(price, liquidity, volume float64) *market.PoolSnapshot {
	return &market.PoolSnapshot{
		Venue:        "jupiter",
		PoolID:       "pool1",
		TokenA:       "TokenMint1111111111111111111111111111111111",
		TokenB:       "So11111111111111111111111111111111111111112",
		PriceUSD:     decimal.NewFromFloat(price),
		LiquidityUSD: decimal.NewFromFloat(liquidity),
		Volume24hUSD: decimal.NewFromFloat(volume),
		LastSeen:     time.Now(),
	}
}

func TestAnalyzeAcceptsQualifyingPool(t *testing.T) {
	quoter := &stubQuoter{impact: decimal.RequireFromString("0.2")}
	a, _ := newTestAnalyzer(t, quoter)

	op, err := a.Analyze(context.Background(), snapshot(1.5, 20000, 30000))
	require.NoError(t, err)
	require.NotNil(t, op)

	assert.Equal(t, "pool1", op.PoolID)
	// volumeScore = min(30000/40000, 1) = 0.75; impactScore = 0.998
	expected := decimal.RequireFromString("3").
		Mul(decimal.RequireFromString("0.75")).
		Mul(decimal.RequireFromString("0.998"))
	assert.True(t, op.EstimatedProfit.Equal(expected),
		"estimated profit %s, want %s", op.EstimatedProfit, expected)
}

func TestAnalyzeRejectsThinPools(t *testing.T) {
	quoter := &stubQuoter{impact: decimal.RequireFromString("0.1")}
	a, _ := newTestAnalyzer(t, quoter)

	tests := []struct {
		name      string
		liquidity float64
		volume    float64
	}{
		{"liquidity below minimum", 999, 30000},
		{"volume below minimum", 20000, 4999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op, err := a.Analyze(context.Background(), snapshot(1.0, tt.liquidity, tt.volume))
			require.NoError(t, err)
			assert.Nil(t, op)
		})
	}
	assert.Zero(t, quoter.calls, "threshold rejections must not spend a quote")
}

func TestAnalyzeRejectsOnPriceImpact(t *testing.T) {
	quoter := &stubQuoter{impact: decimal.RequireFromString("2.5")}
	a, _ := newTestAnalyzer(t, quoter)

	op, err := a.Analyze(context.Background(), snapshot(1.0, 20000, 30000))
	require.NoError(t, err)
	assert.Nil(t, op)
}

func TestAnalyzeSurfacesQuoteFailure(t *testing.T) {
	quoter := &stubQuoter{err: errors.New("jupiter unavailable")}
	a, _ := newTestAnalyzer(t, quoter)

	_, err := a.Analyze(context.Background(), snapshot(1.0, 20000, 30000))
	assert.Error(t, err)
}

func TestPriceChange1hFromHistory(t *testing.T) {
	quoter := &stubQuoter{impact: decimal.RequireFromString("0.1")}
	a, history := newTestAnalyzer(t, quoter)

	snap := snapshot(1.2, 20000, 30000)
	history.Record(snap.TokenA, decimal.NewFromInt(1), time.Now().Add(-30*time.Minute))

	op, err := a.Analyze(context.Background(), snap)
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.True(t, op.PriceChange1h.Equal(decimal.NewFromInt(20)),
		"price change %s, want 20", op.PriceChange1h)
}

func TestPriceChange1hZeroWithoutSamples(t *testing.T) {
	quoter := &stubQuoter{impact: decimal.RequireFromString("0.1")}
	a, _ := newTestAnalyzer(t, quoter)

	op, err := a.Analyze(context.Background(), snapshot(1.2, 20000, 30000))
	require.NoError(t, err)
	require.NotNil(t, op)
	assert.True(t, op.PriceChange1h.IsZero())
}

func TestEstimateProfitBounds(t *testing.T) {
	tests := []struct {
		name                      string
		volume, liquidity, impact string
	}{
		{"huge volume", "100000000", "1000", "0"},
		{"zero liquidity", "5000", "0", "0.5"},
		{"impact above 100", "10000", "1000", "150"},
		{"typical", "30000", "20000", "0.3"},
		{"zero volume", "0", "1000", "0"},
	}

	zero := decimal.Zero
	three := decimal.NewFromInt(3)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			profit := EstimateProfit(
				decimal.RequireFromString(tt.volume),
				decimal.RequireFromString(tt.liquidity),
				decimal.RequireFromString(tt.impact),
			)
			assert.True(t, profit.GreaterThanOrEqual(zero), "profit %s below 0", profit)
			assert.True(t, profit.LessThanOrEqual(three), "profit %s above 3", profit)
		})
	}
}

func TestRiskLevelScoring(t *testing.T) {
	minLiq := decimal.NewFromInt(1000)
	minVol := decimal.NewFromInt(5000)

	tests := []struct {
		name      string
		impact    string
		liquidity string
		volume    string
		want      types.RiskLevel
	}{
		// impact 1.5 > 1 (+2), liquidity 1.5x < 2x (+2), volume 1.5x < 2x (+2): score 6
		{"max score is HIGH", "1.5", "1500", "7500", types.RiskHigh},
		// +2 impact, +1 liquidity (3x), +1 volume (3x): score 4
		{"score four is HIGH", "1.5", "3000", "15000", types.RiskHigh},
		// +1 impact (0.7), +1 liquidity (4x): score 2... volume 10x adds 0
		{"score two is MEDIUM", "0.7", "4000", "50000", types.RiskMedium},
		// all comfortable: score 0
		{"score zero is LOW", "0.1", "10000", "50000", types.RiskLow},
		// boundary: exactly 2x liquidity scores +1 (less-than 5x), not +2
		{"exact 2x liquidity", "0.1", "2000", "50000", types.RiskLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RiskLevel(
				decimal.RequireFromString(tt.impact),
				decimal.RequireFromString(tt.liquidity),
				decimal.RequireFromString(tt.volume),
				minLiq, minVol,
			)
			assert.Equal(t, tt.want, got)
		})
	}
}
