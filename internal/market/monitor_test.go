package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/laurent357/Sniping-bot/internal/ratelimit"
	"github.com/laurent357/Sniping-bot/internal/types"
)

type poolRecord struct {
	PoolID    string  `json:"pool_id"`
	Token     string  `json:"token"`
	Price     float64 `json:"price"`
	Liquidity float64 `json:"liquidity"`
}

// stubVenue serves canned record sets, one per tick.
type stubVenue struct {
	mu      sync.Mutex
	batches [][][]byte
	calls   int
	err     error
}

func (v *stubVenue) Name() string { return "stub" }

func (v *stubVenue) FetchPools(_ context.Context) ([][]byte, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return nil, v.err
	}
	if v.calls >= len(v.batches) {
		return nil, nil
	}
	batch := v.batches[v.calls]
	v.calls++
	return batch, nil
}

type jsonDecoder struct{}

func (jsonDecoder) Parse(raw []byte) (*PoolSnapshot, error) {
	var rec poolRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("malformed record: %w", err)
	}
	if rec.PoolID == "" {
		return nil, errors.New("record missing pool id")
	}
	return &PoolSnapshot{
		Venue:        "stub",
		PoolID:       rec.PoolID,
		TokenA:       rec.Token,
		PriceUSD:     decimal.NewFromFloat(rec.Price),
		LiquidityUSD: decimal.NewFromFloat(rec.Liquidity),
		LastSeen:     time.Now(),
	}, nil
}

// passAnalyzer turns every changed snapshot into an opportunity.
type passAnalyzer struct{}

func (passAnalyzer) Analyze(_ context.Context, snap *PoolSnapshot) (*SnipingOpportunity, error) {
	return &SnipingOpportunity{
		TokenAddress: snap.TokenA,
		PoolID:       snap.PoolID,
		Price:        snap.PriceUSD,
		Liquidity:    snap.LiquidityUSD,
		RiskLevel:    types.RiskLow,
		Timestamp:    time.Now(),
	}, nil
}

func record(t *testing.T, id, token string, price, liquidity float64) []byte {
	t.Helper()
	raw, err := json.Marshal(poolRecord{PoolID: id, Token: token, Price: price, Liquidity: liquidity})
	require.NoError(t, err)
	return raw
}

func newTestMonitor(t *testing.T, venue *stubVenue) *Monitor {
	t.Helper()
	logger := zaptest.NewLogger(t)
	m, err := NewMonitor(&MonitorConfig{
		Venue:          venue,
		Decoder:        jsonDecoder{},
		Analyzer:       passAnalyzer{},
		Limiter:        ratelimit.New(100, time.Second, logger),
		Logger:         logger,
		UpdateInterval: 5 * time.Millisecond,
	})
	require.NoError(t, err)
	return m
}

func TestDiffFiresCallbackForNewPoolOnly(t *testing.T) {
	a := record(t, "A", "tokA", 1.0, 10000)
	venue := &stubVenue{batches: [][][]byte{
		{a},
		{a, record(t, "B", "tokB", 2.0, 20000)},
	}}
	m := newTestMonitor(t, venue)

	var mu sync.Mutex
	var seen []string
	m.AddOpportunityCallback(func(op *SnipingOpportunity) {
		mu.Lock()
		seen = append(seen, op.PoolID)
		mu.Unlock()
	})

	ctx := context.Background()
	m.tick(ctx) // observes {A}
	mu.Lock()
	firstTick := append([]string(nil), seen...)
	seen = seen[:0]
	mu.Unlock()
	assert.Equal(t, []string{"A"}, firstTick)

	m.tick(ctx) // observes {A, B}; only B is new
	mu.Lock()
	secondTick := append([]string(nil), seen...)
	mu.Unlock()
	assert.Equal(t, []string{"B"}, secondTick, "unchanged pool must not fire a callback")
}

func TestDiffDetectsPriceChange(t *testing.T) {
	venue := &stubVenue{batches: [][][]byte{
		{record(t, "A", "tokA", 1.0, 10000)},
		{record(t, "A", "tokA", 1.5, 10000)},
		{record(t, "A", "tokA", 1.5, 10000)},
	}}
	m := newTestMonitor(t, venue)

	var count int
	m.AddOpportunityCallback(func(*SnipingOpportunity) { count++ })

	ctx := context.Background()
	m.tick(ctx)
	m.tick(ctx)
	m.tick(ctx)
	assert.Equal(t, 2, count, "new pool plus one price change")
}

func TestMalformedRecordsAreSkipped(t *testing.T) {
	venue := &stubVenue{batches: [][][]byte{
		{[]byte("{not json"), []byte(`{"token":"x"}`), record(t, "A", "tokA", 1.0, 10000)},
	}}
	m := newTestMonitor(t, venue)

	var count int
	m.AddOpportunityCallback(func(*SnipingOpportunity) { count++ })

	m.tick(context.Background())
	assert.Equal(t, 1, count, "only the well-formed record produces a callback")
}

func TestFetchErrorDoesNotUpdateCache(t *testing.T) {
	venue := &stubVenue{err: errors.New("upstream down")}
	m := newTestMonitor(t, venue)

	m.tick(context.Background())
	assert.Empty(t, m.Snapshots())
}

func TestCallbackPanicIsRecovered(t *testing.T) {
	venue := &stubVenue{batches: [][][]byte{
		{record(t, "A", "tokA", 1.0, 10000)},
		{record(t, "B", "tokB", 1.0, 10000)},
	}}
	m := newTestMonitor(t, venue)

	var afterPanic int
	m.AddOpportunityCallback(func(*SnipingOpportunity) { panic("boom") })
	m.AddOpportunityCallback(func(*SnipingOpportunity) { afterPanic++ })

	ctx := context.Background()
	m.tick(ctx)
	m.tick(ctx)
	assert.Equal(t, 2, afterPanic, "later callbacks still run after a panic")
}

func TestHistoryRecordedOnChange(t *testing.T) {
	venue := &stubVenue{batches: [][][]byte{
		{record(t, "A", "tokA", 1.0, 10000)},
		{record(t, "A", "tokA", 1.1, 10000)},
	}}
	m := newTestMonitor(t, venue)

	ctx := context.Background()
	m.tick(ctx)
	m.tick(ctx)
	assert.Equal(t, 2, m.History().Len("tokA"))
}

func TestStartStopLifecycle(t *testing.T) {
	venue := &stubVenue{}
	m := newTestMonitor(t, venue)

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.IsRunning())
	assert.Error(t, m.Start(context.Background()), "double start must fail")

	m.Stop()
	assert.False(t, m.IsRunning())
	m.Stop() // idempotent
}

func TestStatsReflectCache(t *testing.T) {
	venue := &stubVenue{batches: [][][]byte{
		{record(t, "A", "tokA", 1.0, 10000), record(t, "B", "tokB", 2.0, 5000)},
	}}
	m := newTestMonitor(t, venue)

	m.tick(context.Background())
	stats := m.Stats()
	assert.Equal(t, "stub", stats.Venue)
	assert.Equal(t, 2, stats.MonitoredPools)
	assert.False(t, stats.LastTick.IsZero())
}
