// internal/market/monitor.go
package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/ratelimit"
)

// Venue fetches the current raw pool records from one market venue.
type Venue interface {
	Name() string
	FetchPools(ctx context.Context) ([][]byte, error)
}

// Decoder maps a venue's native record bytes to the common snapshot shape.
// A malformed or short record returns an error and is skipped by the monitor.
type Decoder interface {
	Parse(raw []byte) (*PoolSnapshot, error)
}

// Analyzer scores a changed snapshot into an opportunity, or nil when the
// snapshot does not qualify.
type Analyzer interface {
	Analyze(ctx context.Context, snap *PoolSnapshot) (*SnipingOpportunity, error)
}

// OpportunityCallback receives each detected opportunity. Callbacks must not
// block the monitor loop for long; a panic inside a callback is recovered
// and logged.
type OpportunityCallback func(op *SnipingOpportunity)

// MonitorConfig configures a Monitor.
type MonitorConfig struct {
	Venue          Venue
	Decoder        Decoder
	Analyzer       Analyzer
	Limiter        *ratelimit.Limiter
	History        *PriceHistory
	Logger         *zap.Logger
	UpdateInterval time.Duration
}

// Monitor polls one venue, diffs snapshots against its cache, and fires
// opportunity callbacks for changed pools. The pool cache and price history
// have the monitor loop as their single writer.
type Monitor struct {
	venue    Venue
	decoder  Decoder
	analyzer Analyzer
	limiter  *ratelimit.Limiter
	history  *PriceHistory
	logger   *zap.Logger
	interval time.Duration

	mu        sync.RWMutex
	pools     map[string]*PoolSnapshot
	callbacks []OpportunityCallback
	running   bool
	cancel    context.CancelFunc
	done      chan struct{}
	lastTick  time.Time
}

func NewMonitor(cfg *MonitorConfig) (*Monitor, error) {
	if cfg.Venue == nil {
		return nil, fmt.Errorf("venue cannot be nil")
	}
	if cfg.Decoder == nil {
		return nil, fmt.Errorf("decoder cannot be nil")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter cannot be nil")
	}
	if cfg.UpdateInterval <= 0 {
		return nil, fmt.Errorf("update interval must be positive")
	}

	history := cfg.History
	if history == nil {
		history = NewPriceHistory(24 * time.Hour)
	}

	return &Monitor{
		venue:    cfg.Venue,
		decoder:  cfg.Decoder,
		analyzer: cfg.Analyzer,
		limiter:  cfg.Limiter,
		history:  history,
		logger:   cfg.Logger.Named("monitor").With(zap.String("venue", cfg.Venue.Name())),
		interval: cfg.UpdateInterval,
		pools:    make(map[string]*PoolSnapshot),
	}, nil
}

// AddOpportunityCallback registers a callback for detected opportunities.
func (m *Monitor) AddOpportunityCallback(cb OpportunityCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, cb)
}

// Start launches the poll loop. It is an error to start a running monitor.
func (m *Monitor) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return fmt.Errorf("monitor for %s already running", m.venue.Name())
	}

	loopCtx, cancel := context.WithCancel(ctx)
	m.running = true
	m.cancel = cancel
	m.done = make(chan struct{})

	go m.run(loopCtx)

	m.logger.Info("Market monitor started",
		zap.Duration("update_interval", m.interval))
	return nil
}

// Stop flips the running flag and waits for the in-flight tick to complete.
// Safe to call on a stopped monitor.
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel := m.cancel
	done := m.done
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("Market monitor stopped")
}

// IsRunning reports whether the poll loop is active.
func (m *Monitor) IsRunning() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.running
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.tick(ctx)

		select {
		case <-ctx.Done():
			return
		case <-time.After(m.interval):
		}
	}
}

// tick performs one poll-decode-diff pass. Upstream failures are logged and
// the tick becomes a no-op; the loop continues on schedule.
func (m *Monitor) tick(ctx context.Context) {
	if err := m.limiter.Acquire(ctx); err != nil {
		return
	}

	raws, err := m.venue.FetchPools(ctx)
	if err != nil {
		m.logger.Error("Failed to fetch pools", zap.Error(err))
		return
	}

	changed := 0
	for _, raw := range raws {
		snap, err := m.decoder.Parse(raw)
		if err != nil {
			m.logger.Debug("Skipping undecodable record", zap.Error(err))
			continue
		}
		if snap == nil {
			continue
		}
		if m.processSnapshot(ctx, snap) {
			changed++
		}
	}

	m.mu.Lock()
	m.lastTick = time.Now()
	m.mu.Unlock()

	if changed > 0 {
		m.logger.Debug("Tick processed",
			zap.Int("records", len(raws)),
			zap.Int("changed", changed))
	}
}

// processSnapshot diffs one decoded snapshot against the cache, updates the
// cache and price history on change, and fires callbacks for a resulting
// opportunity. Returns whether the snapshot changed.
func (m *Monitor) processSnapshot(ctx context.Context, snap *PoolSnapshot) bool {
	if snap.LastSeen.IsZero() {
		snap.LastSeen = time.Now()
	}

	m.mu.Lock()
	prev := m.pools[snap.Key()]
	if !snap.changedFrom(prev) {
		m.mu.Unlock()
		return false
	}
	m.pools[snap.Key()] = snap
	m.mu.Unlock()

	m.history.Record(snap.TokenA, snap.PriceUSD, snap.LastSeen)

	if m.analyzer == nil {
		return true
	}

	op, err := m.analyzer.Analyze(ctx, snap)
	if err != nil {
		m.logger.Error("Opportunity analysis failed",
			zap.String("pool_id", snap.PoolID),
			zap.Error(err))
		return true
	}
	if op == nil {
		return true
	}

	m.logger.Info("Opportunity detected",
		zap.String("pool_id", op.PoolID),
		zap.String("token", op.TokenAddress),
		zap.String("estimated_profit", op.EstimatedProfit.String()),
		zap.String("risk_level", string(op.RiskLevel)))

	m.mu.RLock()
	callbacks := make([]OpportunityCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for _, cb := range callbacks {
		m.invokeCallback(cb, op)
	}
	return true
}

// invokeCallback shields the loop from a misbehaving callback.
func (m *Monitor) invokeCallback(cb OpportunityCallback, op *SnipingOpportunity) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("Opportunity callback panicked",
				zap.String("pool_id", op.PoolID),
				zap.Any("panic", r))
		}
	}()
	cb(op)
}

// Snapshot returns the cached snapshot for a pool id.
func (m *Monitor) Snapshot(poolID string) (*PoolSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	snap, ok := m.pools[poolID]
	return snap, ok
}

// Snapshots returns a copy of the cached pool set.
func (m *Monitor) Snapshots() []*PoolSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*PoolSnapshot, 0, len(m.pools))
	for _, snap := range m.pools {
		out = append(out, snap)
	}
	return out
}

// History returns the monitor's price history.
func (m *Monitor) History() *PriceHistory {
	return m.history
}

// Stats describes the monitor for read-only callers.
type Stats struct {
	Venue          string    `json:"venue"`
	MonitoredPools int       `json:"monitored_pools"`
	Running        bool      `json:"running"`
	LastTick       time.Time `json:"last_tick"`
}

// Stats returns current monitor statistics.
func (m *Monitor) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Stats{
		Venue:          m.venue.Name(),
		MonitoredPools: len(m.pools),
		Running:        m.running,
		LastTick:       m.lastTick,
	}
}
