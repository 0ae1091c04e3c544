// internal/market/history.go
package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one observed price for a token.
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// PriceHistory keeps a trailing window of price observations per token.
// The producing monitor is the only writer; the analyzer reads it when
// scoring a changed snapshot.
type PriceHistory struct {
	mu        sync.RWMutex
	points    map[string][]PricePoint
	retention time.Duration

	now func() time.Time // test seam
}

// NewPriceHistory creates a history pruned to the given retention window.
func NewPriceHistory(retention time.Duration) *PriceHistory {
	return &PriceHistory{
		points:    make(map[string][]PricePoint),
		retention: retention,
		now:       time.Now,
	}
}

// Record appends an observation for token and prunes entries older than the
// retention window.
func (h *PriceHistory) Record(token string, price decimal.Decimal, at time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	pts := append(h.points[token], PricePoint{Timestamp: at, Price: price})

	cutoff := h.now().Add(-h.retention)
	i := 0
	for i < len(pts) && pts[i].Timestamp.Before(cutoff) {
		i++
	}
	h.points[token] = pts[i:]
}

// OldestWithin returns the earliest recorded price for token inside the
// trailing window, or false when no sample falls inside it.
func (h *PriceHistory) OldestWithin(token string, window time.Duration) (decimal.Decimal, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	cutoff := h.now().Add(-window)
	for _, pt := range h.points[token] {
		if !pt.Timestamp.Before(cutoff) {
			return pt.Price, true
		}
	}
	return decimal.Zero, false
}

// Len returns the number of retained points for token.
func (h *PriceHistory) Len(token string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.points[token])
}
