// internal/sniping/ledger.go
package sniping

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/laurent357/Sniping-bot/internal/types"
)

// TransactionRecord is one ledger entry. A record is born pending and
// moves to exactly one terminal status.
type TransactionRecord struct {
	ID              string                  `json:"id"`
	Signature       string                  `json:"signature"`
	TokenAddress    string                  `json:"token_address"`
	PoolID          string                  `json:"pool_id"`
	StrategyName    string                  `json:"strategy"`
	AmountSOL       decimal.Decimal         `json:"amount_sol"`
	EstimatedProfit decimal.Decimal         `json:"estimated_profit"`
	Status          types.TransactionStatus `json:"status"`
	Error           string                  `json:"error,omitempty"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// Ledger tracks every submitted transaction plus the subset still
// awaiting confirmation. History is append-only; active orders shrink as
// records reach a terminal status.
type Ledger struct {
	mu      sync.RWMutex
	history []*TransactionRecord
	active  map[string]*TransactionRecord // keyed by signature
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{active: make(map[string]*TransactionRecord)}
}

// Append records a freshly submitted transaction as pending and adds it
// to the active orders.
func (l *Ledger) Append(record TransactionRecord) {
	record.Status = types.StatusPending
	l.mu.Lock()
	defer l.mu.Unlock()
	stored := record
	l.history = append(l.history, &stored)
	l.active[stored.Signature] = &stored
}

// UpdateStatus moves the transaction with the given signature to a new
// status. Terminal statuses drop the record from the active orders but
// never from history. A record already terminal is left untouched.
func (l *Ledger) UpdateStatus(signature string, status types.TransactionStatus, errMsg string) (TransactionRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range l.history {
		if record.Signature != signature {
			continue
		}
		if record.Status.IsTerminal() {
			return *record, false
		}
		record.Status = status
		record.Error = errMsg
		record.UpdatedAt = time.Now()
		if status.IsTerminal() {
			delete(l.active, signature)
		}
		return *record, true
	}
	return TransactionRecord{}, false
}

// History returns records newest-first, optionally filtered by status.
// An empty status matches everything. A limit of zero or less means no
// limit.
func (l *Ledger) History(status types.TransactionStatus, limit int) []TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]TransactionRecord, 0, len(l.history))
	for i := len(l.history) - 1; i >= 0; i-- {
		record := l.history[i]
		if status != "" && record.Status != status {
			continue
		}
		out = append(out, *record)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out
}

// Active returns the orders still awaiting confirmation, newest-first.
func (l *Ledger) Active() []TransactionRecord {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]TransactionRecord, 0, len(l.active))
	for i := len(l.history) - 1; i >= 0; i-- {
		record := l.history[i]
		if _, ok := l.active[record.Signature]; ok {
			out = append(out, *record)
		}
	}
	return out
}

// Counts reports history totals per status.
func (l *Ledger) Counts() (total, pending, completed, failed int) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, record := range l.history {
		switch record.Status {
		case types.StatusPending:
			pending++
		case types.StatusCompleted:
			completed++
		case types.StatusFailed:
			failed++
		}
	}
	return len(l.history), pending, completed, failed
}
