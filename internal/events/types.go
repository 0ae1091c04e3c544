// internal/events/types.go
package events

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/laurent357/Sniping-bot/internal/types"
)

// EventType represents the type of event.
type EventType string

const (
	// Pipeline events
	OpportunityDetected EventType = "opportunity.detected"
	StrategyMatched     EventType = "strategy.matched"

	// Transaction events
	TransactionSubmitted EventType = "transaction.submitted"
	TransactionCompleted EventType = "transaction.completed"
	TransactionFailed    EventType = "transaction.failed"

	// Monitoring events
	MonitoringStarted EventType = "monitoring.started"
	MonitoringStopped EventType = "monitoring.stopped"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

// NewBase stamps a base event with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// OpportunityDetectedEvent is emitted when the analyzer accepts a pool.
type OpportunityDetectedEvent struct {
	BaseEvent
	TokenAddress    string
	PoolID          string
	Venue           string
	Price           decimal.Decimal
	Liquidity       decimal.Decimal
	EstimatedProfit decimal.Decimal
	RiskLevel       types.RiskLevel
}

// StrategyMatchedEvent is emitted when a strategy fires on an opportunity.
type StrategyMatchedEvent struct {
	BaseEvent
	StrategyName string
	TokenAddress string
	PoolID       string
	PositionSize decimal.Decimal
}

// TransactionSubmittedEvent is emitted when the execution engine accepts
// a transaction.
type TransactionSubmittedEvent struct {
	BaseEvent
	TransactionID string
	Signature     string
	TokenAddress  string
	StrategyName  string
	AmountSOL     decimal.Decimal
	Priority      types.PriorityLevel
}

// TransactionCompletedEvent is emitted when a submitted transaction
// confirms on chain.
type TransactionCompletedEvent struct {
	BaseEvent
	TransactionID string
	Signature     string
	TokenAddress  string
}

// TransactionFailedEvent is emitted when submission or confirmation
// fails.
type TransactionFailedEvent struct {
	BaseEvent
	TransactionID string
	Signature     string
	TokenAddress  string
	Reason        string
}

// MonitoringStartedEvent is emitted when a venue monitor begins polling.
type MonitoringStartedEvent struct {
	BaseEvent
	Venue    string
	Interval time.Duration
}

// MonitoringStoppedEvent is emitted when a venue monitor stops.
type MonitoringStoppedEvent struct {
	BaseEvent
	Venue  string
	Reason string // "shutdown", "error"
}
