// internal/sniping/service.go
package sniping

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/cache"
	"github.com/laurent357/Sniping-bot/internal/events"
	"github.com/laurent357/Sniping-bot/internal/market"
	"github.com/laurent357/Sniping-bot/internal/strategy"
	"github.com/laurent357/Sniping-bot/internal/types"
)

const (
	// DefaultStatsTTL caches computed stats between bursts of API reads.
	DefaultStatsTTL = 10 * time.Second
	// DefaultOpportunityRetention bounds the in-memory opportunity log.
	DefaultOpportunityRetention = 24 * time.Hour
	// executionMaxRetries is passed to the execution engine with each
	// transaction request.
	executionMaxRetries = 3

	statsCacheKey = "sniping_stats"
)

var lamportsPerSOL = decimal.NewFromInt(1_000_000_000)

// Executor is the slice of the execution gateway the service uses.
type Executor interface {
	CheckSecurity(ctx context.Context, token string, amount uint64) (bool, string, error)
	RequestTransaction(ctx context.Context, instructions []byte, priority types.PriorityLevel, maxRetries int) (string, error)
}

// ExecutionResult reports the outcome of one sniping attempt.
type ExecutionResult struct {
	Success   bool      `json:"success"`
	Signature string    `json:"signature,omitempty"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats summarizes service activity for the API and websocket feed.
type Stats struct {
	TotalTransactions int       `json:"total_transactions"`
	PendingOrders     int       `json:"pending_orders"`
	Completed         int       `json:"completed"`
	Failed            int       `json:"failed"`
	Opportunities     int       `json:"opportunities_24h"`
	Strategies        int       `json:"strategies"`
	GeneratedAt       time.Time `json:"generated_at"`
}

// Config wires the service dependencies.
type Config struct {
	Executor Executor
	Engine   *strategy.Engine
	Bus      *events.Bus // optional
	Logger   *zap.Logger

	StatsTTL             time.Duration
	OpportunityRetention time.Duration
}

type opportunitySeen struct {
	op market.SnipingOpportunity
	at time.Time
}

// Service drives the sniping pipeline: it takes analyzed opportunities,
// runs them through the rule engine, executes matches through the
// gateway and keeps the transaction ledger.
type Service struct {
	executor  Executor
	engine    *strategy.Engine
	bus       *events.Bus
	logger    *zap.Logger
	ledger    *Ledger
	stats     *cache.ResponseCache
	retention time.Duration

	mu            sync.Mutex
	opportunities []opportunitySeen

	now func() time.Time
}

// NewService validates the config and builds a service.
func NewService(cfg Config) (*Service, error) {
	if cfg.Executor == nil {
		return nil, fmt.Errorf("sniping service requires an executor")
	}
	if cfg.Engine == nil {
		return nil, fmt.Errorf("sniping service requires a strategy engine")
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.StatsTTL <= 0 {
		cfg.StatsTTL = DefaultStatsTTL
	}
	if cfg.OpportunityRetention <= 0 {
		cfg.OpportunityRetention = DefaultOpportunityRetention
	}
	return &Service{
		executor:  cfg.Executor,
		engine:    cfg.Engine,
		bus:       cfg.Bus,
		logger:    cfg.Logger.Named("sniping"),
		ledger:    NewLedger(),
		stats:     cache.New(cfg.StatsTTL),
		retention: cfg.OpportunityRetention,
		now:       time.Now,
	}, nil
}

// HandleOpportunity feeds one analyzed opportunity through the rule
// engine and executes it when a strategy fires. It returns nil when no
// strategy matched.
func (s *Service) HandleOpportunity(ctx context.Context, op *market.SnipingOpportunity) *ExecutionResult {
	s.recordOpportunity(op)

	matched := s.engine.Evaluate(op)
	if matched == nil {
		return nil
	}

	s.logger.Info("🎯 strategy matched",
		zap.String("strategy", matched.Name),
		zap.String("token", op.TokenAddress),
		zap.String("estimated_profit", op.EstimatedProfit.String()),
		zap.String("risk", string(op.RiskLevel)))
	s.publish(events.StrategyMatchedEvent{
		BaseEvent:    events.NewBase(events.StrategyMatched),
		StrategyName: matched.Name,
		TokenAddress: op.TokenAddress,
		PoolID:       op.PoolID,
		PositionSize: matched.PositionSize,
	})

	result := s.Execute(ctx, op, matched)
	return &result
}

// Execute runs the sniping attempt for an opportunity under the given
// strategy: security check first, then transaction submission. Failures
// come back in the result, not as an error.
func (s *Service) Execute(ctx context.Context, op *market.SnipingOpportunity, strat *strategy.Strategy) ExecutionResult {
	amount := lamports(op.Price)

	safe, reason, err := s.executor.CheckSecurity(ctx, op.TokenAddress, amount)
	if err != nil {
		return s.failure(op, "", fmt.Sprintf("security check error: %v", err))
	}
	if !safe {
		return s.failure(op, "", fmt.Sprintf("security check failed: %s", reason))
	}

	instructions, err := buildInstructions(op, strat)
	if err != nil {
		return s.failure(op, "", fmt.Sprintf("failed to build instructions: %v", err))
	}

	signature, err := s.executor.RequestTransaction(ctx, instructions, types.PriorityHigh, executionMaxRetries)
	if err != nil {
		return s.failure(op, "", fmt.Sprintf("transaction request failed: %v", err))
	}

	record := TransactionRecord{
		ID:              uuid.New().String(),
		Signature:       signature,
		TokenAddress:    op.TokenAddress,
		PoolID:          op.PoolID,
		StrategyName:    strat.Name,
		AmountSOL:       op.Price,
		EstimatedProfit: op.EstimatedProfit,
		CreatedAt:       s.now(),
		UpdatedAt:       s.now(),
	}
	s.ledger.Append(record)
	s.stats.Delete(statsCacheKey)

	s.logger.Info("🚀 sniping transaction submitted",
		zap.String("signature", signature),
		zap.String("token", op.TokenAddress),
		zap.String("strategy", strat.Name))
	s.publish(events.TransactionSubmittedEvent{
		BaseEvent:     events.NewBase(events.TransactionSubmitted),
		TransactionID: record.ID,
		Signature:     signature,
		TokenAddress:  op.TokenAddress,
		StrategyName:  strat.Name,
		AmountSOL:     op.Price,
		Priority:      types.PriorityHigh,
	})

	return ExecutionResult{Success: true, Signature: signature, Timestamp: s.now()}
}

// UpdateStatus transitions a submitted transaction. Only pending records
// move; repeated terminal updates are ignored.
func (s *Service) UpdateStatus(signature string, status types.TransactionStatus, errMsg string) error {
	if _, err := types.ParseTransactionStatus(string(status)); err != nil {
		return err
	}
	record, changed := s.ledger.UpdateStatus(signature, status, errMsg)
	if !changed {
		return nil
	}
	s.stats.Delete(statsCacheKey)

	switch status {
	case types.StatusCompleted:
		s.logger.Info("✅ transaction completed", zap.String("signature", signature))
		s.publish(events.TransactionCompletedEvent{
			BaseEvent:     events.NewBase(events.TransactionCompleted),
			TransactionID: record.ID,
			Signature:     signature,
			TokenAddress:  record.TokenAddress,
		})
	case types.StatusFailed:
		s.logger.Warn("transaction failed",
			zap.String("signature", signature),
			zap.String("reason", errMsg))
		s.publish(events.TransactionFailedEvent{
			BaseEvent:     events.NewBase(events.TransactionFailed),
			TransactionID: record.ID,
			Signature:     signature,
			TokenAddress:  record.TokenAddress,
			Reason:        errMsg,
		})
	}
	return nil
}

// History returns transactions newest-first, optionally filtered by
// status.
func (s *Service) History(status types.TransactionStatus, limit int) []TransactionRecord {
	return s.ledger.History(status, limit)
}

// ActiveOrders returns the transactions still awaiting confirmation.
func (s *Service) ActiveOrders() []TransactionRecord {
	return s.ledger.Active()
}

// RecentOpportunities returns opportunities seen in the retention
// window, most profitable first. minProfit is a lower bound on the
// estimated profit; maxRisk, when set, excludes riskier levels; limit
// caps the result (<= 0 means all).
func (s *Service) RecentOpportunities(minProfit decimal.Decimal, maxRisk types.RiskLevel, limit int) []market.SnipingOpportunity {
	cutoff := s.now().Add(-s.retention)

	s.mu.Lock()
	out := make([]market.SnipingOpportunity, 0, len(s.opportunities))
	for _, seen := range s.opportunities {
		if !seen.at.After(cutoff) {
			continue
		}
		if seen.op.EstimatedProfit.LessThan(minProfit) {
			continue
		}
		if maxRisk != "" && riskRank(seen.op.RiskLevel) > riskRank(maxRisk) {
			continue
		}
		out = append(out, seen.op)
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EstimatedProfit.GreaterThan(out[j].EstimatedProfit)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func riskRank(level types.RiskLevel) int {
	switch level {
	case types.RiskLow:
		return 0
	case types.RiskMedium:
		return 1
	default:
		return 2
	}
}

// Strategies returns the configured strategies in evaluation order.
func (s *Service) Strategies() []strategy.Strategy {
	return s.engine.Strategies()
}

// UpdateStrategy replaces or registers a strategy by name.
func (s *Service) UpdateStrategy(strat strategy.Strategy) error {
	if err := s.engine.Replace(strat); err != nil {
		return fmt.Errorf("failed to update strategy: %w", err)
	}
	return nil
}

// Stats returns activity counters, cached briefly between reads.
func (s *Service) Stats() Stats {
	if cached, ok := s.stats.Get(statsCacheKey); ok {
		return cached.(Stats)
	}

	total, pending, completed, failed := s.ledger.Counts()
	stats := Stats{
		TotalTransactions: total,
		PendingOrders:     pending,
		Completed:         completed,
		Failed:            failed,
		Opportunities:     s.opportunityCount(),
		Strategies:        len(s.engine.Strategies()),
		GeneratedAt:       s.now(),
	}
	s.stats.Set(statsCacheKey, stats)
	return stats
}

func (s *Service) failure(op *market.SnipingOpportunity, transactionID, reason string) ExecutionResult {
	s.logger.Warn("sniping execution rejected",
		zap.String("token", op.TokenAddress),
		zap.String("reason", reason))
	s.publish(events.TransactionFailedEvent{
		BaseEvent:     events.NewBase(events.TransactionFailed),
		TransactionID: transactionID,
		TokenAddress:  op.TokenAddress,
		Reason:        reason,
	})
	return ExecutionResult{Success: false, Error: reason, Timestamp: s.now()}
}

func (s *Service) publish(event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(event); err != nil {
		s.logger.Debug("event not published",
			zap.String("event_type", string(event.Type())),
			zap.Error(err))
	}
}

func (s *Service) recordOpportunity(op *market.SnipingOpportunity) {
	now := s.now()
	cutoff := now.Add(-s.retention)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.opportunities = append(s.opportunities, opportunitySeen{op: *op, at: now})
	trimmed := s.opportunities[:0]
	for _, seen := range s.opportunities {
		if seen.at.After(cutoff) {
			trimmed = append(trimmed, seen)
		}
	}
	s.opportunities = trimmed
}

func (s *Service) opportunityCount() int {
	cutoff := s.now().Add(-s.retention)
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, seen := range s.opportunities {
		if seen.at.After(cutoff) {
			count++
		}
	}
	return count
}

// snipingInstruction is the payload handed to the execution engine. The
// engine assembles the real swap from it.
type snipingInstruction struct {
	Type     string          `json:"type"`
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
	Slippage decimal.Decimal `json:"slippage"`
}

func buildInstructions(op *market.SnipingOpportunity, strat *strategy.Strategy) ([]byte, error) {
	payload := snipingInstruction{
		Type:     "sniping",
		Token:    op.TokenAddress,
		Amount:   op.Price,
		Slippage: strat.MaxSlippage,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal sniping instruction: %w", err)
	}
	return data, nil
}

// lamports converts a SOL-denominated price to lamports, flooring
// fractions and clamping negatives to zero.
func lamports(sol decimal.Decimal) uint64 {
	if sol.IsNegative() {
		return 0
	}
	return uint64(sol.Mul(lamportsPerSOL).IntPart())
}
