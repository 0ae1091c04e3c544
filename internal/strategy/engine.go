// internal/strategy/engine.go
package strategy

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/laurent357/Sniping-bot/internal/market"
)

// Strategy bundles entry rules with the risk limits applied when the
// strategy fires. Rules are stored as given; evaluation orders them by
// priority.
type Strategy struct {
	Name         string          `json:"name"`
	Description  string          `json:"description"`
	Rules        []Rule          `json:"rules"`
	MinProfit    decimal.Decimal `json:"min_profit"`
	MaxLoss      decimal.Decimal `json:"max_loss"`
	PositionSize decimal.Decimal `json:"position_size"`
	MaxSlippage  decimal.Decimal `json:"max_slippage"`
	Enabled      bool            `json:"enabled"`
}

// Validate checks the strategy is well formed: non-empty name and every
// rule valid.
func (s *Strategy) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("strategy name is empty")
	}
	for i, r := range s.Rules {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("strategy %q rule %d: %w", s.Name, i, err)
		}
	}
	return nil
}

// Matches reports whether the opportunity satisfies every rule of the
// strategy and clears the minimum profit gate. Disabled strategies never
// match.
func (s *Strategy) Matches(op *market.SnipingOpportunity) bool {
	if !s.Enabled {
		return false
	}
	if op.EstimatedProfit.LessThan(s.MinProfit) {
		return false
	}
	for _, r := range sortRulesByPriority(s.Rules) {
		if !r.Satisfied(op) {
			return false
		}
	}
	return true
}

// clone returns a deep copy so callers cannot mutate engine state through
// returned strategies.
func (s *Strategy) clone() Strategy {
	out := *s
	out.Rules = make([]Rule, len(s.Rules))
	copy(out.Rules, s.Rules)
	return out
}

// Engine holds an ordered list of strategies and answers which one, if
// any, an opportunity triggers. Insertion order is evaluation order.
type Engine struct {
	mu         sync.RWMutex
	strategies []*Strategy
	logger     *zap.Logger
}

// NewEngine creates an empty rule engine.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("strategy")}
}

// AddStrategy appends a strategy. Names are unique: adding a duplicate
// name is an error, use Replace for updates.
func (e *Engine) AddStrategy(s Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, existing := range e.strategies {
		if existing.Name == s.Name {
			return fmt.Errorf("strategy %q already registered", s.Name)
		}
	}
	stored := s.clone()
	e.strategies = append(e.strategies, &stored)
	e.logger.Info("strategy added",
		zap.String("name", s.Name),
		zap.Int("rules", len(s.Rules)),
		zap.Bool("enabled", s.Enabled))
	return nil
}

// RemoveStrategy drops the named strategy. Removing an absent name is a
// no-op.
func (e *Engine) RemoveStrategy(name string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, s := range e.strategies {
		if s.Name == name {
			e.strategies = append(e.strategies[:i], e.strategies[i+1:]...)
			e.logger.Info("strategy removed", zap.String("name", name))
			return
		}
	}
}

// Replace swaps the named strategy in place, keeping its evaluation slot.
// If the name is new the strategy is appended.
func (e *Engine) Replace(s Strategy) error {
	if err := s.Validate(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	stored := s.clone()
	for i, existing := range e.strategies {
		if existing.Name == s.Name {
			e.strategies[i] = &stored
			e.logger.Info("strategy replaced", zap.String("name", s.Name))
			return nil
		}
	}
	e.strategies = append(e.strategies, &stored)
	e.logger.Info("strategy added", zap.String("name", s.Name))
	return nil
}

// Evaluate returns the first strategy, in insertion order, that the
// opportunity matches, or nil when none fire.
func (e *Engine) Evaluate(op *market.SnipingOpportunity) *Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.strategies {
		if s.Matches(op) {
			match := s.clone()
			e.logger.Debug("strategy matched",
				zap.String("name", s.Name),
				zap.String("token", op.TokenAddress),
				zap.String("estimated_profit", op.EstimatedProfit.String()))
			return &match
		}
	}
	return nil
}

// Strategies returns copies of all registered strategies in evaluation
// order.
func (e *Engine) Strategies() []Strategy {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Strategy, 0, len(e.strategies))
	for _, s := range e.strategies {
		out = append(out, s.clone())
	}
	return out
}

// Strategy looks up one strategy by name.
func (e *Engine) Strategy(name string) (Strategy, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	for _, s := range e.strategies {
		if s.Name == name {
			return s.clone(), true
		}
	}
	return Strategy{}, false
}
