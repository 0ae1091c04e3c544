// internal/strategy/rules.go
package strategy

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/laurent357/Sniping-bot/internal/market"
)

// Operator compares an opportunity metric against a rule threshold.
type Operator string

const (
	OpGreaterThan  Operator = ">"
	OpLessThan     Operator = "<"
	OpEqual        Operator = "="
	OpNotEqual     Operator = "!="
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
)

// Metric names an opportunity field a rule can test. The set is closed:
// constructing a rule with an unknown metric fails, it is not a runtime
// lookup.
type Metric string

const (
	MetricPrice           Metric = "price"
	MetricLiquidity       Metric = "liquidity"
	MetricVolume24h       Metric = "volume_24h"
	MetricPriceChange1h   Metric = "price_change_1h"
	MetricEstimatedProfit Metric = "estimated_profit"
)

var metricAccessors = map[Metric]func(*market.SnipingOpportunity) decimal.Decimal{
	MetricPrice:           func(o *market.SnipingOpportunity) decimal.Decimal { return o.Price },
	MetricLiquidity:       func(o *market.SnipingOpportunity) decimal.Decimal { return o.Liquidity },
	MetricVolume24h:       func(o *market.SnipingOpportunity) decimal.Decimal { return o.Volume24h },
	MetricPriceChange1h:   func(o *market.SnipingOpportunity) decimal.Decimal { return o.PriceChange1h },
	MetricEstimatedProfit: func(o *market.SnipingOpportunity) decimal.Decimal { return o.EstimatedProfit },
}

var validOperators = map[Operator]bool{
	OpGreaterThan:  true,
	OpLessThan:     true,
	OpEqual:        true,
	OpNotEqual:     true,
	OpGreaterEqual: true,
	OpLessEqual:    true,
}

// equalityEpsilon bounds the = and != comparisons so scaled decimal values
// from different sources compare stably.
var equalityEpsilon = decimal.New(1, -9) // 1e-9

// Rule is one metric comparison inside a strategy. Priority runs 1-5, 5
// evaluated first.
type Rule struct {
	Metric   Metric          `json:"metric"`
	Operator Operator        `json:"operator"`
	Value    decimal.Decimal `json:"value"`
	Priority int             `json:"priority"`
}

// NewRule validates and builds a rule.
func NewRule(metric Metric, operator Operator, value decimal.Decimal, priority int) (Rule, error) {
	if _, ok := metricAccessors[metric]; !ok {
		return Rule{}, fmt.Errorf("unknown rule metric: %q", metric)
	}
	if !validOperators[operator] {
		return Rule{}, fmt.Errorf("unknown rule operator: %q", operator)
	}
	if priority < 1 || priority > 5 {
		return Rule{}, fmt.Errorf("rule priority %d outside 1-5", priority)
	}
	return Rule{Metric: metric, Operator: operator, Value: value, Priority: priority}, nil
}

// Validate re-checks a rule that arrived from persistence or the API.
func (r Rule) Validate() error {
	_, err := NewRule(r.Metric, r.Operator, r.Value, r.Priority)
	return err
}

// Satisfied evaluates the rule against an opportunity. A rule whose metric
// or operator cannot be resolved is a non-match, never an error.
func (r Rule) Satisfied(op *market.SnipingOpportunity) bool {
	accessor, ok := metricAccessors[r.Metric]
	if !ok {
		return false
	}
	value := accessor(op)

	switch r.Operator {
	case OpGreaterThan:
		return value.GreaterThan(r.Value)
	case OpLessThan:
		return value.LessThan(r.Value)
	case OpEqual:
		return value.Sub(r.Value).Abs().LessThanOrEqual(equalityEpsilon)
	case OpNotEqual:
		return value.Sub(r.Value).Abs().GreaterThan(equalityEpsilon)
	case OpGreaterEqual:
		return value.GreaterThanOrEqual(r.Value)
	case OpLessEqual:
		return value.LessThanOrEqual(r.Value)
	default:
		return false
	}
}

// sortRulesByPriority orders rules for evaluation, highest priority first.
// The sort is stable so equal priorities keep their declared order.
func sortRulesByPriority(rules []Rule) []Rule {
	sorted := make([]Rule, len(rules))
	copy(sorted, rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})
	return sorted
}
