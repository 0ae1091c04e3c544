// internal/strategy/persistence.go
package strategy

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/shopspring/decimal"
)

// DefaultStrategy returns the built-in conservative entry strategy used
// when no strategies file is configured.
func DefaultStrategy() Strategy {
	mustRule := func(m Metric, op Operator, value string, prio int) Rule {
		r, err := NewRule(m, op, decimal.RequireFromString(value), prio)
		if err != nil {
			panic(err)
		}
		return r
	}
	return Strategy{
		Name:        "default",
		Description: "Deep liquidity, active volume, early momentum",
		Rules: []Rule{
			mustRule(MetricLiquidity, OpGreaterThan, "10000", 5),
			mustRule(MetricVolume24h, OpGreaterThan, "5000", 4),
			mustRule(MetricPriceChange1h, OpGreaterThan, "5", 3),
			mustRule(MetricEstimatedProfit, OpGreaterThan, "2", 2),
		},
		MinProfit:    decimal.RequireFromString("2"),
		MaxLoss:      decimal.RequireFromString("1"),
		PositionSize: decimal.RequireFromString("0.1"),
		MaxSlippage:  decimal.RequireFromString("1"),
		Enabled:      true,
	}
}

// ExportStrategies serializes strategies to JSON, preserving evaluation
// order.
func ExportStrategies(strategies []Strategy) ([]byte, error) {
	data, err := json.MarshalIndent(strategies, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal strategies: %w", err)
	}
	return data, nil
}

// ImportStrategies parses strategies from JSON and validates each one.
func ImportStrategies(data []byte) ([]Strategy, error) {
	var strategies []Strategy
	if err := json.Unmarshal(data, &strategies); err != nil {
		return nil, fmt.Errorf("failed to parse strategies: %w", err)
	}
	for i := range strategies {
		if err := strategies[i].Validate(); err != nil {
			return nil, err
		}
		if i > 0 {
			for j := 0; j < i; j++ {
				if strategies[j].Name == strategies[i].Name {
					return nil, fmt.Errorf("duplicate strategy name %q", strategies[i].Name)
				}
			}
		}
	}
	return strategies, nil
}

// SaveToFile writes strategies to disk.
func SaveToFile(path string, strategies []Strategy) error {
	data, err := ExportStrategies(strategies)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write strategies file: %w", err)
	}
	return nil
}

// LoadFromFile reads strategies from disk. A missing file yields the
// default strategy rather than an error.
func LoadFromFile(path string) ([]Strategy, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return []Strategy{DefaultStrategy()}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read strategies file: %w", err)
	}
	return ImportStrategies(data)
}
