// internal/types/types.go
package types

import "fmt"

// RiskLevel classifies how risky a detected opportunity is.
type RiskLevel string

const (
	RiskLow    RiskLevel = "LOW"
	RiskMedium RiskLevel = "MEDIUM"
	RiskHigh   RiskLevel = "HIGH"
)

// ParseRiskLevel validates a wire/storage representation of a risk level.
func ParseRiskLevel(s string) (RiskLevel, error) {
	switch RiskLevel(s) {
	case RiskLow, RiskMedium, RiskHigh:
		return RiskLevel(s), nil
	}
	return "", fmt.Errorf("unknown risk level: %q", s)
}

// TransactionStatus is the lifecycle state of a dispatched transaction.
// A transaction starts pending and moves to completed or failed exactly once.
type TransactionStatus string

const (
	StatusPending   TransactionStatus = "pending"
	StatusCompleted TransactionStatus = "completed"
	StatusFailed    TransactionStatus = "failed"
)

// IsTerminal reports whether the status ends the transaction lifecycle.
func (s TransactionStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// ParseTransactionStatus validates a wire/storage status string.
func ParseTransactionStatus(s string) (TransactionStatus, error) {
	switch TransactionStatus(s) {
	case StatusPending, StatusCompleted, StatusFailed:
		return TransactionStatus(s), nil
	}
	return "", fmt.Errorf("unknown transaction status: %q", s)
}
