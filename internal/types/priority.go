// internal/types/priority.go
package types

import "fmt"

// PriorityLevel is the execution priority carried to the execution engine.
type PriorityLevel string

const (
	PriorityLow    PriorityLevel = "LOW"
	PriorityMedium PriorityLevel = "MEDIUM"
	PriorityHigh   PriorityLevel = "HIGH"
)

// ParsePriorityLevel validates a wire representation of a priority level.
func ParsePriorityLevel(s string) (PriorityLevel, error) {
	switch PriorityLevel(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return PriorityLevel(s), nil
	}
	return "", fmt.Errorf("unknown priority level: %q", s)
}
