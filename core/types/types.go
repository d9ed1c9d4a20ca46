// Package types defines core domain types shared across all layers.
// This package contains NO business logic - only type definitions and the
// values derived directly from them.
package types

// Currency represents a currency code
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
)

// String returns the string representation
func (c Currency) String() string {
	return string(c)
}

// RunStatus is the status reported by the orchestration service for a
// pipeline or activity run. It is informational only.
type RunStatus string

const (
	StatusQueued     RunStatus = "Queued"
	StatusInProgress RunStatus = "InProgress"
	StatusSucceeded  RunStatus = "Succeeded"
	StatusFailed     RunStatus = "Failed"
	StatusCancelling RunStatus = "Cancelling"
	StatusCancelled  RunStatus = "Cancelled"
)

// String returns the string representation
func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the run can no longer change
func (s RunStatus) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}
