package enums

import "fmt"

// EarningStatus is the withdrawal availability state of a ledger entry.
type EarningStatus string

const (
	EarningStatusPending   EarningStatus = "pending"
	EarningStatusAvailable EarningStatus = "available"
	EarningStatusLocked    EarningStatus = "locked"
	EarningStatusRequested EarningStatus = "requested"
	EarningStatusWithdrawn EarningStatus = "withdrawn"
	EarningStatusHold      EarningStatus = "hold"
)

var validEarningStatuses = []EarningStatus{
	EarningStatusPending,
	EarningStatusAvailable,
	EarningStatusLocked,
	EarningStatusRequested,
	EarningStatusWithdrawn,
	EarningStatusHold,
}

// String implements fmt.Stringer.
func (s EarningStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known EarningStatus.
func (s EarningStatus) IsValid() bool {
	for _, candidate := range validEarningStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseEarningStatus converts raw input into an EarningStatus.
func ParseEarningStatus(value string) (EarningStatus, error) {
	for _, candidate := range validEarningStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid earning status %q", value)
}
