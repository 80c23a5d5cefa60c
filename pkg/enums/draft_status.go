package enums

import "fmt"

// DraftStatus tracks the lifecycle of an order draft awaiting payment.
type DraftStatus string

const (
	DraftStatusPending   DraftStatus = "pending"
	DraftStatusValidated DraftStatus = "validated"
	DraftStatusConfirmed DraftStatus = "confirmed"
	DraftStatusFailed    DraftStatus = "failed"
	DraftStatusExpired   DraftStatus = "expired"
)

var validDraftStatuses = []DraftStatus{
	DraftStatusPending,
	DraftStatusValidated,
	DraftStatusConfirmed,
	DraftStatusFailed,
	DraftStatusExpired,
}

// String implements fmt.Stringer.
func (s DraftStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known DraftStatus.
func (s DraftStatus) IsValid() bool {
	for _, candidate := range validDraftStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the draft can no longer change.
func (s DraftStatus) IsTerminal() bool {
	return s == DraftStatusConfirmed || s == DraftStatusFailed || s == DraftStatusExpired
}

// ParseDraftStatus converts raw input into a DraftStatus.
func ParseDraftStatus(value string) (DraftStatus, error) {
	for _, candidate := range validDraftStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid draft status %q", value)
}
