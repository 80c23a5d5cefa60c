package types

import "time"

// ReleaseBreakdown records how a vendor payout was split between the slice
// released immediately and the remainder held until HoldUntil.
// NetCents always equals ImmediateCents + RemainderCents.
type ReleaseBreakdown struct {
	Immediate       bool       `json:"immediate"`
	Percentage      int        `json:"percentage"`
	TotalCents      int64      `json:"total_cents"`
	CommissionCents int64      `json:"commission_cents"`
	NetCents        int64      `json:"net_cents"`
	ImmediateCents  int64      `json:"immediate_cents"`
	RemainderCents  int64      `json:"remainder_cents"`
	HoldUntil       *time.Time `json:"hold_until,omitempty"`
}
