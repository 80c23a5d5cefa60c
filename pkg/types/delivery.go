package types

import "time"

// DeliveryConfirmation is the explicit two-phase confirmation sub-state of a
// suborder. The code is single-use: verification clears it and stamps
// ConfirmedAt, so an issued-but-unverified code is always distinguishable
// from a completed confirmation.
type DeliveryConfirmation struct {
	Code        string     `json:"code,omitempty"`
	IssuedAt    *time.Time `json:"issued_at,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
}

// Issued reports whether a confirmation code is currently outstanding.
func (d DeliveryConfirmation) Issued() bool {
	return d.Code != "" && d.ConfirmedAt == nil
}

// Done reports whether the delivery was confirmed by code verification.
func (d DeliveryConfirmation) Done() bool {
	return d.ConfirmedAt != nil
}

// DeliveryRoute captures the computed pickup/dropoff snapshot set when a
// rider is assigned.
type DeliveryRoute struct {
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`
}
