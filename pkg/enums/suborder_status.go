package enums

import "fmt"

// SuborderStatus is the delivery state machine for one vendor's slice of an order.
type SuborderStatus string

const (
	SuborderStatusPending        SuborderStatus = "pending"
	SuborderStatusProcessing     SuborderStatus = "processing"
	SuborderStatusReadyForPickup SuborderStatus = "ready_for_pickup"
	SuborderStatusAssigned       SuborderStatus = "assigned"
	SuborderStatusPickedUp       SuborderStatus = "picked_up"
	SuborderStatusInTransit      SuborderStatus = "in_transit"
	SuborderStatusDelivered      SuborderStatus = "delivered"
	SuborderStatusConfirmed      SuborderStatus = "confirmed"
	SuborderStatusCancelled      SuborderStatus = "cancelled"
)

var validSuborderStatuses = []SuborderStatus{
	SuborderStatusPending,
	SuborderStatusProcessing,
	SuborderStatusReadyForPickup,
	SuborderStatusAssigned,
	SuborderStatusPickedUp,
	SuborderStatusInTransit,
	SuborderStatusDelivered,
	SuborderStatusConfirmed,
	SuborderStatusCancelled,
}

// suborderTransitions is the forward adjacency of the delivery state machine.
// Cancellation is only reachable before a rider has picked the parcel up.
var suborderTransitions = map[SuborderStatus][]SuborderStatus{
	SuborderStatusPending:        {SuborderStatusProcessing, SuborderStatusReadyForPickup, SuborderStatusCancelled},
	SuborderStatusProcessing:     {SuborderStatusReadyForPickup, SuborderStatusCancelled},
	SuborderStatusReadyForPickup: {SuborderStatusAssigned, SuborderStatusCancelled},
	SuborderStatusAssigned:       {SuborderStatusPickedUp, SuborderStatusCancelled},
	SuborderStatusPickedUp:       {SuborderStatusInTransit},
	SuborderStatusInTransit:      {SuborderStatusDelivered},
	SuborderStatusDelivered:      {SuborderStatusConfirmed},
	SuborderStatusConfirmed:      {},
	SuborderStatusCancelled:      {},
}

// String implements fmt.Stringer.
func (s SuborderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SuborderStatus.
func (s SuborderStatus) IsValid() bool {
	for _, candidate := range validSuborderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// CanTransitionTo reports whether target is directly reachable from s.
func (s SuborderStatus) CanTransitionTo(target SuborderStatus) bool {
	for _, candidate := range suborderTransitions[s] {
		if candidate == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses directly reachable from s.
func (s SuborderStatus) AllowedTransitions() []SuborderStatus {
	next := suborderTransitions[s]
	out := make([]SuborderStatus, len(next))
	copy(out, next)
	return out
}

// ParseSuborderStatus converts raw input into a SuborderStatus.
func ParseSuborderStatus(value string) (SuborderStatus, error) {
	for _, candidate := range validSuborderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid suborder status %q", value)
}
