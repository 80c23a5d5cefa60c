package enums

import "fmt"

// ActorRole identifies who is driving a state transition.
type ActorRole string

const (
	ActorRoleCustomer ActorRole = "customer"
	ActorRoleVendor   ActorRole = "vendor"
	ActorRoleRider    ActorRole = "rider"
	ActorRoleAdmin    ActorRole = "admin"
)

var validActorRoles = []ActorRole{
	ActorRoleCustomer,
	ActorRoleVendor,
	ActorRoleRider,
	ActorRoleAdmin,
}

// roleSuborderTargets enumerates the delivery statuses each role may set
// directly. Rider pickup/transit moves live here; OTP confirmation and rider
// assignment go through their own dedicated operations.
var roleSuborderTargets = map[ActorRole][]SuborderStatus{
	ActorRoleVendor: {
		SuborderStatusProcessing,
		SuborderStatusReadyForPickup,
		SuborderStatusCancelled,
	},
	ActorRoleRider: {
		SuborderStatusPickedUp,
		SuborderStatusInTransit,
	},
	ActorRoleCustomer: {
		SuborderStatusCancelled,
	},
	ActorRoleAdmin: {
		SuborderStatusProcessing,
		SuborderStatusReadyForPickup,
		SuborderStatusPickedUp,
		SuborderStatusInTransit,
		SuborderStatusDelivered,
		SuborderStatusCancelled,
	},
}

// String implements fmt.Stringer.
func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// MaySetSuborderStatus reports whether the role is permitted to request the
// given delivery status at all, independent of the current state.
func (r ActorRole) MaySetSuborderStatus(target SuborderStatus) bool {
	for _, candidate := range roleSuborderTargets[r] {
		if candidate == target {
			return true
		}
	}
	return false
}

// PermittedSuborderStatuses returns the delivery statuses the role may set.
func (r ActorRole) PermittedSuborderStatuses() []SuborderStatus {
	targets := roleSuborderTargets[r]
	out := make([]SuborderStatus, len(targets))
	copy(out, targets)
	return out
}

// ParseActorRole converts raw input into an ActorRole.
func ParseActorRole(value string) (ActorRole, error) {
	for _, candidate := range validActorRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
