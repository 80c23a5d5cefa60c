package enums

import "fmt"

// WithdrawalAction is an admin decision applied to a withdrawal request.
type WithdrawalAction string

const (
	WithdrawalActionApprove WithdrawalAction = "approve"
	WithdrawalActionReject  WithdrawalAction = "reject"
	WithdrawalActionProcess WithdrawalAction = "process"
)

var validWithdrawalActions = []WithdrawalAction{
	WithdrawalActionApprove,
	WithdrawalActionReject,
	WithdrawalActionProcess,
}

// withdrawalActionTargets maps each action to the status it produces.
var withdrawalActionTargets = map[WithdrawalAction]WithdrawalStatus{
	WithdrawalActionApprove: WithdrawalStatusApproved,
	WithdrawalActionReject:  WithdrawalStatusRejected,
	WithdrawalActionProcess: WithdrawalStatusProcessed,
}

// withdrawalAllowedActions lists the actions valid from each non-terminal status.
var withdrawalAllowedActions = map[WithdrawalStatus][]WithdrawalAction{
	WithdrawalStatusPending:  {WithdrawalActionApprove, WithdrawalActionReject},
	WithdrawalStatusApproved: {WithdrawalActionProcess, WithdrawalActionReject},
}

// IsValid reports whether the value is a known WithdrawalAction.
func (a WithdrawalAction) IsValid() bool {
	for _, candidate := range validWithdrawalActions {
		if candidate == a {
			return true
		}
	}
	return false
}

// TargetStatus returns the status this action produces.
func (a WithdrawalAction) TargetStatus() (WithdrawalStatus, bool) {
	target, ok := withdrawalActionTargets[a]
	return target, ok
}

// AllowedFrom reports whether the action may be applied to the given status.
func (a WithdrawalAction) AllowedFrom(status WithdrawalStatus) bool {
	for _, candidate := range withdrawalAllowedActions[status] {
		if candidate == a {
			return true
		}
	}
	return false
}

// AllowedWithdrawalActions returns the actions valid from the given status.
func AllowedWithdrawalActions(status WithdrawalStatus) []WithdrawalAction {
	actions := withdrawalAllowedActions[status]
	out := make([]WithdrawalAction, len(actions))
	copy(out, actions)
	return out
}

// ParseWithdrawalAction converts raw input into a WithdrawalAction.
func ParseWithdrawalAction(value string) (WithdrawalAction, error) {
	for _, candidate := range validWithdrawalActions {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid withdrawal action %q", value)
}
