package enums

import "testing"

func TestSuborderTransitionsForward(t *testing.T) {
	steps := []struct {
		from SuborderStatus
		to   SuborderStatus
	}{
		{SuborderStatusPending, SuborderStatusProcessing},
		{SuborderStatusProcessing, SuborderStatusReadyForPickup},
		{SuborderStatusReadyForPickup, SuborderStatusAssigned},
		{SuborderStatusAssigned, SuborderStatusPickedUp},
		{SuborderStatusPickedUp, SuborderStatusInTransit},
		{SuborderStatusInTransit, SuborderStatusDelivered},
		{SuborderStatusDelivered, SuborderStatusConfirmed},
	}
	for _, step := range steps {
		if !step.from.CanTransitionTo(step.to) {
			t.Fatalf("%s -> %s should be allowed", step.from, step.to)
		}
	}
}

func TestSuborderTransitionsBackwardRejected(t *testing.T) {
	if SuborderStatusDelivered.CanTransitionTo(SuborderStatusInTransit) {
		t.Fatal("delivery state machine must not move backward")
	}
	if SuborderStatusConfirmed.CanTransitionTo(SuborderStatusDelivered) {
		t.Fatal("confirmed is terminal")
	}
	if len(SuborderStatusCancelled.AllowedTransitions()) != 0 {
		t.Fatal("cancelled is terminal")
	}
}

func TestCancellationOnlyFromEarlyStates(t *testing.T) {
	for _, from := range []SuborderStatus{SuborderStatusPickedUp, SuborderStatusInTransit, SuborderStatusDelivered} {
		if from.CanTransitionTo(SuborderStatusCancelled) {
			t.Fatalf("%s must not be cancellable", from)
		}
	}
	for _, from := range []SuborderStatus{SuborderStatusPending, SuborderStatusProcessing, SuborderStatusReadyForPickup, SuborderStatusAssigned} {
		if !from.CanTransitionTo(SuborderStatusCancelled) {
			t.Fatalf("%s should be cancellable", from)
		}
	}
}

func TestRoleGates(t *testing.T) {
	if ActorRoleVendor.MaySetSuborderStatus(SuborderStatusDelivered) {
		t.Fatal("vendors cannot mark delivered")
	}
	if !ActorRoleVendor.MaySetSuborderStatus(SuborderStatusReadyForPickup) {
		t.Fatal("vendors package orders for pickup")
	}
	if !ActorRoleRider.MaySetSuborderStatus(SuborderStatusInTransit) {
		t.Fatal("riders drive transit")
	}
	if ActorRoleCustomer.MaySetSuborderStatus(SuborderStatusInTransit) {
		t.Fatal("customers can only cancel")
	}
	if !ActorRoleAdmin.MaySetSuborderStatus(SuborderStatusDelivered) {
		t.Fatal("admin override to delivered must be allowed")
	}
}
