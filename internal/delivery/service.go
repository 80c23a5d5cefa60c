package delivery

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/internal/orders"
	"github.com/shopdeck/shopdeck-backend/pkg/config"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor is the authenticated caller driving a delivery transition.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	VendorID *uuid.UUID
}

// AssignRiderInput attaches a rider to a ready suborder.
type AssignRiderInput struct {
	OrderID          uuid.UUID
	SuborderID       uuid.UUID
	RiderID          uuid.UUID
	DeliveryFeeCents int64
	PickupAddress    string
}

// Service drives the suborder delivery state machine: role-gated status
// moves, rider assignment, and the two-phase buyer-code confirmation that
// releases the rider's earning.
type Service interface {
	UpdateStatus(ctx context.Context, actor Actor, orderID, suborderID uuid.UUID, target enums.SuborderStatus) (*models.Suborder, error)
	AssignRider(ctx context.Context, actor Actor, input AssignRiderInput) (*models.Suborder, error)
	GenerateConfirmationCode(ctx context.Context, buyerID, orderID, suborderID uuid.UUID) (string, error)
	VerifyConfirmationCode(ctx context.Context, riderID, orderID, suborderID uuid.UUID, code string) (*models.Suborder, error)
}

type service struct {
	tx     txRunner
	orders orders.Repository
	ledger ledger.Service
	outbox outboxPublisher
	cfg    config.DeliveryConfig
	logg   *logger.Logger
}

// NewService wires the delivery service.
func NewService(tx txRunner, ordersRepo orders.Repository, ledgerSvc ledger.Service, publisher outboxPublisher, cfg config.DeliveryConfig, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if ledgerSvc == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if cfg.ConfirmationCodeLen <= 0 {
		cfg.ConfirmationCodeLen = 6
	}
	return &service{tx: tx, orders: ordersRepo, ledger: ledgerSvc, outbox: publisher, cfg: cfg, logg: logg}, nil
}

func (s *service) UpdateStatus(ctx context.Context, actor Actor, orderID, suborderID uuid.UUID, target enums.SuborderStatus) (*models.Suborder, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", target))
	}
	if !actor.Role.MaySetSuborderStatus(target) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden,
			fmt.Sprintf("role %s may not set status %s", actor.Role, target)).
			WithDetails(map[string]any{
				"permitted": statusStrings(actor.Role.PermittedSuborderStatuses()),
			})
	}

	var updated *models.Suborder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		suborder, err := repo.FindSuborderForUpdate(ctx, orderID, suborderID)
		if err != nil {
			return err
		}
		if err := s.checkOwnership(ctx, repo, actor, suborder); err != nil {
			return err
		}
		if !suborder.Status.CanTransitionTo(target) {
			return pkgerrors.StateConflict(
				fmt.Sprintf("cannot move suborder from %s to %s", suborder.Status, target),
				suborder.Status.String(),
				statusStrings(suborder.Status.AllowedTransitions()),
			)
		}

		now := time.Now()
		fields := map[string]any{"status": target}
		switch target {
		case enums.SuborderStatusCancelled:
			fields["cancelled_at"] = now
		case enums.SuborderStatusDelivered:
			fields["delivered_at"] = now
		}
		if err := repo.UpdateSuborder(ctx, suborder.ID, fields); err != nil {
			return err
		}
		suborder.Status = target
		if target == enums.SuborderStatusCancelled {
			suborder.CancelledAt = &now
		}

		if target == enums.SuborderStatusDelivered {
			suborder.DeliveredAt = &now
			if err := s.onDelivered(ctx, tx, suborder); err != nil {
				return err
			}
		}
		if err := s.maybeCompleteOrder(ctx, repo, suborder.OrderID, target); err != nil {
			return err
		}
		updated = suborder
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignRider attaches the rider, fee and route snapshot. Only a suborder
// sitting at ready_for_pickup can take an assignment.
func (s *service) AssignRider(ctx context.Context, actor Actor, input AssignRiderInput) (*models.Suborder, error) {
	if actor.Role != enums.ActorRoleAdmin {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only an operator may assign riders")
	}
	if input.RiderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rider id required")
	}

	var updated *models.Suborder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		suborder, err := repo.FindSuborderForUpdate(ctx, input.OrderID, input.SuborderID)
		if err != nil {
			return err
		}
		if suborder.Status != enums.SuborderStatusReadyForPickup {
			return pkgerrors.StateConflict(
				"suborder is not ready for pickup",
				suborder.Status.String(),
				[]string{enums.SuborderStatusReadyForPickup.String()},
			)
		}

		order, err := repo.FindByID(ctx, suborder.OrderID)
		if err != nil {
			return err
		}

		fee := input.DeliveryFeeCents
		if fee <= 0 {
			fee = s.cfg.DefaultFeeCents
		}
		route := &types.DeliveryRoute{
			PickupAddress:  input.PickupAddress,
			DropoffAddress: order.ShippingAddress.Oneline(),
		}

		fields := map[string]any{
			"status":             enums.SuborderStatusAssigned,
			"rider_id":           input.RiderID,
			"delivery_fee_cents": fee,
			"route":              route,
		}
		if err := repo.UpdateSuborder(ctx, suborder.ID, fields); err != nil {
			return err
		}

		suborder.Status = enums.SuborderStatusAssigned
		suborder.RiderID = &input.RiderID
		suborder.DeliveryFeeCents = fee
		suborder.Route = route
		updated = suborder
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"suborder_id": updated.ID.String(),
			"rider_id":    input.RiderID.String(),
		})
		s.logg.Info(logCtx, "rider assigned to suborder")
	}
	return updated, nil
}

// GenerateConfirmationCode issues the single-use code the buyer hands to the
// rider. Only the order's buyer may generate it, and only once the parcel is
// in transit or dropped off.
func (s *service) GenerateConfirmationCode(ctx context.Context, buyerID, orderID, suborderID uuid.UUID) (string, error) {
	var code string
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		order, err := repo.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}

		suborder, err := repo.FindSuborderForUpdate(ctx, orderID, suborderID)
		if err != nil {
			return err
		}
		if suborder.Status != enums.SuborderStatusInTransit && suborder.Status != enums.SuborderStatusDelivered {
			return pkgerrors.StateConflict(
				"confirmation code is only available once the parcel is on its way",
				suborder.Status.String(),
				[]string{enums.SuborderStatusInTransit.String(), enums.SuborderStatusDelivered.String()},
			)
		}
		if suborder.Confirmation != nil && suborder.Confirmation.Done() {
			return pkgerrors.New(pkgerrors.CodeConflict, "delivery already confirmed")
		}

		code, err = randomDigits(s.cfg.ConfirmationCodeLen)
		if err != nil {
			return err
		}
		now := time.Now()
		confirmation := &types.DeliveryConfirmation{Code: code, IssuedAt: &now}
		return repo.UpdateSuborder(ctx, suborder.ID, map[string]any{"confirmation": confirmation})
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// VerifyConfirmationCode closes the loop: the assigned rider submits the
// buyer's code, the suborder lands on confirmed, and the rider's earning is
// written exactly once.
func (s *service) VerifyConfirmationCode(ctx context.Context, riderID, orderID, suborderID uuid.UUID, code string) (*models.Suborder, error) {
	if code == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "confirmation code required")
	}

	var updated *models.Suborder
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		suborder, err := repo.FindSuborderForUpdate(ctx, orderID, suborderID)
		if err != nil {
			return err
		}
		if suborder.RiderID == nil || *suborder.RiderID != riderID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "suborder is assigned to another rider")
		}
		if suborder.Status != enums.SuborderStatusInTransit && suborder.Status != enums.SuborderStatusDelivered {
			return pkgerrors.StateConflict(
				"suborder is not awaiting confirmation",
				suborder.Status.String(),
				[]string{enums.SuborderStatusInTransit.String(), enums.SuborderStatusDelivered.String()},
			)
		}
		if suborder.Confirmation == nil || !suborder.Confirmation.Issued() {
			return pkgerrors.New(pkgerrors.CodeConflict, "no confirmation code outstanding")
		}
		if suborder.Confirmation.Code != code {
			return pkgerrors.New(pkgerrors.CodeValidation, "confirmation code does not match")
		}

		now := time.Now()
		// a verify straight from in_transit passes through delivered so the
		// vendor earning side effect is never skipped
		if suborder.Status == enums.SuborderStatusInTransit {
			suborder.DeliveredAt = &now
			if err := s.onDelivered(ctx, tx, suborder); err != nil {
				return err
			}
		}

		confirmation := &types.DeliveryConfirmation{
			IssuedAt:    suborder.Confirmation.IssuedAt,
			ConfirmedAt: &now,
		}
		fields := map[string]any{
			"status":       enums.SuborderStatusConfirmed,
			"confirmation": confirmation,
			"delivered_at": suborder.DeliveredAt,
		}
		if err := repo.UpdateSuborder(ctx, suborder.ID, fields); err != nil {
			return err
		}
		suborder.Status = enums.SuborderStatusConfirmed
		suborder.Confirmation = confirmation

		if _, err := s.ledger.CreateRiderEarning(ctx, tx, ledger.RiderEarningInput{
			OrderID:    suborder.OrderID,
			SuborderID: suborder.ID,
			RiderID:    riderID,
			FeeCents:   suborder.DeliveryFeeCents,
		}); err != nil {
			return err
		}

		if err := s.maybeCompleteOrder(ctx, repo, suborder.OrderID, enums.SuborderStatusConfirmed); err != nil {
			return err
		}
		updated = suborder
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"suborder_id": updated.ID.String(),
			"rider_id":    riderID.String(),
		})
		s.logg.Info(logCtx, "delivery confirmed by code")
	}
	return updated, nil
}

// onDelivered writes the vendor earning for the delivered suborder. The
// existence check inside the ledger makes this a no-op when reconciliation
// already created the entry at payment time.
func (s *service) onDelivered(ctx context.Context, tx *gorm.DB, suborder *models.Suborder) error {
	_, err := s.ledger.CreateVendorPayout(ctx, tx, ledger.VendorPayoutInput{
		OrderID:         suborder.OrderID,
		SuborderID:      suborder.ID,
		VendorID:        suborder.VendorID,
		GrossCents:      suborder.GrossCents,
		CommissionCents: suborder.CommissionCents,
		NetCents:        suborder.NetCents,
	})
	if err != nil {
		return err
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventSuborderDelivered,
		AggregateType: enums.AggregateSuborder,
		AggregateID:   suborder.ID,
		Version:       1,
		Data: map[string]any{
			"order_id":    suborder.OrderID.String(),
			"suborder_id": suborder.ID.String(),
			"vendor_id":   suborder.VendorID.String(),
		},
	})
}

// maybeCompleteOrder flips the parent order to completed once every suborder
// reached a terminal delivery state.
func (s *service) maybeCompleteOrder(ctx context.Context, repo orders.Repository, orderID uuid.UUID, justSet enums.SuborderStatus) error {
	if justSet != enums.SuborderStatusConfirmed && justSet != enums.SuborderStatusCancelled {
		return nil
	}
	suborders, err := repo.ListSuborders(ctx, orderID)
	if err != nil {
		return err
	}
	for _, sub := range suborders {
		if sub.Status != enums.SuborderStatusConfirmed && sub.Status != enums.SuborderStatusCancelled {
			return nil
		}
	}
	return repo.UpdateStatus(ctx, orderID, enums.OrderStatusCompleted)
}

func (s *service) checkOwnership(ctx context.Context, repo orders.Repository, actor Actor, suborder *models.Suborder) error {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return nil
	case enums.ActorRoleVendor:
		if actor.VendorID == nil || suborder.VendorID != *actor.VendorID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "suborder belongs to another vendor")
		}
		return nil
	case enums.ActorRoleRider:
		if suborder.RiderID == nil || *suborder.RiderID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "suborder is assigned to another rider")
		}
		return nil
	case enums.ActorRoleCustomer:
		order, err := repo.FindByID(ctx, suborder.OrderID)
		if err != nil {
			return err
		}
		if order.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "role may not drive delivery transitions")
	}
}

func statusStrings(statuses []enums.SuborderStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, status := range statuses {
		out = append(out, string(status))
	}
	return out
}

func randomDigits(n int) (string, error) {
	digits := make([]byte, n)
	max := big.NewInt(10)
	for i := range digits {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("reading entropy: %w", err)
		}
		digits[i] = byte('0' + v.Int64())
	}
	return string(digits), nil
}
