package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/pagination"
)

// Service is the buyer-facing read surface over orders.
type Service interface {
	List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]OrderSummary, string, error)
	Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error)
}

// Actor scopes reads: buyers see their own orders, admins see all, vendors
// see orders containing one of their suborders.
type Actor struct {
	UserID   uuid.UUID
	Role     enums.ActorRole
	VendorID *uuid.UUID
}

type service struct {
	repo Repository
}

// NewService wires the orders read service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, buyerID uuid.UUID, params pagination.Params) ([]OrderSummary, string, error) {
	if buyerID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	rows, next, err := s.repo.ListByBuyer(ctx, buyerID, params)
	if err != nil {
		return nil, "", err
	}
	out := make([]OrderSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToSummary(row))
	}
	return out, next, nil
}

func (s *service) Get(ctx context.Context, actor Actor, orderID uuid.UUID) (*OrderDetail, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := s.repo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !mayView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another account")
	}
	detail := ToDetail(*order)
	return &detail, nil
}

func mayView(actor Actor, order *models.Order) bool {
	switch actor.Role {
	case enums.ActorRoleAdmin:
		return true
	case enums.ActorRoleCustomer:
		return order.BuyerID == actor.UserID
	case enums.ActorRoleVendor:
		if actor.VendorID == nil {
			return false
		}
		for _, sub := range order.Suborders {
			if sub.VendorID == *actor.VendorID {
				return true
			}
		}
		return false
	case enums.ActorRoleRider:
		for _, sub := range order.Suborders {
			if sub.RiderID != nil && *sub.RiderID == actor.UserID {
				return true
			}
		}
		return false
	default:
		return false
	}
}
