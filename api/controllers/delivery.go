package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/responses"
	"github.com/shopdeck/shopdeck-backend/api/validators"
	deliverysvc "github.com/shopdeck/shopdeck-backend/internal/delivery"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// SuborderStatusUpdate moves one suborder along the fulfillment state machine.
func SuborderStatusUpdate(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		actor, orderID, suborderID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSuborderStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		target, err := enums.ParseSuborderStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		suborder, err := svc.UpdateStatus(r.Context(), deliveryActor(actor), orderID, suborderID, target)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSuborderResponse(suborder))
	}
}

// SuborderAssignRider attaches a rider and a delivery route to a suborder.
func SuborderAssignRider(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		actor, orderID, suborderID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignRiderRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suborder, err := svc.AssignRider(r.Context(), deliveryActor(actor), deliverysvc.AssignRiderInput{
			OrderID:          orderID,
			SuborderID:       suborderID,
			RiderID:          payload.RiderID,
			DeliveryFeeCents: payload.DeliveryFeeCents,
			PickupAddress:    payload.PickupAddress,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSuborderResponse(suborder))
	}
}

// SuborderConfirmationCode issues the buyer's one-time handover code.
func SuborderConfirmationCode(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		actor, orderID, suborderID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		code, err := svc.GenerateConfirmationCode(r.Context(), actor.UserID, orderID, suborderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]string{"code": code})
	}
}

// SuborderConfirm verifies the handover code and settles the rider's fee.
func SuborderConfirm(svc deliverysvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "delivery service unavailable"))
			return
		}

		actor, orderID, suborderID, err := deliveryScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmDeliveryRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		suborder, err := svc.VerifyConfirmationCode(r.Context(), actor.UserID, orderID, suborderID, payload.Code)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newSuborderResponse(suborder))
	}
}

func deliveryScope(r *http.Request) (requestActor, uuid.UUID, uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return requestActor{}, uuid.Nil, uuid.Nil, err
	}
	orderID, err := validators.ParsePathUUID(chi.URLParam(r, "orderId"), "order_id")
	if err != nil {
		return requestActor{}, uuid.Nil, uuid.Nil, err
	}
	suborderID, err := validators.ParsePathUUID(chi.URLParam(r, "suborderId"), "suborder_id")
	if err != nil {
		return requestActor{}, uuid.Nil, uuid.Nil, err
	}
	return actor, orderID, suborderID, nil
}

func deliveryActor(actor requestActor) deliverysvc.Actor {
	return deliverysvc.Actor{
		UserID:   actor.UserID,
		Role:     actor.Role,
		VendorID: actor.VendorID,
	}
}

type updateSuborderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type assignRiderRequest struct {
	RiderID          uuid.UUID `json:"rider_id" validate:"required"`
	DeliveryFeeCents int64     `json:"delivery_fee_cents" validate:"min=0"`
	PickupAddress    string    `json:"pickup_address"`
}

type confirmDeliveryRequest struct {
	Code string `json:"code" validate:"required"`
}

type suborderResponse struct {
	ID               uuid.UUID                   `json:"id"`
	OrderID          uuid.UUID                   `json:"order_id"`
	VendorID         uuid.UUID                   `json:"vendor_id"`
	Status           string                      `json:"status"`
	GrossCents       int64                       `json:"gross_cents"`
	CommissionCents  int64                       `json:"commission_cents"`
	NetCents         int64                       `json:"net_cents"`
	RiderID          *uuid.UUID                  `json:"rider_id,omitempty"`
	DeliveryFeeCents int64                       `json:"delivery_fee_cents"`
	Route            *types.DeliveryRoute        `json:"route,omitempty"`
	DeliveredAt      *time.Time                  `json:"delivered_at,omitempty"`
	CancelledAt      *time.Time                  `json:"cancelled_at,omitempty"`
	Confirmation     *types.DeliveryConfirmation `json:"confirmation,omitempty"`
	UpdatedAt        time.Time                   `json:"updated_at"`
}

func newSuborderResponse(suborder *models.Suborder) suborderResponse {
	resp := suborderResponse{
		ID:               suborder.ID,
		OrderID:          suborder.OrderID,
		VendorID:         suborder.VendorID,
		Status:           suborder.Status.String(),
		GrossCents:       suborder.GrossCents,
		CommissionCents:  suborder.CommissionCents,
		NetCents:         suborder.NetCents,
		RiderID:          suborder.RiderID,
		DeliveryFeeCents: suborder.DeliveryFeeCents,
		Route:            suborder.Route,
		DeliveredAt:      suborder.DeliveredAt,
		CancelledAt:      suborder.CancelledAt,
		UpdatedAt:        suborder.UpdatedAt,
	}
	// The raw code never leaves the server after issuance.
	if suborder.Confirmation != nil {
		sanitized := *suborder.Confirmation
		sanitized.Code = ""
		resp.Confirmation = &sanitized
	}
	return resp
}
