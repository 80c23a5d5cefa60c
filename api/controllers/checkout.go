package controllers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/responses"
	"github.com/shopdeck/shopdeck-backend/api/validators"
	checkoutsvc "github.com/shopdeck/shopdeck-backend/internal/checkout"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// CheckoutCreate freezes the buyer's cart into a payable order draft.
func CheckoutCreate(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createDraftRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.CreateDraft(r.Context(), actor.UserID, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newDraftResponse(draft))
	}
}

// CheckoutGet returns a draft so the buyer can poll its payment status.
func CheckoutGet(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draftID, err := validators.ParsePathUUID(chi.URLParam(r, "draftId"), "draft_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		draft, err := svc.GetByID(r.Context(), draftID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.Role != enums.ActorRoleAdmin && draft.BuyerID != actor.UserID {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "draft belongs to another buyer"))
			return
		}

		responses.WriteSuccess(w, newDraftResponse(draft))
	}
}

type createDraftRequest struct {
	Items           []draftItemPayload `json:"items" validate:"required,min=1,dive"`
	ShippingAddress types.Address      `json:"shipping_address" validate:"required"`
}

type draftItemPayload struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Qty       int       `json:"qty" validate:"required,min=1"`
}

func (r createDraftRequest) toInput() checkoutsvc.CreateDraftInput {
	items := make([]checkoutsvc.DraftItemInput, len(r.Items))
	for i, item := range r.Items {
		items[i] = checkoutsvc.DraftItemInput{ProductID: item.ProductID, Qty: item.Qty}
	}
	return checkoutsvc.CreateDraftInput{
		Items:           items,
		ShippingAddress: r.ShippingAddress,
	}
}

type draftResponse struct {
	ID               uuid.UUID          `json:"id"`
	Reference        string             `json:"reference"`
	ShortCode        *string            `json:"short_code,omitempty"`
	Status           string             `json:"status"`
	Items            types.DraftItems   `json:"items"`
	VendorSplits     types.VendorSplits `json:"vendor_splits"`
	SubtotalCents    int64              `json:"subtotal_cents"`
	PlatformFeeCents int64              `json:"platform_fee_cents"`
	TotalCents       int64              `json:"total_cents"`
	ShippingAddress  types.Address      `json:"shipping_address"`
	FailureReason    *string            `json:"failure_reason,omitempty"`
	ExpiresAt        time.Time          `json:"expires_at"`
	CreatedAt        time.Time          `json:"created_at"`
}

func newDraftResponse(draft *models.OrderDraft) draftResponse {
	return draftResponse{
		ID:               draft.ID,
		Reference:        draft.Reference,
		ShortCode:        draft.ShortCode,
		Status:           draft.Status.String(),
		Items:            draft.Items,
		VendorSplits:     draft.VendorSplits,
		SubtotalCents:    draft.SubtotalCents,
		PlatformFeeCents: draft.PlatformFeeCents,
		TotalCents:       draft.TotalCents,
		ShippingAddress:  draft.ShippingAddress,
		FailureReason:    draft.FailureReason,
		ExpiresAt:        draft.ExpiresAt,
		CreatedAt:        draft.CreatedAt,
	}
}
