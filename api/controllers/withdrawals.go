package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/responses"
	"github.com/shopdeck/shopdeck-backend/api/validators"
	withdrawalsvc "github.com/shopdeck/shopdeck-backend/internal/withdrawals"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
)

// WithdrawalCreate opens a payout request against the vendor's available
// ledger entries.
func WithdrawalCreate(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
			return
		}

		var payload createWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		record, err := svc.CreateRequest(r.Context(), withdrawalsvc.CreateRequestInput{
			VendorID:     *actor.VendorID,
			EntryIDs:     payload.EntryIDs,
			AmountCents:  payload.AmountCents,
			MobileNumber: payload.MobileNumber,
			Notes:        payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newWithdrawalResponse(record))
	}
}

// WithdrawalsList returns the vendor's own requests, newest first.
func WithdrawalsList(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if actor.VendorID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "vendor context missing"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		records, next, err := svc.ListByVendor(r.Context(), *actor.VendorID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listPage{Items: newWithdrawalResponses(records), NextCursor: next})
	}
}

// WithdrawalGet returns one request. Vendors only see their own.
func WithdrawalGet(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "withdrawalId"), "withdrawal_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		scope := actor.VendorID
		if actor.Role == enums.ActorRoleAdmin {
			scope = nil
		}
		record, err := svc.Get(r.Context(), scope, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWithdrawalResponse(record))
	}
}

// AdminWithdrawalsList returns requests across all vendors, optionally
// filtered by status.
func AdminWithdrawalsList(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		params, err := validators.ParsePagination(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var status *enums.WithdrawalStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParseWithdrawalStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			status = &parsed
		}

		records, next, err := svc.List(r.Context(), status, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, listPage{Items: newWithdrawalResponses(records), NextCursor: next})
	}
}

// WithdrawalDecide applies an admin decision to a request.
func WithdrawalDecide(svc withdrawalsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "withdrawal service unavailable"))
			return
		}

		actor, err := actorFromRequest(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		requestID, err := validators.ParsePathUUID(chi.URLParam(r, "withdrawalId"), "withdrawal_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload decideWithdrawalRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		action, err := enums.ParseWithdrawalAction(payload.Action)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid action"))
			return
		}

		record, err := svc.Decide(r.Context(), withdrawalsvc.DecideInput{
			RequestID:       requestID,
			AdminID:         actor.UserID,
			Action:          action,
			RejectionReason: payload.RejectionReason,
			ProviderReceipt: payload.ProviderReceipt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newWithdrawalResponse(record))
	}
}

type createWithdrawalRequest struct {
	EntryIDs     []uuid.UUID `json:"entry_ids" validate:"required,min=1"`
	AmountCents  int64       `json:"amount_cents" validate:"required,gt=0"`
	MobileNumber string      `json:"mobile_number" validate:"required"`
	Notes        *string     `json:"notes"`
}

type decideWithdrawalRequest struct {
	Action          string  `json:"action" validate:"required"`
	RejectionReason *string `json:"rejection_reason"`
	ProviderReceipt *string `json:"provider_receipt"`
}

type withdrawalEntryResponse struct {
	ID         uuid.UUID `json:"id"`
	OrderID    uuid.UUID `json:"order_id"`
	SuborderID uuid.UUID `json:"suborder_id"`
	NetCents   int64     `json:"net_cents"`
	Status     string    `json:"status"`
}

type withdrawalResponse struct {
	ID              uuid.UUID                 `json:"id"`
	VendorID        uuid.UUID                 `json:"vendor_id"`
	AmountCents     int64                     `json:"amount_cents"`
	MobileNumber    string                    `json:"mobile_number"`
	Status          string                    `json:"status"`
	Notes           *string                   `json:"notes,omitempty"`
	RejectionReason *string                   `json:"rejection_reason,omitempty"`
	ProviderReceipt *string                   `json:"provider_receipt,omitempty"`
	ReviewedAt      *time.Time                `json:"reviewed_at,omitempty"`
	ProcessedAt     *time.Time                `json:"processed_at,omitempty"`
	Entries         []withdrawalEntryResponse `json:"entries,omitempty"`
	CreatedAt       time.Time                 `json:"created_at"`
}

func newWithdrawalResponse(record *models.WithdrawalRequest) withdrawalResponse {
	entries := make([]withdrawalEntryResponse, 0, len(record.Entries))
	for _, entry := range record.Entries {
		entries = append(entries, withdrawalEntryResponse{
			ID:         entry.ID,
			OrderID:    entry.OrderID,
			SuborderID: entry.SuborderID,
			NetCents:   entry.NetCents,
			Status:     string(entry.Status),
		})
	}
	return withdrawalResponse{
		ID:              record.ID,
		VendorID:        record.VendorID,
		AmountCents:     record.AmountCents,
		MobileNumber:    record.MobileNumber,
		Status:          record.Status.String(),
		Notes:           record.Notes,
		RejectionReason: record.RejectionReason,
		ProviderReceipt: record.ProviderReceipt,
		ReviewedAt:      record.ReviewedAt,
		ProcessedAt:     record.ProcessedAt,
		Entries:         entries,
		CreatedAt:       record.CreatedAt,
	}
}

func newWithdrawalResponses(records []models.WithdrawalRequest) []withdrawalResponse {
	out := make([]withdrawalResponse, 0, len(records))
	for i := range records {
		out = append(out, newWithdrawalResponse(&records[i]))
	}
	return out
}
