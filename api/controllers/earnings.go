package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/responses"
	ledgersvc "github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
)

// EarningsSummary totals the actor's ledger by status. Vendors are scoped by
// their vendor id, riders by their user id.
func EarningsSummary(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ownerID, err := earningsOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), ownerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, summary)
	}
}

// EarningsList returns the actor's ledger entries, optionally filtered by a
// comma-separated status list.
func EarningsList(svc ledgersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "ledger service unavailable"))
			return
		}

		ownerID, err := earningsOwner(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		statuses, err := parseEarningStatuses(r.URL.Query().Get("status"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entries, err := svc.ListByOwner(r.Context(), ownerID, statuses)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newLedgerEntryResponses(entries))
	}
}

func earningsOwner(r *http.Request) (uuid.UUID, error) {
	actor, err := actorFromRequest(r)
	if err != nil {
		return uuid.Nil, err
	}
	switch actor.Role {
	case enums.ActorRoleVendor:
		return *actor.VendorID, nil
	case enums.ActorRoleRider:
		return actor.UserID, nil
	default:
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "earnings are scoped to vendors and riders")
	}
}

func parseEarningStatuses(raw string) ([]enums.EarningStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	statuses := make([]enums.EarningStatus, 0, len(parts))
	for _, part := range parts {
		status, err := enums.ParseEarningStatus(strings.TrimSpace(part))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

type ledgerEntryResponse struct {
	ID              uuid.UUID  `json:"id"`
	Type            string     `json:"type"`
	OrderID         uuid.UUID  `json:"order_id"`
	SuborderID      uuid.UUID  `json:"suborder_id"`
	Slice           string     `json:"release_slice"`
	GrossCents      int64      `json:"gross_cents"`
	CommissionCents int64      `json:"commission_cents"`
	NetCents        int64      `json:"net_cents"`
	Status          string     `json:"status"`
	AvailableAt     time.Time  `json:"available_at"`
	HoldUntil       *time.Time `json:"hold_until,omitempty"`
	WithdrawalID    *uuid.UUID `json:"withdrawal_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func newLedgerEntryResponses(entries []models.LedgerEntry) []ledgerEntryResponse {
	out := make([]ledgerEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, ledgerEntryResponse{
			ID:              entry.ID,
			Type:            string(entry.Type),
			OrderID:         entry.OrderID,
			SuborderID:      entry.SuborderID,
			Slice:           string(entry.Slice),
			GrossCents:      entry.GrossCents,
			CommissionCents: entry.CommissionCents,
			NetCents:        entry.NetCents,
			Status:          string(entry.Status),
			AvailableAt:     entry.AvailableAt,
			HoldUntil:       entry.HoldUntil,
			WithdrawalID:    entry.WithdrawalID,
			CreatedAt:       entry.CreatedAt,
		})
	}
	return out
}
