package withdrawals

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
	"github.com/shopdeck/shopdeck-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// CreateRequestInput is a vendor's ask to cash out a set of available entries.
type CreateRequestInput struct {
	VendorID     uuid.UUID
	EntryIDs     []uuid.UUID
	AmountCents  int64
	MobileNumber string
	Notes        *string
}

// DecideInput is an admin decision on a pending or approved request.
type DecideInput struct {
	RequestID       uuid.UUID
	AdminID         uuid.UUID
	Action          enums.WithdrawalAction
	RejectionReason *string
	ProviderReceipt *string
}

// Service owns the withdrawal request lifecycle: creation locks the backing
// ledger entries, decisions move the request through review, and rejection
// returns the entries to the vendor's available balance.
type Service interface {
	CreateRequest(ctx context.Context, input CreateRequestInput) (*models.WithdrawalRequest, error)
	Decide(ctx context.Context, input DecideInput) (*models.WithdrawalRequest, error)
	Get(ctx context.Context, vendorID *uuid.UUID, requestID uuid.UUID) (*models.WithdrawalRequest, error)
	List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, string, error)
	ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, string, error)
}

type service struct {
	tx      txRunner
	repo    Repository
	entries ledger.Repository
	outbox  outboxPublisher
	logg    *logger.Logger
}

// NewService wires the withdrawal service.
func NewService(tx txRunner, repo Repository, entries ledger.Repository, publisher outboxPublisher, logg *logger.Logger) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if repo == nil {
		return nil, fmt.Errorf("withdrawal repository required")
	}
	if entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	return &service{tx: tx, repo: repo, entries: entries, outbox: publisher, logg: logg}, nil
}

func (s *service) CreateRequest(ctx context.Context, input CreateRequestInput) (*models.WithdrawalRequest, error) {
	if input.VendorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	if len(input.EntryIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one ledger entry required")
	}
	if input.AmountCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amount must be positive")
	}
	if strings.TrimSpace(input.MobileNumber) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mobile number required")
	}
	if hasDuplicates(input.EntryIDs) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate ledger entries")
	}

	var request *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entries := s.entries.WithTx(tx)

		outstanding, err := repo.HasOutstandingForVendor(ctx, input.VendorID)
		if err != nil {
			return err
		}
		if outstanding {
			return pkgerrors.New(pkgerrors.CodeConflict, "vendor already has a withdrawal request under review")
		}

		available, err := entries.FindAvailableForUpdate(ctx, input.VendorID, input.EntryIDs)
		if err != nil {
			return err
		}
		if len(available) != len(input.EntryIDs) {
			return pkgerrors.New(pkgerrors.CodeConflict, "one or more entries are not available for withdrawal").
				WithDetails(map[string]any{
					"requested": len(input.EntryIDs),
					"available": len(available),
				})
		}

		var totalNet int64
		for _, entry := range available {
			totalNet += entry.NetCents
		}
		if input.AmountCents > totalNet {
			return pkgerrors.New(pkgerrors.CodeValidation, "amount exceeds the selected entries").
				WithDetails(map[string]any{
					"amount_cents":    input.AmountCents,
					"available_cents": totalNet,
				})
		}

		request = &models.WithdrawalRequest{
			ID:           uuid.New(),
			VendorID:     input.VendorID,
			AmountCents:  input.AmountCents,
			MobileNumber: strings.TrimSpace(input.MobileNumber),
			Status:       enums.WithdrawalStatusPending,
			Notes:        input.Notes,
		}
		if err := repo.Create(ctx, request); err != nil {
			return err
		}

		claimed, err := entries.MarkRequested(ctx, input.EntryIDs, request.ID)
		if err != nil {
			return err
		}
		// a concurrent claim won part of the set; roll everything back
		if claimed != int64(len(input.EntryIDs)) {
			return pkgerrors.New(pkgerrors.CodeConflict, "entries were claimed by a concurrent request")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"withdrawal_id": request.ID.String(),
			"vendor_id":     input.VendorID.String(),
			"amount_cents":  input.AmountCents,
		})
		s.logg.Info(logCtx, "withdrawal request created")
	}
	return request, nil
}

func (s *service) Decide(ctx context.Context, input DecideInput) (*models.WithdrawalRequest, error) {
	if input.RequestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	if !input.Action.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown action %q", input.Action))
	}
	if input.Action == enums.WithdrawalActionProcess &&
		(input.ProviderReceipt == nil || strings.TrimSpace(*input.ProviderReceipt) == "") {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "provider receipt required to process")
	}

	var decided *models.WithdrawalRequest
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entries := s.entries.WithTx(tx)

		request, err := repo.FindByIDForUpdate(ctx, input.RequestID)
		if err != nil {
			return err
		}
		if !input.Action.AllowedFrom(request.Status) {
			return pkgerrors.StateConflict(
				fmt.Sprintf("cannot %s a %s request", input.Action, request.Status),
				request.Status.String(),
				actionStrings(enums.AllowedWithdrawalActions(request.Status)),
			)
		}

		target, _ := input.Action.TargetStatus()
		now := time.Now()
		fields := map[string]any{"status": target}

		switch input.Action {
		case enums.WithdrawalActionApprove:
			fields["reviewed_at"] = now
		case enums.WithdrawalActionReject:
			fields["reviewed_at"] = now
			if input.RejectionReason != nil {
				fields["rejection_reason"] = *input.RejectionReason
			}
			if err := entries.ReleaseRequested(ctx, request.ID); err != nil {
				return err
			}
		case enums.WithdrawalActionProcess:
			fields["provider_receipt"] = strings.TrimSpace(*input.ProviderReceipt)
			fields["processed_at"] = now
			if err := entries.MarkWithdrawn(ctx, request.ID); err != nil {
				return err
			}
		}

		if err := repo.Update(ctx, request.ID, fields); err != nil {
			return err
		}

		request.Status = target
		if reviewed, ok := fields["reviewed_at"].(time.Time); ok {
			request.ReviewedAt = &reviewed
		}
		if processed, ok := fields["processed_at"].(time.Time); ok {
			request.ProcessedAt = &processed
		}
		if reason, ok := fields["rejection_reason"].(string); ok {
			request.RejectionReason = &reason
		}
		if receipt, ok := fields["provider_receipt"].(string); ok {
			request.ProviderReceipt = &receipt
		}
		decided = request

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventWithdrawalDecided,
			AggregateType: enums.AggregateWithdrawal,
			AggregateID:   request.ID,
			Actor:         &outbox.ActorRef{UserID: input.AdminID, Role: enums.ActorRoleAdmin.String()},
			Version:       1,
			Data: map[string]any{
				"withdrawal_id": request.ID.String(),
				"vendor_id":     request.VendorID.String(),
				"action":        input.Action,
				"status":        target,
				"amount_cents":  request.AmountCents,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"withdrawal_id": decided.ID.String(),
			"action":        input.Action,
			"status":        decided.Status,
		})
		s.logg.Info(logCtx, "withdrawal request decided")
	}
	return decided, nil
}

// Get scopes reads: a vendor id restricts access to that vendor's requests,
// nil means an admin caller.
func (s *service) Get(ctx context.Context, vendorID *uuid.UUID, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	if requestID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "request id required")
	}
	request, err := s.repo.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if vendorID != nil && request.VendorID != *vendorID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "request belongs to another vendor")
	}
	return request, nil
}

func (s *service) List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	if status != nil && !status.IsValid() {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unknown status %q", *status))
	}
	return s.repo.List(ctx, status, params)
}

func (s *service) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	if vendorID == uuid.Nil {
		return nil, "", pkgerrors.New(pkgerrors.CodeValidation, "vendor id required")
	}
	return s.repo.ListByVendor(ctx, vendorID, params)
}

func actionStrings(actions []enums.WithdrawalAction) []string {
	out := make([]string, 0, len(actions))
	for _, action := range actions {
		out = append(out, string(action))
	}
	return out
}

func hasDuplicates(ids []uuid.UUID) bool {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
