package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/pkg/config"
	dbpkg "github.com/shopdeck/shopdeck-backend/pkg/db"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// Service owns creation and reporting of ledger entries. Creation is
// idempotent on (order, suborder, owner, type, slice); the unique index is
// the last line of defense, the existence check the first.
type Service interface {
	CreateVendorPayout(ctx context.Context, tx *gorm.DB, input VendorPayoutInput) ([]models.LedgerEntry, error)
	CreateRiderEarning(ctx context.Context, tx *gorm.DB, input RiderEarningInput) (*models.LedgerEntry, error)
	Summary(ctx context.Context, ownerID uuid.UUID) (*EarningsSummary, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, statuses []enums.EarningStatus) ([]models.LedgerEntry, error)
}

// VendorPayoutInput carries one vendor split from a confirmed order.
type VendorPayoutInput struct {
	OrderID         uuid.UUID
	SuborderID      uuid.UUID
	VendorID        uuid.UUID
	GrossCents      int64
	CommissionCents int64
	NetCents        int64
}

// RiderEarningInput carries the delivery fee owed after a confirmed delivery.
type RiderEarningInput struct {
	OrderID    uuid.UUID
	SuborderID uuid.UUID
	RiderID    uuid.UUID
	FeeCents   int64
}

// EarningsSummary totals an owner's ledger by status.
type EarningsSummary struct {
	OwnerID        uuid.UUID `json:"owner_id"`
	PendingCents   int64     `json:"pending_cents"`
	AvailableCents int64     `json:"available_cents"`
	LockedCents    int64     `json:"locked_cents"`
	RequestedCents int64     `json:"requested_cents"`
	WithdrawnCents int64     `json:"withdrawn_cents"`
}

type service struct {
	repo  Repository
	cfg   config.PayoutConfig
	flags config.FeatureFlagsConfig
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository, cfg config.PayoutConfig, flags config.FeatureFlagsConfig) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if cfg.SettlementDelay <= 0 {
		return nil, fmt.Errorf("settlement delay must be positive")
	}
	if cfg.ImmediatePercent <= 0 || cfg.ImmediatePercent >= 100 {
		return nil, fmt.Errorf("immediate percent must be within (0,100)")
	}
	return &service{repo: repo, cfg: cfg, flags: flags}, nil
}

func (s *service) CreateVendorPayout(ctx context.Context, tx *gorm.DB, input VendorPayoutInput) ([]models.LedgerEntry, error) {
	if err := validateSource(input.OrderID, input.SuborderID, input.VendorID); err != nil {
		return nil, err
	}
	if input.NetCents < 0 || input.GrossCents < 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "amounts must be non-negative")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.Exists(ctx, input.OrderID, input.SuborderID, input.VendorID, enums.EarningTypeOrderVendorPayout)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	now := time.Now()
	entries := s.buildVendorEntries(input, now)
	created := make([]models.LedgerEntry, 0, len(entries))
	for i := range entries {
		if err := repo.Create(ctx, &entries[i]); err != nil {
			if dbpkg.IsUniqueViolation(err, "ux_ledger_entries_source") {
				return nil, nil
			}
			return nil, err
		}
		created = append(created, entries[i])
	}
	return created, nil
}

func (s *service) buildVendorEntries(input VendorPayoutInput, now time.Time) []models.LedgerEntry {
	if !s.flags.SplitVendorPayouts {
		return []models.LedgerEntry{{
			OwnerID:         input.VendorID,
			Type:            enums.EarningTypeOrderVendorPayout,
			OrderID:         input.OrderID,
			SuborderID:      input.SuborderID,
			Slice:           enums.ReleaseSliceFull,
			GrossCents:      input.GrossCents,
			CommissionCents: input.CommissionCents,
			NetCents:        input.NetCents,
			Status:          enums.EarningStatusPending,
			AvailableAt:     now.Add(s.cfg.SettlementDelay),
		}}
	}

	immediate := input.NetCents * int64(s.cfg.ImmediatePercent) / 100
	remainder := input.NetCents - immediate
	holdUntil := now.Add(s.cfg.RemainderHoldTime)
	breakdown := &types.ReleaseBreakdown{
		Immediate:       true,
		Percentage:      s.cfg.ImmediatePercent,
		TotalCents:      input.GrossCents,
		CommissionCents: input.CommissionCents,
		NetCents:        input.NetCents,
		ImmediateCents:  immediate,
		RemainderCents:  remainder,
		HoldUntil:       &holdUntil,
	}

	return []models.LedgerEntry{
		{
			OwnerID:         input.VendorID,
			Type:            enums.EarningTypeOrderVendorPayout,
			OrderID:         input.OrderID,
			SuborderID:      input.SuborderID,
			Slice:           enums.ReleaseSliceImmediate,
			GrossCents:      input.GrossCents,
			CommissionCents: input.CommissionCents,
			NetCents:        immediate,
			Status:          enums.EarningStatusAvailable,
			AvailableAt:     now,
			Release:         breakdown,
		},
		{
			OwnerID:     input.VendorID,
			Type:        enums.EarningTypeOrderVendorPayout,
			OrderID:     input.OrderID,
			SuborderID:  input.SuborderID,
			Slice:       enums.ReleaseSliceRemainder,
			NetCents:    remainder,
			Status:      enums.EarningStatusLocked,
			AvailableAt: holdUntil,
			HoldUntil:   &holdUntil,
			Release:     breakdown,
		},
	}
}

func (s *service) CreateRiderEarning(ctx context.Context, tx *gorm.DB, input RiderEarningInput) (*models.LedgerEntry, error) {
	if err := validateSource(input.OrderID, input.SuborderID, input.RiderID); err != nil {
		return nil, err
	}
	if input.FeeCents <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "delivery fee must be positive")
	}

	repo := s.repo.WithTx(tx)
	exists, err := repo.Exists(ctx, input.OrderID, input.SuborderID, input.RiderID, enums.EarningTypeRiderPayout)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, nil
	}

	entry := &models.LedgerEntry{
		OwnerID:     input.RiderID,
		Type:        enums.EarningTypeRiderPayout,
		OrderID:     input.OrderID,
		SuborderID:  input.SuborderID,
		Slice:       enums.ReleaseSliceFull,
		GrossCents:  input.FeeCents,
		NetCents:    input.FeeCents,
		Status:      enums.EarningStatusPending,
		AvailableAt: time.Now().Add(s.cfg.SettlementDelay),
	}
	if err := repo.Create(ctx, entry); err != nil {
		if dbpkg.IsUniqueViolation(err, "ux_ledger_entries_source") {
			return nil, nil
		}
		return nil, err
	}
	return entry, nil
}

func (s *service) Summary(ctx context.Context, ownerID uuid.UUID) (*EarningsSummary, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	sums, err := s.repo.SumByOwnerAndStatus(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &EarningsSummary{
		OwnerID:        ownerID,
		PendingCents:   sums[enums.EarningStatusPending],
		AvailableCents: sums[enums.EarningStatusAvailable],
		LockedCents:    sums[enums.EarningStatusLocked],
		RequestedCents: sums[enums.EarningStatusRequested],
		WithdrawnCents: sums[enums.EarningStatusWithdrawn],
	}, nil
}

func (s *service) ListByOwner(ctx context.Context, ownerID uuid.UUID, statuses []enums.EarningStatus) ([]models.LedgerEntry, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	return s.repo.ListByOwner(ctx, ownerID, statuses)
}

func validateSource(orderID, suborderID, ownerID uuid.UUID) error {
	if orderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	if suborderID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "suborder id required")
	}
	if ownerID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "owner id required")
	}
	return nil
}
