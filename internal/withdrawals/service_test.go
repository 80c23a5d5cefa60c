package withdrawals

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeWithdrawalRepo struct {
	Repository
	requests    map[uuid.UUID]*models.WithdrawalRequest
	outstanding bool
	updates     map[uuid.UUID]map[string]any
}

func newFakeWithdrawalRepo() *fakeWithdrawalRepo {
	return &fakeWithdrawalRepo{
		requests: map[uuid.UUID]*models.WithdrawalRequest{},
		updates:  map[uuid.UUID]map[string]any{},
	}
}

func (f *fakeWithdrawalRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeWithdrawalRepo) Create(ctx context.Context, request *models.WithdrawalRequest) error {
	f.requests[request.ID] = request
	return nil
}

func (f *fakeWithdrawalRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	request, ok := f.requests[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "withdrawal request not found")
	}
	return request, nil
}

func (f *fakeWithdrawalRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.WithdrawalRequest, error) {
	return f.FindByIDForUpdate(ctx, id)
}

func (f *fakeWithdrawalRepo) HasOutstandingForVendor(ctx context.Context, vendorID uuid.UUID) (bool, error) {
	return f.outstanding, nil
}

func (f *fakeWithdrawalRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	f.updates[id] = fields
	if request, ok := f.requests[id]; ok {
		if status, ok := fields["status"].(enums.WithdrawalStatus); ok {
			request.Status = status
		}
	}
	return nil
}

type fakeLedgerRepo struct {
	ledger.Repository
	available []models.LedgerEntry
	claimed   int64

	requested []uuid.UUID
	released  []uuid.UUID
	withdrawn []uuid.UUID
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) FindAvailableForUpdate(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.LedgerEntry, error) {
	return f.available, nil
}

func (f *fakeLedgerRepo) MarkRequested(ctx context.Context, ids []uuid.UUID, withdrawalID uuid.UUID) (int64, error) {
	f.requested = append(f.requested, ids...)
	if f.claimed >= 0 {
		return f.claimed, nil
	}
	return int64(len(ids)), nil
}

func (f *fakeLedgerRepo) ReleaseRequested(ctx context.Context, withdrawalID uuid.UUID) error {
	f.released = append(f.released, withdrawalID)
	return nil
}

func (f *fakeLedgerRepo) MarkWithdrawn(ctx context.Context, withdrawalID uuid.UUID) error {
	f.withdrawn = append(f.withdrawn, withdrawalID)
	return nil
}

type fakeOutbox struct {
	events []outbox.DomainEvent
}

func (f *fakeOutbox) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	f.events = append(f.events, event)
	return nil
}

func availableEntries(vendorID uuid.UUID, nets ...int64) ([]models.LedgerEntry, []uuid.UUID) {
	entries := make([]models.LedgerEntry, 0, len(nets))
	ids := make([]uuid.UUID, 0, len(nets))
	for _, net := range nets {
		entry := models.LedgerEntry{
			ID:       uuid.New(),
			OwnerID:  vendorID,
			NetCents: net,
			Status:   enums.EarningStatusAvailable,
		}
		entries = append(entries, entry)
		ids = append(ids, entry.ID)
	}
	return entries, ids
}

func newService(t *testing.T, repo *fakeWithdrawalRepo, entries *fakeLedgerRepo, box *fakeOutbox) Service {
	t.Helper()
	svc, err := NewService(fakeTx{}, repo, entries, box, nil)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateRequestLocksEntries(t *testing.T) {
	vendorID := uuid.New()
	entries, ids := availableEntries(vendorID, 850, 425)
	repo := newFakeWithdrawalRepo()
	ledgerRepo := &fakeLedgerRepo{available: entries, claimed: int64(len(ids))}
	svc := newService(t, repo, ledgerRepo, &fakeOutbox{})

	request, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		VendorID:     vendorID,
		EntryIDs:     ids,
		AmountCents:  1275,
		MobileNumber: "+254712345678",
	})
	if err != nil {
		t.Fatalf("CreateRequest: %v", err)
	}
	if request.Status != enums.WithdrawalStatusPending {
		t.Fatalf("status = %s", request.Status)
	}
	if len(ledgerRepo.requested) != 2 {
		t.Fatalf("entries claimed = %d", len(ledgerRepo.requested))
	}
}

func TestCreateRequestAmountExceedsEntries(t *testing.T) {
	vendorID := uuid.New()
	entries, ids := availableEntries(vendorID, 850)
	ledgerRepo := &fakeLedgerRepo{available: entries, claimed: 1}
	svc := newService(t, newFakeWithdrawalRepo(), ledgerRepo, &fakeOutbox{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		VendorID:     vendorID,
		EntryIDs:     ids,
		AmountCents:  900,
		MobileNumber: "+254712345678",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateRequestEntriesUnavailable(t *testing.T) {
	vendorID := uuid.New()
	entries, ids := availableEntries(vendorID, 850)
	ids = append(ids, uuid.New())
	ledgerRepo := &fakeLedgerRepo{available: entries, claimed: 1}
	svc := newService(t, newFakeWithdrawalRepo(), ledgerRepo, &fakeOutbox{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		VendorID:     vendorID,
		EntryIDs:     ids,
		AmountCents:  850,
		MobileNumber: "+254712345678",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateRequestOneOutstandingRule(t *testing.T) {
	vendorID := uuid.New()
	entries, ids := availableEntries(vendorID, 850)
	repo := newFakeWithdrawalRepo()
	repo.outstanding = true
	svc := newService(t, repo, &fakeLedgerRepo{available: entries, claimed: 1}, &fakeOutbox{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		VendorID:     vendorID,
		EntryIDs:     ids,
		AmountCents:  850,
		MobileNumber: "+254712345678",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestCreateRequestConcurrentClaimShortfall(t *testing.T) {
	vendorID := uuid.New()
	entries, ids := availableEntries(vendorID, 850, 425)
	ledgerRepo := &fakeLedgerRepo{available: entries, claimed: 1}
	svc := newService(t, newFakeWithdrawalRepo(), ledgerRepo, &fakeOutbox{})

	_, err := svc.CreateRequest(context.Background(), CreateRequestInput{
		VendorID:     vendorID,
		EntryIDs:     ids,
		AmountCents:  1275,
		MobileNumber: "+254712345678",
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeConflict {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func seedRequest(repo *fakeWithdrawalRepo, status enums.WithdrawalStatus) *models.WithdrawalRequest {
	request := &models.WithdrawalRequest{
		ID:           uuid.New(),
		VendorID:     uuid.New(),
		AmountCents:  1275,
		MobileNumber: "+254712345678",
		Status:       status,
	}
	repo.requests[request.ID] = request
	return request
}

func TestDecideApprove(t *testing.T) {
	repo := newFakeWithdrawalRepo()
	request := seedRequest(repo, enums.WithdrawalStatusPending)
	box := &fakeOutbox{}
	svc := newService(t, repo, &fakeLedgerRepo{claimed: -1}, box)

	decided, err := svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		AdminID:   uuid.New(),
		Action:    enums.WithdrawalActionApprove,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != enums.WithdrawalStatusApproved {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.ReviewedAt == nil {
		t.Fatal("reviewed_at not set")
	}
	if len(box.events) != 1 || box.events[0].EventType != enums.EventWithdrawalDecided {
		t.Fatalf("outbox events = %+v", box.events)
	}
}

func TestDecideRejectReleasesEntries(t *testing.T) {
	repo := newFakeWithdrawalRepo()
	request := seedRequest(repo, enums.WithdrawalStatusPending)
	ledgerRepo := &fakeLedgerRepo{claimed: -1}
	svc := newService(t, repo, ledgerRepo, &fakeOutbox{})

	reason := "account details unverified"
	decided, err := svc.Decide(context.Background(), DecideInput{
		RequestID:       request.ID,
		AdminID:         uuid.New(),
		Action:          enums.WithdrawalActionReject,
		RejectionReason: &reason,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != enums.WithdrawalStatusRejected {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.RejectionReason == nil || *decided.RejectionReason != reason {
		t.Fatalf("rejection reason = %v", decided.RejectionReason)
	}
	if len(ledgerRepo.released) != 1 || ledgerRepo.released[0] != request.ID {
		t.Fatalf("released = %+v", ledgerRepo.released)
	}
}

func TestDecideProcessRequiresReceipt(t *testing.T) {
	repo := newFakeWithdrawalRepo()
	request := seedRequest(repo, enums.WithdrawalStatusApproved)
	svc := newService(t, repo, &fakeLedgerRepo{claimed: -1}, &fakeOutbox{})

	_, err := svc.Decide(context.Background(), DecideInput{
		RequestID: request.ID,
		AdminID:   uuid.New(),
		Action:    enums.WithdrawalActionProcess,
	})
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDecideProcessMarksEntriesWithdrawn(t *testing.T) {
	repo := newFakeWithdrawalRepo()
	request := seedRequest(repo, enums.WithdrawalStatusApproved)
	ledgerRepo := &fakeLedgerRepo{claimed: -1}
	svc := newService(t, repo, ledgerRepo, &fakeOutbox{})

	receipt := "MPESA-RCPT-8812"
	decided, err := svc.Decide(context.Background(), DecideInput{
		RequestID:       request.ID,
		AdminID:         uuid.New(),
		Action:          enums.WithdrawalActionProcess,
		ProviderReceipt: &receipt,
	})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	if decided.Status != enums.WithdrawalStatusProcessed {
		t.Fatalf("status = %s", decided.Status)
	}
	if decided.ProcessedAt == nil || decided.ProviderReceipt == nil {
		t.Fatalf("processed fields missing: %+v", decided)
	}
	if len(ledgerRepo.withdrawn) != 1 || ledgerRepo.withdrawn[0] != request.ID {
		t.Fatalf("withdrawn = %+v", ledgerRepo.withdrawn)
	}
}

func TestDecideIllegalTransitions(t *testing.T) {
	receipt := "MPESA-RCPT-8812"
	cases := []struct {
		name   string
		status enums.WithdrawalStatus
		input  DecideInput
	}{
		{"process pending", enums.WithdrawalStatusPending, DecideInput{Action: enums.WithdrawalActionProcess, ProviderReceipt: &receipt}},
		{"reject processed", enums.WithdrawalStatusProcessed, DecideInput{Action: enums.WithdrawalActionReject}},
		{"approve rejected", enums.WithdrawalStatusRejected, DecideInput{Action: enums.WithdrawalActionApprove}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeWithdrawalRepo()
			request := seedRequest(repo, tc.status)
			svc := newService(t, repo, &fakeLedgerRepo{claimed: -1}, &fakeOutbox{})

			input := tc.input
			input.RequestID = request.ID
			input.AdminID = uuid.New()
			_, err := svc.Decide(context.Background(), input)
			appErr := pkgerrors.As(err)
			if appErr == nil || appErr.Code() != pkgerrors.CodeStateConflict {
				t.Fatalf("expected state conflict, got %v", err)
			}
		})
	}
}

func TestGetScopesVendor(t *testing.T) {
	repo := newFakeWithdrawalRepo()
	request := seedRequest(repo, enums.WithdrawalStatusPending)
	svc := newService(t, repo, &fakeLedgerRepo{claimed: -1}, &fakeOutbox{})

	if _, err := svc.Get(context.Background(), &request.VendorID, request.ID); err != nil {
		t.Fatalf("owner read: %v", err)
	}
	other := uuid.New()
	_, err := svc.Get(context.Background(), &other, request.ID)
	appErr := pkgerrors.As(err)
	if appErr == nil || appErr.Code() != pkgerrors.CodeForbidden {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if _, err := svc.Get(context.Background(), nil, request.ID); err != nil {
		t.Fatalf("admin read: %v", err)
	}
}
