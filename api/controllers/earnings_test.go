package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/api/middleware"
	ledgersvc "github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
)

type stubLedgerService struct {
	summary      *ledgersvc.EarningsSummary
	entries      []models.LedgerEntry
	lastOwner    uuid.UUID
	lastStatuses []enums.EarningStatus
}

func (s *stubLedgerService) CreateVendorPayout(ctx context.Context, tx *gorm.DB, input ledgersvc.VendorPayoutInput) ([]models.LedgerEntry, error) {
	return nil, nil
}

func (s *stubLedgerService) CreateRiderEarning(ctx context.Context, tx *gorm.DB, input ledgersvc.RiderEarningInput) (*models.LedgerEntry, error) {
	return nil, nil
}

func (s *stubLedgerService) Summary(ctx context.Context, ownerID uuid.UUID) (*ledgersvc.EarningsSummary, error) {
	s.lastOwner = ownerID
	return s.summary, nil
}

func (s *stubLedgerService) ListByOwner(ctx context.Context, ownerID uuid.UUID, statuses []enums.EarningStatus) ([]models.LedgerEntry, error) {
	s.lastOwner = ownerID
	s.lastStatuses = statuses
	return s.entries, nil
}

func TestEarningsSummaryScopesVendor(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubLedgerService{summary: &ledgersvc.EarningsSummary{OwnerID: vendorID, AvailableCents: 1275}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings/summary", nil)
	req = req.WithContext(vendorContext(uuid.New(), vendorID))
	rec := httptest.NewRecorder()
	EarningsSummary(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastOwner != vendorID {
		t.Fatalf("owner = %s, want vendor %s", svc.lastOwner, vendorID)
	}
}

func TestEarningsSummaryScopesRiderByUser(t *testing.T) {
	riderID := uuid.New()
	svc := &stubLedgerService{summary: &ledgersvc.EarningsSummary{OwnerID: riderID}}

	ctx := middleware.WithUserID(context.Background(), riderID.String())
	ctx = middleware.WithRole(ctx, enums.ActorRoleRider.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/rider/earnings/summary", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	EarningsSummary(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if svc.lastOwner != riderID {
		t.Fatalf("owner = %s", svc.lastOwner)
	}
}

func TestEarningsForbiddenForCustomers(t *testing.T) {
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = middleware.WithRole(ctx, enums.ActorRoleCustomer.String())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings/summary", nil)
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	EarningsSummary(&stubLedgerService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestEarningsListParsesStatusFilter(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubLedgerService{entries: []models.LedgerEntry{{
		ID:       uuid.New(),
		OwnerID:  vendorID,
		NetCents: 850,
		Status:   enums.EarningStatusAvailable,
	}}}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings?status=available,pending", nil)
	req = req.WithContext(vendorContext(uuid.New(), vendorID))
	rec := httptest.NewRecorder()
	EarningsList(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if len(svc.lastStatuses) != 2 {
		t.Fatalf("statuses = %+v", svc.lastStatuses)
	}

	var envelope struct {
		Data []ledgerEntryResponse `json:"data"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(envelope.Data) != 1 || envelope.Data[0].NetCents != 850 {
		t.Fatalf("entries = %+v", envelope.Data)
	}
}

func TestEarningsListRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/vendor/earnings?status=imaginary", nil)
	req = req.WithContext(vendorContext(uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	EarningsList(&stubLedgerService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
