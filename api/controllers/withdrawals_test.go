package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/middleware"
	withdrawalsvc "github.com/shopdeck/shopdeck-backend/internal/withdrawals"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/pagination"
)

type stubWithdrawalService struct {
	record     *models.WithdrawalRequest
	err        error
	lastCreate withdrawalsvc.CreateRequestInput
	lastDecide withdrawalsvc.DecideInput
}

func (s *stubWithdrawalService) CreateRequest(ctx context.Context, input withdrawalsvc.CreateRequestInput) (*models.WithdrawalRequest, error) {
	s.lastCreate = input
	return s.record, s.err
}

func (s *stubWithdrawalService) Decide(ctx context.Context, input withdrawalsvc.DecideInput) (*models.WithdrawalRequest, error) {
	s.lastDecide = input
	return s.record, s.err
}

func (s *stubWithdrawalService) Get(ctx context.Context, vendorID *uuid.UUID, requestID uuid.UUID) (*models.WithdrawalRequest, error) {
	return s.record, s.err
}

func (s *stubWithdrawalService) List(ctx context.Context, status *enums.WithdrawalStatus, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	if s.record == nil {
		return nil, "", s.err
	}
	return []models.WithdrawalRequest{*s.record}, "", s.err
}

func (s *stubWithdrawalService) ListByVendor(ctx context.Context, vendorID uuid.UUID, params pagination.Params) ([]models.WithdrawalRequest, string, error) {
	if s.record == nil {
		return nil, "", s.err
	}
	return []models.WithdrawalRequest{*s.record}, "", s.err
}

func vendorContext(userID, vendorID uuid.UUID) context.Context {
	ctx := middleware.WithUserID(context.Background(), userID.String())
	ctx = middleware.WithRole(ctx, enums.ActorRoleVendor.String())
	return middleware.WithVendorID(ctx, vendorID.String())
}

func TestWithdrawalCreateSuccess(t *testing.T) {
	vendorID := uuid.New()
	entryID := uuid.New()
	svc := &stubWithdrawalService{record: &models.WithdrawalRequest{
		ID:          uuid.New(),
		VendorID:    vendorID,
		AmountCents: 1275,
		Status:      enums.WithdrawalStatusPending,
	}}

	body := `{"entry_ids":["` + entryID.String() + `"],"amount_cents":1275,"mobile_number":"+254700111222"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(body))
	req = req.WithContext(vendorContext(uuid.New(), vendorID))
	rec := httptest.NewRecorder()
	WithdrawalCreate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastCreate.VendorID != vendorID {
		t.Fatalf("vendor = %s", svc.lastCreate.VendorID)
	}
	if len(svc.lastCreate.EntryIDs) != 1 || svc.lastCreate.EntryIDs[0] != entryID {
		t.Fatalf("entries = %+v", svc.lastCreate.EntryIDs)
	}
}

func TestWithdrawalCreateRequiresVendorContext(t *testing.T) {
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = middleware.WithRole(ctx, enums.ActorRoleCustomer.String())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(`{}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	WithdrawalCreate(&stubWithdrawalService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestWithdrawalCreateValidatesBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/vendor/withdrawals", strings.NewReader(`{"entry_ids":[],"amount_cents":0}`))
	req = req.WithContext(vendorContext(uuid.New(), uuid.New()))
	rec := httptest.NewRecorder()
	WithdrawalCreate(&stubWithdrawalService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestWithdrawalDecideParsesAction(t *testing.T) {
	adminID := uuid.New()
	requestID := uuid.New()
	svc := &stubWithdrawalService{record: &models.WithdrawalRequest{
		ID:     requestID,
		Status: enums.WithdrawalStatusApproved,
	}}

	ctx := middleware.WithUserID(context.Background(), adminID.String())
	ctx = middleware.WithRole(ctx, enums.ActorRoleAdmin.String())
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("withdrawalId", requestID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	body := `{"action":"approve"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/withdrawals/"+requestID.String()+"/decision", strings.NewReader(body))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	WithdrawalDecide(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastDecide.Action != enums.WithdrawalActionApprove {
		t.Fatalf("action = %s", svc.lastDecide.Action)
	}
	if svc.lastDecide.AdminID != adminID {
		t.Fatalf("admin = %s", svc.lastDecide.AdminID)
	}
}

func TestWithdrawalDecideRejectsUnknownAction(t *testing.T) {
	requestID := uuid.New()
	ctx := middleware.WithUserID(context.Background(), uuid.NewString())
	ctx = middleware.WithRole(ctx, enums.ActorRoleAdmin.String())
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("withdrawalId", requestID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/withdrawals/"+requestID.String()+"/decision", strings.NewReader(`{"action":"shred"}`))
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()
	WithdrawalDecide(&stubWithdrawalService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestAdminWithdrawalsListRejectsBadStatus(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/withdrawals?status=maybe", nil)
	rec := httptest.NewRecorder()
	AdminWithdrawalsList(&stubWithdrawalService{}, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}
