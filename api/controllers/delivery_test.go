package controllers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/api/middleware"
	deliverysvc "github.com/shopdeck/shopdeck-backend/internal/delivery"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

type stubDeliveryService struct {
	suborder   *models.Suborder
	err        error
	lastActor  deliverysvc.Actor
	lastTarget enums.SuborderStatus
	lastCode   string
}

func (s *stubDeliveryService) UpdateStatus(ctx context.Context, actor deliverysvc.Actor, orderID, suborderID uuid.UUID, target enums.SuborderStatus) (*models.Suborder, error) {
	s.lastActor = actor
	s.lastTarget = target
	return s.suborder, s.err
}

func (s *stubDeliveryService) AssignRider(ctx context.Context, actor deliverysvc.Actor, input deliverysvc.AssignRiderInput) (*models.Suborder, error) {
	s.lastActor = actor
	return s.suborder, s.err
}

func (s *stubDeliveryService) GenerateConfirmationCode(ctx context.Context, buyerID, orderID, suborderID uuid.UUID) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return "431972", nil
}

func (s *stubDeliveryService) VerifyConfirmationCode(ctx context.Context, riderID, orderID, suborderID uuid.UUID, code string) (*models.Suborder, error) {
	s.lastCode = code
	return s.suborder, s.err
}

func deliveryRequest(method, role string, userID uuid.UUID, body string) (*http.Request, *httptest.ResponseRecorder) {
	orderID := uuid.New()
	suborderID := uuid.New()

	ctx := middleware.WithUserID(context.Background(), userID.String())
	ctx = middleware.WithRole(ctx, role)
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add("orderId", orderID.String())
	routeCtx.URLParams.Add("suborderId", suborderID.String())
	ctx = context.WithValue(ctx, chi.RouteCtxKey, routeCtx)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, "/api/v1/orders/"+orderID.String()+"/suborders/"+suborderID.String(), reader)
	return req.WithContext(ctx), httptest.NewRecorder()
}

func TestSuborderStatusUpdateSuccess(t *testing.T) {
	vendorID := uuid.New()
	svc := &stubDeliveryService{suborder: &models.Suborder{ID: uuid.New(), Status: enums.SuborderStatusProcessing}}

	req, rec := deliveryRequest(http.MethodPatch, enums.ActorRoleVendor.String(), uuid.New(), `{"status":"processing"}`)
	req = req.WithContext(middleware.WithVendorID(req.Context(), vendorID.String()))
	SuborderStatusUpdate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", rec.Code, rec.Body.String())
	}
	if svc.lastTarget != enums.SuborderStatusProcessing {
		t.Fatalf("target = %s", svc.lastTarget)
	}
	if svc.lastActor.VendorID == nil || *svc.lastActor.VendorID != vendorID {
		t.Fatalf("actor vendor = %v", svc.lastActor.VendorID)
	}
}

func TestSuborderStatusUpdateRejectsUnknownStatus(t *testing.T) {
	svc := &stubDeliveryService{}
	req, rec := deliveryRequest(http.MethodPatch, enums.ActorRoleAdmin.String(), uuid.New(), `{"status":"teleported"}`)
	SuborderStatusUpdate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSuborderVendorWithoutScopeForbidden(t *testing.T) {
	svc := &stubDeliveryService{}
	req, rec := deliveryRequest(http.MethodPatch, enums.ActorRoleVendor.String(), uuid.New(), `{"status":"processing"}`)
	SuborderStatusUpdate(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 got %d", rec.Code)
	}
}

func TestSuborderConfirmRequiresCode(t *testing.T) {
	svc := &stubDeliveryService{suborder: &models.Suborder{}}
	req, rec := deliveryRequest(http.MethodPost, enums.ActorRoleRider.String(), uuid.New(), `{}`)
	SuborderConfirm(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", rec.Code)
	}
}

func TestSuborderConfirmationCodeIssued(t *testing.T) {
	svc := &stubDeliveryService{}
	req, rec := deliveryRequest(http.MethodPost, enums.ActorRoleCustomer.String(), uuid.New(), "")
	SuborderConfirmationCode(svc, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "431972") {
		t.Fatalf("body = %s", rec.Body.String())
	}
}

func TestSuborderResponseHidesConfirmationCode(t *testing.T) {
	now := time.Now()
	suborder := &models.Suborder{
		ID:           uuid.New(),
		Status:       enums.SuborderStatusInTransit,
		Confirmation: &types.DeliveryConfirmation{Code: "431972", IssuedAt: &now},
	}
	svc := &stubDeliveryService{suborder: suborder}

	req, rec := deliveryRequest(http.MethodPatch, enums.ActorRoleAdmin.String(), uuid.New(), `{"status":"in_transit"}`)
	SuborderStatusUpdate(svc, nil).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "431972") {
		t.Fatalf("code leaked: %s", rec.Body.String())
	}
}
