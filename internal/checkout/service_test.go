package checkout

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/catalog"
	"github.com/shopdeck/shopdeck-backend/pkg/commission"
	"github.com/shopdeck/shopdeck-backend/pkg/config"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

type fakeTx struct{}

func (fakeTx) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

type fakeDraftRepo struct {
	Repository
	created *models.OrderDraft
}

func (f *fakeDraftRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeDraftRepo) Create(ctx context.Context, draft *models.OrderDraft) error {
	f.created = draft
	return nil
}

type fakeCatalog struct {
	catalog.Repository
	products []models.Product
}

func (f *fakeCatalog) WithTx(tx *gorm.DB) catalog.Repository { return f }

func (f *fakeCatalog) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	var out []models.Product
	for _, p := range f.products {
		for _, id := range ids {
			if p.ID == id {
				out = append(out, p)
			}
		}
	}
	return out, nil
}

type fakeRefs struct{ ref string }

func (f fakeRefs) NewToken() string             { return "TOKEN123" }
func (f fakeRefs) Generate(token string) string { return f.ref }

type fakeShortCodes struct {
	code string
	refs []string
}

func (f *fakeShortCodes) Create(ctx context.Context, fullRef string) (string, error) {
	f.refs = append(f.refs, fullRef)
	return f.code, nil
}

func testCalc(t *testing.T) *commission.Calculator {
	t.Helper()
	calc, err := commission.NewCalculator("0.15")
	if err != nil {
		t.Fatalf("NewCalculator: %v", err)
	}
	return calc
}

func testProduct(vendorID uuid.UUID, price int64, stock int) models.Product {
	return models.Product{
		ID:             uuid.New(),
		VendorID:       vendorID,
		ShopID:         uuid.New(),
		Name:           "Test Product",
		UnitPriceCents: price,
		Stock:          stock,
		Active:         true,
		Approved:       true,
	}
}

func newTestService(t *testing.T, drafts *fakeDraftRepo, cat *fakeCatalog, short *fakeShortCodes, flags config.FeatureFlagsConfig) Service {
	t.Helper()
	var shortIssuer shortCodeIssuer
	if short != nil {
		shortIssuer = short
	}
	svc, err := NewService(
		fakeTx{},
		drafts,
		cat,
		testCalc(t),
		fakeRefs{ref: "SHD-TOKEN123-V1-abc123"},
		shortIssuer,
		config.CheckoutConfig{DraftTTL: 20 * time.Minute},
		flags,
		nil,
	)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func TestCreateDraftTwoVendors(t *testing.T) {
	vendorA := uuid.New()
	vendorB := uuid.New()
	productA := testProduct(vendorA, 500, 10)
	productB := testProduct(vendorB, 500, 10)

	drafts := &fakeDraftRepo{}
	cat := &fakeCatalog{products: []models.Product{productA, productB}}
	svc := newTestService(t, drafts, cat, nil, config.FeatureFlagsConfig{})

	got, err := svc.CreateDraft(context.Background(), uuid.New(), CreateDraftInput{
		Items: []DraftItemInput{
			{ProductID: productA.ID, Qty: 2},
			{ProductID: productB.ID, Qty: 1},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if drafts.created == nil {
		t.Fatal("draft was not persisted")
	}
	if got.SubtotalCents != 1500 {
		t.Fatalf("subtotal = %d, want 1500", got.SubtotalCents)
	}
	if got.PlatformFeeCents != 225 {
		t.Fatalf("platform fee = %d, want 225", got.PlatformFeeCents)
	}
	if got.TotalCents != 1725 {
		t.Fatalf("total = %d, want 1725", got.TotalCents)
	}
	if got.Status != enums.DraftStatusPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.Reference != "SHD-TOKEN123-V1-abc123" {
		t.Fatalf("unexpected reference %q", got.Reference)
	}
	if len(got.VendorSplits) != 2 {
		t.Fatalf("expected 2 vendor splits, got %d", len(got.VendorSplits))
	}
	var totalNet, totalCommission int64
	for _, split := range got.VendorSplits {
		if split.GrossCents != split.CommissionCents+split.NetCents {
			t.Fatalf("split does not sum: %+v", split)
		}
		totalNet += split.NetCents
		totalCommission += split.CommissionCents
	}
	if totalCommission != got.PlatformFeeCents {
		t.Fatalf("commission sum %d != platform fee %d", totalCommission, got.PlatformFeeCents)
	}
	if totalNet+totalCommission != got.SubtotalCents {
		t.Fatal("splits do not cover the subtotal")
	}
	if time.Until(got.ExpiresAt) <= 0 || time.Until(got.ExpiresAt) > 21*time.Minute {
		t.Fatalf("unexpected expiry %s", got.ExpiresAt)
	}
}

func TestCreateDraftMergesDuplicateLines(t *testing.T) {
	vendor := uuid.New()
	product := testProduct(vendor, 250, 10)

	drafts := &fakeDraftRepo{}
	cat := &fakeCatalog{products: []models.Product{product}}
	svc := newTestService(t, drafts, cat, nil, config.FeatureFlagsConfig{})

	got, err := svc.CreateDraft(context.Background(), uuid.New(), CreateDraftInput{
		Items: []DraftItemInput{
			{ProductID: product.ID, Qty: 1},
			{ProductID: product.ID, Qty: 2},
		},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if len(got.Items) != 1 {
		t.Fatalf("expected merged line, got %d", len(got.Items))
	}
	if got.Items[0].Qty != 3 || got.Items[0].TotalCents != 750 {
		t.Fatalf("unexpected merged line: %+v", got.Items[0])
	}
}

func TestCreateDraftValidation(t *testing.T) {
	vendor := uuid.New()
	inactive := testProduct(vendor, 500, 10)
	inactive.Active = false
	lowStock := testProduct(vendor, 500, 1)

	cat := &fakeCatalog{products: []models.Product{inactive, lowStock}}
	svc := newTestService(t, &fakeDraftRepo{}, cat, nil, config.FeatureFlagsConfig{})

	cases := []struct {
		name  string
		input CreateDraftInput
	}{
		{"no items", CreateDraftInput{}},
		{"zero qty", CreateDraftInput{Items: []DraftItemInput{{ProductID: uuid.New(), Qty: 0}}}},
		{"unknown product", CreateDraftInput{Items: []DraftItemInput{{ProductID: uuid.New(), Qty: 1}}}},
		{"inactive product", CreateDraftInput{Items: []DraftItemInput{{ProductID: inactive.ID, Qty: 1}}}},
		{"insufficient stock", CreateDraftInput{Items: []DraftItemInput{{ProductID: lowStock.ID, Qty: 2}}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.CreateDraft(context.Background(), uuid.New(), tc.input)
			appErr := pkgerrors.As(err)
			if appErr == nil {
				t.Fatalf("expected typed error, got %v", err)
			}
			if appErr.Code() != pkgerrors.CodeValidation {
				t.Fatalf("expected validation error, got %s", appErr.Code())
			}
		})
	}
}

func TestCreateDraftAttachesShortCode(t *testing.T) {
	vendor := uuid.New()
	product := testProduct(vendor, 500, 10)

	drafts := &fakeDraftRepo{}
	cat := &fakeCatalog{products: []models.Product{product}}
	short := &fakeShortCodes{code: "A2B3C4D5"}
	svc := newTestService(t, drafts, cat, short, config.FeatureFlagsConfig{ShortCodesForPaybills: true})

	got, err := svc.CreateDraft(context.Background(), uuid.New(), CreateDraftInput{
		Items: []DraftItemInput{{ProductID: product.ID, Qty: 1}},
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if got.ShortCode == nil || *got.ShortCode != "A2B3C4D5" {
		t.Fatalf("short code not attached: %+v", got.ShortCode)
	}
	if len(short.refs) != 1 || short.refs[0] != got.Reference {
		t.Fatalf("short code created for wrong reference: %+v", short.refs)
	}
}

func TestCreateDraftAddressCarried(t *testing.T) {
	vendor := uuid.New()
	product := testProduct(vendor, 500, 10)

	drafts := &fakeDraftRepo{}
	cat := &fakeCatalog{products: []models.Product{product}}
	svc := newTestService(t, drafts, cat, nil, config.FeatureFlagsConfig{})

	addr := types.Address{Line1: "12 Riverside Dr", City: "Nairobi", Country: "KE"}
	got, err := svc.CreateDraft(context.Background(), uuid.New(), CreateDraftInput{
		Items:           []DraftItemInput{{ProductID: product.ID, Qty: 1}},
		ShippingAddress: addr,
	})
	if err != nil {
		t.Fatalf("CreateDraft: %v", err)
	}
	if got.ShippingAddress != addr {
		t.Fatalf("address not carried: %+v", got.ShippingAddress)
	}
}
