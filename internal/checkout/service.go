package checkout

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/catalog"
	"github.com/shopdeck/shopdeck-backend/pkg/commission"
	"github.com/shopdeck/shopdeck-backend/pkg/config"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type referenceIssuer interface {
	NewToken() string
	Generate(token string) string
}

type shortCodeIssuer interface {
	Create(ctx context.Context, fullRef string) (string, error)
}

// Service creates and reads order drafts. A draft freezes prices, totals, and
// the per-vendor split at creation time; payment reconciliation later compares
// against these frozen numbers, never against the live catalog.
type Service interface {
	CreateDraft(ctx context.Context, buyerID uuid.UUID, input CreateDraftInput) (*models.OrderDraft, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error)
	GetByReference(ctx context.Context, reference string) (*models.OrderDraft, error)
}

// CreateDraftInput captures the buyer's cart at checkout.
type CreateDraftInput struct {
	Items           []DraftItemInput
	ShippingAddress types.Address
}

// DraftItemInput is one requested line.
type DraftItemInput struct {
	ProductID uuid.UUID
	Qty       int
}

type service struct {
	tx         txRunner
	drafts     Repository
	products   catalog.Repository
	calc       *commission.Calculator
	refs       referenceIssuer
	shortCodes shortCodeIssuer
	cfg        config.CheckoutConfig
	flags      config.FeatureFlagsConfig
	logg       *logger.Logger
}

// NewService builds the checkout service. The short code issuer may be nil
// when the short-code feature flag is off.
func NewService(
	tx txRunner,
	drafts Repository,
	products catalog.Repository,
	calc *commission.Calculator,
	refs referenceIssuer,
	shortCodes shortCodeIssuer,
	cfg config.CheckoutConfig,
	flags config.FeatureFlagsConfig,
	logg *logger.Logger,
) (Service, error) {
	if tx == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if drafts == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if calc == nil {
		return nil, fmt.Errorf("commission calculator required")
	}
	if refs == nil {
		return nil, fmt.Errorf("reference issuer required")
	}
	if flags.ShortCodesForPaybills && shortCodes == nil {
		return nil, fmt.Errorf("short code issuer required when feature enabled")
	}
	if cfg.DraftTTL <= 0 {
		return nil, fmt.Errorf("draft ttl must be positive")
	}
	return &service{
		tx:         tx,
		drafts:     drafts,
		products:   products,
		calc:       calc,
		refs:       refs,
		shortCodes: shortCodes,
		cfg:        cfg,
		flags:      flags,
		logg:       logg,
	}, nil
}

func (s *service) CreateDraft(ctx context.Context, buyerID uuid.UUID, input CreateDraftInput) (*models.OrderDraft, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "buyer id required")
	}
	if len(input.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft contains no items")
	}

	qtyByProduct := map[uuid.UUID]int{}
	order := make([]uuid.UUID, 0, len(input.Items))
	for _, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
		}
		if item.Qty <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}
		if _, seen := qtyByProduct[item.ProductID]; !seen {
			order = append(order, item.ProductID)
		}
		qtyByProduct[item.ProductID] += item.Qty
	}

	products, err := s.products.FindByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]models.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make(types.DraftItems, 0, len(order))
	grossByVendor := map[uuid.UUID]int64{}
	shopByVendor := map[uuid.UUID]uuid.UUID{}
	var subtotal int64
	for _, id := range order {
		product, ok := byID[id]
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown product").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		if !product.Active || !product.Approved {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "product not purchasable").
				WithDetails(map[string]any{"product_id": id.String()})
		}
		qty := qtyByProduct[id]
		if product.Stock < qty {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "insufficient stock").
				WithDetails(map[string]any{"product_id": id.String(), "available": product.Stock})
		}
		lineTotal := product.UnitPriceCents * int64(qty)
		items = append(items, types.DraftItem{
			ProductID:      product.ID,
			VendorID:       product.VendorID,
			ShopID:         product.ShopID,
			Name:           product.Name,
			UnitPriceCents: product.UnitPriceCents,
			Qty:            qty,
			TotalCents:     lineTotal,
		})
		grossByVendor[product.VendorID] += lineTotal
		shopByVendor[product.VendorID] = product.ShopID
		subtotal += lineTotal
	}

	vendorIDs := make([]uuid.UUID, 0, len(grossByVendor))
	for vendorID := range grossByVendor {
		vendorIDs = append(vendorIDs, vendorID)
	}
	sort.Slice(vendorIDs, func(i, j int) bool { return vendorIDs[i].String() < vendorIDs[j].String() })

	splits := make(types.VendorSplits, 0, len(vendorIDs))
	var platformFee int64
	for _, vendorID := range vendorIDs {
		gross := grossByVendor[vendorID]
		split := s.calc.Calculate(gross)
		splits = append(splits, types.VendorSplit{
			VendorID:        vendorID,
			ShopID:          shopByVendor[vendorID],
			GrossCents:      gross,
			CommissionCents: split.CommissionCents,
			NetCents:        split.NetCents,
		})
		platformFee += split.CommissionCents
	}

	now := time.Now()
	reference := s.refs.Generate(s.refs.NewToken())
	draft := &models.OrderDraft{
		Reference:        reference,
		BuyerID:          buyerID,
		Items:            items,
		VendorSplits:     splits,
		SubtotalCents:    subtotal,
		PlatformFeeCents: platformFee,
		TotalCents:       subtotal + platformFee,
		ShippingAddress:  input.ShippingAddress,
		Status:           enums.DraftStatusPending,
		ExpiresAt:        now.Add(s.cfg.DraftTTL),
	}

	if s.flags.ShortCodesForPaybills && s.shortCodes != nil {
		code, err := s.shortCodes.Create(ctx, reference)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "allocating short code")
		}
		draft.ShortCode = &code
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.drafts.WithTx(tx).Create(ctx, draft)
	})
	if err != nil {
		return nil, err
	}

	if s.logg != nil {
		logCtx := s.logg.WithReference(ctx, draft.Reference)
		s.logg.Info(logCtx, "order draft created")
	}
	return draft, nil
}

func (s *service) GetByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft id required")
	}
	return s.drafts.FindByID(ctx, id)
}

func (s *service) GetByReference(ctx context.Context, reference string) (*models.OrderDraft, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reference required")
	}
	return s.drafts.FindByReference(ctx, reference)
}
