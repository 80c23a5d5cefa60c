package types

import "github.com/google/uuid"

// DraftItem is the price/stock snapshot of one cart line taken at draft time.
type DraftItem struct {
	ProductID      uuid.UUID `json:"product_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	ShopID         uuid.UUID `json:"shop_id"`
	Name           string    `json:"name"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	Qty            int       `json:"qty"`
	TotalCents     int64     `json:"total_cents"`
}

// VendorSplit is the per-vendor commission breakdown fixed at draft creation.
type VendorSplit struct {
	VendorID        uuid.UUID `json:"vendor_id"`
	ShopID          uuid.UUID `json:"shop_id"`
	GrossCents      int64     `json:"gross_cents"`
	CommissionCents int64     `json:"commission_cents"`
	NetCents        int64     `json:"net_cents"`
}

// DraftItems is stored on the draft as a jsonb column.
type DraftItems []DraftItem

// VendorSplits is stored on the draft as a jsonb column.
type VendorSplits []VendorSplit
