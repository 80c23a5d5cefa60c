package models

import (
	"time"

	"github.com/google/uuid"
)

// Product is the catalog snapshot the checkout re-validates against. Catalog
// CRUD lives in a separate service; this core only reads price/stock/state
// and decrements stock on confirmed payment.
type Product struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID       uuid.UUID `gorm:"column:vendor_id;type:uuid;not null"`
	ShopID         uuid.UUID `gorm:"column:shop_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Stock          int       `gorm:"column:stock;not null;default:0"`
	Active         bool      `gorm:"column:active;not null;default:true"`
	Approved       bool      `gorm:"column:approved;not null;default:false"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
