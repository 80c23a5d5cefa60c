package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// Suborder is one vendor's slice of an order: the unit of delivery and payout.
type Suborder struct {
	ID               uuid.UUID                   `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID          uuid.UUID                   `gorm:"column:order_id;type:uuid;not null;index"`
	VendorID         uuid.UUID                   `gorm:"column:vendor_id;type:uuid;not null;index"`
	ShopID           uuid.UUID                   `gorm:"column:shop_id;type:uuid;not null"`
	GrossCents       int64                       `gorm:"column:gross_cents;not null"`
	CommissionCents  int64                       `gorm:"column:commission_cents;not null"`
	NetCents         int64                       `gorm:"column:net_cents;not null"`
	Status           enums.SuborderStatus        `gorm:"column:status;type:text;not null;default:'pending'"`
	RiderID          *uuid.UUID                  `gorm:"column:rider_id;type:uuid"`
	DeliveryFeeCents int64                       `gorm:"column:delivery_fee_cents;not null;default:0"`
	Route            *types.DeliveryRoute        `gorm:"column:route;type:jsonb;serializer:json"`
	Confirmation     *types.DeliveryConfirmation `gorm:"column:confirmation;type:jsonb;serializer:json"`
	Items            []SuborderItem              `gorm:"foreignKey:SuborderID;constraint:OnDelete:CASCADE"`
	DeliveredAt      *time.Time                  `gorm:"column:delivered_at"`
	CancelledAt      *time.Time                  `gorm:"column:cancelled_at"`
	CreatedAt        time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

// SuborderItem is the immutable line snapshot within a suborder.
type SuborderItem struct {
	ID             uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SuborderID     uuid.UUID `gorm:"column:suborder_id;type:uuid;not null;index"`
	ProductID      uuid.UUID `gorm:"column:product_id;type:uuid;not null"`
	Name           string    `gorm:"column:name;not null"`
	UnitPriceCents int64     `gorm:"column:unit_price_cents;not null"`
	Qty            int       `gorm:"column:qty;not null"`
	TotalCents     int64     `gorm:"column:total_cents;not null"`
	CreatedAt      time.Time `gorm:"column:created_at;autoCreateTime"`
}
