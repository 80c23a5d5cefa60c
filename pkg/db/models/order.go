package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// Order is the durable record created exactly once from a confirmed draft.
// Append-only after creation except for the status fields.
type Order struct {
	ID                    uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	DraftID               uuid.UUID           `gorm:"column:draft_id;type:uuid;uniqueIndex;not null"`
	Reference             string              `gorm:"column:reference;uniqueIndex;not null"`
	BuyerID               uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null"`
	SubtotalCents         int64               `gorm:"column:subtotal_cents;not null"`
	PlatformFeeCents      int64               `gorm:"column:platform_fee_cents;not null"`
	TotalCents            int64               `gorm:"column:total_cents;not null"`
	ShippingAddress       types.Address       `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	PaymentStatus         enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	Status                enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	ProviderTransactionID string              `gorm:"column:provider_transaction_id;not null"`
	Suborders             []Suborder          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt             time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
