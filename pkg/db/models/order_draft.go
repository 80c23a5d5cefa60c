package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// OrderDraft is the provisional order created at checkout. Totals and splits
// are fixed once created; only the reconciliation engine mutates status, and
// past confirmed/failed the row is immutable.
type OrderDraft struct {
	ID                    uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Reference             string             `gorm:"column:reference;uniqueIndex;not null"`
	ShortCode             *string            `gorm:"column:short_code"`
	BuyerID               uuid.UUID          `gorm:"column:buyer_id;type:uuid;not null"`
	Items                 types.DraftItems   `gorm:"column:items;type:jsonb;serializer:json"`
	VendorSplits          types.VendorSplits `gorm:"column:vendor_splits;type:jsonb;serializer:json"`
	SubtotalCents         int64              `gorm:"column:subtotal_cents;not null"`
	PlatformFeeCents      int64              `gorm:"column:platform_fee_cents;not null"`
	TotalCents            int64              `gorm:"column:total_cents;not null"`
	ShippingAddress       types.Address      `gorm:"column:shipping_address;type:jsonb;serializer:json"`
	Status                enums.DraftStatus  `gorm:"column:status;type:text;not null;default:'pending'"`
	FailureReason         *string            `gorm:"column:failure_reason"`
	ProviderTransactionID *string            `gorm:"column:provider_transaction_id"`
	ExpiresAt             time.Time          `gorm:"column:expires_at;not null"`
	CreatedAt             time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt             time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

// Expired reports whether the draft is past its TTL at the given instant.
func (d OrderDraft) Expired(now time.Time) bool {
	return now.After(d.ExpiresAt)
}
