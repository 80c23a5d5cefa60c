package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/types"
)

// LedgerEntry records money owed to a vendor or rider for one payout-eligible
// event. The (order, suborder, owner, type, slice) tuple is unique: an entry
// is never created twice for the same source.
type LedgerEntry struct {
	ID              uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerID         uuid.UUID               `gorm:"column:owner_id;type:uuid;not null;index;uniqueIndex:ux_ledger_entries_source,priority:3"`
	Type            enums.EarningType       `gorm:"column:type;type:text;not null;uniqueIndex:ux_ledger_entries_source,priority:4"`
	OrderID         uuid.UUID               `gorm:"column:order_id;type:uuid;not null;uniqueIndex:ux_ledger_entries_source,priority:1"`
	SuborderID      uuid.UUID               `gorm:"column:suborder_id;type:uuid;not null;uniqueIndex:ux_ledger_entries_source,priority:2"`
	Slice           enums.ReleaseSlice      `gorm:"column:release_slice;type:text;not null;default:'full';uniqueIndex:ux_ledger_entries_source,priority:5"`
	GrossCents      int64                   `gorm:"column:gross_cents;not null"`
	CommissionCents int64                   `gorm:"column:commission_cents;not null"`
	NetCents        int64                   `gorm:"column:net_cents;not null"`
	Status          enums.EarningStatus     `gorm:"column:status;type:text;not null;default:'pending';index"`
	AvailableAt     time.Time               `gorm:"column:available_at;not null"`
	HoldUntil       *time.Time              `gorm:"column:hold_until"`
	Release         *types.ReleaseBreakdown `gorm:"column:release;type:jsonb;serializer:json"`
	WithdrawalID    *uuid.UUID              `gorm:"column:withdrawal_id;type:uuid;index"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}
