package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/shopdeck/shopdeck-backend/pkg/enums"
)

// WithdrawalRequest aggregates a set of available ledger entries into one
// vendor-initiated payout ask. Entries reference the request through their
// withdrawal_id while it is non-terminal. Requests are never deleted; terminal
// status is the only end of life.
type WithdrawalRequest struct {
	ID               uuid.UUID              `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	VendorID         uuid.UUID              `gorm:"column:vendor_id;type:uuid;not null;index"`
	AmountCents      int64                  `gorm:"column:amount_cents;not null"`
	MobileNumber     string                 `gorm:"column:mobile_number;not null"`
	Status           enums.WithdrawalStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Notes            *string                `gorm:"column:notes"`
	RejectionReason  *string                `gorm:"column:rejection_reason"`
	ProviderReceipt  *string                `gorm:"column:provider_receipt"`
	ReviewedAt       *time.Time             `gorm:"column:reviewed_at"`
	ProcessedAt      *time.Time             `gorm:"column:processed_at"`
	Entries          []LedgerEntry          `gorm:"foreignKey:WithdrawalID"`
	CreatedAt        time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
