package withdrawals

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
	"github.com/shopdeck/shopdeck-backend/pkg/pagination"
)

func setupWithdrawalTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
CREATE TABLE IF NOT EXISTS withdrawal_requests (
  id TEXT PRIMARY KEY,
  vendor_id TEXT NOT NULL,
  amount_cents INTEGER NOT NULL,
  mobile_number TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'pending',
  notes TEXT,
  rejection_reason TEXT,
  provider_receipt TEXT,
  reviewed_at DATETIME,
  processed_at DATETIME,
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS ledger_entries (
  id TEXT PRIMARY KEY,
  owner_id TEXT NOT NULL,
  type TEXT NOT NULL,
  order_id TEXT NOT NULL,
  suborder_id TEXT NOT NULL,
  release_slice TEXT NOT NULL DEFAULT 'full',
  gross_cents INTEGER NOT NULL DEFAULT 0,
  commission_cents INTEGER NOT NULL DEFAULT 0,
  net_cents INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL DEFAULT 'pending',
  available_at DATETIME NOT NULL,
  hold_until DATETIME,
  release TEXT,
  withdrawal_id TEXT,
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedWithdrawal(t *testing.T, db *gorm.DB, vendorID uuid.UUID, status enums.WithdrawalStatus, createdAt time.Time) models.WithdrawalRequest {
	t.Helper()
	request := models.WithdrawalRequest{
		ID:           uuid.New(),
		VendorID:     vendorID,
		AmountCents:  1275,
		MobileNumber: "+254712345678",
		Status:       status,
		CreatedAt:    createdAt,
	}
	require.NoError(t, db.Create(&request).Error)
	return request
}

func TestFindByIDNotFound(t *testing.T) {
	repo := NewRepository(setupWithdrawalTestDB(t))

	_, err := repo.FindByID(context.Background(), uuid.New())
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestHasOutstandingForVendor(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewRepository(db)
	vendorID := uuid.New()

	seedWithdrawal(t, db, vendorID, enums.WithdrawalStatusRejected, time.Now())
	outstanding, err := repo.HasOutstandingForVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.False(t, outstanding, "terminal requests do not block")

	seedWithdrawal(t, db, vendorID, enums.WithdrawalStatusApproved, time.Now())
	outstanding, err = repo.HasOutstandingForVendor(context.Background(), vendorID)
	require.NoError(t, err)
	assert.True(t, outstanding)
}

func TestUpdateAppliesDecisionFields(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewRepository(db)
	request := seedWithdrawal(t, db, uuid.New(), enums.WithdrawalStatusApproved, time.Now())

	now := time.Now()
	err := repo.Update(context.Background(), request.ID, map[string]any{
		"status":           enums.WithdrawalStatusProcessed,
		"provider_receipt": "MPESA-RCPT-8812",
		"processed_at":     now,
	})
	require.NoError(t, err)

	got, err := repo.FindByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.WithdrawalStatusProcessed, got.Status)
	require.NotNil(t, got.ProviderReceipt)
	assert.Equal(t, "MPESA-RCPT-8812", *got.ProviderReceipt)
	require.NotNil(t, got.ProcessedAt)
}

func TestListFiltersByStatusAndPaginates(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewRepository(db)
	base := time.Now().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		seedWithdrawal(t, db, uuid.New(), enums.WithdrawalStatusPending, base.Add(time.Duration(i)*time.Minute))
	}
	seedWithdrawal(t, db, uuid.New(), enums.WithdrawalStatusProcessed, base.Add(10*time.Minute))

	pending := enums.WithdrawalStatusPending
	rows, next, err := repo.List(context.Background(), &pending, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.NotEmpty(t, next)
	assert.True(t, rows[0].CreatedAt.After(rows[1].CreatedAt), "newest first")

	rows, next, err = repo.List(context.Background(), &pending, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, next)
}

func TestListByVendorScopes(t *testing.T) {
	db := setupWithdrawalTestDB(t)
	repo := NewRepository(db)
	vendorID := uuid.New()

	seedWithdrawal(t, db, vendorID, enums.WithdrawalStatusPending, time.Now())
	seedWithdrawal(t, db, uuid.New(), enums.WithdrawalStatusPending, time.Now())

	rows, _, err := repo.ListByVendor(context.Background(), vendorID, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, vendorID, rows[0].VendorID)
}
