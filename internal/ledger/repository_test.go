package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	dbpkg "github.com/shopdeck/shopdeck-backend/pkg/db"
	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
)

func setupLedgerTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.NoError(t, err)

	schema := `
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
  updated_at DATETIME,
  UNIQUE (order_id, suborder_id, owner_id, type, release_slice)
);`
	require.NoError(t, db.Exec(schema).Error)
	return db
}

func seedEntry(t *testing.T, db *gorm.DB, ownerID uuid.UUID, status enums.EarningStatus, net int64) models.LedgerEntry {
	t.Helper()
	entry := models.LedgerEntry{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Type:        enums.EarningTypeOrderVendorPayout,
		OrderID:     uuid.New(),
		SuborderID:  uuid.New(),
		Slice:       enums.ReleaseSliceFull,
		GrossCents:  net,
		NetCents:    net,
		Status:      status,
		AvailableAt: time.Now(),
	}
	require.NoError(t, db.Create(&entry).Error)
	return entry
}

func TestUniqueSourceConstraint(t *testing.T) {
	db := setupLedgerTestDB(t)
	owner := uuid.New()
	first := seedEntry(t, db, owner, enums.EarningStatusPending, 850)

	dup := models.LedgerEntry{
		ID:          uuid.New(),
		OwnerID:     first.OwnerID,
		Type:        first.Type,
		OrderID:     first.OrderID,
		SuborderID:  first.SuborderID,
		Slice:       first.Slice,
		NetCents:    850,
		Status:      enums.EarningStatusPending,
		AvailableAt: time.Now(),
	}
	err := db.Create(&dup).Error
	require.Error(t, err)
	assert.True(t, dbpkg.IsUniqueViolation(err, "ux_ledger_entries_source"))
}

func TestMarkRequestedClaimsOnlyAvailable(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	owner := uuid.New()

	available := seedEntry(t, db, owner, enums.EarningStatusAvailable, 500)
	pending := seedEntry(t, db, owner, enums.EarningStatusPending, 300)
	withdrawalID := uuid.New()

	claimed, err := repo.MarkRequested(context.Background(),
		[]uuid.UUID{available.ID, pending.ID}, withdrawalID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), claimed)

	var reloaded models.LedgerEntry
	require.NoError(t, db.First(&reloaded, "id = ?", available.ID).Error)
	assert.Equal(t, enums.EarningStatusRequested, reloaded.Status)
	require.NotNil(t, reloaded.WithdrawalID)
	assert.Equal(t, withdrawalID, *reloaded.WithdrawalID)
}

func TestFindAvailableForUpdateTakesRowLock(t *testing.T) {
	db := setupLedgerTestDB(t)

	var captured string
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("capture_sql", func(tx *gorm.DB) {
		captured = tx.Statement.SQL.String()
	}))

	// sqlite cannot execute FOR UPDATE, so inspect the generated statement
	repo := NewRepository(db.Session(&gorm.Session{DryRun: true}))
	_, err := repo.FindAvailableForUpdate(context.Background(), uuid.New(), []uuid.UUID{uuid.New()})
	require.NoError(t, err)
	assert.Contains(t, captured, "FOR UPDATE")
}

func TestReleaseRequestedRestoresAvailability(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	owner := uuid.New()
	entry := seedEntry(t, db, owner, enums.EarningStatusAvailable, 500)
	withdrawalID := uuid.New()

	_, err := repo.MarkRequested(context.Background(), []uuid.UUID{entry.ID}, withdrawalID)
	require.NoError(t, err)
	require.NoError(t, repo.ReleaseRequested(context.Background(), withdrawalID))

	var reloaded models.LedgerEntry
	require.NoError(t, db.First(&reloaded, "id = ?", entry.ID).Error)
	assert.Equal(t, enums.EarningStatusAvailable, reloaded.Status)
	assert.Nil(t, reloaded.WithdrawalID)
}

func TestPromotePendingAndReleaseHeld(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	owner := uuid.New()

	due := seedEntry(t, db, owner, enums.EarningStatusPending, 100)
	require.NoError(t, db.Model(&models.LedgerEntry{}).
		Where("id = ?", due.ID).
		Update("available_at", time.Now().Add(-time.Hour)).Error)

	notDue := seedEntry(t, db, owner, enums.EarningStatusPending, 200)
	require.NoError(t, db.Model(&models.LedgerEntry{}).
		Where("id = ?", notDue.ID).
		Update("available_at", time.Now().Add(time.Hour)).Error)

	held := seedEntry(t, db, owner, enums.EarningStatusLocked, 170)
	require.NoError(t, db.Model(&models.LedgerEntry{}).
		Where("id = ?", held.ID).
		Update("hold_until", time.Now().Add(-time.Minute)).Error)

	promoted, err := repo.PromotePending(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), promoted)

	released, err := repo.ReleaseHeld(context.Background(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(1), released)

	var stillPending models.LedgerEntry
	require.NoError(t, db.First(&stillPending, "id = ?", notDue.ID).Error)
	assert.Equal(t, enums.EarningStatusPending, stillPending.Status)
}

func TestSumByOwnerAndStatus(t *testing.T) {
	db := setupLedgerTestDB(t)
	repo := NewRepository(db)
	owner := uuid.New()

	seedEntry(t, db, owner, enums.EarningStatusAvailable, 500)
	seedEntry(t, db, owner, enums.EarningStatusAvailable, 180)
	seedEntry(t, db, owner, enums.EarningStatusPending, 300)
	seedEntry(t, db, uuid.New(), enums.EarningStatusAvailable, 999)

	sums, err := repo.SumByOwnerAndStatus(context.Background(), owner)
	require.NoError(t, err)
	assert.Equal(t, int64(680), sums[enums.EarningStatusAvailable])
	assert.Equal(t, int64(300), sums[enums.EarningStatusPending])
}
