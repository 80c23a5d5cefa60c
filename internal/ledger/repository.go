package ledger

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	Exists(ctx context.Context, orderID, suborderID, ownerID uuid.UUID, earningType enums.EarningType) (bool, error)
	FindAvailableForUpdate(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.LedgerEntry, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, statuses []enums.EarningStatus) ([]models.LedgerEntry, error)
	SumByOwnerAndStatus(ctx context.Context, ownerID uuid.UUID) (map[enums.EarningStatus]int64, error)
	MarkRequested(ctx context.Context, ids []uuid.UUID, withdrawalID uuid.UUID) (int64, error)
	ReleaseRequested(ctx context.Context, withdrawalID uuid.UUID) error
	MarkWithdrawn(ctx context.Context, withdrawalID uuid.UUID) error
	PromotePending(ctx context.Context, now time.Time) (int64, error)
	ReleaseHeld(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) Exists(ctx context.Context, orderID, suborderID, ownerID uuid.UUID, earningType enums.EarningType) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("order_id = ? AND suborder_id = ? AND owner_id = ? AND type = ?",
			orderID, suborderID, ownerID, earningType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// FindAvailableForUpdate row-locks the requested entries, restricted to the
// owner and to AVAILABLE rows with no withdrawal linkage. Rows already claimed
// by a request simply do not come back; the caller detects the shortfall, and
// the MarkRequested test-and-set re-checks the claim on write.
func (r *repository) FindAvailableForUpdate(ctx context.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]models.LedgerEntry, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var entries []models.LedgerEntry
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id IN ?", ids).
		Where("owner_id = ?", ownerID).
		Where("status = ?", enums.EarningStatusAvailable).
		Where("withdrawal_id IS NULL").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) ListByOwner(ctx context.Context, ownerID uuid.UUID, statuses []enums.EarningStatus) ([]models.LedgerEntry, error) {
	q := r.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if len(statuses) > 0 {
		q = q.Where("status IN ?", statuses)
	}
	var entries []models.LedgerEntry
	if err := q.Order("created_at ASC").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) SumByOwnerAndStatus(ctx context.Context, ownerID uuid.UUID) (map[enums.EarningStatus]int64, error) {
	type row struct {
		Status enums.EarningStatus
		Total  int64
	}
	var rows []row
	err := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Select("status, COALESCE(SUM(net_cents), 0) AS total").
		Where("owner_id = ?", ownerID).
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[enums.EarningStatus]int64, len(rows))
	for _, r := range rows {
		sums[r.Status] = r.Total
	}
	return sums, nil
}

// MarkRequested claims entries for a withdrawal with a guarded update: only
// AVAILABLE, unclaimed rows flip, and the affected count tells the caller
// whether every requested entry was actually claimed.
func (r *repository) MarkRequested(ctx context.Context, ids []uuid.UUID, withdrawalID uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id IN ?", ids).
		Where("status = ?", enums.EarningStatusAvailable).
		Where("withdrawal_id IS NULL").
		Updates(map[string]any{
			"status":        enums.EarningStatusRequested,
			"withdrawal_id": withdrawalID,
		})
	return res.RowsAffected, res.Error
}

func (r *repository) ReleaseRequested(ctx context.Context, withdrawalID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("withdrawal_id = ?", withdrawalID).
		Where("status = ?", enums.EarningStatusRequested).
		Updates(map[string]any{
			"status":        enums.EarningStatusAvailable,
			"withdrawal_id": nil,
		}).Error
}

func (r *repository) MarkWithdrawn(ctx context.Context, withdrawalID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("withdrawal_id = ?", withdrawalID).
		Where("status = ?", enums.EarningStatusRequested).
		Update("status", enums.EarningStatusWithdrawn).Error
}

// PromotePending flips PENDING entries whose availability time has elapsed.
func (r *repository) PromotePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("status = ?", enums.EarningStatusPending).
		Where("available_at <= ?", now).
		Update("status", enums.EarningStatusAvailable)
	return res.RowsAffected, res.Error
}

// ReleaseHeld flips LOCKED remainder entries whose hold period has elapsed.
func (r *repository) ReleaseHeld(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("status = ?", enums.EarningStatusLocked).
		Where("hold_until IS NOT NULL AND hold_until <= ?", now).
		Update("status", enums.EarningStatusAvailable)
	return res.RowsAffected, res.Error
}
