package checkout

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/shopdeck/shopdeck-backend/pkg/db/models"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	pkgerrors "github.com/shopdeck/shopdeck-backend/pkg/errors"
)

// Repository manages persistence for order drafts.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, draft *models.OrderDraft) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error)
	FindByReference(ctx context.Context, reference string) (*models.OrderDraft, error)
	FindByReferenceForUpdate(ctx context.Context, reference string) (*models.OrderDraft, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DraftStatus, fields map[string]any) error
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderDraft, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a draft repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, draft *models.OrderDraft) error {
	return r.db.WithContext(ctx).Create(draft).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	err := r.db.WithContext(ctx).First(&draft, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
		}
		return nil, err
	}
	return &draft, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.OrderDraft, error) {
	return r.findByReference(ctx, r.db, reference)
}

// FindByReferenceForUpdate takes a row lock so concurrent webhook deliveries
// for the same reference serialize on the draft.
func (r *repository) FindByReferenceForUpdate(ctx context.Context, reference string) (*models.OrderDraft, error) {
	return r.findByReference(ctx, r.db.Clauses(forUpdateClause()), reference)
}

func forUpdateClause() clause.Expression {
	return clause.Locking{Strength: "UPDATE"}
}

func (r *repository) findByReference(ctx context.Context, db *gorm.DB, reference string) (*models.OrderDraft, error) {
	var draft models.OrderDraft
	err := db.WithContext(ctx).First(&draft, "reference = ?", reference).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "draft not found")
		}
		return nil, err
	}
	return &draft, nil
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.DraftStatus, fields map[string]any) error {
	updates := map[string]any{"status": status}
	for k, v := range fields {
		updates[k] = v
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderDraft{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ListStale returns non-terminal drafts whose TTL elapsed before the cutoff.
func (r *repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]models.OrderDraft, error) {
	var drafts []models.OrderDraft
	err := r.db.WithContext(ctx).
		Where("status IN ?", []enums.DraftStatus{enums.DraftStatusPending, enums.DraftStatusValidated}).
		Where("expires_at < ?", cutoff).
		Order("expires_at ASC").
		Limit(limit).
		Find(&drafts).Error
	if err != nil {
		return nil, err
	}
	return drafts, nil
}
