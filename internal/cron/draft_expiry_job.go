package cron

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/checkout"
	"github.com/shopdeck/shopdeck-backend/pkg/enums"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
	"github.com/shopdeck/shopdeck-backend/pkg/outbox"
)

const defaultExpiryBatchSize = 100

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// DraftExpiryJobParams configure the stale draft sweeper.
type DraftExpiryJobParams struct {
	Logger    *logger.Logger
	DB        txRunner
	Drafts    checkout.Repository
	Outbox    outboxEmitter
	BatchSize int
}

// NewDraftExpiryJob builds the cron job that expires drafts whose payment
// window elapsed without a provider confirmation.
func NewDraftExpiryJob(params DraftExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Drafts == nil {
		return nil, fmt.Errorf("draft repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	batchSize := params.BatchSize
	if batchSize <= 0 {
		batchSize = defaultExpiryBatchSize
	}
	return &draftExpiryJob{
		logg:      params.Logger,
		db:        params.DB,
		drafts:    params.Drafts,
		outbox:    params.Outbox,
		batchSize: batchSize,
		now:       time.Now,
	}, nil
}

type draftExpiryJob struct {
	logg      *logger.Logger
	db        txRunner
	drafts    checkout.Repository
	outbox    outboxEmitter
	batchSize int
	now       func() time.Time
}

func (j *draftExpiryJob) Name() string { return "draft-expiry" }

func (j *draftExpiryJob) Run(ctx context.Context) error {
	stale, err := j.drafts.ListStale(ctx, j.now().UTC(), j.batchSize)
	if err != nil {
		return fmt.Errorf("query stale drafts: %w", err)
	}

	count := 0
	for _, draft := range stale {
		expired, err := j.expireDraft(ctx, draft.Reference)
		if err != nil {
			return err
		}
		if expired {
			count++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"count": count})
	j.logg.Info(logCtx, "draft expiry sweep complete")
	return nil
}

// expireDraft re-reads the draft under a row lock so a confirmation racing
// the sweep wins.
func (j *draftExpiryJob) expireDraft(ctx context.Context, reference string) (bool, error) {
	expired := false
	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := j.drafts.WithTx(tx)
		draft, err := repo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return err
		}
		if draft.Status.IsTerminal() {
			return nil
		}
		if !draft.Expired(j.now().UTC()) {
			return nil
		}
		if err := repo.UpdateStatus(ctx, draft.ID, enums.DraftStatusExpired, nil); err != nil {
			return err
		}
		expired = true
		return j.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventDraftExpired,
			AggregateType: enums.AggregateDraft,
			AggregateID:   draft.ID,
			Version:       1,
			OccurredAt:    j.now().UTC(),
			Data: map[string]any{
				"draft_id":  draft.ID.String(),
				"reference": draft.Reference,
				"buyer_id":  draft.BuyerID.String(),
			},
		})
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}
