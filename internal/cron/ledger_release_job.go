package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
)

// LedgerReleaseJobParams configure the scheduled fund release sweeper.
type LedgerReleaseJobParams struct {
	Logger *logger.Logger
	DB     txRunner
	Ledger ledger.Repository
}

// NewLedgerReleaseJob builds the cron job that moves matured ledger entries
// forward: pending entries past their settlement delay become available, and
// locked remainder slices past their hold window are released.
func NewLedgerReleaseJob(params LedgerReleaseJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("db runner required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &ledgerReleaseJob{
		logg:   params.Logger,
		db:     params.DB,
		ledger: params.Ledger,
		now:    time.Now,
	}, nil
}

type ledgerReleaseJob struct {
	logg   *logger.Logger
	db     txRunner
	ledger ledger.Repository
	now    func() time.Time
}

func (j *ledgerReleaseJob) Name() string { return "ledger-release" }

func (j *ledgerReleaseJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	var promoted, released int64
	var errs []error

	err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := j.ledger.WithTx(tx).PromotePending(ctx, now)
		promoted = count
		return err
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("promote pending entries: %w", err))
	}

	err = j.db.WithTx(ctx, func(tx *gorm.DB) error {
		count, err := j.ledger.WithTx(tx).ReleaseHeld(ctx, now)
		released = count
		return err
	})
	if err != nil {
		errs = append(errs, fmt.Errorf("release held entries: %w", err))
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"promoted": promoted,
		"released": released,
	})
	j.logg.Info(logCtx, "ledger release sweep complete")
	return multierr.Combine(errs...)
}
