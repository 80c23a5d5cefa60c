package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/shopdeck/shopdeck-backend/internal/ledger"
	"github.com/shopdeck/shopdeck-backend/pkg/logger"
)

type fakeLedgerRepo struct {
	ledger.Repository
	promoted   int64
	released   int64
	promoteErr error
	lastNow    time.Time
}

func (f *fakeLedgerRepo) WithTx(tx *gorm.DB) ledger.Repository { return f }

func (f *fakeLedgerRepo) PromotePending(ctx context.Context, now time.Time) (int64, error) {
	f.lastNow = now
	return f.promoted, f.promoteErr
}

func (f *fakeLedgerRepo) ReleaseHeld(ctx context.Context, now time.Time) (int64, error) {
	return f.released, nil
}

func newLedgerReleaseJob(t *testing.T, repo *fakeLedgerRepo) *ledgerReleaseJob {
	t.Helper()
	jobIface, err := NewLedgerReleaseJob(LedgerReleaseJobParams{
		Logger: logger.New(logger.Options{ServiceName: "test"}),
		DB:     cronTxRunner{},
		Ledger: repo,
	})
	if err != nil {
		t.Fatalf("NewLedgerReleaseJob: %v", err)
	}
	return jobIface.(*ledgerReleaseJob)
}

func TestLedgerReleaseJobSweeps(t *testing.T) {
	now := time.Date(2026, 8, 20, 12, 0, 0, 0, time.UTC)
	repo := &fakeLedgerRepo{promoted: 3, released: 2}
	job := newLedgerReleaseJob(t, repo)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !repo.lastNow.Equal(now) {
		t.Fatalf("promote cutoff = %s", repo.lastNow)
	}
}

func TestLedgerReleaseJobStillReleasesAfterPromoteFailure(t *testing.T) {
	repo := &fakeLedgerRepo{promoteErr: errors.New("boom"), released: 1}
	job := newLedgerReleaseJob(t, repo)

	err := job.Run(context.Background())
	if err == nil {
		t.Fatal("expected promote error to surface")
	}
}
