package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/payroll"
	"github.com/cmlabs-hris/hris-payroll-engine/internal/domain/period"
)

// DraftRefresher recomputes and stores the drafts of a period.
type DraftRefresher interface {
	RefreshDrafts(ctx context.Context, p period.Period) (payroll.PersistResult, error)
}

// PayrollJobs keeps the drafts of the running month current so reviewers see
// up to date figures before they validate.
type PayrollJobs struct {
	refresher DraftRefresher
	logger    *slog.Logger
	now       func() time.Time
}

func NewPayrollJobs(refresher DraftRefresher, logger *slog.Logger) *PayrollJobs {
	if logger == nil {
		logger = slog.Default()
	}
	return &PayrollJobs{
		refresher: refresher,
		logger:    logger,
		now:       time.Now,
	}
}

func (j *PayrollJobs) RegisterJobs(scheduler *Scheduler, interval time.Duration) {
	scheduler.AddJob("refresh_payroll_drafts", interval, j.RefreshCurrentPeriod)
}

func (j *PayrollJobs) RefreshCurrentPeriod(ctx context.Context) error {
	p := period.FromTime(j.now().UTC())

	res, err := j.refresher.RefreshDrafts(ctx, p)
	if err != nil {
		return fmt.Errorf("refresh drafts for %s: %w", p, err)
	}

	j.logger.Info("cron: payroll drafts refreshed",
		slog.String("period", p.String()),
		slog.String("run_id", res.RunID),
		slog.Int("succeeded", len(res.Succeeded)),
		slog.Int("failed", len(res.Failed)),
		slog.Int("excluded", res.Excluded),
	)
	return nil
}
