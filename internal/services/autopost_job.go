package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
)

// AutoPostJob posts due installments of loans that pay automatically from a funding account
type AutoPostJob struct {
	repos  *repository.Repositories
	poster *InstallmentPoster
	now    Clock

	mu   sync.Mutex
	last *AutoPostReport
}

// AutoPostReport summarizes one run
type AutoPostReport struct {
	Accounts   int `json:"accounts"`
	Posted     int `json:"posted"`
	Idempotent int `json:"idempotent"`
	Failed     int `json:"failed"`

	FinishedAt time.Time `json:"finished_at"`
}

func NewAutoPostJob(repos *repository.Repositories, poster *InstallmentPoster, now Clock) *AutoPostJob {
	return &AutoPostJob{repos: repos, poster: poster, now: now}
}

// Run is scheduled by the worker. Retried runs are safe because posting is idempotent.
func (j *AutoPostJob) Run(ctx context.Context) error {
	report, err := j.RunOnce(ctx)
	if report != nil {
		j.remember(report)
	}
	if err != nil {
		return err
	}
	logger.Info("auto-post run finished",
		"accounts", report.Accounts, "posted", report.Posted,
		"idempotent", report.Idempotent, "failed", report.Failed)
	if report.Failed > 0 {
		return fmt.Errorf("auto-post: %d installments failed", report.Failed)
	}
	return nil
}

// RunOnce posts every planned installment due today or earlier, in sequence order
func (j *AutoPostJob) RunOnce(ctx context.Context) (*AutoPostReport, error) {
	accounts, err := j.repos.Account.FindAutoPostLoans(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load auto-post accounts: %w", err)
	}

	today := dateOf(j.now())
	report := &AutoPostReport{Accounts: len(accounts)}
	for _, account := range accounts {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		due, err := j.repos.Installment.FindDuePlanned(ctx, account.ID, today)
		if err != nil {
			return report, fmt.Errorf("failed to load due installments of account %d: %w", account.ID, err)
		}

		for _, inst := range due {
			sequence := inst.Sequence
			res := j.poster.PostInstallment(ctx, PostRequest{
				AccountID:        account.ID,
				FundingAccountID: *account.AutoPostFundingAccountID,
				Sequence:         &sequence,
				Date:             inst.DueDate,
			})
			if !res.Success {
				// later rows of this account wait for the failed one
				report.Failed++
				break
			}
			if res.Data.Idempotent {
				report.Idempotent++
			} else {
				report.Posted++
			}
		}
	}
	return report, nil
}

func (j *AutoPostJob) remember(report *AutoPostReport) {
	report.FinishedAt = j.now()
	j.mu.Lock()
	defer j.mu.Unlock()
	j.last = report
}

// LastReport returns the report of the latest scheduled run, or nil before the first one
func (j *AutoPostJob) LastReport() *AutoPostReport {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.last == nil {
		return nil
	}
	report := *j.last
	return &report
}
