package services

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/config"
	"github.com/sjperalta/fintera-ledger/internal/jobs"
	"github.com/sjperalta/fintera-ledger/internal/repository"
)

// Clock returns the current time
type Clock func() time.Time

// AsyncRunner runs fire-and-forget jobs
type AsyncRunner interface {
	EnqueueAsync(name string, job jobs.Job)
}

// Services holds all service instances
type Services struct {
	Schedule     *ScheduleService
	Principal    *RemainingPrincipalCalculator
	Plan         *PlanBuilder
	ExtraPayment *ExtraPaymentAllocator
	Poster       *InstallmentPoster
	Allocation   *PaymentAllocationEngine
	Installments *InstallmentService
	Categories   *CategoryResolver
	BalanceSync  *BalanceSync
	AutoPost     *AutoPostJob
	Job          *JobService
}

// Options tunes the engine. Zero values fall back to defaults.
type Options struct {
	PaymentMatchTolerance decimal.Decimal
	DefaultCurrency       string
	Now                   Clock
}

// OptionsFromConfig builds engine options from the application config
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{PaymentMatchTolerance: cfg.PaymentMatchTolerance, DefaultCurrency: cfg.DefaultCurrency}
}

// DefaultPaymentMatchTolerance is the exact-match window of a BNPL payment
var DefaultPaymentMatchTolerance = decimal.RequireFromString("0.01")

// NewServices creates all service instances
func NewServices(repos *repository.Repositories, worker *jobs.Worker, opts Options) *Services {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.PaymentMatchTolerance.IsZero() {
		opts.PaymentMatchTolerance = DefaultPaymentMatchTolerance
	}
	if opts.DefaultCurrency == "" {
		opts.DefaultCurrency = "USD"
	}

	var runner AsyncRunner
	if worker != nil {
		runner = worker
	}

	categories := NewCategoryResolver()
	principal := NewRemainingPrincipalCalculator(repos)
	balanceSync := NewBalanceSync(repos, runner, principal, opts.Now)
	plan := NewPlanBuilder(repos, balanceSync, opts.Now)
	poster := NewInstallmentPoster(repos, categories, balanceSync, opts.Now)
	autoPost := NewAutoPostJob(repos, poster, opts.Now)

	return &Services{
		Schedule:     NewScheduleService(),
		Principal:    principal,
		Plan:         plan,
		ExtraPayment: NewExtraPaymentAllocator(repos, principal, plan, opts.Now),
		Poster:       poster,
		Allocation:   NewPaymentAllocationEngine(repos, categories, balanceSync, opts.PaymentMatchTolerance, opts.Now),
		Installments: NewInstallmentService(repos, principal, opts.DefaultCurrency),
		Categories:   categories,
		BalanceSync:  balanceSync,
		AutoPost:     autoPost,
		Job:          NewJobService(worker, autoPost),
	}
}

// dateOf truncates t to its calendar date in UTC
func dateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
