package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
)

// PlanBuilder persists generated schedules as installment plans. Realized
// installments are history: a rebuild only replaces planned rows that are
// due today or later, or that come after the last realized sequence.
type PlanBuilder struct {
	repos  *repository.Repositories
	resync ResyncRequester
	now    Clock
}

// PlanResult describes the plan after a rebuild
type PlanResult struct {
	AccountID            uint                 `json:"account_id"`
	LastRealizedSequence int                  `json:"last_realized_sequence"`
	Replaced             int64                `json:"replaced"`
	Created              []models.Installment `json:"created"`
	Installments         []models.Installment `json:"installments"`
	Discount             decimal.Decimal      `json:"discount"`
}

func NewPlanBuilder(repos *repository.Repositories, resync ResyncRequester, now Clock) *PlanBuilder {
	return &PlanBuilder{repos: repos, resync: resync, now: now}
}

// BuildPlan regenerates the plan of a loan account from terms
func (b *PlanBuilder) BuildPlan(ctx context.Context, accountID uint, terms schedule.Terms) Result[*PlanResult] {
	return run("build_plan", accountID, func() (*PlanResult, error) {
		rows, err := schedule.Generate(terms)
		if err != nil {
			return nil, err
		}
		account, err := findAccount(ctx, b.repos, accountID, models.AccountKindLoan)
		if err != nil {
			return nil, err
		}

		record := loanTermsRecord(accountID, terms)
		var result *PlanResult
		err = b.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			result, err = b.Replace(ctx, tx, account, rows, record)
			return err
		})
		if err != nil {
			return nil, err
		}
		return b.complete(ctx, account, result)
	})
}

// BuildInstallmentPlan regenerates the plan of a BNPL account and refreshes its available credit
func (b *PlanBuilder) BuildInstallmentPlan(ctx context.Context, accountID uint, terms schedule.InstallmentPlanTerms) Result[*PlanResult] {
	return run("build_installment_plan", accountID, func() (*PlanResult, error) {
		plan, err := schedule.GenerateInstallmentPlan(terms)
		if err != nil {
			return nil, err
		}
		account, err := findAccount(ctx, b.repos, accountID, models.AccountKindBNPL)
		if err != nil {
			return nil, err
		}

		record := installmentTermsRecord(accountID, terms)
		var result *PlanResult
		err = b.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			result, err = b.Replace(ctx, tx, account, plan.Rows, record)
			if err != nil {
				return err
			}
			_, err = refreshAvailableCredit(ctx, tx, account)
			return err
		})
		if err != nil {
			return nil, err
		}
		result.Discount = plan.Discount
		return b.complete(ctx, account, result)
	})
}

// Replace reconciles the persisted plan with rows inside tx. New rows are
// numbered after the last realized sequence.
func (b *PlanBuilder) Replace(ctx context.Context, tx *repository.Repositories, account *models.Account, rows []schedule.Row, record *models.DebtTerms) (*PlanResult, error) {
	lastRealized, err := tx.Installment.MaxRealizedSequence(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to find last realized installment: %w", err)
	}

	replaced, err := tx.Installment.DeleteReplaceable(ctx, account.ID, dateOf(b.now()), lastRealized)
	if err != nil {
		return nil, fmt.Errorf("failed to remove replaceable installments: %w", err)
	}

	created := make([]models.Installment, len(rows))
	for i, row := range rows {
		created[i] = models.Installment{
			AccountID:       account.ID,
			Sequence:        lastRealized + i + 1,
			DueDate:         row.DueDate,
			PrincipalAmount: row.Principal,
			InterestAmount:  row.Interest,
			BalloonAmount:   row.Balloon,
			TotalAmount:     row.Total,
			Status:          models.InstallmentStatusPlanned,
		}
	}
	if err := tx.Installment.CreateBatch(ctx, created); err != nil {
		return nil, fmt.Errorf("failed to create installments: %w", err)
	}

	if record != nil {
		if err := tx.Terms.Save(ctx, record); err != nil {
			return nil, fmt.Errorf("failed to save terms: %w", err)
		}
	}

	return &PlanResult{
		AccountID:            account.ID,
		LastRealizedSequence: lastRealized,
		Replaced:             replaced,
		Created:              created,
	}, nil
}

// complete loads the resulting plan and requests a balance resync
func (b *PlanBuilder) complete(ctx context.Context, account *models.Account, result *PlanResult) (*PlanResult, error) {
	installments, err := b.repos.Installment.FindByAccount(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	result.Installments = installments
	b.resync.RequestBalanceResync(account.ID)
	return result, nil
}

func loanTermsRecord(accountID uint, terms schedule.Terms) *models.DebtTerms {
	return &models.DebtTerms{
		AccountID:  accountID,
		Principal:  terms.Principal,
		AnnualRate: terms.AnnualRate,
		Term:       terms.Term,
		Frequency:  string(terms.Frequency),
		Method:     string(terms.Method),
		StartDate:  terms.StartDate,
		Balloon:    terms.Balloon,
	}
}

func installmentTermsRecord(accountID uint, terms schedule.InstallmentPlanTerms) *models.DebtTerms {
	return &models.DebtTerms{
		AccountID:          accountID,
		Principal:          terms.Principal,
		AnnualRate:         terms.Rate,
		Term:               terms.Installments,
		Frequency:          string(terms.Frequency),
		Calculation:        string(terms.Calculation),
		FreeInterestMonths: terms.FreeInterestMonths,
		StartDate:          terms.StartDate,
	}
}

// loanTermsFromRecord rebuilds generator terms from a persisted record
func loanTermsFromRecord(record *models.DebtTerms) (schedule.Terms, error) {
	frequency, err := schedule.ParseFrequency(record.Frequency)
	if err != nil {
		return schedule.Terms{}, err
	}
	method, err := schedule.ParseMethod(record.Method)
	if err != nil {
		return schedule.Terms{}, err
	}
	return schedule.Terms{
		Principal:  record.Principal,
		AnnualRate: record.AnnualRate,
		Term:       record.Term,
		Frequency:  frequency,
		Method:     method,
		StartDate:  record.StartDate,
		Balloon:    record.Balloon,
	}, nil
}

// findAccount loads an account and checks it is of the wanted kind
func findAccount(ctx context.Context, repos *repository.Repositories, accountID uint, kind string) (*models.Account, error) {
	if accountID == 0 {
		return nil, invalidField("account_id", "is required")
	}
	account, err := repos.Account.FindByID(ctx, accountID)
	if err != nil {
		return nil, notFound(err, "account %d", accountID)
	}
	if account.Kind != kind {
		return nil, fmt.Errorf("account %d is a %s account, expected %s: %w", accountID, account.Kind, kind, ErrWrongInstrument)
	}
	return account, nil
}

// findFundingAccount loads the account money comes from
func findFundingAccount(ctx context.Context, repos *repository.Repositories, fundingID, debtID uint) (*models.Account, error) {
	if fundingID == 0 {
		return nil, invalidField("funding_account_id", "is required")
	}
	if fundingID == debtID {
		return nil, invalidField("funding_account_id", "must differ from the debt account")
	}
	funding, err := repos.Account.FindByID(ctx, fundingID)
	if err != nil {
		return nil, notFound(err, "funding account %d", fundingID)
	}
	if !funding.MayFund() {
		return nil, fmt.Errorf("account %d is a %s account and cannot fund payments: %w", fundingID, funding.Kind, ErrWrongInstrument)
	}
	return funding, nil
}
