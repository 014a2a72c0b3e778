package services

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/repository/memory"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
	"github.com/stretchr/testify/require"
)

var today = time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	ctx   context.Context
	store *memory.Store
	repos *repository.Repositories
	svcs  *Services
}

// newFixture wires the services to an in-memory store. Without a worker,
// balance resyncs run inline so tests can assert on them.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	repos := store.Repositories()
	return &fixture{
		ctx:   context.Background(),
		store: store,
		repos: repos,
		svcs:  NewServices(repos, nil, Options{Now: func() time.Time { return today }}),
	}
}

func (f *fixture) createAccount(t *testing.T, account *models.Account) *models.Account {
	t.Helper()
	require.NoError(t, f.repos.Account.Create(f.ctx, account))
	return account
}

func (f *fixture) loan(t *testing.T, principal string) *models.Account {
	return f.createAccount(t, &models.Account{
		Name: "Car loan", Kind: models.AccountKindLoan, Currency: "USD", InitialBalance: d(principal),
	})
}

func (f *fixture) checking(t *testing.T) *models.Account {
	return f.createAccount(t, &models.Account{
		Name: "Checking", Kind: models.AccountKindDepository, Currency: "USD", InitialBalance: d("50000"),
	})
}

func (f *fixture) bnpl(t *testing.T, limit string) *models.Account {
	return f.createAccount(t, &models.Account{
		Name: "Laptop plan", Kind: models.AccountKindBNPL, Currency: "USD", CreditLimit: d(limit),
	})
}

func loanTerms(principal string, term int, start time.Time) schedule.Terms {
	return schedule.Terms{
		Principal:  d(principal),
		AnnualRate: d("12"),
		Term:       term,
		Frequency:  schedule.FrequencyMonthly,
		Method:     schedule.MethodAnnuity,
		StartDate:  start,
	}
}

func (f *fixture) buildPlan(t *testing.T, accountID uint, terms schedule.Terms) *PlanResult {
	t.Helper()
	res := f.svcs.Plan.BuildPlan(f.ctx, accountID, terms)
	require.True(t, res.Success, res.Error)
	return res.Data
}

func (f *fixture) post(t *testing.T, accountID, fundingID uint, sequence int) *PostResult {
	t.Helper()
	res := f.svcs.Poster.PostInstallment(f.ctx, PostRequest{
		AccountID: accountID, FundingAccountID: fundingID, Sequence: &sequence, Date: today,
	})
	require.True(t, res.Success, res.Error)
	return res.Data
}

func (f *fixture) installments(t *testing.T, accountID uint) []models.Installment {
	t.Helper()
	rows, err := f.repos.Installment.FindByAccount(f.ctx, accountID)
	require.NoError(t, err)
	return rows
}

func plannedPrincipal(rows []models.Installment) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rows {
		if r.Status == models.InstallmentStatusPlanned {
			total = total.Add(r.PrincipalAmount)
		}
	}
	return total
}

// failingTerms fails every Save
type failingTerms struct {
	repository.TermsRepository
	err error
}

func (f failingTerms) Save(ctx context.Context, terms *models.DebtTerms) error {
	return f.err
}

// failingLedger fails every expense entry
type failingLedger struct {
	repository.LedgerRepository
	err error
}

func (f failingLedger) CreateExpense(ctx context.Context, expense *models.LedgerExpense) (string, error) {
	return "", f.err
}
