package services

import (
	"errors"
	"testing"
	"time"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) autoPostLoan(t *testing.T, fundingID uint) *models.Account {
	account := f.createAccount(t, &models.Account{
		Name: "Mortgage", Kind: models.AccountKindLoan, Currency: "USD",
		InitialBalance: d("6000"), AutoPostFundingAccountID: &fundingID,
	})
	f.buildPlan(t, account.ID, loanTerms("6000", 6, time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)))
	return account
}

func TestAutoPost_PostsDueInstallments(t *testing.T) {
	f := newFixture(t)
	checking := f.checking(t)
	loan := f.autoPostLoan(t, checking.ID)
	f.loan(t, "500") // manual loans are skipped

	report, err := f.svcs.AutoPost.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Accounts)
	assert.Equal(t, 4, report.Posted)
	assert.Zero(t, report.Failed)

	rows := f.installments(t, loan.ID)
	for _, inst := range rows[:4] {
		assert.True(t, inst.IsPosted(), "installment #%d", inst.Sequence)
		assert.Equal(t, inst.DueDate, *inst.PostedAt)
	}
	assert.Equal(t, models.InstallmentStatusPlanned, rows[4].Status)

	// a second run finds nothing due
	report, err = f.svcs.AutoPost.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Posted)
	assert.NoError(t, f.svcs.AutoPost.Run(f.ctx))
}

func TestAutoPost_StopsAccountAfterFailure(t *testing.T) {
	f := newFixture(t)
	checking := f.checking(t)
	loan := f.autoPostLoan(t, checking.ID)

	f.store.Decorate(func(repos *repository.Repositories) {
		repos.Ledger = failingLedger{LedgerRepository: repos.Ledger, err: errors.New("ledger offline")}
	})

	report, err := f.svcs.AutoPost.RunOnce(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Zero(t, report.Posted)
	assert.Error(t, f.svcs.AutoPost.Run(f.ctx))

	for _, inst := range f.installments(t, loan.ID) {
		assert.Equal(t, models.InstallmentStatusPlanned, inst.Status)
	}
}
