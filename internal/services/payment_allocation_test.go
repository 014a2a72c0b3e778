package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedInstallments stores n planned rows of 90 principal and 10 interest, one month apart
func (f *fixture) seedInstallments(t *testing.T, accountID uint, n int, firstDue string) []models.Installment {
	t.Helper()
	due, err := time.Parse(time.DateOnly, firstDue)
	require.NoError(t, err)

	rows := make([]models.Installment, n)
	for i := range rows {
		rows[i] = models.Installment{
			AccountID:       accountID,
			Sequence:        i + 1,
			DueDate:         due.AddDate(0, i, 0),
			PrincipalAmount: d("90"),
			InterestAmount:  d("10"),
			TotalAmount:     d("100"),
			Status:          models.InstallmentStatusPlanned,
		}
	}
	require.NoError(t, f.repos.Installment.CreateBatch(f.ctx, rows))
	return f.installments(t, accountID)
}

func (f *fixture) pay(t *testing.T, accountID, fundingID uint, amount string) *AllocationResult {
	t.Helper()
	res := f.svcs.Allocation.AllocatePayment(f.ctx, PaymentRequest{
		AccountID: accountID, FundingAccountID: fundingID, Amount: d(amount), Date: today,
	})
	require.True(t, res.Success, res.Error)
	return res.Data
}

func TestSelectStrategy(t *testing.T) {
	next := &models.Installment{PrincipalAmount: d("90"), InterestAmount: d("10"), TotalAmount: d("100")}
	tolerance := d("0.01")

	tests := []struct {
		name   string
		amount string
		next   *models.Installment
		want   Strategy
	}{
		{"nothing due", "100", nil, StrategyGeneral},
		{"exact", "100", next, StrategyExact},
		{"within tolerance above", "100.01", next, StrategyExact},
		{"within tolerance below", "99.99", next, StrategyExact},
		{"partial", "99.98", next, StrategyPartial},
		{"overpayment", "100.02", next, StrategyOverpayment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectStrategy(d(tt.amount), tt.next, tolerance))
		})
	}
}

func TestSelectStrategy_UsesOutstandingAmount(t *testing.T) {
	next := &models.Installment{
		PrincipalAmount: d("90"), InterestAmount: d("10"), TotalAmount: d("100"),
		PaidPrincipal: d("45"), PaidInterest: d("5"),
	}
	assert.Equal(t, StrategyExact, SelectStrategy(d("50"), next, d("0.01")))
}

func TestAllocatePayment_CascadesOverpayment(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 3, "2025-02-01")

	result := f.pay(t, plan.ID, checking.ID, "250")

	assert.Equal(t, StrategyOverpayment, result.Strategy)
	require.Len(t, result.Allocations, 3)
	assert.Equal(t, models.InstallmentStatusPaid, result.Allocations[0].Status)
	assert.Equal(t, models.InstallmentStatusPaid, result.Allocations[1].Status)
	assert.Equal(t, models.InstallmentStatusPartiallyPaid, result.Allocations[2].Status)
	assert.True(t, result.Allocations[2].Principal.Equal(d("45")))
	assert.True(t, result.Allocations[2].Interest.Equal(d("5")))
	assert.True(t, result.Applied.Equal(d("250")))
	assert.True(t, result.Unapplied.IsZero())

	require.NotNil(t, result.TransferRef)
	transfer, err := f.repos.Ledger.FindTransfer(f.ctx, *result.TransferRef)
	require.NoError(t, err)
	assert.True(t, transfer.Amount.Equal(d("225")))

	expenses, err := f.repos.Ledger.FindExpensesByTransfer(f.ctx, *result.TransferRef)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.True(t, expenses[0].Amount.Equal(d("25")))
	assert.Equal(t, models.CategoryBNPLInterest, expenses[0].Category.Key)

	assert.True(t, result.AvailableCredit.Equal(d("955")), "available = %s", result.AvailableCredit)
	account, err := f.repos.Account.FindByID(f.ctx, plan.ID)
	require.NoError(t, err)
	assert.True(t, account.AvailableCredit.Equal(d("955")))

	rows := f.installments(t, plan.ID)
	assert.True(t, rows[2].Outstanding().Equal(d("50")))
	assert.Equal(t, *result.TransferRef, *rows[0].TransferRef)
}

func TestAllocatePayment_ExactSettlesNextDue(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 3, "2025-02-01")

	result := f.pay(t, plan.ID, checking.ID, "100.005")

	assert.Equal(t, StrategyExact, result.Strategy)
	require.Len(t, result.Allocations, 1)
	alloc := result.Allocations[0]
	assert.Equal(t, 1, alloc.Sequence)
	assert.Equal(t, models.InstallmentStatusPaid, alloc.Status)
	assert.True(t, alloc.Principal.Equal(d("90")))
	assert.True(t, alloc.Amount.Equal(d("100.005")), "legs carry the actual amount")

	rows := f.installments(t, plan.ID)
	assert.True(t, rows[0].Outstanding().IsZero())
	assert.Equal(t, models.InstallmentStatusPlanned, rows[1].Status)
}

func TestAllocatePayment_PartialSplitsByRatio(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 2, "2025-02-01")

	result := f.pay(t, plan.ID, checking.ID, "40")
	assert.Equal(t, StrategyPartial, result.Strategy)
	require.Len(t, result.Allocations, 1)
	assert.True(t, result.Allocations[0].Principal.Equal(d("36")))
	assert.True(t, result.Allocations[0].Interest.Equal(d("4")))
	assert.Equal(t, models.InstallmentStatusPartiallyPaid, result.Allocations[0].Status)

	// the rest of the installment now settles it
	result = f.pay(t, plan.ID, checking.ID, "60")
	assert.Equal(t, StrategyExact, result.Strategy)
	assert.Equal(t, models.InstallmentStatusPaid, result.Allocations[0].Status)
	assert.Equal(t, 1, result.Allocations[0].Sequence)
}

func TestAllocatePayment_GeneralTargetsEarliestUnpaid(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 3, "2025-04-01")

	result := f.pay(t, plan.ID, checking.ID, "100")
	assert.Equal(t, StrategyGeneral, result.Strategy)
	assert.Equal(t, StrategyExact, result.AppliedStrategy)
	require.Len(t, result.Allocations, 1)
	assert.Equal(t, 1, result.Allocations[0].Sequence)
}

func TestAllocatePayment_ReportsUnappliedRemainder(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 3, "2025-02-01")

	result := f.pay(t, plan.ID, checking.ID, "400")
	assert.Len(t, result.Allocations, 3)
	assert.True(t, result.Applied.Equal(d("300")))
	assert.True(t, result.Unapplied.Equal(d("100")))
	assert.True(t, result.AvailableCredit.Equal(d("1000")))

	res := f.svcs.Allocation.AllocatePayment(f.ctx, PaymentRequest{
		AccountID: plan.ID, FundingAccountID: checking.ID, Amount: d("10"), Date: today,
	})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err(), ErrNothingToPay)
}

func TestAllocatePayment_ShariaBooksProfit(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	checking := f.checking(t)
	f.seedInstallments(t, plan.ID, 1, "2025-02-01")
	require.NoError(t, f.repos.Terms.Save(f.ctx, &models.DebtTerms{
		AccountID: plan.ID, Principal: d("90"), AnnualRate: d("11.1111"), Term: 1,
		Frequency: "monthly", Calculation: "murabaha", StartDate: today,
	}))

	result := f.pay(t, plan.ID, checking.ID, "100")
	require.NotNil(t, result.ExpenseRef)

	expenses, err := f.repos.Ledger.FindExpensesByTransfer(f.ctx, *result.TransferRef)
	require.NoError(t, err)
	require.Len(t, expenses, 1)
	assert.Equal(t, models.CategoryBNPLProfit, expenses[0].Category.Key)
}

func TestAllocatePayment_Validation(t *testing.T) {
	f := newFixture(t)
	plan := f.bnpl(t, "1000")
	loan := f.loan(t, "1000")
	checking := f.checking(t)

	res := f.svcs.Allocation.AllocatePayment(f.ctx, PaymentRequest{AccountID: plan.ID, FundingAccountID: checking.ID, Amount: decimal.Zero})
	assert.ErrorIs(t, res.Err(), ErrValidation)

	res = f.svcs.Allocation.AllocatePayment(f.ctx, PaymentRequest{AccountID: loan.ID, FundingAccountID: checking.ID, Amount: d("10")})
	assert.ErrorIs(t, res.Err(), ErrWrongInstrument)

	res = f.svcs.Allocation.AllocatePayment(f.ctx, PaymentRequest{AccountID: plan.ID, FundingAccountID: checking.ID, Amount: d("10")})
	assert.ErrorIs(t, res.Err(), ErrNothingToPay)
}
