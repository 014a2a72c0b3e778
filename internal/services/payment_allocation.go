package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/metrics"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
	"github.com/sjperalta/fintera-ledger/internal/statemachine"
	"gorm.io/gorm"
)

// Strategy is how a BNPL payment is spread over installments
type Strategy string

const (
	StrategyExact       Strategy = "exact"
	StrategyPartial     Strategy = "partial"
	StrategyOverpayment Strategy = "overpayment"
	StrategyGeneral     Strategy = "general"
)

// SelectStrategy picks the strategy for amount against the next-due
// installment. Without a next-due installment the general strategy applies.
func SelectStrategy(amount decimal.Decimal, nextDue *models.Installment, tolerance decimal.Decimal) Strategy {
	if nextDue == nil {
		return StrategyGeneral
	}
	outstanding := nextDue.Outstanding()
	switch {
	case amount.Sub(outstanding).Abs().LessThanOrEqual(tolerance):
		return StrategyExact
	case amount.LessThan(outstanding):
		return StrategyPartial
	default:
		return StrategyOverpayment
	}
}

// PaymentRequest is an arbitrary amount paid against a BNPL account
type PaymentRequest struct {
	AccountID        uint
	FundingAccountID uint
	Amount           decimal.Decimal
	Date             time.Time
}

// InstallmentAllocation is what one installment received
type InstallmentAllocation struct {
	InstallmentID uint            `json:"installment_id"`
	Sequence      int             `json:"sequence"`
	Principal     decimal.Decimal `json:"principal"`
	Interest      decimal.Decimal `json:"interest"`
	Amount        decimal.Decimal `json:"amount"`
	Status        string          `json:"status"`
}

// AllocationResult describes a processed BNPL payment. Strategy is the
// selected one; AppliedStrategy differs only when general delegated.
type AllocationResult struct {
	Strategy        Strategy                `json:"strategy"`
	AppliedStrategy Strategy                `json:"applied_strategy"`
	TransferRef     *string                 `json:"transfer_ref,omitempty"`
	ExpenseRef      *string                 `json:"expense_ref,omitempty"`
	Allocations     []InstallmentAllocation `json:"installments_affected"`
	Applied         decimal.Decimal         `json:"applied"`
	Unapplied       decimal.Decimal         `json:"unapplied"`
	AvailableCredit decimal.Decimal         `json:"available_credit"`
}

// PaymentAllocationEngine applies BNPL payments across outstanding installments
type PaymentAllocationEngine struct {
	repos      *repository.Repositories
	categories *CategoryResolver
	resync     ResyncRequester
	tolerance  decimal.Decimal
	now        Clock
}

func NewPaymentAllocationEngine(repos *repository.Repositories, categories *CategoryResolver, resync ResyncRequester, tolerance decimal.Decimal, now Clock) *PaymentAllocationEngine {
	return &PaymentAllocationEngine{repos: repos, categories: categories, resync: resync, tolerance: tolerance, now: now}
}

// AllocatePayment selects a strategy, updates the installments, records the
// ledger movements and refreshes the available credit, as one unit.
func (e *PaymentAllocationEngine) AllocatePayment(ctx context.Context, req PaymentRequest) Result[*AllocationResult] {
	return run("allocate_payment", req.AccountID, func() (*AllocationResult, error) {
		if !req.Amount.IsPositive() {
			return nil, invalidField("amount", "must be greater than 0")
		}
		if req.Date.IsZero() {
			req.Date = e.now()
		}
		date := dateOf(req.Date)

		account, err := findAccount(ctx, e.repos, req.AccountID, models.AccountKindBNPL)
		if err != nil {
			return nil, err
		}
		funding, err := findFundingAccount(ctx, e.repos, req.FundingAccountID, account.ID)
		if err != nil {
			return nil, err
		}

		var result *AllocationResult
		err = e.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			result, err = e.allocate(ctx, tx, funding, account, req.Amount, date)
			return err
		})
		if err != nil {
			return nil, err
		}

		metrics.ObserveAllocation(string(result.Strategy))
		e.resync.RequestBalanceResync(funding.ID, account.ID)
		return result, nil
	})
}

func (e *PaymentAllocationEngine) allocate(ctx context.Context, tx *repository.Repositories, funding, account *models.Account, amount decimal.Decimal, date time.Time) (*AllocationResult, error) {
	unpaid, err := tx.Installment.FindUnpaid(ctx, account.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load unpaid installments: %w", err)
	}
	if len(unpaid) == 0 {
		return nil, fmt.Errorf("account %d: %w", account.ID, ErrNothingToPay)
	}

	next := nextDue(unpaid, date)
	strategy := SelectStrategy(amount, next, e.tolerance)
	applied := strategy
	if strategy == StrategyGeneral {
		// nothing is due yet: target the earliest unpaid installment
		next = &unpaid[0]
		applied = SelectStrategy(amount, next, e.tolerance)
	}

	result := &AllocationResult{Strategy: strategy, AppliedStrategy: applied, Unapplied: decimal.Zero}
	switch applied {
	case StrategyExact:
		result.Allocations = []InstallmentAllocation{settleExact(next, amount, date)}
	case StrategyPartial:
		result.Allocations = []InstallmentAllocation{payPartially(next, amount)}
	default:
		result.Allocations, result.Unapplied = cascade(unpaid[indexOf(unpaid, next):], amount, date)
	}

	changed := make(map[uint]*models.Installment, len(unpaid))
	for i := range unpaid {
		changed[unpaid[i].ID] = &unpaid[i]
	}
	for i, alloc := range result.Allocations {
		inst := changed[alloc.InstallmentID]
		if err := transition(ctx, inst); err != nil {
			return nil, err
		}
		result.Allocations[i].Status = inst.Status
	}

	result.TransferRef, result.ExpenseRef, err = e.recordMovements(ctx, tx, funding, account, result.Allocations, date)
	if err != nil {
		return nil, err
	}

	for _, alloc := range result.Allocations {
		inst := changed[alloc.InstallmentID]
		if result.TransferRef != nil {
			inst.TransferRef = result.TransferRef
		}
		if err := tx.Installment.Update(ctx, inst); err != nil {
			return nil, fmt.Errorf("failed to update installment #%d: %w", inst.Sequence, err)
		}
	}

	for _, alloc := range result.Allocations {
		result.Applied = result.Applied.Add(alloc.Amount)
	}
	if result.AvailableCredit, err = refreshAvailableCredit(ctx, tx, account); err != nil {
		return nil, err
	}
	return result, nil
}

// nextDue is the earliest unpaid installment already due on date
func nextDue(unpaid []models.Installment, date time.Time) *models.Installment {
	for i := range unpaid {
		if !unpaid[i].DueDate.After(date) {
			return &unpaid[i]
		}
	}
	return nil
}

func indexOf(rows []models.Installment, target *models.Installment) int {
	for i := range rows {
		if rows[i].ID == target.ID {
			return i
		}
	}
	return 0
}

// settleExact pays the installment off. The amount lies within the match
// tolerance of what is outstanding; the difference lands on the interest leg.
func settleExact(inst *models.Installment, amount decimal.Decimal, date time.Time) InstallmentAllocation {
	principal := inst.OutstandingPrincipal()
	if principal.GreaterThan(amount) {
		principal = amount
	}
	interest := amount.Sub(principal)

	inst.PaidPrincipal = inst.PrincipalAmount
	inst.PaidInterest = inst.InterestAmount
	inst.PaidAt = &date
	return allocation(inst, principal, interest)
}

// payInFull applies exactly what is outstanding
func payInFull(inst *models.Installment, date time.Time) InstallmentAllocation {
	principal := inst.OutstandingPrincipal()
	interest := inst.OutstandingInterest()
	inst.PaidPrincipal = inst.PaidPrincipal.Add(principal)
	inst.PaidInterest = inst.PaidInterest.Add(interest)
	inst.PaidAt = &date
	return allocation(inst, principal, interest)
}

// payPartially splits amount by the installment's own principal/total ratio
func payPartially(inst *models.Installment, amount decimal.Decimal) InstallmentAllocation {
	principal := amount
	if inst.TotalAmount.IsPositive() {
		principal = amount.Mul(inst.PrincipalAmount).Div(inst.TotalAmount).Round(schedule.Precision)
	}
	interest := amount.Sub(principal)

	// keep both legs within what is outstanding
	if over := principal.Sub(inst.OutstandingPrincipal()); over.IsPositive() {
		principal, interest = principal.Sub(over), interest.Add(over)
	}
	if over := interest.Sub(inst.OutstandingInterest()); over.IsPositive() {
		interest, principal = interest.Sub(over), principal.Add(over)
	}

	inst.PaidPrincipal = inst.PaidPrincipal.Add(principal)
	inst.PaidInterest = inst.PaidInterest.Add(interest)
	return allocation(inst, principal, interest)
}

// cascade pays installments in sequence order until amount runs out. The
// remainder becomes a partial payment; anything left after the last row is unapplied.
func cascade(rows []models.Installment, amount decimal.Decimal, date time.Time) ([]InstallmentAllocation, decimal.Decimal) {
	var allocations []InstallmentAllocation
	remaining := amount
	for i := range rows {
		if !remaining.IsPositive() {
			break
		}
		inst := &rows[i]
		if remaining.GreaterThanOrEqual(inst.Outstanding()) {
			alloc := payInFull(inst, date)
			remaining = remaining.Sub(alloc.Amount)
			allocations = append(allocations, alloc)
			continue
		}
		allocations = append(allocations, payPartially(inst, remaining))
		remaining = decimal.Zero
	}
	return allocations, remaining
}

func allocation(inst *models.Installment, principal, interest decimal.Decimal) InstallmentAllocation {
	return InstallmentAllocation{
		InstallmentID: inst.ID,
		Sequence:      inst.Sequence,
		Principal:     principal,
		Interest:      interest,
		Amount:        principal.Add(interest),
	}
}

// transition moves the installment to paid or partially paid
func transition(ctx context.Context, inst *models.Installment) error {
	fsm := statemachine.NewInstallmentFSM(inst)
	var err error
	if inst.Outstanding().IsZero() {
		err = fsm.PayFull(ctx)
	} else {
		err = fsm.PayPartial(ctx)
	}
	if err != nil {
		return fmt.Errorf("%v: %w", err, ErrInvalidState)
	}
	return nil
}

// recordMovements is shared by every strategy: one principal transfer from
// the funding account and one interest or profit expense on it.
func (e *PaymentAllocationEngine) recordMovements(ctx context.Context, tx *repository.Repositories, funding, account *models.Account, allocations []InstallmentAllocation, date time.Time) (*string, *string, error) {
	principal, interest := decimal.Zero, decimal.Zero
	for _, a := range allocations {
		principal = principal.Add(a.Principal)
		interest = interest.Add(a.Interest)
	}

	var transferRef, expenseRef *string
	if principal.IsPositive() {
		ref, err := tx.Ledger.CreateTransfer(ctx, &models.LedgerTransfer{
			SourceAccountID:      funding.ID,
			DestinationAccountID: account.ID,
			Amount:               principal,
			Label:                models.TransferLabelPrincipal,
			Memo:                 "BNPL payment",
			Date:                 date,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to record payment transfer: %w", err)
		}
		transferRef = &ref
	}

	if interest.IsPositive() {
		key, err := e.chargeCategory(ctx, tx, account.ID)
		if err != nil {
			return nil, nil, err
		}
		category, err := e.categories.Resolve(ctx, tx.Category, key)
		if err != nil {
			return nil, nil, err
		}
		ref, err := tx.Ledger.CreateExpense(ctx, &models.LedgerExpense{
			AccountID:   funding.ID,
			CategoryID:  category.ID,
			Name:        "BNPL " + category.Name,
			Amount:      interest,
			TransferRef: transferRef,
			Date:        date,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("failed to record %s expense: %w", key, err)
		}
		expenseRef = &ref
	}
	return transferRef, expenseRef, nil
}

// chargeCategory books sharia markup as profit and everything else as interest
func (e *PaymentAllocationEngine) chargeCategory(ctx context.Context, tx *repository.Repositories, accountID uint) (string, error) {
	record, err := tx.Terms.FindByAccount(ctx, accountID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.CategoryBNPLInterest, nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load terms: %w", err)
	}
	if calc, err := schedule.ParseCalculation(record.Calculation); err == nil && calc == schedule.CalculationSharia {
		return models.CategoryBNPLProfit, nil
	}
	return models.CategoryBNPLInterest, nil
}

// refreshAvailableCredit stores limit minus outstanding principal, clamped to [0, limit]
func refreshAvailableCredit(ctx context.Context, tx *repository.Repositories, account *models.Account) (decimal.Decimal, error) {
	unpaid, err := tx.Installment.FindUnpaid(ctx, account.ID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to load unpaid installments: %w", err)
	}
	outstanding := decimal.Zero
	for i := range unpaid {
		outstanding = outstanding.Add(unpaid[i].OutstandingPrincipal())
	}

	available := account.CreditLimit.Sub(outstanding)
	if available.IsNegative() {
		available = decimal.Zero
	}
	if available.GreaterThan(account.CreditLimit) {
		available = account.CreditLimit
	}

	if err := tx.Account.UpdateAvailableCredit(ctx, account.ID, available); err != nil {
		return decimal.Zero, fmt.Errorf("failed to update available credit: %w", err)
	}
	account.AvailableCredit = available
	return available, nil
}
