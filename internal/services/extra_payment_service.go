package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/internal/schedule"
)

// AllocationMode decides how a lump sum reshapes the remaining plan
type AllocationMode string

const (
	ModeReduceTerm        AllocationMode = "reduce_term"
	ModeReduceInstallment AllocationMode = "reduce_installment"
)

// ParseAllocationMode defaults to reduce_term
func ParseAllocationMode(s string) (AllocationMode, error) {
	switch AllocationMode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeReduceTerm:
		return ModeReduceTerm, nil
	case ModeReduceInstallment:
		return ModeReduceInstallment, nil
	}
	return "", invalidField("mode", fmt.Sprintf("%q is not supported", s))
}

// ExtraPaymentRequest is a lump-sum principal payment on a loan.
// FundingAccountID, when set, records the payment in the ledger too.
type ExtraPaymentRequest struct {
	AccountID        uint
	Amount           decimal.Decimal
	Date             time.Time
	Mode             AllocationMode
	FundingAccountID *uint
}

// ExtraPaymentResult describes the reshaped plan
type ExtraPaymentResult struct {
	Mode              AllocationMode  `json:"mode"`
	PreviousPrincipal decimal.Decimal `json:"previous_principal"`
	NewPrincipal      decimal.Decimal `json:"new_principal"`
	Periods           int             `json:"periods"`
	Term              int             `json:"term"`
	TransferRef       *string         `json:"transfer_ref,omitempty"`
	Plan              *PlanResult     `json:"plan"`
}

// ExtraPaymentAllocator applies lump sums and re-amortizes what is left
type ExtraPaymentAllocator struct {
	repos     *repository.Repositories
	principal *RemainingPrincipalCalculator
	plan      *PlanBuilder
	now       Clock
}

func NewExtraPaymentAllocator(repos *repository.Repositories, principal *RemainingPrincipalCalculator, plan *PlanBuilder, now Clock) *ExtraPaymentAllocator {
	return &ExtraPaymentAllocator{repos: repos, principal: principal, plan: plan, now: now}
}

// ApplyExtraPayment lowers the amortizing base by the lump sum and rebuilds
// the future plan. Posted installments are untouched.
func (a *ExtraPaymentAllocator) ApplyExtraPayment(ctx context.Context, req ExtraPaymentRequest) Result[*ExtraPaymentResult] {
	return run("apply_extra_payment", req.AccountID, func() (*ExtraPaymentResult, error) {
		if !req.Amount.IsPositive() {
			return nil, invalidField("amount", "must be greater than 0")
		}
		if req.Mode == "" {
			req.Mode = ModeReduceTerm
		}
		if req.Mode != ModeReduceTerm && req.Mode != ModeReduceInstallment {
			return nil, invalidField("mode", fmt.Sprintf("%q is not supported", string(req.Mode)))
		}
		if req.Date.IsZero() {
			req.Date = dateOf(a.now())
		}

		account, err := findAccount(ctx, a.repos, req.AccountID, models.AccountKindLoan)
		if err != nil {
			return nil, err
		}
		var funding *models.Account
		if req.FundingAccountID != nil {
			if funding, err = findFundingAccount(ctx, a.repos, *req.FundingAccountID, account.ID); err != nil {
				return nil, err
			}
		}

		record, err := a.repos.Terms.FindByAccount(ctx, account.ID)
		if err != nil {
			return nil, notFound(err, "terms of account %d", account.ID)
		}
		current, err := loanTermsFromRecord(record)
		if err != nil {
			return nil, err
		}

		result := &ExtraPaymentResult{Mode: req.Mode}
		err = a.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			pending, err := tx.Installment.FindPending(ctx, account.ID)
			if err != nil {
				return fmt.Errorf("failed to load pending installments: %w", err)
			}
			if len(pending) == 0 {
				return fmt.Errorf("account %d: %w", account.ID, ErrNothingToPay)
			}

			pendingTotal := decimal.Zero
			for _, inst := range pending {
				pendingTotal = pendingTotal.Add(inst.PrincipalAmount)
			}

			base := pendingTotal
			remaining, err := a.principal.Compute(ctx, tx, account)
			if err != nil {
				return err
			}
			if remaining.IsPositive() {
				base = remaining
			}

			newBase := base.Sub(req.Amount)
			if newBase.IsNegative() {
				newBase = decimal.Zero
			}
			periods := RescheduledPeriods(req.Mode, len(pending), pendingTotal, newBase)

			terms := current
			terms.Principal = newBase
			terms.Term = schedule.TermForPeriods(current.Frequency, periods)
			terms.StartDate = dateOf(req.Date)
			if terms.Balloon.GreaterThan(newBase) {
				terms.Balloon = newBase
			}
			if terms.Method == schedule.MethodBalloon && !terms.Balloon.IsPositive() {
				terms.Method = schedule.MethodAnnuity
			}

			rows, err := schedule.Generate(terms)
			if err != nil {
				return err
			}

			if funding != nil {
				ref, err := tx.Ledger.CreateTransfer(ctx, &models.LedgerTransfer{
					SourceAccountID:      funding.ID,
					DestinationAccountID: account.ID,
					Amount:               req.Amount,
					Label:                models.TransferLabelPrincipal,
					Memo:                 "Extra principal payment",
					Date:                 dateOf(req.Date),
				})
				if err != nil {
					return fmt.Errorf("failed to record extra payment transfer: %w", err)
				}
				result.TransferRef = &ref
			}

			plan, err := a.plan.Replace(ctx, tx, account, rows, loanTermsRecord(account.ID, terms))
			if err != nil {
				return err
			}

			result.PreviousPrincipal = base
			result.NewPrincipal = newBase
			result.Periods = len(rows)
			result.Term = terms.Term
			result.Plan = plan
			return nil
		})
		if err != nil {
			return nil, err
		}

		if _, err := a.plan.complete(ctx, account, result.Plan); err != nil {
			return nil, err
		}
		if funding != nil {
			a.plan.resync.RequestBalanceResync(funding.ID)
		}
		return result, nil
	})
}

// RescheduledPeriods is the installment count after a lump sum. A zero base
// always leaves one terminal period.
func RescheduledPeriods(mode AllocationMode, pendingCount int, pendingTotal, newBase decimal.Decimal) int {
	if !newBase.IsPositive() || pendingCount <= 0 {
		return 1
	}

	var periods decimal.Decimal
	switch mode {
	case ModeReduceInstallment:
		avg := pendingTotal.Div(decimal.NewFromInt(int64(pendingCount)))
		if !avg.IsPositive() {
			avg = pendingTotal
		}
		if !avg.IsPositive() {
			avg = decimal.NewFromInt(1)
		}
		periods = newBase.Div(avg).Ceil()
	default:
		if !pendingTotal.IsPositive() {
			return pendingCount
		}
		periods = decimal.NewFromInt(int64(pendingCount)).Mul(newBase).Div(pendingTotal).Ceil()
	}

	n := int(periods.IntPart())
	if n < 1 {
		n = 1
	}
	return n
}
