package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
)

// RemainingPrincipalCalculator replays ledger movements to find what is still owed.
// The cached account balance is never consulted.
type RemainingPrincipalCalculator struct {
	repos *repository.Repositories
}

// PrincipalSummary breaks the remaining principal into its ledger components
type PrincipalSummary struct {
	AccountID      uint            `json:"account_id"`
	InitialBalance decimal.Decimal `json:"initial_balance"`
	Disbursed      decimal.Decimal `json:"disbursed"`
	Repaid         decimal.Decimal `json:"repaid"`
	Remaining      decimal.Decimal `json:"remaining"`
}

func NewRemainingPrincipalCalculator(repos *repository.Repositories) *RemainingPrincipalCalculator {
	return &RemainingPrincipalCalculator{repos: repos}
}

// RemainingPrincipal is the read operation over the ledger replay
func (c *RemainingPrincipalCalculator) RemainingPrincipal(ctx context.Context, accountID uint) Result[*PrincipalSummary] {
	return run("remaining_principal", accountID, func() (*PrincipalSummary, error) {
		account, err := c.repos.Account.FindByID(ctx, accountID)
		if err != nil {
			return nil, notFound(err, "account %d", accountID)
		}
		if !account.IsDebt() {
			return nil, fmt.Errorf("account %d is a %s account: %w", accountID, account.Kind, ErrWrongInstrument)
		}
		return c.Summarize(ctx, c.repos, account)
	})
}

// Summarize computes the principal of account with the given repositories,
// so it can join a caller's transaction. The result is signed.
func (c *RemainingPrincipalCalculator) Summarize(ctx context.Context, repos *repository.Repositories, account *models.Account) (*PrincipalSummary, error) {
	disbursed, err := repos.Ledger.SumOutbound(ctx, account.ID, models.TransferLabelDisbursement)
	if err != nil {
		return nil, fmt.Errorf("failed to sum disbursements: %w", err)
	}
	repaid, err := repos.Ledger.SumInbound(ctx, account.ID, models.TransferLabelPrincipal)
	if err != nil {
		return nil, fmt.Errorf("failed to sum principal repayments: %w", err)
	}

	return &PrincipalSummary{
		AccountID:      account.ID,
		InitialBalance: account.InitialBalance,
		Disbursed:      disbursed,
		Repaid:         repaid,
		Remaining:      account.InitialBalance.Add(disbursed).Sub(repaid),
	}, nil
}

// Compute returns only the signed remaining principal
func (c *RemainingPrincipalCalculator) Compute(ctx context.Context, repos *repository.Repositories, account *models.Account) (decimal.Decimal, error) {
	summary, err := c.Summarize(ctx, repos, account)
	if err != nil {
		return decimal.Zero, err
	}
	return summary.Remaining, nil
}
