package services

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
)

// ResyncRequester is the balance resynchronization trigger
type ResyncRequester interface {
	RequestBalanceResync(accountIDs ...uint)
}

// BalanceSync recomputes cached account balances from the ledger
type BalanceSync struct {
	repos     *repository.Repositories
	runner    AsyncRunner
	principal *RemainingPrincipalCalculator
	now       Clock
}

func NewBalanceSync(repos *repository.Repositories, runner AsyncRunner, principal *RemainingPrincipalCalculator, now Clock) *BalanceSync {
	return &BalanceSync{repos: repos, runner: runner, principal: principal, now: now}
}

// RequestBalanceResync queues one resync per distinct account. Without a
// runner the resync happens inline; failures are only logged either way.
func (b *BalanceSync) RequestBalanceResync(accountIDs ...uint) {
	seen := make(map[uint]bool, len(accountIDs))
	for _, id := range accountIDs {
		if id == 0 || seen[id] {
			continue
		}
		seen[id] = true

		accountID := id
		job := func(ctx context.Context) error {
			return b.Resync(ctx, accountID)
		}
		if b.runner == nil {
			if err := job(context.Background()); err != nil {
				logger.Error("balance resync failed", "account_id", accountID, "error", err)
			}
			continue
		}
		b.runner.EnqueueAsync("balance_resync", job)
	}
}

// Resync stores the ledger-derived balance on the account. Debt accounts
// carry their remaining principal; other accounts carry money in minus money out.
func (b *BalanceSync) Resync(ctx context.Context, accountID uint) error {
	account, err := b.repos.Account.FindByID(ctx, accountID)
	if err != nil {
		return notFound(err, "account %d", accountID)
	}

	balance, err := b.ledgerBalance(ctx, account)
	if err != nil {
		return err
	}

	if err := b.repos.Account.UpdateBalance(ctx, accountID, balance, b.now()); err != nil {
		return fmt.Errorf("failed to store balance of account %d: %w", accountID, err)
	}
	return nil
}

func (b *BalanceSync) ledgerBalance(ctx context.Context, account *models.Account) (decimal.Decimal, error) {
	if account.IsDebt() {
		return b.principal.Compute(ctx, b.repos, account)
	}

	inbound, err := b.repos.Ledger.SumInbound(ctx, account.ID, "")
	if err != nil {
		return decimal.Zero, err
	}
	outbound, err := b.repos.Ledger.SumOutbound(ctx, account.ID, "")
	if err != nil {
		return decimal.Zero, err
	}
	expenses, err := b.repos.Ledger.SumExpenses(ctx, account.ID)
	if err != nil {
		return decimal.Zero, err
	}
	return account.InitialBalance.Add(inbound).Sub(outbound).Sub(expenses), nil
}
