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
	"github.com/sjperalta/fintera-ledger/internal/statemachine"
	"github.com/sjperalta/fintera-ledger/pkg/logger"
	"gorm.io/gorm"
)

// PostRequest targets one installment of a loan. A nil Sequence means the next planned one.
type PostRequest struct {
	AccountID        uint
	FundingAccountID uint
	Sequence         *int
	Date             time.Time
	LateFee          decimal.Decimal
}

// PostResult carries the ledger link of the posted installment
type PostResult struct {
	TransferRef string              `json:"transfer_ref"`
	ExpenseRefs []string            `json:"expense_refs,omitempty"`
	Installment *models.Installment `json:"installment"`
	Idempotent  bool                `json:"idempotent"`
}

// InstallmentPoster realizes single installments in the ledger exactly once
type InstallmentPoster struct {
	repos      *repository.Repositories
	categories *CategoryResolver
	resync     ResyncRequester
	now        Clock
}

func NewInstallmentPoster(repos *repository.Repositories, categories *CategoryResolver, resync ResyncRequester, now Clock) *InstallmentPoster {
	return &InstallmentPoster{repos: repos, categories: categories, resync: resync, now: now}
}

// PostInstallment moves the principal from the funding account to the loan
// and books interest and late fee as expenses of the funding account.
// Posting an installment that is already posted returns its existing link.
func (p *InstallmentPoster) PostInstallment(ctx context.Context, req PostRequest) Result[*PostResult] {
	return run("post_installment", req.AccountID, func() (*PostResult, error) {
		return p.post(ctx, req)
	})
}

func (p *InstallmentPoster) post(ctx context.Context, req PostRequest) (*PostResult, error) {
	if req.LateFee.IsNegative() {
		return nil, invalidField("late_fee", "must not be negative")
	}
	if req.Sequence != nil && *req.Sequence < 1 {
		return nil, invalidField("sequence", "must be greater than 0")
	}
	if req.Date.IsZero() {
		req.Date = p.now()
	}
	date := dateOf(req.Date)

	account, err := findAccount(ctx, p.repos, req.AccountID, models.AccountKindLoan)
	if err != nil {
		return nil, err
	}
	funding, err := findFundingAccount(ctx, p.repos, req.FundingAccountID, account.ID)
	if err != nil {
		return nil, err
	}

	target, err := p.findTarget(ctx, account.ID, req.Sequence)
	if err != nil {
		return nil, err
	}
	if target.IsPosted() {
		return p.idempotent(target), nil
	}
	if !target.MayPost() {
		return nil, fmt.Errorf("installment #%d is %s: %w", target.Sequence, target.Status, ErrInvalidState)
	}

	var result *PostResult
	err = p.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		result, err = p.realize(ctx, tx, funding, account, *target, date, req.LateFee)
		return err
	})
	if errors.Is(err, repository.ErrAlreadyPosted) {
		return p.recoverRace(ctx, account.ID, target.Sequence)
	}
	if err != nil {
		return nil, err
	}

	metrics.ObservePosting("posted")
	p.resync.RequestBalanceResync(funding.ID, account.ID)
	return result, nil
}

func (p *InstallmentPoster) findTarget(ctx context.Context, accountID uint, sequence *int) (*models.Installment, error) {
	if sequence != nil {
		target, err := p.repos.Installment.FindBySequence(ctx, accountID, *sequence)
		if err != nil {
			return nil, notFound(err, "installment #%d of account %d", *sequence, accountID)
		}
		return target, nil
	}
	target, err := p.repos.Installment.FindNextPlanned(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("account %d has no planned installment: %w", accountID, ErrNothingToPay)
		}
		return nil, err
	}
	return target, nil
}

// realize writes the ledger movements and flips the installment to posted,
// all inside tx. MarkPosted fails with ErrAlreadyPosted if another writer won.
func (p *InstallmentPoster) realize(ctx context.Context, tx *repository.Repositories, funding, account *models.Account, target models.Installment, date time.Time, lateFee decimal.Decimal) (*PostResult, error) {
	memo := fmt.Sprintf("Installment #%d", target.Sequence)
	ref, err := tx.Ledger.CreateTransfer(ctx, &models.LedgerTransfer{
		SourceAccountID:      funding.ID,
		DestinationAccountID: account.ID,
		Amount:               target.PrincipalAmount,
		Label:                models.TransferLabelPrincipal,
		Memo:                 memo,
		Date:                 date,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record principal transfer: %w", err)
	}

	var expenseRefs []string
	if target.InterestAmount.IsPositive() {
		expenseRef, err := p.expense(ctx, tx, funding.ID, models.CategoryInterestExpense, memo+" interest", target.InterestAmount, date, ref)
		if err != nil {
			return nil, err
		}
		expenseRefs = append(expenseRefs, expenseRef)
	}
	if lateFee.IsPositive() {
		expenseRef, err := p.expense(ctx, tx, funding.ID, models.CategoryLateFee, memo+" late fee", lateFee, date, ref)
		if err != nil {
			return nil, err
		}
		expenseRefs = append(expenseRefs, expenseRef)
	}

	if err := statemachine.NewInstallmentFSM(&target).Post(ctx); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrInvalidState)
	}
	target.PostedAt = &date
	target.TransferRef = &ref
	target.PaidPrincipal = target.PrincipalAmount
	target.PaidInterest = target.InterestAmount
	target.LateFeeAmount = lateFee
	if err := tx.Installment.MarkPosted(ctx, &target); err != nil {
		return nil, err
	}

	return &PostResult{TransferRef: ref, ExpenseRefs: expenseRefs, Installment: &target}, nil
}

func (p *InstallmentPoster) expense(ctx context.Context, tx *repository.Repositories, accountID uint, key, name string, amount decimal.Decimal, date time.Time, transferRef string) (string, error) {
	category, err := p.categories.Resolve(ctx, tx.Category, key)
	if err != nil {
		return "", err
	}
	ref, err := tx.Ledger.CreateExpense(ctx, &models.LedgerExpense{
		AccountID:   accountID,
		CategoryID:  category.ID,
		Name:        name,
		Amount:      amount,
		TransferRef: &transferRef,
		Date:        date,
	})
	if err != nil {
		return "", fmt.Errorf("failed to record %s expense: %w", key, err)
	}
	return ref, nil
}

// recoverRace re-reads the installment after losing a duplicate-post race
func (p *InstallmentPoster) recoverRace(ctx context.Context, accountID uint, sequence int) (*PostResult, error) {
	logger.Info("installment posted concurrently, re-reading", "account_id", accountID, "sequence", sequence)

	current, err := p.repos.Installment.FindBySequence(ctx, accountID, sequence)
	if err != nil {
		return nil, notFound(err, "installment #%d of account %d", sequence, accountID)
	}
	if !current.IsPosted() {
		return nil, fmt.Errorf("installment #%d of account %d: %w", sequence, accountID, ErrConflict)
	}
	return p.idempotent(current), nil
}

func (p *InstallmentPoster) idempotent(inst *models.Installment) *PostResult {
	metrics.ObservePosting("idempotent")
	return &PostResult{TransferRef: *inst.TransferRef, Installment: inst, Idempotent: true}
}
