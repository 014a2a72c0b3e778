package memory

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"github.com/sjperalta/fintera-ledger/internal/repository"
	"gorm.io/gorm"
)

type accountRepository struct{ v *view }

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	var out *models.Account
	err := r.v.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &a
		return nil
	})
	return out, err
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.v.do(ctx, func(st *state) error {
		if account.ID == 0 {
			account.ID = st.nextID()
		} else if _, ok := st.accounts[account.ID]; ok {
			return gorm.ErrDuplicatedKey
		} else if account.ID > st.lastID {
			st.lastID = account.ID
		}
		now := r.v.now()
		account.CreatedAt, account.UpdatedAt = now, now
		stored := *account
		stored.Terms = nil
		st.accounts[account.ID] = stored
		return nil
	})
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.accounts[account.ID]; !ok {
			return gorm.ErrRecordNotFound
		}
		account.UpdatedAt = r.v.now()
		stored := *account
		stored.Terms = nil
		st.accounts[account.ID] = stored
		return nil
	})
}

func (r *accountRepository) UpdateAvailableCredit(ctx context.Context, id uint, available decimal.Decimal) error {
	return r.v.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		a.AvailableCredit = available
		a.UpdatedAt = r.v.now()
		st.accounts[id] = a
		return nil
	})
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id uint, balance decimal.Decimal, syncedAt time.Time) error {
	return r.v.do(ctx, func(st *state) error {
		a, ok := st.accounts[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		a.Balance = balance
		a.BalanceSyncedAt = &syncedAt
		st.accounts[id] = a
		return nil
	})
}

func (r *accountRepository) FindAutoPostLoans(ctx context.Context) ([]models.Account, error) {
	var out []models.Account
	err := r.v.do(ctx, func(st *state) error {
		for _, a := range st.accounts {
			if a.Kind == models.AccountKindLoan && a.AutoPostFundingAccountID != nil {
				out = append(out, a)
			}
		}
		return nil
	})
	slices.SortFunc(out, func(a, b models.Account) int { return int(a.ID) - int(b.ID) })
	return out, err
}

type termsRepository struct{ v *view }

func (r *termsRepository) FindByAccount(ctx context.Context, accountID uint) (*models.DebtTerms, error) {
	var out *models.DebtTerms
	err := r.v.do(ctx, func(st *state) error {
		t, ok := st.terms[accountID]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &t
		return nil
	})
	return out, err
}

func (r *termsRepository) Save(ctx context.Context, terms *models.DebtTerms) error {
	return r.v.do(ctx, func(st *state) error {
		now := r.v.now()
		if existing, ok := st.terms[terms.AccountID]; ok {
			terms.ID = existing.ID
			terms.CreatedAt = existing.CreatedAt
		} else {
			terms.ID = st.nextID()
			terms.CreatedAt = now
		}
		terms.UpdatedAt = now
		st.terms[terms.AccountID] = *terms
		return nil
	})
}

type installmentRepository struct{ v *view }

func (r *installmentRepository) filter(ctx context.Context, keep func(i *models.Installment) bool) ([]models.Installment, error) {
	var out []models.Installment
	err := r.v.do(ctx, func(st *state) error {
		for _, inst := range st.installments {
			if keep(&inst) {
				out = append(out, inst)
			}
		}
		return nil
	})
	slices.SortFunc(out, bySequence)
	return out, err
}

func bySequence(a, b models.Installment) int {
	if a.Sequence != b.Sequence {
		return a.Sequence - b.Sequence
	}
	return int(a.ID) - int(b.ID)
}

func (r *installmentRepository) FindByAccount(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.filter(ctx, func(i *models.Installment) bool { return i.AccountID == accountID })
}

func (r *installmentRepository) FindPosted(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.filter(ctx, func(i *models.Installment) bool {
		return i.AccountID == accountID && i.Status == models.InstallmentStatusPosted
	})
}

func (r *installmentRepository) FindPending(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.filter(ctx, func(i *models.Installment) bool {
		return i.AccountID == accountID && i.Status == models.InstallmentStatusPlanned
	})
}

func (r *installmentRepository) FindUnpaid(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.filter(ctx, func(i *models.Installment) bool {
		return i.AccountID == accountID && i.IsUnpaid()
	})
}

func (r *installmentRepository) FindDuePlanned(ctx context.Context, accountID uint, asOf time.Time) ([]models.Installment, error) {
	return r.filter(ctx, func(i *models.Installment) bool {
		return i.AccountID == accountID && i.Status == models.InstallmentStatusPlanned && !i.DueDate.After(asOf)
	})
}

func (r *installmentRepository) FindBySequence(ctx context.Context, accountID uint, sequence int) (*models.Installment, error) {
	rows, err := r.filter(ctx, func(i *models.Installment) bool {
		return i.AccountID == accountID && i.Sequence == sequence
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	for i := range rows {
		if rows[i].Status == models.InstallmentStatusPosted {
			return &rows[i], nil
		}
	}
	return &rows[0], nil
}

func (r *installmentRepository) FindNextPlanned(ctx context.Context, accountID uint) (*models.Installment, error) {
	rows, err := r.FindPending(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

func (r *installmentRepository) MaxRealizedSequence(ctx context.Context, accountID uint) (int, error) {
	highest := 0
	err := r.v.do(ctx, func(st *state) error {
		for _, inst := range st.installments {
			if inst.AccountID == accountID && inst.IsRealized() && inst.Sequence > highest {
				highest = inst.Sequence
			}
		}
		return nil
	})
	return highest, err
}

func (r *installmentRepository) DeleteReplaceable(ctx context.Context, accountID uint, today time.Time, afterSequence int) (int64, error) {
	var deleted int64
	err := r.v.do(ctx, func(st *state) error {
		for id, inst := range st.installments {
			if inst.AccountID != accountID || inst.Status != models.InstallmentStatusPlanned {
				continue
			}
			if !inst.DueDate.Before(today) || inst.Sequence > afterSequence {
				delete(st.installments, id)
				deleted++
			}
		}
		return nil
	})
	return deleted, err
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	return r.v.do(ctx, func(st *state) error {
		now := r.v.now()
		for i := range installments {
			installments[i].ID = st.nextID()
			installments[i].CreatedAt, installments[i].UpdatedAt = now, now
			st.installments[installments[i].ID] = installments[i]
		}
		return nil
	})
}

func (r *installmentRepository) MarkPosted(ctx context.Context, installment *models.Installment) error {
	return r.v.do(ctx, func(st *state) error {
		current, ok := st.installments[installment.ID]
		if !ok || current.Status == models.InstallmentStatusPosted {
			return repository.ErrAlreadyPosted
		}
		for id, other := range st.installments {
			if id != current.ID && other.AccountID == current.AccountID &&
				other.Sequence == current.Sequence && other.Status == models.InstallmentStatusPosted {
				return repository.ErrAlreadyPosted
			}
		}
		current.Status = models.InstallmentStatusPosted
		current.PostedAt = installment.PostedAt
		current.TransferRef = installment.TransferRef
		current.PaidPrincipal = installment.PaidPrincipal
		current.PaidInterest = installment.PaidInterest
		current.LateFeeAmount = installment.LateFeeAmount
		current.UpdatedAt = r.v.now()
		st.installments[current.ID] = current
		return nil
	})
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.v.do(ctx, func(st *state) error {
		if _, ok := st.installments[installment.ID]; !ok {
			return gorm.ErrRecordNotFound
		}
		installment.UpdatedAt = r.v.now()
		st.installments[installment.ID] = *installment
		return nil
	})
}

type ledgerRepository struct{ v *view }

func (r *ledgerRepository) CreateTransfer(ctx context.Context, transfer *models.LedgerTransfer) (string, error) {
	err := r.v.do(ctx, func(st *state) error {
		if transfer.Reference == "" {
			transfer.Reference = uuid.NewString()
		}
		for _, t := range st.transfers {
			if t.Reference == transfer.Reference {
				return fmt.Errorf("transfer %s: %w", transfer.Reference, gorm.ErrDuplicatedKey)
			}
		}
		transfer.ID = st.nextID()
		transfer.CreatedAt = r.v.now()
		st.transfers = append(st.transfers, *transfer)
		return nil
	})
	if err != nil {
		return "", err
	}
	return transfer.Reference, nil
}

func (r *ledgerRepository) CreateExpense(ctx context.Context, expense *models.LedgerExpense) (string, error) {
	err := r.v.do(ctx, func(st *state) error {
		if expense.Reference == "" {
			expense.Reference = uuid.NewString()
		}
		expense.ID = st.nextID()
		expense.CreatedAt = r.v.now()
		stored := *expense
		stored.Category = nil
		st.expenses = append(st.expenses, stored)
		return nil
	})
	if err != nil {
		return "", err
	}
	return expense.Reference, nil
}

func (r *ledgerRepository) FindTransfer(ctx context.Context, reference string) (*models.LedgerTransfer, error) {
	var out *models.LedgerTransfer
	err := r.v.do(ctx, func(st *state) error {
		for _, t := range st.transfers {
			if t.Reference == reference {
				out = &t
				return nil
			}
		}
		return gorm.ErrRecordNotFound
	})
	return out, err
}

func (r *ledgerRepository) FindTransfersByAccount(ctx context.Context, accountID uint) ([]models.LedgerTransfer, error) {
	var out []models.LedgerTransfer
	err := r.v.do(ctx, func(st *state) error {
		for _, t := range st.transfers {
			if t.SourceAccountID == accountID || t.DestinationAccountID == accountID {
				out = append(out, t)
			}
		}
		return nil
	})
	return out, err
}

func (r *ledgerRepository) FindExpensesByTransfer(ctx context.Context, transferRef string) ([]models.LedgerExpense, error) {
	var out []models.LedgerExpense
	err := r.v.do(ctx, func(st *state) error {
		for _, e := range st.expenses {
			if e.TransferRef != nil && *e.TransferRef == transferRef {
				if c, ok := findCategory(st, e.CategoryID); ok {
					e.Category = &c
				}
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *ledgerRepository) SumInbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error) {
	return r.sum(ctx, func(t *models.LedgerTransfer) bool {
		return t.DestinationAccountID == accountID && (label == "" || t.Label == label)
	})
}

func (r *ledgerRepository) SumOutbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error) {
	return r.sum(ctx, func(t *models.LedgerTransfer) bool {
		return t.SourceAccountID == accountID && (label == "" || t.Label == label)
	})
}

func (r *ledgerRepository) sum(ctx context.Context, match func(t *models.LedgerTransfer) bool) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.do(ctx, func(st *state) error {
		for i := range st.transfers {
			if match(&st.transfers[i]) {
				total = total.Add(st.transfers[i].Amount)
			}
		}
		return nil
	})
	return total, err
}

func (r *ledgerRepository) SumExpenses(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	total := decimal.Zero
	err := r.v.do(ctx, func(st *state) error {
		for _, e := range st.expenses {
			if e.AccountID == accountID {
				total = total.Add(e.Amount)
			}
		}
		return nil
	})
	return total, err
}

type categoryRepository struct{ v *view }

func (r *categoryRepository) FindByKey(ctx context.Context, key string) (*models.Category, error) {
	var out *models.Category
	err := r.v.do(ctx, func(st *state) error {
		c, ok := st.categories[key]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &c
		return nil
	})
	return out, err
}

func (r *categoryRepository) FindOrCreate(ctx context.Context, category *models.Category) error {
	return r.v.do(ctx, func(st *state) error {
		if c, ok := st.categories[category.Key]; ok {
			*category = c
			return nil
		}
		if category.Kind == "" {
			category.Kind = "expense"
		}
		now := r.v.now()
		category.ID = st.nextID()
		category.CreatedAt, category.UpdatedAt = now, now
		st.categories[category.Key] = *category
		return nil
	})
}

func findCategory(st *state, id uint) (models.Category, bool) {
	for _, c := range st.categories {
		if c.ID == id {
			return c, true
		}
	}
	return models.Category{}, false
}
