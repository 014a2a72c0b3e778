package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrAlreadyPosted is returned when another writer posted the same installment first
var ErrAlreadyPosted = errors.New("installment already posted")

// TxRunner runs fn as one all-or-nothing unit
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories holds all repository instances
type Repositories struct {
	Account     AccountRepository
	Terms       TermsRepository
	Installment InstallmentRepository
	Ledger      LedgerRepository
	Category    CategoryRepository

	Tx TxRunner
}

// NewRepositories creates all repository instances
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Account:     NewAccountRepository(db),
		Terms:       NewTermsRepository(db),
		Installment: NewInstallmentRepository(db),
		Ledger:      NewLedgerRepository(db),
		Category:    NewCategoryRepository(db),
		Tx:          &gormTxRunner{db: db},
	}
}

// Transaction runs fn against repositories bound to a single transaction.
// Calls made on transaction-bound repositories join the outer unit.
func (r *Repositories) Transaction(ctx context.Context, fn func(repos *Repositories) error) error {
	if r.Tx == nil {
		return fn(r)
	}
	return r.Tx.RunInTx(ctx, fn)
}

type gormTxRunner struct {
	db *gorm.DB
}

func (g *gormTxRunner) RunInTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := NewRepositories(tx)
		repos.Tx = nil
		return fn(repos)
	})
}

func isDuplicateKeyError(err error, constraintName string) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraintName
	}
	return false
}
