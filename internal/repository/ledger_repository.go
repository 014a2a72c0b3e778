package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"gorm.io/gorm"
)

// LedgerRepository is the ledger-mutation collaborator: append-only transfers
// and expense entries, each identified by a generated reference.
type LedgerRepository interface {
	CreateTransfer(ctx context.Context, transfer *models.LedgerTransfer) (string, error)
	CreateExpense(ctx context.Context, expense *models.LedgerExpense) (string, error)
	FindTransfer(ctx context.Context, reference string) (*models.LedgerTransfer, error)
	FindTransfersByAccount(ctx context.Context, accountID uint) ([]models.LedgerTransfer, error)
	FindExpensesByTransfer(ctx context.Context, transferRef string) ([]models.LedgerExpense, error)
	SumInbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error)
	SumOutbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error)
	SumExpenses(ctx context.Context, accountID uint) (decimal.Decimal, error)
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository creates a new ledger repository
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

// CreateTransfer records a movement between two accounts and returns its reference
func (r *ledgerRepository) CreateTransfer(ctx context.Context, transfer *models.LedgerTransfer) (string, error) {
	if transfer.Reference == "" {
		transfer.Reference = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Create(transfer).Error; err != nil {
		return "", err
	}
	return transfer.Reference, nil
}

// CreateExpense records a categorized expense and returns its reference
func (r *ledgerRepository) CreateExpense(ctx context.Context, expense *models.LedgerExpense) (string, error) {
	if expense.Reference == "" {
		expense.Reference = uuid.NewString()
	}
	if err := r.db.WithContext(ctx).Omit("Category").Create(expense).Error; err != nil {
		return "", err
	}
	return expense.Reference, nil
}

func (r *ledgerRepository) FindTransfer(ctx context.Context, reference string) (*models.LedgerTransfer, error) {
	var transfer models.LedgerTransfer
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&transfer).Error
	if err != nil {
		return nil, err
	}
	return &transfer, nil
}

// FindTransfersByAccount returns transfers on either side of the account
func (r *ledgerRepository) FindTransfersByAccount(ctx context.Context, accountID uint) ([]models.LedgerTransfer, error) {
	var transfers []models.LedgerTransfer
	err := r.db.WithContext(ctx).
		Where("source_account_id = ? OR destination_account_id = ?", accountID, accountID).
		Order("date ASC, id ASC").
		Find(&transfers).Error
	return transfers, err
}

func (r *ledgerRepository) FindExpensesByTransfer(ctx context.Context, transferRef string) ([]models.LedgerExpense, error) {
	var expenses []models.LedgerExpense
	err := r.db.WithContext(ctx).
		Preload("Category").
		Where("transfer_ref = ?", transferRef).
		Order("id ASC").
		Find(&expenses).Error
	return expenses, err
}

// SumInbound totals transfers into the account. An empty label matches all.
func (r *ledgerRepository) SumInbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error) {
	return r.sumTransfers(ctx, "destination_account_id", accountID, label)
}

// SumOutbound totals transfers out of the account. An empty label matches all.
func (r *ledgerRepository) SumOutbound(ctx context.Context, accountID uint, label string) (decimal.Decimal, error) {
	return r.sumTransfers(ctx, "source_account_id", accountID, label)
}

func (r *ledgerRepository) sumTransfers(ctx context.Context, column string, accountID uint, label string) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	query := r.db.WithContext(ctx).
		Model(&models.LedgerTransfer{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where(column+" = ?", accountID)
	if label != "" {
		query = query.Where("label = ?", label)
	}
	err := query.Scan(&result).Error
	return result.Total, err
}

func (r *ledgerRepository) SumExpenses(ctx context.Context, accountID uint) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.LedgerExpense{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("account_id = ?", accountID).
		Scan(&result).Error
	return result.Total, err
}
