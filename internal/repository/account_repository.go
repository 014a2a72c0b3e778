package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sjperalta/fintera-ledger/internal/models"
	"gorm.io/gorm"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) error
	Update(ctx context.Context, account *models.Account) error
	UpdateAvailableCredit(ctx context.Context, id uint, available decimal.Decimal) error
	UpdateBalance(ctx context.Context, id uint, balance decimal.Decimal, syncedAt time.Time) error
	FindAutoPostLoans(ctx context.Context) ([]models.Account, error)
}

type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) FindByID(ctx context.Context, id uint) (*models.Account, error) {
	var account models.Account
	err := r.db.WithContext(ctx).First(&account, id).Error
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Create(account).Error
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	return r.db.WithContext(ctx).Omit("Terms").Save(account).Error
}

func (r *accountRepository) UpdateAvailableCredit(ctx context.Context, id uint, available decimal.Decimal) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Update("available_credit", available).Error
}

func (r *accountRepository) UpdateBalance(ctx context.Context, id uint, balance decimal.Decimal, syncedAt time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Account{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"balance":           balance,
			"balance_synced_at": syncedAt,
		}).Error
}

// FindAutoPostLoans returns loan accounts that post their installments automatically
func (r *accountRepository) FindAutoPostLoans(ctx context.Context) ([]models.Account, error) {
	var accounts []models.Account
	err := r.db.WithContext(ctx).
		Where("kind = ? AND auto_post_funding_account_id IS NOT NULL", models.AccountKindLoan).
		Order("id ASC").
		Find(&accounts).Error
	return accounts, err
}
