package repository

import (
	"context"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TermsRepository defines the interface for debt terms data access
type TermsRepository interface {
	FindByAccount(ctx context.Context, accountID uint) (*models.DebtTerms, error)
	Save(ctx context.Context, terms *models.DebtTerms) error
}

type termsRepository struct {
	db *gorm.DB
}

// NewTermsRepository creates a new terms repository
func NewTermsRepository(db *gorm.DB) TermsRepository {
	return &termsRepository{db: db}
}

func (r *termsRepository) FindByAccount(ctx context.Context, accountID uint) (*models.DebtTerms, error) {
	var terms models.DebtTerms
	err := r.db.WithContext(ctx).Where("account_id = ?", accountID).First(&terms).Error
	if err != nil {
		return nil, err
	}
	return &terms, nil
}

// Save upserts the terms row of an account
func (r *termsRepository) Save(ctx context.Context, terms *models.DebtTerms) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"principal", "annual_rate", "term", "frequency", "method", "calculation",
			"free_interest_months", "start_date", "balloon", "updated_at",
		}),
	}).Create(terms).Error
}
