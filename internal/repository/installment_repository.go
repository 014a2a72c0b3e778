package repository

import (
	"context"
	"time"

	"github.com/sjperalta/fintera-ledger/internal/models"
	"gorm.io/gorm"
)

const postedSequenceIndex = "idx_installments_posted_sequence"

// InstallmentRepository defines the interface for installment data access
type InstallmentRepository interface {
	FindByAccount(ctx context.Context, accountID uint) ([]models.Installment, error)
	FindPosted(ctx context.Context, accountID uint) ([]models.Installment, error)
	FindPending(ctx context.Context, accountID uint) ([]models.Installment, error)
	FindUnpaid(ctx context.Context, accountID uint) ([]models.Installment, error)
	FindDuePlanned(ctx context.Context, accountID uint, asOf time.Time) ([]models.Installment, error)
	FindBySequence(ctx context.Context, accountID uint, sequence int) (*models.Installment, error)
	FindNextPlanned(ctx context.Context, accountID uint) (*models.Installment, error)
	MaxRealizedSequence(ctx context.Context, accountID uint) (int, error)
	DeleteReplaceable(ctx context.Context, accountID uint, today time.Time, afterSequence int) (int64, error)
	CreateBatch(ctx context.Context, installments []models.Installment) error
	MarkPosted(ctx context.Context, installment *models.Installment) error
	Update(ctx context.Context, installment *models.Installment) error
}

type installmentRepository struct {
	db *gorm.DB
}

// NewInstallmentRepository creates a new installment repository
func NewInstallmentRepository(db *gorm.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) FindByAccount(ctx context.Context, accountID uint) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("sequence ASC, id ASC").
		Find(&installments).Error
	return installments, err
}

// FindPosted returns posted installments ordered by sequence
func (r *installmentRepository) FindPosted(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.findByStatus(ctx, accountID, models.InstallmentStatusPosted)
}

// FindPending returns installments not yet realized in the ledger
func (r *installmentRepository) FindPending(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.findByStatus(ctx, accountID, models.InstallmentStatusPlanned)
}

// FindUnpaid returns BNPL installments with an outstanding amount
func (r *installmentRepository) FindUnpaid(ctx context.Context, accountID uint) ([]models.Installment, error) {
	return r.findByStatus(ctx, accountID, models.InstallmentStatusPlanned, models.InstallmentStatusPartiallyPaid)
}

func (r *installmentRepository) findByStatus(ctx context.Context, accountID uint, statuses ...string) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status IN ?", accountID, statuses).
		Order("sequence ASC, id ASC").
		Find(&installments).Error
	return installments, err
}

// FindDuePlanned returns planned installments due on or before asOf
func (r *installmentRepository) FindDuePlanned(ctx context.Context, accountID uint, asOf time.Time) ([]models.Installment, error) {
	var installments []models.Installment
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND due_date <= ?", accountID, models.InstallmentStatusPlanned, asOf).
		Order("sequence ASC").
		Find(&installments).Error
	return installments, err
}

// FindBySequence prefers the posted row when a planned duplicate exists
func (r *installmentRepository) FindBySequence(ctx context.Context, accountID uint, sequence int) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND sequence = ?", accountID, sequence).
		Order(gorm.Expr("CASE WHEN status = ? THEN 0 ELSE 1 END, id ASC", models.InstallmentStatusPosted)).
		First(&installment).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

func (r *installmentRepository) FindNextPlanned(ctx context.Context, accountID uint) (*models.Installment, error) {
	var installment models.Installment
	err := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ?", accountID, models.InstallmentStatusPlanned).
		Order("sequence ASC, id ASC").
		First(&installment).Error
	if err != nil {
		return nil, err
	}
	return &installment, nil
}

// MaxRealizedSequence returns the highest sequence that reached the ledger, or 0
func (r *installmentRepository) MaxRealizedSequence(ctx context.Context, accountID uint) (int, error) {
	var result struct {
		MaxSequence int
	}
	err := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Select("COALESCE(MAX(sequence), 0) AS max_sequence").
		Where("account_id = ? AND status <> ?", accountID, models.InstallmentStatusPlanned).
		Scan(&result).Error
	return result.MaxSequence, err
}

// DeleteReplaceable removes planned rows due today or later, or sequenced after the last realized one
func (r *installmentRepository) DeleteReplaceable(ctx context.Context, accountID uint, today time.Time, afterSequence int) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("account_id = ? AND status = ? AND (due_date >= ? OR sequence > ?)",
			accountID, models.InstallmentStatusPlanned, today, afterSequence).
		Delete(&models.Installment{})
	return res.RowsAffected, res.Error
}

func (r *installmentRepository) CreateBatch(ctx context.Context, installments []models.Installment) error {
	if len(installments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(&installments, 100).Error
}

// MarkPosted flips a planned row to posted. It returns ErrAlreadyPosted when
// the row was posted concurrently or the sequence is already posted.
func (r *installmentRepository) MarkPosted(ctx context.Context, installment *models.Installment) error {
	res := r.db.WithContext(ctx).
		Model(&models.Installment{}).
		Where("id = ? AND status <> ?", installment.ID, models.InstallmentStatusPosted).
		Updates(map[string]interface{}{
			"status":          models.InstallmentStatusPosted,
			"posted_at":       installment.PostedAt,
			"transfer_ref":    installment.TransferRef,
			"paid_principal":  installment.PaidPrincipal,
			"paid_interest":   installment.PaidInterest,
			"late_fee_amount": installment.LateFeeAmount,
		})
	if res.Error != nil {
		if isDuplicateKeyError(res.Error, postedSequenceIndex) {
			return ErrAlreadyPosted
		}
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAlreadyPosted
	}
	return nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *models.Installment) error {
	return r.db.WithContext(ctx).Save(installment).Error
}
