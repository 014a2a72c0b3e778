package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Installment is one scheduled payment of a debt account
type Installment struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	AccountID       uint            `gorm:"not null;index;uniqueIndex:idx_installments_posted_sequence,where:status = 'posted'" json:"account_id"`
	Sequence        int             `gorm:"not null;uniqueIndex:idx_installments_posted_sequence,where:status = 'posted'" json:"sequence"`
	DueDate         time.Time       `gorm:"type:date;not null;index" json:"due_date"`
	PrincipalAmount decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"principal_amount"`
	InterestAmount  decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"interest_amount"`
	BalloonAmount   decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"balloon_amount"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"total_amount"`
	PaidPrincipal   decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"paid_principal"`
	PaidInterest    decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"paid_interest"`
	LateFeeAmount   decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"late_fee_amount"`
	Status          string          `gorm:"not null;default:planned;index" json:"status"`
	PostedAt        *time.Time      `gorm:"type:date" json:"posted_at,omitempty"`
	PaidAt          *time.Time      `gorm:"type:date" json:"paid_at,omitempty"`
	TransferRef     *string         `gorm:"index" json:"transfer_ref,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Installment
func (Installment) TableName() string {
	return "installments"
}

// Installment status constants
const (
	InstallmentStatusPlanned       = "planned"
	InstallmentStatusPosted        = "posted"
	InstallmentStatusPartiallyPaid = "partially_paid"
	InstallmentStatusPaid          = "paid"
)

// IsPosted returns true once the installment is realized in the ledger
func (i *Installment) IsPosted() bool {
	return i.Status == InstallmentStatusPosted && i.TransferRef != nil && *i.TransferRef != ""
}

// IsRealized returns true if any part of the installment reached the ledger.
// Realized rows are history and never replaced by a regenerated plan.
func (i *Installment) IsRealized() bool {
	return i.Status != InstallmentStatusPlanned
}

// IsUnpaid returns true while a BNPL installment still has an outstanding amount
func (i *Installment) IsUnpaid() bool {
	return i.Status == InstallmentStatusPlanned || i.Status == InstallmentStatusPartiallyPaid
}

// MayPost returns true if the installment can be posted
func (i *Installment) MayPost() bool {
	return i.Status == InstallmentStatusPlanned
}

// PaidAmount is what has been applied to the installment so far
func (i *Installment) PaidAmount() decimal.Decimal {
	return i.PaidPrincipal.Add(i.PaidInterest)
}

// Outstanding is what remains to settle the installment
func (i *Installment) Outstanding() decimal.Decimal {
	out := i.TotalAmount.Sub(i.PaidAmount())
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OutstandingPrincipal is the principal portion not yet applied
func (i *Installment) OutstandingPrincipal() decimal.Decimal {
	out := i.PrincipalAmount.Sub(i.PaidPrincipal)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// OutstandingInterest is the interest or profit portion not yet applied
func (i *Installment) OutstandingInterest() decimal.Decimal {
	out := i.InterestAmount.Sub(i.PaidInterest)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// IsOverdue returns true if the installment is unpaid after its due date
func (i *Installment) IsOverdue(asOf time.Time) bool {
	return !i.IsRealized() && asOf.After(i.DueDate)
}
