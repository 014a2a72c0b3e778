package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// DebtTerms is the last set of terms a plan was built from
type DebtTerms struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	AccountID          uint            `gorm:"not null;uniqueIndex" json:"account_id"`
	Principal          decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"principal"`
	AnnualRate         decimal.Decimal `gorm:"type:decimal(9,4);not null;default:0" json:"annual_rate"`
	Term               int             `gorm:"not null" json:"term"`
	Frequency          string          `gorm:"not null;default:monthly" json:"frequency"`
	Method             string          `json:"method,omitempty"`
	Calculation        string          `json:"calculation,omitempty"`
	FreeInterestMonths int             `gorm:"not null;default:0" json:"free_interest_months"`
	StartDate          time.Time       `gorm:"type:date;not null" json:"start_date"`
	Balloon            decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"balloon"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

// TableName specifies the table name for DebtTerms
func (DebtTerms) TableName() string {
	return "debt_terms"
}
