package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is a money account in the ledger. Loan and BNPL accounts carry debt.
type Account struct {
	ID                       uint            `gorm:"primaryKey" json:"id"`
	Name                     string          `gorm:"not null" json:"name"`
	Kind                     string          `gorm:"not null;index" json:"kind"`
	Currency                 string          `gorm:"size:3;not null;default:USD" json:"currency"`
	InitialBalance           decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"initial_balance"`
	Balance                  decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"balance"`
	CreditLimit              decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"credit_limit"`
	AvailableCredit          decimal.Decimal `gorm:"type:decimal(15,4);not null;default:0" json:"available_credit"`
	AutoPostFundingAccountID *uint           `gorm:"index" json:"auto_post_funding_account_id,omitempty"`
	BalanceSyncedAt          *time.Time      `json:"balance_synced_at,omitempty"`
	CreatedAt                time.Time       `json:"created_at"`
	UpdatedAt                time.Time       `json:"updated_at"`

	// Associations
	Terms *DebtTerms `gorm:"foreignKey:AccountID" json:"terms,omitempty"`
}

// TableName specifies the table name for Account
func (Account) TableName() string {
	return "accounts"
}

// Account kind constants
const (
	AccountKindLoan       = "loan"
	AccountKindBNPL       = "bnpl"
	AccountKindDepository = "depository"
	AccountKindCreditCard = "credit_card"
)

// IsDebt returns true for accounts that carry an installment plan
func (a *Account) IsDebt() bool {
	return a.Kind == AccountKindLoan || a.Kind == AccountKindBNPL
}

// IsLoan returns true for traditional interest or profit bearing loans
func (a *Account) IsLoan() bool {
	return a.Kind == AccountKindLoan
}

// IsBNPL returns true for buy-now-pay-later accounts
func (a *Account) IsBNPL() bool {
	return a.Kind == AccountKindBNPL
}

// MayFund returns true if the account can be the source of a payment
func (a *Account) MayFund() bool {
	return a.Kind == AccountKindDepository || a.Kind == AccountKindCreditCard
}
