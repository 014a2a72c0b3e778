package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// LedgerTransfer moves money between two accounts
type LedgerTransfer struct {
	ID                   uint            `gorm:"primaryKey" json:"id"`
	Reference            string          `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	SourceAccountID      uint            `gorm:"not null;index" json:"source_account_id"`
	DestinationAccountID uint            `gorm:"not null;index" json:"destination_account_id"`
	Amount               decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"amount"`
	Label                string          `gorm:"not null;index" json:"label"`
	Memo                 string          `json:"memo"`
	Date                 time.Time       `gorm:"type:date;not null" json:"date"`
	CreatedAt            time.Time       `json:"created_at"`
}

// TableName specifies the table name for LedgerTransfer
func (LedgerTransfer) TableName() string {
	return "ledger_transfers"
}

// Transfer label constants
const (
	TransferLabelPrincipal    = "principal"    // Principal repayment into a debt account
	TransferLabelDisbursement = "disbursement" // Additional draw out of a debt account
	TransferLabelPayment      = "payment"      // Any other movement
)

// LedgerExpense is a categorized expense on a single account
type LedgerExpense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Reference   string          `gorm:"size:36;not null;uniqueIndex" json:"reference"`
	AccountID   uint            `gorm:"not null;index" json:"account_id"`
	CategoryID  uint            `gorm:"not null;index" json:"category_id"`
	Name        string          `gorm:"not null" json:"name"`
	Amount      decimal.Decimal `gorm:"type:decimal(15,4);not null" json:"amount"`
	TransferRef *string         `gorm:"size:36;index" json:"transfer_ref,omitempty"`
	Date        time.Time       `gorm:"type:date;not null" json:"date"`
	CreatedAt   time.Time       `json:"created_at"`

	// Associations
	Category *Category `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
}

// TableName specifies the table name for LedgerExpense
func (LedgerExpense) TableName() string {
	return "ledger_expenses"
}

// Category classifies ledger expenses
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"not null;uniqueIndex" json:"key"`
	Name      string    `gorm:"not null" json:"name"`
	Kind      string    `gorm:"not null;default:expense" json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Category
func (Category) TableName() string {
	return "categories"
}

// Category keys resolved by the engine
const (
	CategoryInterestExpense = "interest_expense"
	CategoryLateFee         = "late_fee"
	CategoryBNPLInterest    = "bnpl_interest"
	CategoryBNPLProfit      = "bnpl_profit"
)
