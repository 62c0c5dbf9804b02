package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	AccountTypeDemo        = "demo"
	DefaultAccountCurrency = "USD"
)

// User carries the account balance. The balance only moves when a position is settled.
type User struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	Username        string          `gorm:"column:user_name;size:100;not null;uniqueIndex" json:"user_name"`
	Email           string          `gorm:"size:255" json:"email"`
	Password        string          `gorm:"size:255" json:"-"`
	AccountBalance  decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"account_balance"`
	AccountCurrency string          `gorm:"size:3;not null" json:"account_currency"`
	AccountType     string          `gorm:"size:10;not null" json:"account_type"`
	DemoAccount     bool            `gorm:"not null" json:"demo_account"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
