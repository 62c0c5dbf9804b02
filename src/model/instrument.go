package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type InstrumentType string

const (
	InstrumentTypeForex       InstrumentType = "forex"
	InstrumentTypeCrypto      InstrumentType = "crypto"
	InstrumentTypeStocks      InstrumentType = "stocks"
	InstrumentTypeIndices     InstrumentType = "indices"
	InstrumentTypeCommodities InstrumentType = "commodities"
)

// Instrument is tradable reference data. Rows are only changed by admins or seed migrations.
type Instrument struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:100;not null" json:"name"`
	Symbol         string          `gorm:"size:20;not null;uniqueIndex" json:"symbol"`
	Type           InstrumentType  `gorm:"size:20;not null;index" json:"type"`
	Digits         int             `gorm:"not null" json:"digits"`
	Point          decimal.Decimal `gorm:"type:decimal(10,5);not null" json:"point"`
	PipValue       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"pip_value"`
	ContractSize   decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"contract_size"`
	MarginRequired decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"margin_required"`
	Description    string          `gorm:"type:text" json:"description"`
	Currency       string          `gorm:"size:10" json:"currency"`
	QuoteCurrency  string          `gorm:"size:10" json:"quote_currency"`
	TradingHours   TradingHours    `gorm:"type:text" json:"trading_hours"`
	MinLot         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"min_lot"`
	MaxLot         decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"max_lot"`
	LotStep        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"lot_step"`
	SwapLong       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"swap_long"`
	SwapShort      decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"swap_short"`
	IsPopular      bool            `gorm:"not null;index" json:"is_popular"`
	IsActive       bool            `gorm:"not null;index" json:"is_active"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// IsTradingHours reports whether the instrument calendar is open at t.
func (i *Instrument) IsTradingHours(t time.Time) bool {
	return i.TradingHours.IsOpen(t)
}

// IsTradable combines the active flag with the trading calendar.
func (i *Instrument) IsTradable(t time.Time) bool {
	return i.IsActive && i.IsTradingHours(t)
}
