package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
	OrderTypeStop   OrderType = "stop"
)

func (o OrderType) Valid() bool {
	return o == OrderTypeMarket || o == OrderTypeLimit || o == OrderTypeStop
}

// IsPending is true for order types that rest until a later fill.
func (o OrderType) IsPending() bool {
	return o == OrderTypeLimit || o == OrderTypeStop
}

const (
	TradeStatusPending   = "pending"
	TradeStatusOpen      = "open"
	TradeStatusClosed    = "closed"
	TradeStatusCancelled = "cancelled"
)

// Trade is the historical ledger entry. Market fills link it to a Position;
// a resting pending order has no PositionID.
type Trade struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	Ticket       string           `gorm:"size:36;not null;uniqueIndex" json:"ticket"`
	UserID       uint             `gorm:"not null;index:idx_trades_user_status,priority:1" json:"user_id"`
	InstrumentID uint             `gorm:"not null;index" json:"instrument_id"`
	PositionID   *uint            `gorm:"index" json:"position_id"`
	Direction    Direction        `gorm:"size:4;not null" json:"direction"`
	OrderType    OrderType        `gorm:"size:10;not null" json:"order_type"`
	Volume       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"volume"`
	OpenPrice    decimal.Decimal  `gorm:"type:decimal(15,5);not null" json:"open_price"`
	ClosePrice   *decimal.Decimal `gorm:"type:decimal(15,5)" json:"close_price"`
	OpenTime     time.Time        `gorm:"not null" json:"open_time"`
	CloseTime    *time.Time       `gorm:"index" json:"close_time"`
	StopLoss     *decimal.Decimal `gorm:"type:decimal(15,5)" json:"stop_loss"`
	TakeProfit   *decimal.Decimal `gorm:"type:decimal(15,5)" json:"take_profit"`
	Profit       decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"profit"`
	Commission   decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"commission"`
	Swap         decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"swap"`
	Status       string           `gorm:"size:10;not null;index:idx_trades_user_status,priority:2" json:"status"`
	Comment      string           `gorm:"size:255" json:"comment"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Instrument *Instrument `gorm:"foreignKey:InstrumentID" json:"instrument,omitempty"`
}

// TotalResult is the net outcome of the ledger entry.
func (t *Trade) TotalResult() decimal.Decimal {
	return t.Profit.Sub(t.Commission).Sub(t.Swap)
}
