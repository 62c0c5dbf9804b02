package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	DirectionBuy  Direction = "buy"
	DirectionSell Direction = "sell"
)

func (d Direction) Valid() bool {
	return d == DirectionBuy || d == DirectionSell
}

const (
	PositionStatusOpen    = "open"
	PositionStatusClosed  = "closed"
	PositionStatusPending = "pending"
)

// Position is the live-state row of an exposure. Profit holds the realized result once closed;
// while open the current profit is derived from CurrentPrice.
type Position struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"not null;index:idx_positions_user_status,priority:1" json:"user_id"`
	InstrumentID uint             `gorm:"not null;index" json:"instrument_id"`
	Direction    Direction        `gorm:"size:4;not null" json:"direction"`
	Volume       decimal.Decimal  `gorm:"type:decimal(10,2);not null" json:"volume"`
	OpenPrice    decimal.Decimal  `gorm:"type:decimal(15,5);not null" json:"open_price"`
	CurrentPrice decimal.Decimal  `gorm:"type:decimal(15,5);not null" json:"current_price"`
	StopLoss     *decimal.Decimal `gorm:"type:decimal(15,5)" json:"stop_loss"`
	TakeProfit   *decimal.Decimal `gorm:"type:decimal(15,5)" json:"take_profit"`
	Profit       decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"profit"`
	Swap         decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"swap"`
	Commission   decimal.Decimal  `gorm:"type:decimal(15,2);not null" json:"commission"`
	OpenTime     time.Time        `gorm:"not null;index" json:"open_time"`
	CloseTime    *time.Time       `json:"close_time,omitempty"`
	Status       string           `gorm:"size:10;not null;index:idx_positions_user_status,priority:2" json:"status"`
	Comment      string           `gorm:"size:255" json:"comment"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`

	Instrument *Instrument `gorm:"foreignKey:InstrumentID" json:"instrument,omitempty"`
	Trades     []Trade     `gorm:"foreignKey:PositionID" json:"trades,omitempty"`
}

func (p *Position) IsOpen() bool {
	return p.Status == PositionStatusOpen
}
