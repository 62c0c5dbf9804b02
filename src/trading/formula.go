package trading

import (
	"demotrader/src/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Profit is the shared P&L formula:
// pips = (buy ? current-open : open-current) / point; profit = round(pips * pip_value * volume, 2).
func Profit(
	direction model.Direction,
	openPrice, currentPrice, volume decimal.Decimal,
	instrument *model.Instrument,
) decimal.Decimal {
	if instrument == nil || instrument.Point.IsZero() {
		return decimal.Zero
	}

	diff := currentPrice.Sub(openPrice)
	if direction == model.DirectionSell {
		diff = openPrice.Sub(currentPrice)
	}

	pips := diff.Div(instrument.Point)
	return pips.Mul(instrument.PipValue).Mul(volume).Round(2)
}

// PositionProfit evaluates Profit at the position's current price.
func PositionProfit(p *model.Position, instrument *model.Instrument) decimal.Decimal {
	return Profit(p.Direction, p.OpenPrice, p.CurrentPrice, p.Volume, instrument)
}

// ContractValue is contract_size * volume * price.
func ContractValue(instrument *model.Instrument, volume, price decimal.Decimal) decimal.Decimal {
	return instrument.ContractSize.Mul(volume).Mul(price)
}

// RequiredMargin is contract_size * volume * price * margin_required / 100.
func RequiredMargin(instrument *model.Instrument, volume, price decimal.Decimal) decimal.Decimal {
	return ContractValue(instrument, volume, price).Mul(instrument.MarginRequired).Div(hundred)
}

// Commission is contract_size * volume * price * rate, rounded to cents.
func Commission(instrument *model.Instrument, volume, price, rate decimal.Decimal) decimal.Decimal {
	return ContractValue(instrument, volume, price).Mul(rate).Round(2)
}
