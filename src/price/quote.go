package price

import (
	"errors"
	"time"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidRange = errors.New("invalid range: from must not be after to")

	// ErrUpstreamUnavailable marks a failed upstream call. It never leaves the Service.
	ErrUpstreamUnavailable = errors.New("price upstream unavailable")

	// ErrNotCovered is returned by a source that does not serve the symbol at all.
	ErrNotCovered = errors.New("symbol not covered by source")
)

const (
	SourceSynthetic = "synthetic"

	priceDecimals = 5
)

// Quote is an immutable bid/ask snapshot.
type Quote struct {
	Symbol    string          `json:"symbol"`
	Bid       decimal.Decimal `json:"bid"`
	Ask       decimal.Decimal `json:"ask"`
	Timestamp time.Time       `json:"timestamp"`
	Source    string          `json:"source"`
}

// ForOpen is the price a new position in direction d fills at: ask for buy, bid for sell.
func (q Quote) ForOpen(d model.Direction) decimal.Decimal {
	if d == model.DirectionBuy {
		return q.Ask
	}
	return q.Bid
}

// ForClose is the price that realizes a position now: bid for buy, ask for sell.
func (q Quote) ForClose(d model.Direction) decimal.Decimal {
	if d == model.DirectionBuy {
		return q.Bid
	}
	return q.Ask
}

// Mid is the average of bid and ask.
func (q Quote) Mid() decimal.Decimal {
	return q.Bid.Add(q.Ask).Div(decimal.NewFromInt(2)).Round(priceDecimals)
}

// quoteAround spreads a reference rate symmetrically: bid = rate - rate*spread/2, ask = rate + rate*spread/2.
func quoteAround(symbol string, rate decimal.Decimal, spread decimal.Decimal, at time.Time, source string) Quote {
	half := rate.Mul(spread).Div(decimal.NewFromInt(2))
	return Quote{
		Symbol:    symbol,
		Bid:       rate.Sub(half).Round(priceDecimals),
		Ask:       rate.Add(half).Round(priceDecimals),
		Timestamp: at.UTC(),
		Source:    source,
	}
}
