package price

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"demotrader/src/model"
	"demotrader/src/utils"

	"github.com/shopspring/decimal"
)

var basePrices = map[string]float64{
	"EURUSD": 1.09,
	"GBPUSD": 1.29,
	"USDJPY": 108.7,
	"USDCHF": 0.91,
	"AUDUSD": 0.68,
	"NZDUSD": 0.63,
	"BTCUSD": 62000,
	"ETHUSD": 3500,
	"XAUUSD": 2300,
	"XAGUSD": 27,
}

var syntheticSpread = decimal.RequireFromString("0.0002")

// BasePrice is the anchor of the synthetic generator for a symbol.
func BasePrice(symbol string) float64 {
	if p, ok := basePrices[strings.ToUpper(symbol)]; ok {
		return p
	}
	return 1.0
}

func isCryptoSymbol(symbol string) bool {
	s := strings.ToUpper(symbol)
	return strings.Contains(s, "BTC") || strings.Contains(s, "ETH")
}

// Synthetic produces plausible prices when no upstream answers.
type Synthetic struct {
	maxBars int
	now     func() time.Time
}

func NewSynthetic(maxBars int, now func() time.Time) *Synthetic {
	if now == nil {
		now = time.Now
	}
	return &Synthetic{maxBars: maxBars, now: now}
}

// Quote jitters the base price by up to ±0.2% and applies a 0.02% spread.
func (s *Synthetic) Quote(symbol string) Quote {
	base := BasePrice(symbol)
	change := base * float64(rand.IntN(41)-20) / 10000

	return quoteAround(symbol, decimal.NewFromFloat(base+change), syntheticSpread, s.now(), SourceSynthetic)
}

// Series walks randomly from the base price. The walk is seeded from (symbol, timeframe, start),
// so the same request always yields the same bars.
func (s *Synthetic) Series(symbol string, tf model.Timeframe, from, to time.Time) []model.Bar {
	step := tf.Duration()
	if step <= 0 || from.After(to) {
		return []model.Bar{}
	}

	start := utils.AlignToInterval(from, step)
	if start.Before(from) {
		start = start.Add(step)
	}
	if start.After(to) {
		return []model.Bar{}
	}

	count := int(to.Sub(start)/step) + 1
	if s.maxBars > 0 && count > s.maxBars {
		start = start.Add(time.Duration(count-s.maxBars) * step)
		count = s.maxBars
	}

	rng := rand.New(rand.NewPCG(seriesSeed(symbol, tf, start), uint64(step)))

	base := BasePrice(symbol)
	volatility := base * 0.001
	if isCryptoSymbol(symbol) {
		volatility = base * 0.005
	}

	out := make([]model.Bar, 0, count)
	price := base
	for i := 0; i < count; i++ {
		change := volatility * float64(rng.IntN(201)-100) / 100

		open := price
		closePrice := open + change
		high := math.Max(open, closePrice) + math.Abs(change)*float64(rng.IntN(41)+10)/100
		low := math.Min(open, closePrice) - math.Abs(change)*float64(rng.IntN(41)+10)/100

		out = append(out, model.Bar{
			Time:   start.Add(time.Duration(i) * step),
			Open:   round5(open),
			High:   round5(high),
			Low:    round5(low),
			Close:  round5(closePrice),
			Volume: float64(rng.IntN(901) + 100),
		})

		price = closePrice
	}
	return out
}

func seriesSeed(symbol string, tf model.Timeframe, start time.Time) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToUpper(symbol)))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(tf))
	return h.Sum64() ^ uint64(start.Unix())
}

func round5(v float64) float64 {
	return decimal.NewFromFloat(v).Round(priceDecimals).InexactFloat64()
}
