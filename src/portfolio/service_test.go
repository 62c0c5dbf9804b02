package portfolio

import (
	"context"
	"sync"
	"testing"
	"time"

	"demotrader/src/database/dbtest"
	"demotrader/src/model"
	"demotrader/src/price"
	"demotrader/src/trading"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

var wednesday = time.Date(2024, 3, 6, 12, 0, 0, 0, time.UTC)

type stubQuotes struct {
	mu     sync.Mutex
	quotes map[string]price.Quote
}

func (s *stubQuotes) Set(symbol, bid, ask string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.quotes == nil {
		s.quotes = map[string]price.Quote{}
	}
	s.quotes[symbol] = price.Quote{
		Symbol: symbol,
		Bid:    decimal.RequireFromString(bid),
		Ask:    decimal.RequireFromString(ask),
	}
}

func (s *stubQuotes) CurrentQuote(ctx context.Context, symbol string) (price.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quotes[symbol], nil
}

func (s *stubQuotes) CurrentQuotes(ctx context.Context, symbols []string) (map[string]price.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]price.Quote, len(symbols))
	for _, sym := range symbols {
		if q, ok := s.quotes[sym]; ok {
			out[sym] = q
		}
	}
	return out, nil
}

type fixture struct {
	db        *gorm.DB
	quotes    *stubQuotes
	engine    *trading.Engine
	portfolio *Service
	user      *model.User
	eurusd    *model.Instrument
	btcusd    *model.Instrument
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := dbtest.Open(t)
	quotes := &stubQuotes{}
	quotes.Set("EURUSD", "1.10000", "1.10020")
	quotes.Set("BTCUSD", "62000", "62010")

	clock := func() time.Time { return wednesday }
	engine := trading.NewEngine(db, trading.Config{
		CommissionRate:  decimal.RequireFromString("0.001"),
		TxRetryAttempts: 3,
	}, quotes).WithClock(clock)

	svc, err := NewService(db, Config{Timezone: "UTC", HistoryPerPage: 15}, quotes)
	require.NoError(t, err)

	return &fixture{
		db:        db,
		quotes:    quotes,
		engine:    engine,
		portfolio: svc.WithClock(clock),
		user:      dbtest.User(t, db, "investor", "10000"),
		eurusd:    dbtest.Instrument(t, db, "EURUSD"),
		btcusd:    dbtest.Instrument(t, db, "BTCUSD"),
	}
}

func (f *fixture) open(t *testing.T, inst *model.Instrument, direction model.Direction, volume string) *model.Position {
	t.Helper()
	res, err := f.engine.PlaceOrder(context.Background(), trading.OrderRequest{
		UserID:       f.user.ID,
		InstrumentID: inst.ID,
		Direction:    direction,
		OrderType:    model.OrderTypeMarket,
		Volume:       decimal.RequireFromString(volume),
	})
	require.NoError(t, err)
	return res.Position
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestEquityEqualsBalancePlusUnrealized(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	buy := f.open(t, f.eurusd, model.DirectionBuy, "0.10")
	f.open(t, f.eurusd, model.DirectionSell, "0.20")
	f.open(t, f.btcusd, model.DirectionBuy, "0.01")

	check := func() {
		t.Helper()
		snap, err := f.portfolio.Snapshot(ctx, f.user.ID)
		require.NoError(t, err)

		open, err := f.portfolio.OpenPositions(ctx, f.user.ID)
		require.NoError(t, err)

		unrealized := decimal.Zero
		for _, op := range open {
			unrealized = unrealized.Add(op.CurrentProfit)
		}
		assert.True(t, snap.Equity.Sub(snap.Balance).Equal(unrealized),
			"equity %s balance %s unrealized %s", snap.Equity, snap.Balance, unrealized)
		assert.Equal(t, len(open), snap.OpenPositions)
	}

	check()

	f.quotes.Set("EURUSD", "1.10300", "1.10320")
	f.quotes.Set("BTCUSD", "61000", "61010")
	check()

	_, err := f.engine.ClosePosition(ctx, f.user.ID, buy.ID)
	require.NoError(t, err)
	check()

	f.quotes.Set("EURUSD", "1.09000", "1.09020")
	check()
}

func TestSnapshotFigures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, f.eurusd, model.DirectionBuy, "0.10")
	f.quotes.Set("EURUSD", "1.10120", "1.10140")

	snap, err := f.portfolio.Snapshot(ctx, f.user.ID)
	require.NoError(t, err)

	// buy valued at bid: 100 points * 10 * 0.10
	assert.True(t, snap.Equity.Equal(d("10100")), snap.Equity.String())
	// margin uses the open price: 100000 * 0.10 * 1.10020 * 3.33%
	assert.True(t, snap.Margin.Equal(d("366.37")), snap.Margin.String())
	assert.True(t, snap.FreeMargin.Equal(d("9733.63")), snap.FreeMargin.String())
	// 10100 / 366.3666 * 100, before the margin is rounded
	assert.True(t, snap.MarginLevel.Equal(d("2756.80")), snap.MarginLevel.String())
	assert.True(t, snap.ProfitToday.Equal(d("100")), snap.ProfitToday.String())
	assert.Equal(t, model.DefaultAccountCurrency, snap.Currency)

	level, err := f.portfolio.MarginLevel(ctx, f.user.ID)
	require.NoError(t, err)
	assert.True(t, level.Equal(snap.MarginLevel))
}

func TestMarginLevelWithSubCentMargin(t *testing.T) {
	micro := &model.Instrument{
		Symbol:         "MICRO",
		Point:          d("0.01"),
		PipValue:       d("0.01"),
		ContractSize:   d("1"),
		MarginRequired: d("1"),
	}
	st := &state{
		user: &model.User{AccountBalance: d("100")},
		positions: []model.Position{{
			Direction:    model.DirectionBuy,
			Volume:       d("0.01"),
			OpenPrice:    d("0.20"),
			CurrentPrice: d("0.20"),
			OpenTime:     wednesday,
			Instrument:   micro,
		}},
		quotes:   map[string]price.Quote{},
		dayStart: wednesday,
	}

	// 1 * 0.01 * 0.20 * 1% = 0.00002
	snap := st.summary()
	assert.True(t, snap.Margin.IsZero(), snap.Margin.String())
	assert.True(t, snap.MarginLevel.Equal(d("500000000")), snap.MarginLevel.String())
	assert.Equal(t, 1, snap.OpenPositions)
}

func TestMarginLevelWithoutPositions(t *testing.T) {
	f := newFixture(t)

	snap, err := f.portfolio.Snapshot(context.Background(), f.user.ID)
	require.NoError(t, err)
	assert.True(t, snap.Margin.IsZero())
	assert.True(t, snap.MarginLevel.IsZero())
	assert.True(t, snap.Equity.Equal(d("10000")))
}

func TestProfitTodayIgnoresEarlierDays(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	yesterday := wednesday.Add(-24 * time.Hour)
	stale := &model.Position{
		UserID:       f.user.ID,
		InstrumentID: f.eurusd.ID,
		Direction:    model.DirectionBuy,
		Volume:       d("0.10"),
		OpenPrice:    d("1.09000"),
		CurrentPrice: d("1.09000"),
		OpenTime:     yesterday,
		Status:       model.PositionStatusOpen,
	}
	require.NoError(t, f.db.Create(stale).Error)

	closedYesterday := &model.Trade{
		Ticket:       "old-ticket",
		UserID:       f.user.ID,
		InstrumentID: f.eurusd.ID,
		Direction:    model.DirectionBuy,
		OrderType:    model.OrderTypeMarket,
		Volume:       d("0.10"),
		OpenPrice:    d("1.08"),
		OpenTime:     yesterday.Add(-time.Hour),
		CloseTime:    &yesterday,
		Profit:       d("500"),
		Status:       model.TradeStatusClosed,
	}
	require.NoError(t, f.db.Create(closedYesterday).Error)

	today := f.open(t, f.eurusd, model.DirectionBuy, "0.10")
	_, err := f.engine.ClosePosition(ctx, f.user.ID, today.ID)
	require.NoError(t, err)
	// closed at bid 1.10000 from ask 1.10020: -20 points * 10 * 0.10
	f.open(t, f.eurusd, model.DirectionSell, "0.10")

	profit, err := f.portfolio.ProfitToday(ctx, f.user.ID)
	require.NoError(t, err)
	// closed today -20, sell opened today at 1.10000 marked at ask 1.10020: -20
	assert.True(t, profit.Equal(d("-40")), profit.String())
}

func TestSummaryGroupsByInstrument(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.open(t, f.eurusd, model.DirectionBuy, "0.10")
	f.open(t, f.btcusd, model.DirectionBuy, "0.05")
	f.open(t, f.eurusd, model.DirectionSell, "0.20")

	f.quotes.Set("EURUSD", "1.10120", "1.10140")

	summary, err := f.portfolio.Summary(ctx, f.user.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, summary.TotalPositions)
	assert.True(t, summary.TotalVolume.Equal(d("0.35")))
	assert.Equal(t, 1, summary.ProfitPositions)
	assert.Equal(t, 2, summary.LossPositions)

	require.Len(t, summary.Instruments, 2)
	assert.Equal(t, "EURUSD", summary.Instruments[0].Symbol)
	assert.Equal(t, 2, summary.Instruments[0].Positions)
	assert.True(t, summary.Instruments[0].Volume.Equal(d("0.30")))
	assert.Equal(t, "BTCUSD", summary.Instruments[1].Symbol)

	// eurusd buy +100, eurusd sell (1.10000 - 1.10140) / 0.00001 * 10 * 0.20 = -280
	assert.True(t, summary.TotalProfit.Equal(d("100")), summary.TotalProfit.String())
	assert.True(t, summary.Instruments[0].Profit.Equal(d("-180")), summary.Instruments[0].Profit.String())
}

func TestHistoryPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		p := f.open(t, f.eurusd, model.DirectionBuy, "0.10")
		_, err := f.engine.ClosePosition(ctx, f.user.ID, p.ID)
		require.NoError(t, err)
	}
	f.open(t, f.eurusd, model.DirectionBuy, "0.10")

	page, err := f.portfolio.History(ctx, f.user.ID, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)
	assert.Equal(t, 2, page.LastPage)
	assert.Len(t, page.Data, 2)

	page, err = f.portfolio.History(ctx, f.user.ID, 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Data, 1)

	page, err = f.portfolio.History(ctx, f.user.ID, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Equal(t, 15, page.PerPage)
	assert.Len(t, page.Data, 3)
}

func TestPositionAndDashboard(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p := f.open(t, f.eurusd, model.DirectionBuy, "0.10")
	f.quotes.Set("EURUSD", "1.10120", "1.10140")

	op, err := f.portfolio.Position(ctx, f.user.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, op.CurrentProfit.Equal(d("100")))
	// 100 + swap 0 - commission 11.00
	assert.True(t, op.TotalResult.Equal(d("89")), op.TotalResult.String())

	_, err = f.portfolio.Position(ctx, f.user.ID, p.ID+100)
	require.ErrorIs(t, err, trading.ErrNotFound)

	dash, err := f.portfolio.Dashboard(ctx, f.user.ID)
	require.NoError(t, err)
	assert.Len(t, dash.Positions, 1)
	assert.Len(t, dash.RecentTrades, 1)
	assert.NotEmpty(t, dash.PopularInstruments)
	assert.True(t, dash.AccountSummary.Equity.Equal(d("10100")))
}

func TestUnknownUser(t *testing.T) {
	f := newFixture(t)

	_, err := f.portfolio.Snapshot(context.Background(), 424242)
	require.ErrorIs(t, err, trading.ErrNotFound)
}

func TestNewServiceRejectsBadTimezone(t *testing.T) {
	_, err := NewService(nil, Config{Timezone: "Mars/Olympus"}, &stubQuotes{})
	require.Error(t, err)
}
