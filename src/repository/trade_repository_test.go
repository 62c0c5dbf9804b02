package repository

import (
	"context"
	"testing"
	"time"

	"demotrader/src/database/dbtest"
	"demotrader/src/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newTrade(userID, instrumentID uint, status string, profit string, closedAt *time.Time) *model.Trade {
	return &model.Trade{
		Ticket:       uuid.NewString(),
		UserID:       userID,
		InstrumentID: instrumentID,
		Direction:    model.DirectionBuy,
		OrderType:    model.OrderTypeMarket,
		Volume:       decimal.RequireFromString("0.10"),
		OpenPrice:    decimal.RequireFromString("1.10000"),
		OpenTime:     time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC),
		CloseTime:    closedAt,
		Profit:       decimal.RequireFromString(profit),
		Status:       status,
	}
}

func TestTradeRepositoryHistoryAndProfit(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewTradeRepositoryWithDB(db)
	ctx := context.Background()

	user := dbtest.User(t, db, "dave", "5000")
	eur := dbtest.Instrument(t, db, "EURUSD")

	yesterday := time.Date(2024, 3, 4, 15, 0, 0, 0, time.UTC)
	morning := time.Date(2024, 3, 5, 8, 0, 0, 0, time.UTC)
	noon := time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Create(ctx, newTrade(user.ID, eur.ID, model.TradeStatusClosed, "5.5", &yesterday)))
	require.NoError(t, repo.Create(ctx, newTrade(user.ID, eur.ID, model.TradeStatusClosed, "10", &morning)))
	require.NoError(t, repo.Create(ctx, newTrade(user.ID, eur.ID, model.TradeStatusClosed, "-3.25", &noon)))
	require.NoError(t, repo.Create(ctx, newTrade(user.ID, eur.ID, model.TradeStatusOpen, "0", nil)))

	today := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	sum, err := repo.SumClosedProfitSince(ctx, user.ID, today)
	require.NoError(t, err)
	require.True(t, sum.Equal(decimal.RequireFromString("6.75")), sum.String())

	rows, total, err := repo.History(ctx, TradeHistoryOptions{UserID: user.ID, Limit: 2})
	require.NoError(t, err)
	require.Equal(t, int64(3), total)
	require.Len(t, rows, 2)
	require.True(t, rows[0].CloseTime.Equal(noon))
	require.True(t, rows[1].CloseTime.Equal(morning))
	require.NotNil(t, rows[0].Instrument)
	require.Equal(t, "EURUSD", rows[0].Instrument.Symbol)

	rows, _, err = repo.History(ctx, TradeHistoryOptions{UserID: user.ID, Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.True(t, rows[0].CloseTime.Equal(yesterday))
}

func TestTradeRepositoryCancelIfPending(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewTradeRepositoryWithDB(db)
	ctx := context.Background()

	user := dbtest.User(t, db, "erin", "5000")
	eur := dbtest.Instrument(t, db, "EURUSD")

	pending := newTrade(user.ID, eur.ID, model.TradeStatusPending, "0", nil)
	pending.OrderType = model.OrderTypeLimit
	require.NoError(t, repo.Create(ctx, pending))

	at := time.Date(2024, 3, 5, 11, 0, 0, 0, time.UTC)
	ok, err := repo.CancelIfPending(ctx, pending.ID, at)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.CancelIfPending(ctx, pending.ID, at)
	require.NoError(t, err)
	require.False(t, ok)

	got, err := repo.FindByIDForUser(ctx, user.ID, pending.ID)
	require.NoError(t, err)
	require.Equal(t, model.TradeStatusCancelled, got.Status)
}

func TestTradeRepositoryCloseOpenByPosition(t *testing.T) {
	db := dbtest.Open(t)
	positions := NewPositionRepositoryWithDB(db)
	repo := NewTradeRepositoryWithDB(db)
	ctx := context.Background()

	user := dbtest.User(t, db, "frank", "5000")
	eur := dbtest.Instrument(t, db, "EURUSD")
	p := newOpenPosition(t, positions, user.ID, eur.ID, time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC))

	tr := newTrade(user.ID, eur.ID, model.TradeStatusOpen, "0", nil)
	tr.PositionID = &p.ID
	require.NoError(t, repo.Create(ctx, tr))

	closedAt := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)
	n, err := repo.CloseOpenByPosition(ctx, p.ID, decimal.RequireFromString("1.1010"), decimal.RequireFromString("10"), closedAt)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	linked, err := repo.FindByPosition(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	require.Equal(t, model.TradeStatusClosed, linked[0].Status)
	require.NotNil(t, linked[0].ClosePrice)
	require.True(t, linked[0].ClosePrice.Equal(decimal.RequireFromString("1.101")))
}
