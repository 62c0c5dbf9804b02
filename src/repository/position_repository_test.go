package repository

import (
	"context"
	"testing"
	"time"

	"demotrader/src/database/dbtest"
	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func newOpenPosition(t *testing.T, repo *PositionRepository, userID, instrumentID uint, openedAt time.Time) *model.Position {
	t.Helper()

	p := &model.Position{
		UserID:       userID,
		InstrumentID: instrumentID,
		Direction:    model.DirectionBuy,
		Volume:       decimal.RequireFromString("0.10"),
		OpenPrice:    decimal.RequireFromString("1.10000"),
		CurrentPrice: decimal.RequireFromString("1.10000"),
		OpenTime:     openedAt,
		Status:       model.PositionStatusOpen,
	}
	require.NoError(t, repo.Create(context.Background(), p))
	return p
}

func TestPositionRepositoryCloseIfOpenIsOneShot(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewPositionRepositoryWithDB(db)
	ctx := context.Background()

	user := dbtest.User(t, db, "bob", "5000")
	eur := dbtest.Instrument(t, db, "EURUSD")
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	p := newOpenPosition(t, repo, user.ID, eur.ID, now)

	closed, err := repo.CloseIfOpen(ctx, p.ID, decimal.RequireFromString("1.10100"), decimal.RequireFromString("10"), now.Add(time.Hour))
	require.NoError(t, err)
	require.True(t, closed)

	closed, err = repo.CloseIfOpen(ctx, p.ID, decimal.RequireFromString("1.20000"), decimal.RequireFromString("999"), now.Add(2*time.Hour))
	require.NoError(t, err)
	require.False(t, closed)

	got, err := repo.FindByIDForUser(ctx, user.ID, p.ID)
	require.NoError(t, err)
	require.Equal(t, model.PositionStatusClosed, got.Status)
	require.True(t, got.Profit.Equal(decimal.NewFromInt(10)))
	require.NotNil(t, got.CloseTime)

	open, err := repo.UpdateStopsIfOpen(ctx, p.ID, map[string]interface{}{"stop_loss": decimal.RequireFromString("1.09")})
	require.NoError(t, err)
	require.False(t, open)
}

func TestPositionRepositoryOwnershipAndListing(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewPositionRepositoryWithDB(db)
	ctx := context.Background()

	alice := dbtest.User(t, db, "alice", "5000")
	carol := dbtest.User(t, db, "carol", "5000")
	eur := dbtest.Instrument(t, db, "EURUSD")
	now := time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)

	first := newOpenPosition(t, repo, alice.ID, eur.ID, now)
	second := newOpenPosition(t, repo, alice.ID, eur.ID, now.Add(time.Minute))
	newOpenPosition(t, repo, carol.ID, eur.ID, now)

	foreign, err := repo.FindByIDForUser(ctx, carol.ID, first.ID)
	require.NoError(t, err)
	require.Nil(t, foreign)

	require.NoError(t, repo.MarkPrice(ctx, second.ID, decimal.RequireFromString("1.10250")))

	rows, err := repo.FindOpenByUser(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, first.ID, rows[0].ID)
	require.True(t, rows[1].CurrentPrice.Equal(decimal.RequireFromString("1.1025")))

	ids, err := repo.UserIDsWithOpenPositions(ctx)
	require.NoError(t, err)
	require.Equal(t, []uint{alice.ID, carol.ID}, ids)
}
