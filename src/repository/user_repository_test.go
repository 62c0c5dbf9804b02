package repository

import (
	"context"
	"regexp"
	"testing"

	"demotrader/src/database/dbtest"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestUserRepositoryAddToBalanceIssuesRelativeUpdate(t *testing.T) {
	mockDB, mock := newMockDB(t)
	repo := NewUserRepositoryWithDB(mockDB)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE "users" SET "account_balance"=account_balance + $1`)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	rows, err := repo.AddToBalance(context.Background(), 7, decimal.RequireFromString("12.50"))
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryBalanceRoundTrip(t *testing.T) {
	db := dbtest.Open(t)
	repo := NewUserRepositoryWithDB(db)
	ctx := context.Background()

	u := dbtest.User(t, db, "alice", "1000")

	rows, err := repo.AddToBalance(ctx, u.ID, decimal.RequireFromString("-250.25"))
	require.NoError(t, err)
	require.Equal(t, int64(1), rows)

	got, err := repo.FindByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, got.AccountBalance.Equal(decimal.RequireFromString("749.75")), got.AccountBalance.String())

	rows, err = repo.AddToBalance(ctx, 99999, decimal.NewFromInt(1))
	require.NoError(t, err)
	require.Zero(t, rows)

	missing, err := repo.FindByIDForUpdate(ctx, 99999)
	require.NoError(t, err)
	require.Nil(t, missing)
}
