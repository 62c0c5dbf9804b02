// Package dbtest opens throwaway sqlite databases with the full schema and seed data.
package dbtest

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"demotrader/src/database"
	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var opened atomic.Uint64

// Open returns a fresh in-memory database named after the test, migrated and seeded.
// Every call gets its own database, also within one test.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", name, opened.Add(1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

// Instrument loads a seeded instrument by symbol.
func Instrument(t testing.TB, db *gorm.DB, symbol string) *model.Instrument {
	t.Helper()

	var inst model.Instrument
	require.NoError(t, db.WithContext(context.Background()).Where("symbol = ?", symbol).First(&inst).Error)
	return &inst
}

// User creates a demo account with the given balance.
func User(t testing.TB, db *gorm.DB, name string, balance string) *model.User {
	t.Helper()

	u := &model.User{
		Username:        name,
		Email:           name + "@example.com",
		AccountBalance:  decimal.RequireFromString(balance),
		AccountCurrency: model.DefaultAccountCurrency,
		AccountType:     model.AccountTypeDemo,
		DemoAccount:     true,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// Reload reads the user again, for balance assertions.
func Reload(t testing.TB, db *gorm.DB, id uint) *model.User {
	t.Helper()

	var u model.User
	require.NoError(t, db.First(&u, id).Error)
	return &u
}
