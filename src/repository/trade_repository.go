package repository

import (
	"context"
	"errors"
	"time"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TradeRepository handles the trade ledger.
type TradeRepository struct {
	db *gorm.DB
}

func NewTradeRepositoryWithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

func (r *TradeRepository) WithDB(db *gorm.DB) *TradeRepository {
	return &TradeRepository{db: db}
}

// TradeHistoryOptions pages through settled ledger entries.
type TradeHistoryOptions struct {
	UserID uint
	Limit  int
	Offset int
}

func (r *TradeRepository) Create(ctx context.Context, t *model.Trade) error {
	logger.WithFields(map[string]interface{}{
		"repo":       "TradeRepository",
		"op":         "Create",
		"ticket":     t.Ticket,
		"order_type": t.OrderType,
		"status":     t.Status,
	}).Debug("Creating trade")

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "TradeRepository",
			"op":     "Create",
			"ticket": t.Ticket,
		}).WithError(err).Error("Failed to create trade")
		return err
	}
	return nil
}

// FindByIDForUser returns (nil, nil) if the trade is not found for this user.
func (r *TradeRepository) FindByIDForUser(ctx context.Context, userID, id uint) (*model.Trade, error) {
	var t model.Trade
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&t).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &t, nil
}

// FindByPosition lists every ledger entry of a position.
func (r *TradeRepository) FindByPosition(ctx context.Context, positionID uint) ([]model.Trade, error) {
	var rows []model.Trade
	err := r.db.WithContext(ctx).
		Where("position_id = ?", positionID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// CloseOpenByPosition settles the open trades linked to a position.
func (r *TradeRepository) CloseOpenByPosition(
	ctx context.Context,
	positionID uint,
	closePrice decimal.Decimal,
	profit decimal.Decimal,
	closedAt time.Time,
) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("position_id = ? AND status = ?", positionID, model.TradeStatusOpen).
		Updates(map[string]interface{}{
			"status":      model.TradeStatusClosed,
			"close_price": closePrice,
			"close_time":  closedAt,
			"profit":      profit,
		})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":        "TradeRepository",
			"op":          "CloseOpenByPosition",
			"position_id": positionID,
		}).WithError(res.Error).Error("Failed to close trades")
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

// UpdateStopsByPosition mirrors stop_loss/take_profit onto the open trades of a position.
func (r *TradeRepository) UpdateStopsByPosition(ctx context.Context, positionID uint, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("position_id = ? AND status = ?", positionID, model.TradeStatusOpen).
		Updates(fields).Error
}

// CancelIfPending flips a resting order to cancelled. False means it was no longer pending.
func (r *TradeRepository) CancelIfPending(ctx context.Context, id uint, cancelledAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("id = ? AND status = ?", id, model.TradeStatusPending).
		Updates(map[string]interface{}{
			"status":     model.TradeStatusCancelled,
			"close_time": cancelledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// SumClosedProfitSince adds up realized profit of trades closed at or after since.
func (r *TradeRepository) SumClosedProfitSince(ctx context.Context, userID uint, since time.Time) (decimal.Decimal, error) {
	var profits []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.Trade{}).
		Where("user_id = ? AND status = ? AND close_time >= ?", userID, model.TradeStatusClosed, since).
		Pluck("profit", &profits).Error
	if err != nil {
		return decimal.Zero, err
	}

	total := decimal.Zero
	for _, p := range profits {
		total = total.Add(p)
	}
	return total, nil
}

// Recent returns the newest ledger entries of any status.
func (r *TradeRepository) Recent(ctx context.Context, userID uint, limit int) ([]model.Trade, error) {
	var rows []model.Trade
	err := r.db.WithContext(ctx).
		Preload("Instrument").
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// History returns closed and cancelled trades, newest first, plus the total count.
func (r *TradeRepository) History(ctx context.Context, options TradeHistoryOptions) ([]model.Trade, int64, error) {
	settled := func() *gorm.DB {
		return r.db.WithContext(ctx).
			Model(&model.Trade{}).
			Where("user_id = ? AND status IN ?", options.UserID, []string{model.TradeStatusClosed, model.TradeStatusCancelled})
	}

	var total int64
	if err := settled().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []model.Trade
	q := settled().Preload("Instrument").Order("close_time DESC, id DESC")
	if options.Limit > 0 {
		q = q.Limit(options.Limit)
	}
	if options.Offset > 0 {
		q = q.Offset(options.Offset)
	}
	if err := q.Find(&rows).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "TradeRepository",
			"op":      "History",
			"user_id": options.UserID,
		}).WithError(err).Error("Failed to load trade history")
		return nil, 0, err
	}

	return rows, total, nil
}
