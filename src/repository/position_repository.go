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

// PositionRepository handles the live-state position rows.
type PositionRepository struct {
	db *gorm.DB
}

func NewPositionRepositoryWithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *PositionRepository) WithDB(db *gorm.DB) *PositionRepository {
	return &PositionRepository{db: db}
}

// Create inserts the position without touching its associations.
func (r *PositionRepository) Create(ctx context.Context, p *model.Position) error {
	logger.WithFields(map[string]interface{}{
		"repo":          "PositionRepository",
		"op":            "Create",
		"user_id":       p.UserID,
		"instrument_id": p.InstrumentID,
		"direction":     p.Direction,
		"volume":        p.Volume.String(),
	}).Debug("Creating position")

	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(p).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "Create",
		}).WithError(err).Error("Failed to create position")
		return err
	}
	return nil
}

// FindByIDForUser returns (nil, nil) when the position does not exist or belongs to someone else.
func (r *PositionRepository) FindByIDForUser(ctx context.Context, userID, id uint) (*model.Position, error) {
	var p model.Position
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "FindByIDForUser",
			"id":      id,
			"user_id": userID,
		}).WithError(err).Error("Failed to fetch position")
		return nil, err
	}
	return &p, nil
}

// FindOpenByUser lists open positions oldest first.
func (r *PositionRepository) FindOpenByUser(ctx context.Context, userID uint) ([]model.Position, error) {
	var rows []model.Position
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND status = ?", userID, model.PositionStatusOpen).
		Order("id ASC").
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":    "PositionRepository",
			"op":      "FindOpenByUser",
			"user_id": userID,
		}).WithError(err).Error("Failed to list open positions")
		return nil, err
	}
	return rows, nil
}

// CloseIfOpen flips an open position to closed. It is the compare-and-swap guarding settlement:
// zero affected rows means another caller closed it first.
func (r *PositionRepository) CloseIfOpen(
	ctx context.Context,
	id uint,
	closePrice decimal.Decimal,
	profit decimal.Decimal,
	closedAt time.Time,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Updates(map[string]interface{}{
			"status":        model.PositionStatusClosed,
			"current_price": closePrice,
			"profit":        profit,
			"close_time":    closedAt,
		})
	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "PositionRepository",
			"op":   "CloseIfOpen",
			"id":   id,
		}).WithError(res.Error).Error("Failed to close position")
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateStopsIfOpen writes the given stop_loss/take_profit columns while the position is still open.
func (r *PositionRepository) UpdateStopsIfOpen(ctx context.Context, id uint, fields map[string]interface{}) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPrice stores the last marked price of an open position.
func (r *PositionRepository) MarkPrice(ctx context.Context, id uint, price decimal.Decimal) error {
	return r.db.WithContext(ctx).
		Model(&model.Position{}).
		Where("id = ? AND status = ?", id, model.PositionStatusOpen).
		Update("current_price", price).Error
}

// UserIDsWithOpenPositions lists every account that currently holds exposure.
func (r *PositionRepository) UserIDsWithOpenPositions(ctx context.Context) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&model.Position{}).
		Distinct().
		Where("status = ?", model.PositionStatusOpen).
		Order("user_id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}
