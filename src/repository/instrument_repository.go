package repository

import (
	"context"
	"errors"

	"demotrader/src/model"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// InstrumentRepository reads the instrument catalog.
type InstrumentRepository struct {
	db *gorm.DB
}

func NewInstrumentRepositoryWithDB(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

func (r *InstrumentRepository) WithDB(db *gorm.DB) *InstrumentRepository {
	return &InstrumentRepository{db: db}
}

// InstrumentFilter narrows ListActive.
type InstrumentFilter struct {
	Type        model.InstrumentType
	PopularOnly bool
}

// FindByID returns (nil, nil) if the instrument is not found.
func (r *InstrumentRepository) FindByID(ctx context.Context, id uint) (*model.Instrument, error) {
	var inst model.Instrument
	err := r.db.WithContext(ctx).First(&inst, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "InstrumentRepository",
			"op":   "FindByID",
			"id":   id,
		}).WithError(err).Error("Failed to fetch instrument")
		return nil, err
	}
	return &inst, nil
}

// FindBySymbol returns (nil, nil) if the symbol is unknown.
func (r *InstrumentRepository) FindBySymbol(ctx context.Context, symbol string) (*model.Instrument, error) {
	var inst model.Instrument
	err := r.db.WithContext(ctx).
		Where("symbol = ?", symbol).
		First(&inst).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo":   "InstrumentRepository",
			"op":     "FindBySymbol",
			"symbol": symbol,
		}).WithError(err).Error("Failed to fetch instrument")
		return nil, err
	}
	return &inst, nil
}

// FindByIDs loads several instruments keyed by id.
func (r *InstrumentRepository) FindByIDs(ctx context.Context, ids []uint) (map[uint]*model.Instrument, error) {
	out := make(map[uint]*model.Instrument, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []model.Instrument
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ID] = &rows[i]
	}
	return out, nil
}

// ListActive returns active instruments ordered by type then symbol.
func (r *InstrumentRepository) ListActive(ctx context.Context, filter InstrumentFilter) ([]model.Instrument, error) {
	query := r.db.WithContext(ctx).Where("is_active = ?", true)

	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	if filter.PopularOnly {
		query = query.Where("is_popular = ?", true)
	}

	var rows []model.Instrument
	if err := query.Order("type ASC, symbol ASC").Find(&rows).Error; err != nil {
		logger.WithFields(map[string]interface{}{
			"repo": "InstrumentRepository",
			"op":   "ListActive",
		}).WithError(err).Error("Failed to list instruments")
		return nil, err
	}
	return rows, nil
}
