package repository

import (
	"context"
	"errors"
	"time"

	"demotrader/src/model"
	"demotrader/src/utils"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrInvalidInterval = errors.New("invalid interval. must be a whole multiple of 1m")

type OHLCVRepository struct {
	db *gorm.DB
}

func NewOHLCVRepositoryWithDB(db *gorm.DB) *OHLCVRepository {
	return &OHLCVRepository{
		db: db,
	}
}

// Upsert stores bars; on conflict on (symbol, timeframe, datetime) prices and volume are refreshed.
func (s *OHLCVRepository) Upsert(ctx context.Context, bars []model.OHLCVBar) error {
	if len(bars) == 0 {
		return nil
	}

	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "timeframe"}, {Name: "datetime"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&bars).Error
}

// LatestDatetime returns the newest stored bucket, or nil when nothing is stored.
func (s *OHLCVRepository) LatestDatetime(ctx context.Context, symbol string, tf model.Timeframe) (*time.Time, error) {
	var latest model.OHLCVBar
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ?", symbol, tf).
		Order("datetime DESC").
		First(&latest).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	t := latest.Datetime.UTC()
	return &t, nil
}

// FindRange returns stored bars with from <= datetime <= to in ascending order.
// When the exact timeframe is missing, 1m bars are aggregated up to it.
func (s *OHLCVRepository) FindRange(
	ctx context.Context,
	symbol string,
	tf model.Timeframe,
	from, to time.Time,
) ([]model.Bar, error) {
	rows, err := s.fetch(ctx, symbol, tf, from, to)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 && tf != model.Timeframe1m {
		minutes, err := s.fetch(ctx, symbol, model.Timeframe1m, from, to)
		if err != nil {
			return nil, err
		}
		return AggregateBars(toBars(minutes), tf.Duration())
	}

	return toBars(rows), nil
}

func (s *OHLCVRepository) fetch(
	ctx context.Context,
	symbol string,
	tf model.Timeframe,
	from, to time.Time,
) ([]model.OHLCVBar, error) {
	var rows []model.OHLCVBar
	err := s.db.WithContext(ctx).
		Where("symbol = ? AND timeframe = ? AND datetime >= ? AND datetime <= ?", symbol, tf, from.UTC(), to.UTC()).
		Order("datetime ASC").
		Find(&rows).Error
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":      "OHLCVRepository",
			"op":        "FindRange",
			"symbol":    symbol,
			"timeframe": tf,
		}).WithError(err).Error("Failed to fetch bars")
		return nil, err
	}
	return rows, nil
}

func toBars(rows []model.OHLCVBar) []model.Bar {
	out := make([]model.Bar, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToBar())
	}
	return out
}

// AggregateBars folds ascending bars into wall-clock buckets of the given width.
func AggregateBars(bars []model.Bar, interval time.Duration) ([]model.Bar, error) {
	if interval < time.Minute || interval%time.Minute != 0 {
		return nil, ErrInvalidInterval
	}

	if len(bars) == 0 {
		return []model.Bar{}, nil
	}

	out := make([]model.Bar, 0, len(bars)/int(interval.Minutes())+2)

	var cur model.Bar
	hasCur := false

	for _, b := range bars {
		bucket := utils.AlignToInterval(b.Time, interval)

		if !hasCur || !bucket.Equal(cur.Time) {
			if hasCur {
				out = append(out, cur)
			}
			hasCur = true
			cur = model.Bar{
				Time:   bucket,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			continue
		}

		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}

	if hasCur {
		out = append(out, cur)
	}

	return out, nil
}
