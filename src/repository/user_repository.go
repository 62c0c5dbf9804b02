package repository

import (
	"context"
	"errors"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormUserRepository struct {
	db *gorm.DB
}

func NewUserRepositoryWithDB(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// WithDB allows running the repository on a transaction.
func (r *GormUserRepository) WithDB(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

// FindByID returns (nil, nil) if the user is not found.
func (r *GormUserRepository) FindByID(ctx context.Context, id uint) (*model.User, error) {
	return r.findByID(ctx, id, false)
}

// FindByIDForUpdate locks the user row until the surrounding transaction ends.
// Returns (nil, nil) if the user is not found.
func (r *GormUserRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.User, error) {
	return r.findByID(ctx, id, true)
}

func (r *GormUserRepository) findByID(ctx context.Context, id uint, lock bool) (*model.User, error) {
	query := r.db.WithContext(ctx)
	if lock {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var u model.User
	if err := query.First(&u, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		logger.WithFields(map[string]interface{}{
			"repo": "GormUserRepository",
			"op":   "FindByID",
			"id":   id,
			"lock": lock,
		}).WithError(err).Error("Failed to fetch user")
		return nil, err
	}
	return &u, nil
}

// AddToBalance applies a relative change to the balance in SQL, never read-modify-write.
// It returns the number of affected rows so callers can detect a vanished account.
func (r *GormUserRepository) AddToBalance(ctx context.Context, id uint, amount decimal.Decimal) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("id = ?", id).
		Update("account_balance", gorm.Expr("account_balance + ?", amount))

	if res.Error != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "GormUserRepository",
			"op":     "AddToBalance",
			"id":     id,
			"amount": amount.String(),
		}).WithError(res.Error).Error("Failed to update balance")
		return 0, res.Error
	}

	return res.RowsAffected, nil
}

func (r *GormUserRepository) Create(ctx context.Context, u *model.User) error {
	return r.db.WithContext(ctx).Create(u).Error
}
