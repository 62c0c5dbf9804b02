package migrations

import (
	"errors"
	"fmt"

	"demotrader/src/model"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// demoAccountSeeder creates the default demo account with its starting balance.
// The password hash is only consumed by the authentication layer in front of the API.
func demoAccountSeeder(config Config) func(*gorm.DB) error {
	return func(db *gorm.DB) error {
		balance, err := decimal.NewFromString(config.DemoBalance)
		if err != nil {
			return fmt.Errorf("invalid DEMO_BALANCE %q: %w", config.DemoBalance, err)
		}

		var existing model.User
		err = db.Where("user_name = ?", config.DemoUserName).First(&existing).Error
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(config.DemoPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash demo password: %w", err)
		}

		user := model.User{
			Username:        config.DemoUserName,
			Email:           config.DemoEmail,
			Password:        string(hashedPassword),
			AccountBalance:  balance,
			AccountCurrency: model.DefaultAccountCurrency,
			AccountType:     model.AccountTypeDemo,
			DemoAccount:     true,
		}

		return db.Create(&user).Error
	}
}
