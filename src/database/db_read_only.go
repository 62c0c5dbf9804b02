package database

import (
	"fmt"

	"demotrader/src/model"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ReadOnlyDB serves dashboard and portfolio reads. It points at MainDB when no replica is configured.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()

	if config.DatabaseURLReadOnly == "" {
		ReadOnlyDB = MainDB
		logrus.Info("[ReadOnlyDB] no replica configured, reads use MainDB")
		return nil
	}

	db, err := Open(config, config.DatabaseURLReadOnly, true)
	if err != nil {
		return fmt.Errorf("failed to connect to read-only database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	if config.Driver == DriverPostgres {
		var dbName, schema string
		if err := db.
			Raw("SELECT current_database(), current_schema()").
			Row().
			Scan(&dbName, &schema); err != nil {
			return fmt.Errorf("failed to query current db/schema on ReadOnlyDB: %w", err)
		}

		logrus.WithFields(map[string]interface{}{"dbName": dbName, "schema": schema}).Info("[ReadOnlyDB] connected")
	}

	var count int64
	if err := db.Model(&model.Instrument{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access instruments on ReadOnlyDB: %w", err)
	}

	logrus.WithFields(map[string]interface{}{"count": count}).Info("[ReadOnlyDB] instruments reachable")

	ReadOnlyDB = db

	return nil
}
