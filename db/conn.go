// Package db opens the database the app keeps users and pending
// verifications in
package db

import (
	"carlyn/auth-api/internal/model"
	"carlyn/auth-api/pkg/util"
	"errors"
	"fmt"
	"os"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var ErrUnknownDriver = errors.New("unknown database driver")

// Open connects to the database described by driver and dsn and migrates
// the schema. Supported drivers are "sqlite" and "postgres".
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch driver {
	case "sqlite":
		// If running in a docker container don't allow the sqlite file to be created.
		// The host should instead mount it using volumes
		if util.IsRunningInDocker() && !strings.Contains(dsn, "mode=memory") {
			if _, err := os.Stat(dsn); errors.Is(err, os.ErrNotExist) {
				return nil, fmt.Errorf("SQLite database file not mounted, please use docker volumes to mount it to %v", dsn)
			}
		}

		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w, %v", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize %v database, %w", driver, err)
	}

	if driver == "sqlite" {
		// SQLite allows one writer, serialize through a single connection
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(1)
	}

	err = db.AutoMigrate(model.User{}, model.PendingVerification{})
	if err != nil {
		return nil, fmt.Errorf("failed to automigrate tables, %w", err)
	}

	return db, nil
}
