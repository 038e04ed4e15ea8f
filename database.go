package main

import (
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// initDB opens the database named by databaseURL and migrates the schema.
// postgres:// URLs use the postgres driver; anything else is treated as a
// SQLite file path (the default local store).
func initDB(databaseURL string) (*gorm.DB, error) {
	newLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(openDialector(databaseURL), &gorm.Config{
		Logger: newLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	err = db.AutoMigrate(&User{}, &TorrentUpload{}, &ChatSettings{})
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database schema: %w", err)
	}

	return db, nil
}

func openDialector(databaseURL string) gorm.Dialector {
	if strings.HasPrefix(databaseURL, "postgres://") || strings.HasPrefix(databaseURL, "postgresql://") {
		return postgres.Open(databaseURL)
	}
	// SQLAlchemy-style sqlite:/// prefixes point at a plain file path.
	path := strings.TrimPrefix(databaseURL, "sqlite:///")
	path = strings.TrimPrefix(path, "sqlite://")
	return sqlite.Open(path)
}
