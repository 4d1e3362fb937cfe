package database

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ridloal/agri-traceability/internal/platform/logger"
)

// OpenSQLite membuka database SQLite lewat gorm untuk deployment satu node.
// Koneksi dibatasi satu supaya transaksi berjalan serial (SQLite hanya
// mengizinkan satu writer, dan ":memory:" berbeda per koneksi).
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sqlite handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	logger.Info("Opened sqlite database at %s", path)
	return db, nil
}
