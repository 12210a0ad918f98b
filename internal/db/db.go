// Package db opens the ledger's gorm handle. SQLite is the default embedded
// substrate; MySQL is selectable by config for shared deployments.
//
// The SQLite file assumes a single writer process: there is no cross-process
// locking beyond what SQLite itself provides.
package db

import (
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"imgbridge/internal/config"
	"imgbridge/internal/ledger"
)

func Connect(cfg config.LedgerConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(cfg.Driver) {
	case "", "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unknown ledger driver %q", cfg.Driver)
	}

	gdb, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open ledger db: %w", err)
	}

	if err := gdb.AutoMigrate(&ledger.Generation{}, &ledger.GenerationImage{}); err != nil {
		return nil, fmt.Errorf("migrate ledger: %w", err)
	}
	return gdb, nil
}
