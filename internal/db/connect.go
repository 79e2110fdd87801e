// Package db opens GORM connections and manages schema migration.
package db

import (
	"fmt"

	"github.com/ogurtsov/gorodok/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN from storage settings.
func DSN(c config.MySQLConfig) string {
	cred := c.User
	if c.Password != "" {
		cred += ":" + c.Password
	}
	return fmt.Sprintf("%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4", cred, c.Host, c.Port, c.Database)
}

// Connect opens a GORM connection for the configured storage driver.
func Connect(c config.StorageConfig) (*gorm.DB, error) {
	gormCfg := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	switch c.Driver {
	case "mysql":
		db, err := gorm.Open(mysql.Open(DSN(c.MySQL)), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect mysql %s:%d/%s: %w", c.MySQL.Host, c.MySQL.Port, c.MySQL.Database, err)
		}
		return db, nil
	case "sqlite", "":
		db, err := gorm.Open(sqlite.Open(c.Path), gormCfg)
		if err != nil {
			return nil, fmt.Errorf("db: open sqlite %s: %w", c.Path, err)
		}
		return db, nil
	default:
		return nil, fmt.Errorf("db: unknown driver %q", c.Driver)
	}
}
