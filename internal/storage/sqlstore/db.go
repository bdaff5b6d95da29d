package sqlstore

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

var ErrUnknownDriver = errors.New("unknown database driver")

type Conf struct {
	Driver          string
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func Open(conf Conf) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch conf.Driver {
	case DriverPostgres:
		dialector = postgres.Open(conf.DSN)
	case DriverSQLite:
		dialector = sqlite.Open(conf.DSN)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, conf.Driver)
	}

	//nolint:exhaustruct
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gorm open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("db.DB(): %w", err)
	}

	// every connection to an in-memory sqlite database sees its own database
	if conf.Driver == DriverSQLite {
		sqlDB.SetMaxOpenConns(1)
	} else if conf.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(conf.MaxOpenConns)
	}

	if conf.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(conf.MaxIdleConns)
	}

	if conf.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(conf.ConnMaxLifetime)
	}

	return db, nil
}
