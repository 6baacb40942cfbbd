// Package db wires the gorm database connection into the fx graph.
package db

import (
	"context"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/billfold/billfold/internal/config"
)

const localDSN = "file:billfold.db?_pragma=foreign_keys(1)"

// New opens the database connection. Postgres when BILLFOLD_DATABASE_URL is
// set, a local sqlite file otherwise.
func New(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) (*gorm.DB, error) {
	dialector := dialectorFor(cfg)

	conn, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return sqlDB.PingContext(ctx)
		},
		OnStop: func(context.Context) error {
			log.Info("closing database connection")
			return sqlDB.Close()
		},
	})

	return conn, nil
}

func dialectorFor(cfg config.Config) gorm.Dialector {
	dsn := strings.TrimSpace(cfg.DatabaseURL)
	if dsn == "" {
		return sqlite.Open(localDSN)
	}
	if strings.HasPrefix(dsn, "sqlite:") {
		return sqlite.Open(strings.TrimPrefix(dsn, "sqlite:"))
	}
	return postgres.Open(dsn)
}

var Module = fx.Module("db",
	fx.Provide(New),
)
