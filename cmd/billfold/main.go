package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"github.com/billfold/billfold/internal/audit"
	"github.com/billfold/billfold/internal/auth"
	"github.com/billfold/billfold/internal/clock"
	"github.com/billfold/billfold/internal/config"
	"github.com/billfold/billfold/internal/dashboard"
	"github.com/billfold/billfold/internal/events"
	"github.com/billfold/billfold/internal/invoice"
	"github.com/billfold/billfold/internal/migration"
	"github.com/billfold/billfold/internal/observability"
	"github.com/billfold/billfold/internal/seed"
	"github.com/billfold/billfold/internal/server"
	"github.com/billfold/billfold/internal/storage"
	"github.com/billfold/billfold/pkg/db"
)

var version = "dev"

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func() *snowflake.Node {
			node, err := snowflake.NewNode(1)
			if err != nil {
				panic(err)
			}
			return node
		}),
		clock.Module,
		db.Module,
		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := migration.RunMigrations(sqlDB); err != nil {
				return err
			}
			if !cfg.IsProduction() && cfg.Bootstrap.EnsureDefaultUser {
				return seed.EnsureDefaultUser(conn, cfg.Bootstrap.DefaultUserEmail, cfg.Bootstrap.DefaultUserPassword)
			}
			return nil
		}),
		events.Module,
		storage.Module,
		auth.Module,
		invoice.Module,
		dashboard.Module,
		audit.Module,
		server.Module,
	)
	app.Run()
}
