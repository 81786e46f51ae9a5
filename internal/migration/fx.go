package migration

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, log *zap.Logger) error {
		if err := AutoMigrate(conn); err != nil {
			return err
		}

		if conn.Dialector.Name() == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			log.Warn("index migrations only run on postgres", zap.String("dialect", conn.Dialector.Name()))
		}

		ctx := context.Background()
		if err := seed.EnsureBusinessTypes(ctx, conn, node); err != nil {
			return err
		}
		return seed.EnsureStaffAdmin(ctx, conn, node, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
	}),
)
