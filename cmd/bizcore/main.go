package main

import (
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/migration"
	"github.com/smallbiznis/bizcore/internal/observability"
	"github.com/smallbiznis/bizcore/internal/scheduler"
	"github.com/smallbiznis/bizcore/internal/server"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// HTTP API and every domain service
		server.Module,

		// Background rollups
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
