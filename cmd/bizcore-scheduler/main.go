package main

import (
	_ "time/tzdata"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/bizcore/internal/analytics"
	"github.com/smallbiznis/bizcore/internal/clock"
	"github.com/smallbiznis/bizcore/internal/config"
	"github.com/smallbiznis/bizcore/internal/observability"
	"github.com/smallbiznis/bizcore/internal/scheduler"
	"github.com/smallbiznis/bizcore/pkg/db"
	"go.uber.org/fx"
)

// The worker runs the analytics rollups without the HTTP API. Run the API
// with SCHEDULER_ENABLED=false when this binary is deployed next to it.
func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		// Domain services required by scheduler
		analytics.Module,

		// No server module!
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
