package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/seftec/platform/internal/clock"
	"github.com/seftec/platform/internal/migration"
	"github.com/seftec/platform/internal/observability"
	"github.com/seftec/platform/internal/server"
	"github.com/seftec/platform/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,

		migration.Module,
		server.Module,
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
