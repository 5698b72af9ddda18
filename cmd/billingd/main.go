package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/principalgrid/billing/internal/clock"
	"github.com/principalgrid/billing/internal/config"
	"github.com/principalgrid/billing/internal/db"
	"github.com/principalgrid/billing/internal/logger"
	"github.com/principalgrid/billing/internal/migration"
	"github.com/principalgrid/billing/internal/server"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
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
