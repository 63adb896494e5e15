package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/salesdesk/internal/clock"
	"github.com/smallbiznis/salesdesk/internal/config"
	"github.com/smallbiznis/salesdesk/internal/migration"
	"github.com/smallbiznis/salesdesk/internal/observability"
	"github.com/smallbiznis/salesdesk/internal/server"
	"github.com/smallbiznis/salesdesk/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
