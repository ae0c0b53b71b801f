package main

import (
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/cache"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/clock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/config"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/events"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/lock"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/migration"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/observability"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/scheduler"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/server"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/internal/uow"
	"github.com/LinhLe9/CoreTrack-business-resource-management-system-sub001/pkg/db"
	"github.com/bwmarrin/snowflake"
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
		cache.Module,
		lock.Module,
		uow.Module,
		events.Module,
		migration.Module,

		// HTTP API and the domain services behind it
		server.Module,

		// Outbox relay
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
