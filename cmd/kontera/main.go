package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/kontera/internal/assignmentrule"
	"github.com/smallbiznis/kontera/internal/budget"
	"github.com/smallbiznis/kontera/internal/clock"
	"github.com/smallbiznis/kontera/internal/config"
	"github.com/smallbiznis/kontera/internal/contact"
	"github.com/smallbiznis/kontera/internal/costcenter"
	"github.com/smallbiznis/kontera/internal/document"
	"github.com/smallbiznis/kontera/internal/migration"
	"github.com/smallbiznis/kontera/internal/observability"
	"github.com/smallbiznis/kontera/internal/product"
	"github.com/smallbiznis/kontera/internal/scheduler"
	"github.com/smallbiznis/kontera/internal/server"
	"github.com/smallbiznis/kontera/pkg/db"
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

		costcenter.Module,
		contact.Module,
		product.Module,
		assignmentrule.Module,
		document.Module,
		budget.Module,

		server.Module,
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
