package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoiced/internal/clock"
	"github.com/smallbiznis/invoiced/internal/config"
	"github.com/smallbiznis/invoiced/internal/customer"
	"github.com/smallbiznis/invoiced/internal/dashboard"
	"github.com/smallbiznis/invoiced/internal/invoice"
	"github.com/smallbiznis/invoiced/internal/migration"
	"github.com/smallbiznis/invoiced/internal/observability"
	"github.com/smallbiznis/invoiced/internal/payment"
	"github.com/smallbiznis/invoiced/internal/product"
	"github.com/smallbiznis/invoiced/internal/providers/pdf"
	"github.com/smallbiznis/invoiced/internal/ratelimit"
	"github.com/smallbiznis/invoiced/internal/scheduler"
	"github.com/smallbiznis/invoiced/internal/server"
	"github.com/smallbiznis/invoiced/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Domain services
		customer.Module,
		product.Module,
		invoice.Module,
		payment.Module,
		dashboard.Module,

		// Supporting providers
		ratelimit.Module,
		pdf.Module,

		// HTTP surface and background jobs
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
