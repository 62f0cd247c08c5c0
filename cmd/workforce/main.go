package main

import (
	"go.uber.org/fx"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/clock"
	"github.com/smallbiznis/workforce/internal/config"
	"github.com/smallbiznis/workforce/internal/department"
	"github.com/smallbiznis/workforce/internal/employee"
	"github.com/smallbiznis/workforce/internal/jobs"
	"github.com/smallbiznis/workforce/internal/migration"
	"github.com/smallbiznis/workforce/internal/observability"
	"github.com/smallbiznis/workforce/internal/report"
	"github.com/smallbiznis/workforce/internal/scheduler"
	"github.com/smallbiznis/workforce/internal/seed"
	"github.com/smallbiznis/workforce/internal/server"
	"github.com/smallbiznis/workforce/pkg/db"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		clock.Module,
		db.Module,
		cache.Module,
		migration.Module,
		seed.Module,

		// Domains
		department.Module,
		employee.Module,
		report.Module,

		// Background work
		jobs.Module,
		scheduler.Module,

		// HTTP surface
		server.Module,
	)
	app.Run()
}
