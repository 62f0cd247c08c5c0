package migration

import (
	"embed"
	"errors"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/jobs"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var Module = fx.Module("migration",
	fx.Invoke(Run),
)

// Run applies the schema. Postgres goes through versioned SQL migrations;
// other dialects fall back to AutoMigrate for development setups.
func Run(cfg config.Config, gdb *gorm.DB, log *zap.Logger) error {
	if cfg.DBType != "postgres" {
		log.Info("running schema auto-migration", zap.String("dialect", cfg.DBType))
		return autoMigrate(gdb)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	driver, err := migratepg.WithInstance(sqlDB, &migratepg.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, cfg.DBName, driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	log.Info("database migrations applied")
	return nil
}

func autoMigrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(
		&deptdomain.Department{},
		&empdomain.Employee{},
		&empdomain.Detail{},
		&jobs.Run{},
	); err != nil {
		return err
	}

	// Email stays unique among active employees only; soft-deleted rows
	// release the address. MySQL has no partial indexes, so it keeps the
	// constraint at the application layer.
	if gdb.Dialector.Name() != "mysql" {
		return gdb.Exec(
			`CREATE UNIQUE INDEX IF NOT EXISTS idx_employees_email_active
			 ON employees (email) WHERE deleted_at IS NULL`,
		).Error
	}
	return nil
}
