package scheduler

import (
	"context"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/jobs"
	"github.com/smallbiznis/workforce/internal/observability/logger"
)

const (
	// ResyncInterval is how often the employee caches are rebuilt.
	ResyncInterval = 6 * time.Hour
	// MaintenanceInterval is how often purge and optimize run.
	MaintenanceInterval = 24 * time.Hour
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Config      config.Config
	Manager     jobs.Manager
	Employees   empdomain.Service
	Departments deptdomain.Service
}

// Scheduler enqueues the recurring background jobs: cache resync with
// warmup, and maintenance (purge of expired soft-deletes plus database
// optimization).
type Scheduler struct {
	db          *gorm.DB
	cfg         config.Config
	manager     jobs.Manager
	employees   empdomain.Service
	departments deptdomain.Service
}

func New(p Params) *Scheduler {
	return &Scheduler{
		db:          p.DB,
		cfg:         p.Config,
		manager:     p.Manager,
		employees:   p.Employees,
		departments: p.Departments,
	}
}

// EnqueueResync schedules a full cache rebuild: every employee-derived
// entry is invalidated, then the common pages and aggregates are warmed.
func (s *Scheduler) EnqueueResync(ctx context.Context) (int64, error) {
	return s.manager.Enqueue(ctx, jobs.NewResyncJob("cache:resync", func(ctx context.Context) error {
		if err := s.employees.InvalidateCaches(ctx); err != nil {
			return err
		}
		if err := s.employees.WarmCaches(ctx); err != nil {
			return err
		}
		_, err := s.departments.Statistics(ctx)
		return err
	}))
}

// EnqueueMaintenance schedules retention purge and database optimization.
func (s *Scheduler) EnqueueMaintenance(ctx context.Context) (int64, error) {
	return s.manager.Enqueue(ctx, jobs.NewMaintenanceJob("maintenance:purge", func(ctx context.Context) error {
		purged, err := s.employees.PurgeDeleted(ctx, s.cfg.RetentionDays)
		if err != nil {
			return err
		}
		logger.FromContext(ctx).Info("maintenance purge finished", zap.Int64("purged", purged))
		return s.optimize(ctx)
	}))
}

// optimize refreshes planner statistics, per dialect.
func (s *Scheduler) optimize(ctx context.Context) error {
	switch s.db.Dialector.Name() {
	case "postgres":
		return s.db.WithContext(ctx).Exec("ANALYZE").Error
	case "mysql":
		return s.db.WithContext(ctx).Exec("ANALYZE TABLE employees, employee_details, departments").Error
	case "sqlite":
		return s.db.WithContext(ctx).Exec("ANALYZE").Error
	default:
		return nil
	}
}

// Run drives the recurring schedule until ctx is canceled. An initial
// resync warms the caches right after startup.
func (s *Scheduler) Run(ctx context.Context) {
	log := logger.FromContext(ctx)

	if _, err := s.EnqueueResync(ctx); err != nil {
		log.Warn("failed to enqueue startup resync", zap.Error(err))
	}

	resync := time.NewTicker(ResyncInterval)
	maintenance := time.NewTicker(MaintenanceInterval)
	defer resync.Stop()
	defer maintenance.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-resync.C:
			if _, err := s.EnqueueResync(ctx); err != nil {
				log.Warn("failed to enqueue resync", zap.Error(err))
			}
		case <-maintenance.C:
			if _, err := s.EnqueueMaintenance(ctx); err != nil {
				log.Warn("failed to enqueue maintenance", zap.Error(err))
			}
		}
	}
}

var Module = fx.Module("scheduler",
	fx.Provide(New),
	fx.Invoke(register),
)

func register(lc fx.Lifecycle, s *Scheduler) {
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				s.Run(runCtx)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			cancel()
			select {
			case <-done:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		},
	})
}
