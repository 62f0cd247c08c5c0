package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/jobs"
)

// capturingManager runs enqueued jobs immediately and records them.
type capturingManager struct {
	enqueued []jobs.Job
}

func (m *capturingManager) Start(context.Context) error { return nil }
func (m *capturingManager) Stop(context.Context) error  { return nil }
func (m *capturingManager) Status(context.Context) (*jobs.Status, error) {
	return &jobs.Status{Backend: "capture"}, nil
}
func (m *capturingManager) Enqueue(ctx context.Context, job jobs.Job) (int64, error) {
	m.enqueued = append(m.enqueued, job)
	return int64(len(m.enqueued)), job.Fn(ctx)
}

// stubEmployees records which service operations the jobs invoked.
type stubEmployees struct {
	empdomain.Service

	calls      []string
	purgedDays int
}

func (s *stubEmployees) InvalidateCaches(context.Context) error {
	s.calls = append(s.calls, "invalidate")
	return nil
}

func (s *stubEmployees) WarmCaches(context.Context) error {
	s.calls = append(s.calls, "warm")
	return nil
}

func (s *stubEmployees) PurgeDeleted(_ context.Context, olderThanDays int) (int64, error) {
	s.calls = append(s.calls, "purge")
	s.purgedDays = olderThanDays
	return 2, nil
}

// stubDepartments records the statistics rebuilds triggered by resync.
type stubDepartments struct {
	deptdomain.Service

	statCalls int
}

func (s *stubDepartments) Statistics(context.Context) ([]deptdomain.Statistics, error) {
	s.statCalls++
	return nil, nil
}

func newTestScheduler(t *testing.T) (*Scheduler, *capturingManager, *stubEmployees) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	manager := &capturingManager{}
	employees := &stubEmployees{}
	departments := &stubDepartments{}
	s := New(Params{
		DB:          gdb,
		Config:      config.Config{RetentionDays: 30},
		Manager:     manager,
		Employees:   employees,
		Departments: departments,
	})
	return s, manager, employees
}

func TestResyncInvalidatesThenWarms(t *testing.T) {
	s, manager, employees := newTestScheduler(t)

	_, err := s.EnqueueResync(context.Background())
	require.NoError(t, err)

	require.Len(t, manager.enqueued, 1)
	require.Equal(t, "cache:resync", manager.enqueued[0].Name)
	require.Equal(t, jobs.QueueMaintenance, manager.enqueued[0].Queue)
	require.Equal(t, []string{"invalidate", "warm"}, employees.calls)
}

func TestMaintenancePurgesWithConfiguredRetention(t *testing.T) {
	s, manager, employees := newTestScheduler(t)

	_, err := s.EnqueueMaintenance(context.Background())
	require.NoError(t, err)

	require.Len(t, manager.enqueued, 1)
	require.Equal(t, "maintenance:purge", manager.enqueued[0].Name)
	require.Equal(t, []string{"purge"}, employees.calls)
	require.Equal(t, 30, employees.purgedDays)
}

func TestRunEnqueuesStartupResync(t *testing.T) {
	s, manager, _ := newTestScheduler(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s.Run(ctx)

	require.Len(t, manager.enqueued, 1)
	require.Equal(t, "cache:resync", manager.enqueued[0].Name)
}
