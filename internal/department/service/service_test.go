package service

import (
	"context"
	"testing"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/department/domain"
	"github.com/smallbiznis/workforce/internal/department/repository"
)

func newTestService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// A single connection keeps every statement on the same in-memory db.
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, gdb.Exec(`CREATE TABLE departments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)
	require.NoError(t, gdb.Exec(`CREATE TABLE employees (
		id TEXT PRIMARY KEY,
		department_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		email TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`).Error)
	require.NoError(t, gdb.Exec(`CREATE TABLE employee_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL,
		designation TEXT,
		salary REAL,
		address TEXT,
		joined_date DATE
	)`).Error)

	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})

	svc := New(Params{
		DB:         gdb,
		Repository: repository.New(),
		Cache:      cache.NewBookkeeper(cache.NewMemoryStore()),
	})
	return svc, gdb
}

func TestCreateAndGet(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateDepartmentRequest{
		Name:        "Engineering",
		Description: "Builds things",
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	found, err := svc.GetByID(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, "Engineering", found.Name)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), domain.CreateDepartmentRequest{Name: ""})
	require.Error(t, err)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "name")
}

func TestCreateRejectsDuplicateName(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, domain.CreateDepartmentRequest{Name: "Sales"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, domain.CreateDepartmentRequest{Name: "Sales"})
	require.ErrorIs(t, err, domain.ErrNameTaken)
}

func TestUpdatePartialFields(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateDepartmentRequest{
		Name:        "Support",
		Description: "Tier 1",
	})
	require.NoError(t, err)

	desc := "Tier 1 and 2"
	updated, err := svc.Update(ctx, domain.UpdateDepartmentRequest{
		ID:          created.ID,
		Description: &desc,
	})
	require.NoError(t, err)
	require.Equal(t, "Support", updated.Name, "unset fields keep their value")
	require.Equal(t, desc, updated.Description)
}

func TestDeleteRefusesWhenEmployeesAssigned(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, domain.CreateDepartmentRequest{Name: "Ops"})
	require.NoError(t, err)

	require.NoError(t, gdb.Exec(
		`INSERT INTO employees (id, department_id, name, email) VALUES (?, ?, ?, ?)`,
		"emp-1", created.ID, "Jane", "jane@example.com",
	).Error)

	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrInUse)

	// Soft-deleted employees do not block the delete.
	require.NoError(t, gdb.Exec(
		`UPDATE employees SET deleted_at = CURRENT_TIMESTAMP WHERE id = ?`, "emp-1",
	).Error)
	require.NoError(t, svc.Delete(ctx, created.ID))

	_, err = svc.GetByID(ctx, created.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDeleteMissingDepartment(t *testing.T) {
	svc, _ := newTestService(t)
	err := svc.Delete(context.Background(), 9999)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestStatisticsAggregates(t *testing.T) {
	svc, gdb := newTestService(t)
	ctx := context.Background()

	eng, err := svc.Create(ctx, domain.CreateDepartmentRequest{Name: "Engineering"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, domain.CreateDepartmentRequest{Name: "Sales"})
	require.NoError(t, err)

	for _, row := range []struct {
		id     string
		salary float64
	}{{"e1", 1000}, {"e2", 3000}} {
		require.NoError(t, gdb.Exec(
			`INSERT INTO employees (id, department_id, name, email) VALUES (?, ?, ?, ?)`,
			row.id, eng.ID, "Emp", "emp@example.com",
		).Error)
		require.NoError(t, gdb.Exec(
			`INSERT INTO employee_details (employee_id, salary) VALUES (?, ?)`,
			row.id, row.salary,
		).Error)
	}

	stats, err := svc.Statistics(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	require.Equal(t, "Engineering", stats[0].DepartmentName)
	require.EqualValues(t, 2, stats[0].EmployeeCount)
	require.InDelta(t, 2000, stats[0].AverageSalary, 0.01)
	require.InDelta(t, 1000, stats[0].MinSalary, 0.01)
	require.InDelta(t, 3000, stats[0].MaxSalary, 0.01)

	require.Equal(t, "Sales", stats[1].DepartmentName)
	require.EqualValues(t, 0, stats[1].EmployeeCount)
}
