package report

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/clock"
	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	deptrepo "github.com/smallbiznis/workforce/internal/department/repository"
	emprepo "github.com/smallbiznis/workforce/internal/employee/repository"
)

func newTestGenerator(t *testing.T) (*Generator, *gorm.DB) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	for _, ddl := range []string{
		`CREATE TABLE departments (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL UNIQUE,
			description TEXT,
			created_at DATETIME,
			updated_at DATETIME
		)`,
		`CREATE TABLE employees (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT NOT NULL,
			department_id INTEGER NOT NULL,
			created_at DATETIME,
			updated_at DATETIME,
			deleted_at DATETIME
		)`,
		`CREATE TABLE employee_details (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			employee_id TEXT NOT NULL UNIQUE,
			designation TEXT,
			salary REAL NOT NULL DEFAULT 0,
			address TEXT,
			joined_date DATE,
			created_at DATETIME,
			updated_at DATETIME
		)`,
	} {
		require.NoError(t, gdb.Exec(ddl).Error)
	}

	gen := New(Params{
		DB: gdb,
		Config: config.Config{
			ReportStagingDir: t.TempDir(),
			ReportDir:        t.TempDir(),
		},
		Employees:   emprepo.New(),
		Departments: deptrepo.New(),
		Clock:       clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)),
	})
	return gen, gdb
}

func seedEmployees(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	require.NoError(t, gdb.Exec(`INSERT INTO departments (id, name) VALUES (1, 'Engineering'), (2, 'Sales')`).Error)
	rows := []struct {
		id, name, email string
		dept            int64
		salary          float64
		joined          string
	}{
		{"e1", "Alice", "alice@example.com", 1, 5000, "2025-05-20"},
		{"e2", "Bob", "bob@example.com", 1, 3000, "2024-01-10"},
		{"e3", "Cara", "cara@example.com", 2, 12000, "2025-05-25"},
	}
	for _, r := range rows {
		require.NoError(t, gdb.Exec(
			`INSERT INTO employees (id, name, email, department_id, created_at, updated_at)
			 VALUES (?, ?, ?, ?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)`,
			r.id, r.name, r.email, r.dept,
		).Error)
		require.NoError(t, gdb.Exec(
			`INSERT INTO employee_details (employee_id, designation, salary, joined_date)
			 VALUES (?, 'Engineer', ?, ?)`,
			r.id, r.salary, r.joined,
		).Error)
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return records
}

func TestGenerateEmployeeList(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	result, err := gen.Generate(context.Background(), Request{Type: TypeEmployeeList})
	require.NoError(t, err)
	require.Equal(t, 3, result.Rows)
	require.Equal(t, filepath.Join(gen.reportDir, result.FileName), result.Path)

	records := readCSV(t, result.Path)
	require.Len(t, records, 4)
	require.Equal(t, employeeHeader, records[0])
	require.Equal(t, "Alice", records[1][1])
	require.Equal(t, "Engineering", records[1][3])
	require.Equal(t, "5000.00", records[1][5])
}

func TestGenerateEmployeeListFilteredByDepartment(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	result, err := gen.Generate(context.Background(), Request{Type: TypeEmployeeList, DepartmentID: 2})
	require.NoError(t, err)
	require.Equal(t, 1, result.Rows)

	records := readCSV(t, result.Path)
	require.Equal(t, "Cara", records[1][1])
}

func TestGenerateEmployeeListUnknownDepartment(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	_, err := gen.Generate(context.Background(), Request{Type: TypeEmployeeList, DepartmentID: 99})
	require.ErrorIs(t, err, deptdomain.ErrNotFound)
}

func TestGenerateDepartmentSummary(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	result, err := gen.Generate(context.Background(), Request{Type: TypeDepartmentSummary})
	require.NoError(t, err)
	require.Equal(t, 2, result.Rows)

	records := readCSV(t, result.Path)
	require.Equal(t, "Engineering", records[1][1])
	require.Equal(t, "2", records[1][2])
	require.Equal(t, "4000.00", records[1][3])
}

func TestGenerateSalaryDistribution(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	result, err := gen.Generate(context.Background(), Request{Type: TypeSalaryDistribution})
	require.NoError(t, err)
	require.Equal(t, len(salaryRanges), result.Rows)

	records := readCSV(t, result.Path)
	require.Equal(t, []string{"salary_range", "employees"}, records[0])

	counts := map[string]string{}
	for _, rec := range records[1:] {
		counts[rec[0]] = rec[1]
	}
	require.Equal(t, "1", counts["3000-4999"])
	require.Equal(t, "1", counts["5000-9999"])
	require.Equal(t, "1", counts["10000+"])
	require.Equal(t, "0", counts["0-999"])
}

func TestGenerateJoiningTrends(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	result, err := gen.Generate(context.Background(), Request{Type: TypeJoiningTrends})
	require.NoError(t, err)
	require.Equal(t, 2, result.Rows)

	records := readCSV(t, result.Path)
	require.Equal(t, []string{"month", "hires"}, records[0])
	require.Equal(t, []string{"2024-01", "1"}, records[1])
	require.Equal(t, []string{"2025-05", "2"}, records[2])
}

func TestGenerateRejectsUnknownType(t *testing.T) {
	gen, _ := newTestGenerator(t)

	_, err := gen.Generate(context.Background(), Request{Type: "payroll"})
	require.ErrorIs(t, err, ErrUnknownType)
}

func TestStagingLeavesNoPartialFiles(t *testing.T) {
	gen, gdb := newTestGenerator(t)
	seedEmployees(t, gdb)

	_, err := gen.Generate(context.Background(), Request{Type: TypeEmployeeList})
	require.NoError(t, err)

	entries, err := os.ReadDir(gen.stagingDir)
	require.NoError(t, err)
	require.Empty(t, entries, "staging dir must be clean after a successful run")
}
