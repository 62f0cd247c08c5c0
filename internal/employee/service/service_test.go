package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/cache"
	"github.com/smallbiznis/workforce/internal/clock"
	deptrepo "github.com/smallbiznis/workforce/internal/department/repository"
	"github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/employee/repository"
)

type fixture struct {
	svc    domain.Service
	db     *gorm.DB
	clock  *clock.FakeClock
	deptID int64
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	fake := clock.NewFakeClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	// NowFunc ties gorm's timestamps (including deleted_at) to the fake
	// clock, so retention cutoffs compare against the same time source.
	gdb, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		NowFunc:        fake.Now,
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// A single connection keeps every statement on the same in-memory db.
	sqlDB.SetMaxOpenConns(1)

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
		`CREATE UNIQUE INDEX idx_employees_email_active ON employees (email) WHERE deleted_at IS NULL`,
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

	t.Cleanup(func() {
		sqlDB, _ := gdb.DB()
		_ = sqlDB.Close()
	})

	svc := New(Params{
		DB:          gdb,
		Repository:  repository.New(),
		Departments: deptrepo.New(),
		Cache:       cache.NewBookkeeper(cache.NewMemoryStore()),
		Clock:       fake,
	})

	f := &fixture{svc: svc, db: gdb, clock: fake}
	require.NoError(t, gdb.Exec(`INSERT INTO departments (name) VALUES ('Engineering')`).Error)
	require.NoError(t, gdb.Raw(`SELECT id FROM departments WHERE name = 'Engineering'`).Scan(&f.deptID).Error)
	return f
}

func (f *fixture) create(t *testing.T, name, email string, salary float64) *domain.Response {
	t.Helper()
	resp, err := f.svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Name:         name,
		Email:        email,
		DepartmentID: f.deptID,
		Designation:  "Engineer",
		Salary:       salary,
		Address:      "12 Main St",
		JoinedDate:   "2024-03-15",
	})
	require.NoError(t, err)
	return resp
}

func TestCreateReturnsFlattenedResponse(t *testing.T) {
	f := newFixture(t)

	resp := f.create(t, "Jane Doe", "jane@example.com", 4200)
	require.NotEmpty(t, resp.ID)
	require.Equal(t, "Jane Doe", resp.Name)
	require.Equal(t, "Engineering", resp.DepartmentName)
	require.Equal(t, "Engineer", resp.Designation)
	require.Equal(t, 4200.0, resp.Salary)
	require.Equal(t, "2024-03-15", resp.JoinedDate)
	require.Nil(t, resp.DeletedAt)
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Name:         "",
		Email:        "not-an-email",
		DepartmentID: 0,
	})
	require.Error(t, err)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "name")
	require.Contains(t, verrs, "email")
	require.Contains(t, verrs, "department_id")
	require.Contains(t, verrs, "designation")
	require.Contains(t, verrs, "salary")
	require.Contains(t, verrs, "address")
	require.Contains(t, verrs, "joined_date")
}

func TestCreateRejectsFutureJoinedDate(t *testing.T) {
	f := newFixture(t)

	// The fixture clock sits at 2025-06-01.
	_, err := f.svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Name:         "Jane",
		Email:        "jane@example.com",
		DepartmentID: f.deptID,
		Designation:  "Engineer",
		Salary:       1000,
		Address:      "12 Main St",
		JoinedDate:   "2025-06-02",
	})
	require.Error(t, err)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "joined_date")
}

func TestCreateRejectsUnknownDepartment(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Name:         "Jane",
		Email:        "jane@example.com",
		DepartmentID: 999,
		Designation:  "Engineer",
		Salary:       1000,
		Address:      "12 Main St",
		JoinedDate:   "2024-01-01",
	})
	require.ErrorIs(t, err, domain.ErrUnknownDepartment)
}

func TestCreateRejectsDuplicateEmail(t *testing.T) {
	f := newFixture(t)
	f.create(t, "Jane", "jane@example.com", 1000)

	_, err := f.svc.Create(context.Background(), domain.CreateEmployeeRequest{
		Name:         "Other Jane",
		Email:        "jane@example.com",
		DepartmentID: f.deptID,
		Designation:  "Engineer",
		Salary:       1000,
		Address:      "12 Main St",
		JoinedDate:   "2024-03-15",
	})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestSoftDeleteFreesEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.create(t, "Jane", "jane@example.com", 1000)
	require.NoError(t, f.svc.Delete(ctx, first.ID, false))

	second := f.create(t, "New Jane", "jane@example.com", 2000)
	require.NotEqual(t, first.ID, second.ID)
}

func TestListPaginatesWithStableTieBreak(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Identical names force the tie-break to order the pages.
	for i := 0; i < 7; i++ {
		f.create(t, "Same Name", fmt.Sprintf("dup%d@example.com", i), 1000)
	}

	seen := map[string]int{}
	for page := 1; page <= 3; page++ {
		result, err := f.svc.List(ctx, domain.ListFilter{
			Page: page, PerPage: 3, SortBy: domain.SortByName, SortDir: domain.SortAsc,
		})
		require.NoError(t, err)
		for _, row := range result.Data {
			seen[row.ID]++
		}
		require.EqualValues(t, 7, result.Meta.Total)
		require.Equal(t, 3, result.Meta.LastPage)
	}

	require.Len(t, seen, 7, "every employee appears exactly once across pages")
	for id, count := range seen {
		require.Equal(t, 1, count, "employee %s appeared %d times", id, count)
	}
}

func TestListSearchMatchesDesignation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Jane", "jane@example.com", 1000)
	resp, err := f.svc.Create(ctx, domain.CreateEmployeeRequest{
		Name:         "Bob",
		Email:        "bob@example.com",
		DepartmentID: f.deptID,
		Designation:  "Staff Architect",
		Salary:       9000,
		Address:      "9 Side St",
		JoinedDate:   "2020-01-01",
	})
	require.NoError(t, err)

	result, err := f.svc.List(ctx, domain.ListFilter{Search: "ARCHITECT"})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	require.Equal(t, resp.ID, result.Data[0].ID)
}

func TestListSalaryRange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Low", "low@example.com", 1000)
	mid := f.create(t, "Mid", "mid@example.com", 3000)
	f.create(t, "High", "high@example.com", 9000)

	result, err := f.svc.List(ctx, domain.ListFilter{MinSalary: 2000, MaxSalary: 5000})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
	require.Equal(t, mid.ID, result.Data[0].ID)
}

func TestListRejectsUnknownSortField(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.List(context.Background(), domain.ListFilter{SortBy: "password"})
	require.Error(t, err)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "sort_by")
}

func TestListServedFromCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Jane", "jane@example.com", 1000)

	first, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, first.Data, 1)

	// A direct row insert bypasses invalidation, so the next identical
	// list must come from cache and not see it.
	require.NoError(t, f.db.Exec(
		`INSERT INTO employees (id, name, email, department_id) VALUES ('x', 'Ghost', 'ghost@example.com', ?)`,
		f.deptID,
	).Error)

	second, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, second.Data, 1)
}

func TestWriteInvalidatesListCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Jane", "jane@example.com", 1000)
	first, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, first.Data, 1)

	f.create(t, "Bob", "bob@example.com", 2000)
	second, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Len(t, second.Data, 2)
}

func TestCreateRollsBackEmployeeWhenDetailInsertFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Recreate the detail table without the address column so the detail
	// insert fails after the employee row has been written.
	require.NoError(t, f.db.Exec(`DROP TABLE employee_details`).Error)
	require.NoError(t, f.db.Exec(`CREATE TABLE employee_details (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		employee_id TEXT NOT NULL UNIQUE,
		designation TEXT,
		salary REAL NOT NULL DEFAULT 0,
		joined_date DATE,
		created_at DATETIME,
		updated_at DATETIME
	)`).Error)

	_, err := f.svc.Create(ctx, domain.CreateEmployeeRequest{
		Name:         "Jane",
		Email:        "jane@example.com",
		DepartmentID: f.deptID,
		Designation:  "Engineer",
		Salary:       1000,
		Address:      "12 Main St",
		JoinedDate:   "2024-03-15",
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM employees WHERE email = ?`, "jane@example.com",
	).Scan(&count).Error)
	require.Zero(t, count, "employee row must roll back with the failed detail")
}

func TestUpdateReplaceRequiresFullBody(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "Jane", "jane@example.com", 1000)

	salary := 5500.0
	_, err := f.svc.Update(ctx, domain.UpdateEmployeeRequest{
		ID:      created.ID,
		Replace: true,
		Salary:  &salary,
	})
	require.Error(t, err)

	var verrs validation.Errors
	require.ErrorAs(t, err, &verrs)
	require.Contains(t, verrs, "name")
	require.Contains(t, verrs, "email")
	require.Contains(t, verrs, "department_id")
	require.Contains(t, verrs, "designation")
	require.Contains(t, verrs, "address")
	require.Contains(t, verrs, "joined_date")
}

func TestUpdatePartialAndAtomic(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "Jane", "jane@example.com", 1000)

	salary := 5500.0
	designation := "Senior Engineer"
	updated, err := f.svc.Update(ctx, domain.UpdateEmployeeRequest{
		ID:          created.ID,
		Salary:      &salary,
		Designation: &designation,
	})
	require.NoError(t, err)
	require.Equal(t, "Jane", updated.Name, "unset fields keep their value")
	require.Equal(t, salary, updated.Salary)
	require.Equal(t, designation, updated.Designation)
	require.Equal(t, "2024-03-15", updated.JoinedDate)
}

func TestUpdateRejectsTakenEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Jane", "jane@example.com", 1000)
	bob := f.create(t, "Bob", "bob@example.com", 2000)

	email := "jane@example.com"
	_, err := f.svc.Update(ctx, domain.UpdateEmployeeRequest{ID: bob.ID, Email: &email})
	require.ErrorIs(t, err, domain.ErrEmailTaken)
}

func TestGetByIDVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "Jane", "jane@example.com", 1000)
	require.NoError(t, f.svc.Delete(ctx, created.ID, false))

	_, err := f.svc.GetByID(ctx, created.ID, false)
	require.ErrorIs(t, err, domain.ErrNotFound)

	found, err := f.svc.GetByID(ctx, created.ID, true)
	require.NoError(t, err)
	require.NotNil(t, found.DeletedAt)
}

func TestForceDeleteRemovesRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	created := f.create(t, "Jane", "jane@example.com", 1000)
	require.NoError(t, f.svc.Delete(ctx, created.ID, true))

	_, err := f.svc.GetByID(ctx, created.ID, true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	var details int64
	require.NoError(t, f.db.Raw(
		`SELECT COUNT(*) FROM employee_details WHERE employee_id = ?`, created.ID,
	).Scan(&details).Error)
	require.Zero(t, details)
}

func TestPurgeDeletedHonorsRetention(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	old := f.create(t, "Old", "old@example.com", 1000)
	fresh := f.create(t, "Fresh", "fresh@example.com", 1000)

	require.NoError(t, f.svc.Delete(ctx, old.ID, false))
	f.clock.Advance(31 * 24 * time.Hour)
	require.NoError(t, f.svc.Delete(ctx, fresh.ID, false))

	purged, err := f.svc.PurgeDeleted(ctx, 30)
	require.NoError(t, err)
	require.EqualValues(t, 1, purged)

	_, err = f.svc.GetByID(ctx, old.ID, true)
	require.ErrorIs(t, err, domain.ErrNotFound)

	found, err := f.svc.GetByID(ctx, fresh.ID, true)
	require.NoError(t, err)
	require.NotNil(t, found.DeletedAt)
}

func TestBulkCreateCountsInvalidItems(t *testing.T) {
	f := newFixture(t)

	reqs := []domain.CreateEmployeeRequest{
		{Name: "Ok One", Email: "one@example.com", DepartmentID: f.deptID, Designation: "Analyst", Salary: 100, Address: "1 First St", JoinedDate: "2024-01-01"},
		{Name: "", Email: "bad", DepartmentID: f.deptID},
		{Name: "Ok Two", Email: "two@example.com", DepartmentID: f.deptID, Designation: "Analyst", Salary: 200, Address: "2 Second St", JoinedDate: "2024-01-02"},
	}

	result, err := f.svc.BulkCreate(context.Background(), reqs)
	require.NoError(t, err)
	require.Equal(t, 3, result.Requested)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 1, result.Failed)
	require.Len(t, result.Errors, 1)

	count, err := f.svc.Count(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 2, count)
}

func TestBulkDeleteReportsMissing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.create(t, "A", "a@example.com", 100)
	b := f.create(t, "B", "b@example.com", 200)

	result, err := f.svc.BulkDelete(ctx, []string{a.ID, "missing", b.ID}, false)
	require.NoError(t, err)
	require.Equal(t, 3, result.Requested)
	require.Equal(t, 2, result.Succeeded)
	require.Equal(t, 1, result.Failed)

	list, err := f.svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	require.Empty(t, list.Data)
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// created_at comes from the fake clock, so advance it between inserts.
	for i := 0; i < 3; i++ {
		f.create(t, fmt.Sprintf("Emp %d", i), fmt.Sprintf("r%d@example.com", i), 100)
		f.clock.Advance(time.Minute)
	}

	recent, err := f.svc.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	require.Equal(t, "Emp 2", recent[0].Name)
	require.Equal(t, "Emp 1", recent[1].Name)
}

func TestWarmCaches(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.create(t, "Jane", "jane@example.com", 1000)
	require.NoError(t, f.svc.WarmCaches(ctx))

	// Warmed pages are served from cache afterwards.
	require.NoError(t, f.db.Exec(
		`INSERT INTO employees (id, name, email, department_id) VALUES ('x', 'Ghost', 'ghost@example.com', ?)`,
		f.deptID,
	).Error)

	result, err := f.svc.List(ctx, domain.ListFilter{
		Page: 1, PerPage: 15, SortBy: domain.SortBySalary, SortDir: domain.SortDesc,
	})
	require.NoError(t, err)
	require.Len(t, result.Data, 1)
}
