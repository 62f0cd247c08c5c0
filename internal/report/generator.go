package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/clock"
	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
	"github.com/smallbiznis/workforce/internal/observability/logger"
)

// reportChunkSize is how many employees are pulled per query while
// streaming a report.
const reportChunkSize = 1000

type Params struct {
	fx.In

	DB          *gorm.DB
	Config      config.Config
	Employees   empdomain.Repository
	Departments deptdomain.Repository
	Clock       clock.Clock
}

// Generator writes CSV reports. Files are staged in a scratch directory
// and renamed into the report directory only when complete, so readers
// never observe a partial file.
type Generator struct {
	db          *gorm.DB
	stagingDir  string
	reportDir   string
	employees   empdomain.Repository
	departments deptdomain.Repository
	clock       clock.Clock
}

func New(p Params) *Generator {
	return &Generator{
		db:          p.DB,
		stagingDir:  p.Config.ReportStagingDir,
		reportDir:   p.Config.ReportDir,
		employees:   p.Employees,
		departments: p.Departments,
		clock:       p.Clock,
	}
}

var Module = fx.Module("report",
	fx.Provide(New),
)

// Generate produces the requested report and returns its final location.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	now := g.clock.Now()
	fileName := fmt.Sprintf("%s_%s.csv", req.Type, now.Format("20060102_150405"))

	var write func(ctx context.Context, w *csv.Writer) (int, error)
	switch req.Type {
	case TypeEmployeeList:
		filter := empdomain.ListFilter{}
		if req.DepartmentID > 0 {
			if _, err := g.departments.FindByID(ctx, g.db, req.DepartmentID); err != nil {
				return nil, err
			}
			filter.DepartmentID = req.DepartmentID
		}
		write = func(ctx context.Context, w *csv.Writer) (int, error) {
			return g.writeEmployeeList(ctx, w, filter)
		}
	case TypeDepartmentSummary:
		write = g.writeDepartmentSummary
	case TypeSalaryDistribution:
		write = g.writeSalaryDistribution
	case TypeJoiningTrends:
		write = g.writeJoiningTrends
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type)
	}

	if err := os.MkdirAll(g.stagingDir, 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(g.reportDir, 0o755); err != nil {
		return nil, err
	}

	staged, err := os.CreateTemp(g.stagingDir, fileName+".*.partial")
	if err != nil {
		return nil, err
	}
	stagedPath := staged.Name()
	defer os.Remove(stagedPath)

	w := csv.NewWriter(staged)
	rows, err := write(ctx, w)
	if err != nil {
		staged.Close()
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		staged.Close()
		return nil, err
	}
	if err := staged.Close(); err != nil {
		return nil, err
	}

	finalPath := filepath.Join(g.reportDir, fileName)
	if err := os.Rename(stagedPath, finalPath); err != nil {
		return nil, err
	}

	logger.FromContext(ctx).Info("report generated",
		zap.String("type", req.Type),
		zap.String("file", finalPath),
		zap.Int("rows", rows))

	return &Result{
		Type:        req.Type,
		FileName:    fileName,
		Path:        finalPath,
		Rows:        rows,
		GeneratedAt: now,
	}, nil
}

var employeeHeader = []string{
	"id", "name", "email", "department", "designation", "salary", "address", "joined_date",
}

// eachEmployee streams every row matching filter in chunks of
// reportChunkSize, invoking fn per row.
func (g *Generator) eachEmployee(ctx context.Context, filter empdomain.ListFilter, fn func(empdomain.ListRow) error) (int, error) {
	filter.PerPage = reportChunkSize

	rows := 0
	for page := 1; ; page++ {
		filter.Page = page
		chunk, _, err := g.employees.List(ctx, g.db, filter)
		if err != nil {
			return rows, err
		}
		if len(chunk) == 0 {
			return rows, nil
		}
		for _, row := range chunk {
			if err := fn(row); err != nil {
				return rows, err
			}
			rows++
		}
		if len(chunk) < reportChunkSize {
			return rows, nil
		}
	}
}

func (g *Generator) writeEmployeeList(ctx context.Context, w *csv.Writer, filter empdomain.ListFilter) (int, error) {
	if err := w.Write(employeeHeader); err != nil {
		return 0, err
	}
	filter.SortBy = empdomain.SortByName
	filter.SortDir = empdomain.SortAsc
	return g.eachEmployee(ctx, filter, func(row empdomain.ListRow) error {
		return w.Write(employeeRecord(row))
	})
}

func employeeRecord(row empdomain.ListRow) []string {
	joined := ""
	if row.JoinedDate != nil && !row.JoinedDate.IsZero() {
		joined = row.JoinedDate.Format(empdomain.DateFormat)
	}
	return []string{
		row.ID,
		row.Name,
		row.Email,
		row.DepartmentName,
		row.Designation,
		strconv.FormatFloat(row.Salary, 'f', 2, 64),
		row.Address,
		joined,
	}
}

func (g *Generator) writeDepartmentSummary(ctx context.Context, w *csv.Writer) (int, error) {
	if err := w.Write([]string{
		"department_id", "department", "employees", "average_salary", "min_salary", "max_salary",
	}); err != nil {
		return 0, err
	}

	stats, err := g.departments.Statistics(ctx, g.db)
	if err != nil {
		return 0, err
	}
	for _, row := range stats {
		record := []string{
			strconv.FormatInt(row.DepartmentID, 10),
			row.DepartmentName,
			strconv.FormatInt(row.EmployeeCount, 10),
			strconv.FormatFloat(row.AverageSalary, 'f', 2, 64),
			strconv.FormatFloat(row.MinSalary, 'f', 2, 64),
			strconv.FormatFloat(row.MaxSalary, 'f', 2, 64),
		}
		if err := w.Write(record); err != nil {
			return 0, err
		}
	}
	return len(stats), nil
}

func (g *Generator) writeSalaryDistribution(ctx context.Context, w *csv.Writer) (int, error) {
	if err := w.Write([]string{"salary_range", "employees"}); err != nil {
		return 0, err
	}

	counts := make([]int64, len(salaryRanges))
	_, err := g.eachEmployee(ctx, empdomain.ListFilter{
		SortBy:  empdomain.SortBySalary,
		SortDir: empdomain.SortAsc,
	}, func(row empdomain.ListRow) error {
		for i, r := range salaryRanges {
			if row.Salary >= r.min && (r.max <= 0 || row.Salary < r.max) {
				counts[i]++
				return nil
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	for i, r := range salaryRanges {
		if err := w.Write([]string{r.label, strconv.FormatInt(counts[i], 10)}); err != nil {
			return 0, err
		}
	}
	return len(salaryRanges), nil
}

func (g *Generator) writeJoiningTrends(ctx context.Context, w *csv.Writer) (int, error) {
	if err := w.Write([]string{"month", "hires"}); err != nil {
		return 0, err
	}

	counts := map[string]int64{}
	_, err := g.eachEmployee(ctx, empdomain.ListFilter{
		SortBy:  empdomain.SortByJoinedDate,
		SortDir: empdomain.SortAsc,
	}, func(row empdomain.ListRow) error {
		if row.JoinedDate == nil || row.JoinedDate.IsZero() {
			return nil
		}
		counts[row.JoinedDate.Format("2006-01")]++
		return nil
	})
	if err != nil {
		return 0, err
	}

	months := make([]string, 0, len(counts))
	for m := range counts {
		months = append(months, m)
	}
	sort.Strings(months)

	for _, m := range months {
		if err := w.Write([]string{m, strconv.FormatInt(counts[m], 10)}); err != nil {
			return 0, err
		}
	}
	return len(months), nil
}
