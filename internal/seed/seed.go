package seed

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/clock"
	"github.com/smallbiznis/workforce/internal/config"
	deptdomain "github.com/smallbiznis/workforce/internal/department/domain"
	empdomain "github.com/smallbiznis/workforce/internal/employee/domain"
)

const seedChunkSize = 100

var departments = []deptdomain.Department{
	{Name: "Engineering", Description: "Product development"},
	{Name: "Sales", Description: "Revenue and accounts"},
	{Name: "Human Resources", Description: "People operations"},
	{Name: "Finance", Description: "Accounting and payroll"},
	{Name: "Support", Description: "Customer support"},
}

var designations = []string{
	"Engineer", "Senior Engineer", "Analyst", "Manager", "Coordinator",
}

type Params struct {
	fx.In

	DB     *gorm.DB
	Config config.Config
	Clock  clock.Clock
	Logger *zap.Logger
}

var Module = fx.Module("seed",
	fx.Invoke(Run),
)

// Run populates an empty database with sample departments and employees.
// It only fires when SEED_ON_START is set and the tables are empty.
func Run(p Params) error {
	if !p.Config.SeedOnStart {
		return nil
	}
	return Seed(context.Background(), p.DB, p.Clock, p.Logger, 250)
}

// Seed inserts the fixture departments plus count employees in chunks.
func Seed(ctx context.Context, gdb *gorm.DB, clk clock.Clock, log *zap.Logger, count int) error {
	var existing int64
	if err := gdb.WithContext(ctx).Model(&empdomain.Employee{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Info("seed skipped, employees already present", zap.Int64("count", existing))
		return nil
	}

	depts := make([]deptdomain.Department, len(departments))
	copy(depts, departments)
	if err := gdb.WithContext(ctx).Create(&depts).Error; err != nil {
		return err
	}

	now := clk.Now()
	employees := make([]*empdomain.Employee, 0, seedChunkSize)
	flush := func() error {
		if len(employees) == 0 {
			return nil
		}
		err := gdb.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.Create(employees).Error
		})
		employees = employees[:0]
		return err
	}

	for i := 0; i < count; i++ {
		dept := depts[i%len(depts)]
		id := uuid.NewString()
		employees = append(employees, &empdomain.Employee{
			ID:           id,
			Name:         fmt.Sprintf("Employee %03d", i+1),
			Email:        fmt.Sprintf("employee%03d@example.com", i+1),
			DepartmentID: dept.ID,
			Detail: &empdomain.Detail{
				EmployeeID:  id,
				Designation: designations[i%len(designations)],
				Salary:      2500 + float64(i%20)*250,
				Address:     fmt.Sprintf("%d Example Street", i+1),
				JoinedDate:  now.AddDate(0, 0, -(i * 3)),
			},
		})
		if len(employees) == seedChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	log.Info("seeded sample data",
		zap.Int("departments", len(depts)),
		zap.Int("employees", count))
	return nil
}
