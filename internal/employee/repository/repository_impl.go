package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/smallbiznis/workforce/internal/employee/domain"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

// sortColumns maps the exposed sort keys onto qualified columns. The list
// query always appends employees.id as a tie-break so pages stay stable
// when the sort column has duplicate values.
var sortColumns = map[string]string{
	domain.SortByName:       "employees.name",
	domain.SortByEmail:      "employees.email",
	domain.SortByJoinedDate: "employee_details.joined_date",
	domain.SortBySalary:     "employee_details.salary",
}

const listColumns = `employees.id,
	employees.name,
	employees.email,
	employees.department_id,
	departments.name AS department_name,
	employee_details.designation,
	employee_details.salary,
	employee_details.address,
	employee_details.joined_date,
	employees.created_at,
	employees.updated_at,
	employees.deleted_at`

func (r *repository) baseQuery(ctx context.Context, db *gorm.DB, filter domain.ListFilter) *gorm.DB {
	stmt := db.WithContext(ctx).Model(&domain.Employee{}).
		Joins("LEFT JOIN employee_details ON employee_details.employee_id = employees.id").
		Joins("LEFT JOIN departments ON departments.id = employees.department_id")

	if filter.IncludeDeleted {
		stmt = stmt.Unscoped()
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		stmt = stmt.Where(
			"(LOWER(employees.name) LIKE ? OR LOWER(employees.email) LIKE ? OR LOWER(employee_details.designation) LIKE ?)",
			like, like, like,
		)
	}
	if filter.DepartmentID > 0 {
		stmt = stmt.Where("employees.department_id = ?", filter.DepartmentID)
	}
	if filter.MinSalary > 0 {
		stmt = stmt.Where("employee_details.salary >= ?", filter.MinSalary)
	}
	if filter.MaxSalary > 0 {
		stmt = stmt.Where("employee_details.salary <= ?", filter.MaxSalary)
	}
	return stmt
}

func (r *repository) List(ctx context.Context, db *gorm.DB, filter domain.ListFilter) ([]domain.ListRow, int64, error) {
	var total int64
	if err := r.baseQuery(ctx, db, filter).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	column, ok := sortColumns[filter.SortBy]
	if !ok {
		column = sortColumns[domain.SortByName]
	}
	direction := "ASC"
	if strings.EqualFold(filter.SortDir, domain.SortDesc) {
		direction = "DESC"
	}

	var rows []domain.ListRow
	err := r.baseQuery(ctx, db, filter).
		Select(listColumns).
		Order(column + " " + direction).
		Order("employees.id ASC").
		Offset((filter.Page - 1) * filter.PerPage).
		Limit(filter.PerPage).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id string, includeDeleted bool) (*domain.Employee, error) {
	stmt := db.WithContext(ctx).Preload("Detail")
	if includeDeleted {
		stmt = stmt.Unscoped()
	}

	var employee domain.Employee
	if err := stmt.First(&employee, "employees.id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &employee, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*domain.Employee, error) {
	stmt := db.WithContext(ctx)
	// sqlite has no row locks; its writes serialize on the database lock.
	if db.Dialector.Name() != "sqlite" {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var employee domain.Employee
	err := stmt.First(&employee, "employees.id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}

	var detail domain.Detail
	err = db.WithContext(ctx).First(&detail, "employee_id = ?", id).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if err == nil {
		employee.Detail = &detail
	}
	return &employee, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	return db.WithContext(ctx).Create(employee).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, employee *domain.Employee) error {
	if err := db.WithContext(ctx).Omit(clause.Associations).Save(employee).Error; err != nil {
		return err
	}
	if employee.Detail != nil {
		return db.WithContext(ctx).Save(employee.Detail).Error
	}
	return nil
}

func (r *repository) SoftDelete(ctx context.Context, db *gorm.DB, id string) error {
	result := db.WithContext(ctx).Delete(&domain.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) ForceDelete(ctx context.Context, db *gorm.DB, id string) error {
	if err := db.WithContext(ctx).Delete(&domain.Detail{}, "employee_id = ?", id).Error; err != nil {
		return err
	}
	result := db.WithContext(ctx).Unscoped().Delete(&domain.Employee{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// EmailExists reports whether an active employee other than excludeID
// already uses the address. Soft-deleted employees do not reserve emails.
func (r *repository) EmailExists(ctx context.Context, db *gorm.DB, email, excludeID string) (bool, error) {
	stmt := db.WithContext(ctx).Model(&domain.Employee{}).Where("email = ?", email)
	if excludeID != "" {
		stmt = stmt.Where("id <> ?", excludeID)
	}
	var count int64
	if err := stmt.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) Count(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).Model(&domain.Employee{}).Count(&count).Error
	return count, err
}

func (r *repository) Recent(ctx context.Context, db *gorm.DB, limit int) ([]domain.ListRow, error) {
	var rows []domain.ListRow
	err := db.WithContext(ctx).Model(&domain.Employee{}).
		Joins("LEFT JOIN employee_details ON employee_details.employee_id = employees.id").
		Joins("LEFT JOIN departments ON departments.id = employees.department_id").
		Select(listColumns).
		Order("employees.created_at DESC").
		Order("employees.id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) PurgeDeletedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, chunkSize int) (int64, error) {
	if chunkSize <= 0 {
		chunkSize = 100
	}

	var purged int64
	for {
		var ids []string
		err := db.WithContext(ctx).Model(&domain.Employee{}).Unscoped().
			Where("deleted_at IS NOT NULL AND deleted_at < ?", cutoff).
			Order("id ASC").
			Limit(chunkSize).
			Pluck("id", &ids).Error
		if err != nil {
			return purged, err
		}
		if len(ids) == 0 {
			return purged, nil
		}

		err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Delete(&domain.Detail{}, "employee_id IN ?", ids).Error; err != nil {
				return err
			}
			return tx.Unscoped().Delete(&domain.Employee{}, "id IN ?", ids).Error
		})
		if err != nil {
			return purged, err
		}

		purged += int64(len(ids))
		if len(ids) < chunkSize {
			return purged, nil
		}
	}
}

func (r *repository) InsertBatch(ctx context.Context, db *gorm.DB, employees []*domain.Employee) error {
	if len(employees) == 0 {
		return nil
	}
	return db.WithContext(ctx).Create(employees).Error
}
