package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/department/domain"
)

type repository struct{}

func New() domain.Repository {
	return &repository{}
}

func (r *repository) List(ctx context.Context, db *gorm.DB) ([]domain.Department, error) {
	var departments []domain.Department
	if err := db.WithContext(ctx).Order("name ASC").Find(&departments).Error; err != nil {
		return nil, err
	}
	return departments, nil
}

func (r *repository) FindByID(ctx context.Context, db *gorm.DB, id int64) (*domain.Department, error) {
	var dept domain.Department
	err := db.WithContext(ctx).First(&dept, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *repository) FindByName(ctx context.Context, db *gorm.DB, name string) (*domain.Department, error) {
	var dept domain.Department
	err := db.WithContext(ctx).First(&dept, "name = ?", name).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &dept, nil
}

func (r *repository) Insert(ctx context.Context, db *gorm.DB, dept *domain.Department) error {
	return db.WithContext(ctx).Create(dept).Error
}

func (r *repository) Update(ctx context.Context, db *gorm.DB, dept *domain.Department) error {
	return db.WithContext(ctx).Save(dept).Error
}

func (r *repository) Delete(ctx context.Context, db *gorm.DB, id int64) error {
	result := db.WithContext(ctx).Delete(&domain.Department{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *repository) CountEmployees(ctx context.Context, db *gorm.DB, id int64) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Table("employees").
		Where("department_id = ? AND deleted_at IS NULL", id).
		Count(&count).Error
	return count, err
}

func (r *repository) Statistics(ctx context.Context, db *gorm.DB) ([]domain.Statistics, error) {
	var stats []domain.Statistics
	err := db.WithContext(ctx).
		Table("departments").
		Select(`departments.id AS department_id,
			departments.name AS department_name,
			COUNT(employees.id) AS employee_count,
			COALESCE(AVG(employee_details.salary), 0) AS average_salary,
			COALESCE(MIN(employee_details.salary), 0) AS min_salary,
			COALESCE(MAX(employee_details.salary), 0) AS max_salary`).
		Joins("LEFT JOIN employees ON employees.department_id = departments.id AND employees.deleted_at IS NULL").
		Joins("LEFT JOIN employee_details ON employee_details.employee_id = employees.id").
		Group("departments.id, departments.name").
		Order("departments.name ASC").
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return stats, nil
}
