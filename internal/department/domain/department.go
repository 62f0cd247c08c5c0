package domain

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("department not found")
	ErrNameTaken = errors.New("department name already exists")
	// ErrInUse is returned when deleting a department that still has
	// employees assigned.
	ErrInUse = errors.New("department has assigned employees")
)

type Department struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Name        string    `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Department) TableName() string {
	return "departments"
}

// Statistics is one row of the per-department aggregate view.
type Statistics struct {
	DepartmentID   int64   `json:"department_id"`
	DepartmentName string  `json:"department_name"`
	EmployeeCount  int64   `json:"employee_count"`
	AverageSalary  float64 `json:"average_salary"`
	MinSalary      float64 `json:"min_salary"`
	MaxSalary      float64 `json:"max_salary"`
}

type CreateDepartmentRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateDepartmentRequest struct {
	ID          int64   `json:"-"`
	Name        *string `json:"name"`
	Description *string `json:"description"`
}
