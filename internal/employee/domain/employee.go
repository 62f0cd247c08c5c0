package domain

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

var (
	ErrNotFound   = errors.New("employee not found")
	ErrEmailTaken = errors.New("employee email already exists")
	// ErrUnknownDepartment is returned when the referenced department
	// does not exist.
	ErrUnknownDepartment = errors.New("department does not exist")
)

// DateFormat is the wire format of joined_date.
const DateFormat = "2006-01-02"

type Employee struct {
	ID           string         `gorm:"type:uuid;primaryKey" json:"id"`
	Name         string         `gorm:"size:255;not null" json:"name"`
	Email        string         `gorm:"size:255;not null" json:"email"`
	DepartmentID int64          `gorm:"not null;index" json:"department_id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	Detail *Detail `gorm:"foreignKey:EmployeeID" json:"detail,omitempty"`
}

func (Employee) TableName() string {
	return "employees"
}

// Detail is the 1:1 extension row carrying compensation and contact data.
type Detail struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	EmployeeID  string    `gorm:"type:uuid;not null;uniqueIndex" json:"-"`
	Designation string    `gorm:"size:255" json:"designation"`
	Salary      float64   `gorm:"not null" json:"salary"`
	Address     string    `gorm:"type:text" json:"address"`
	JoinedDate  time.Time `gorm:"type:date" json:"joined_date"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
}

func (Detail) TableName() string {
	return "employee_details"
}

// Sortable list columns. Anything else is rejected at validation time.
const (
	SortByName       = "name"
	SortByEmail      = "email"
	SortByJoinedDate = "joined_date"
	SortBySalary     = "salary"
)

const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListFilter captures every query parameter of the list endpoint.
type ListFilter struct {
	Page           int     `form:"page,default=1"`
	PerPage        int     `form:"per_page,default=15"`
	Search         string  `form:"search"`
	DepartmentID   int64   `form:"department_id"`
	MinSalary      float64 `form:"min_salary"`
	MaxSalary      float64 `form:"max_salary"`
	SortBy         string  `form:"sort_by,default=name"`
	SortDir        string  `form:"sort_dir,default=asc"`
	IncludeDeleted bool    `form:"include_deleted"`
}

// CacheParams renders the filter as the canonical parameter map used to
// build the list cache key.
func (f ListFilter) CacheParams() map[string]any {
	return map[string]any{
		"page":            f.Page,
		"per_page":        f.PerPage,
		"search":          f.Search,
		"department_id":   f.DepartmentID,
		"min_salary":      f.MinSalary,
		"max_salary":      f.MaxSalary,
		"sort_by":         f.SortBy,
		"sort_dir":        f.SortDir,
		"include_deleted": f.IncludeDeleted,
	}
}

// ListRow is the flat projection produced by the list query, one row per
// employee with the detail and department name joined in.
type ListRow struct {
	ID             string         `gorm:"column:id"`
	Name           string         `gorm:"column:name"`
	Email          string         `gorm:"column:email"`
	DepartmentID   int64          `gorm:"column:department_id"`
	DepartmentName string         `gorm:"column:department_name"`
	Designation    string         `gorm:"column:designation"`
	Salary         float64        `gorm:"column:salary"`
	Address        string         `gorm:"column:address"`
	JoinedDate     *time.Time     `gorm:"column:joined_date"`
	CreatedAt      time.Time      `gorm:"column:created_at"`
	UpdatedAt      time.Time      `gorm:"column:updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"column:deleted_at"`
}

// Response is the flattened employee view returned by the API: the detail
// row and the department name are folded into the top level.
type Response struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	DepartmentID   int64   `json:"department_id"`
	DepartmentName string  `json:"department_name"`
	Designation    string  `json:"designation"`
	Salary         float64 `json:"salary"`
	Address        string  `json:"address"`
	JoinedDate     string  `json:"joined_date"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
	DeletedAt      *string `json:"deleted_at,omitempty"`
}

// NewResponse flattens an employee with its detail and department name.
func NewResponse(e Employee, departmentName string) Response {
	resp := Response{
		ID:             e.ID,
		Name:           e.Name,
		Email:          e.Email,
		DepartmentID:   e.DepartmentID,
		DepartmentName: departmentName,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      e.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if e.Detail != nil {
		resp.Designation = e.Detail.Designation
		resp.Salary = e.Detail.Salary
		resp.Address = e.Detail.Address
		if !e.Detail.JoinedDate.IsZero() {
			resp.JoinedDate = e.Detail.JoinedDate.Format(DateFormat)
		}
	}
	if e.DeletedAt.Valid {
		deleted := e.DeletedAt.Time.UTC().Format(time.RFC3339)
		resp.DeletedAt = &deleted
	}
	return resp
}

// NewResponseFromRow flattens a joined list row.
func NewResponseFromRow(row ListRow) Response {
	resp := Response{
		ID:             row.ID,
		Name:           row.Name,
		Email:          row.Email,
		DepartmentID:   row.DepartmentID,
		DepartmentName: row.DepartmentName,
		Designation:    row.Designation,
		Salary:         row.Salary,
		Address:        row.Address,
		CreatedAt:      row.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:      row.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if row.JoinedDate != nil && !row.JoinedDate.IsZero() {
		resp.JoinedDate = row.JoinedDate.Format(DateFormat)
	}
	if row.DeletedAt.Valid {
		deleted := row.DeletedAt.Time.UTC().Format(time.RFC3339)
		resp.DeletedAt = &deleted
	}
	return resp
}
