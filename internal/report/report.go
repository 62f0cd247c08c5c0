package report

import (
	"errors"
	"time"
)

// Report types accepted by the generate endpoint.
const (
	TypeEmployeeList       = "employee_list"
	TypeDepartmentSummary  = "department_summary"
	TypeSalaryDistribution = "salary_distribution"
	TypeJoiningTrends      = "joining_trends"
)

var ErrUnknownType = errors.New("unknown report type")

// Types lists the supported report types.
func Types() []string {
	return []string{TypeEmployeeList, TypeDepartmentSummary, TypeSalaryDistribution, TypeJoiningTrends}
}

// Request describes one report to generate. DepartmentID narrows the
// employee_list report to a single department.
type Request struct {
	Type         string `json:"type"`
	DepartmentID int64  `json:"department_id,omitempty"`
}

// Result describes a finished report file.
type Result struct {
	Type        string    `json:"type"`
	FileName    string    `json:"file_name"`
	Path        string    `json:"path"`
	Rows        int       `json:"rows"`
	GeneratedAt time.Time `json:"generated_at"`
}

// salaryRanges are the fixed buckets of the salary_distribution report.
var salaryRanges = []struct {
	label string
	min   float64
	max   float64 // exclusive; <= 0 means unbounded
}{
	{"0-999", 0, 1000},
	{"1000-2999", 1000, 3000},
	{"3000-4999", 3000, 5000},
	{"5000-9999", 5000, 10000},
	{"10000+", 10000, 0},
}
