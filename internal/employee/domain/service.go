package domain

import (
	"context"

	"github.com/smallbiznis/workforce/pkg/db/pagination"
)

type CreateEmployeeRequest struct {
	Name         string  `json:"name"`
	Email        string  `json:"email"`
	DepartmentID int64   `json:"department_id"`
	Designation  string  `json:"designation"`
	Salary       float64 `json:"salary"`
	Address      string  `json:"address"`
	JoinedDate   string  `json:"joined_date"`
}

// UpdateEmployeeRequest patches an employee. Nil fields keep their value.
// Replace marks a full-body update (PUT), which requires every field.
type UpdateEmployeeRequest struct {
	ID           string   `json:"-"`
	Replace      bool     `json:"-"`
	Name         *string  `json:"name"`
	Email        *string  `json:"email"`
	DepartmentID *int64   `json:"department_id"`
	Designation  *string  `json:"designation"`
	Salary       *float64 `json:"salary"`
	Address      *string  `json:"address"`
	JoinedDate   *string  `json:"joined_date"`
}

// ListResult pairs one page of flattened employees with its metadata.
type ListResult struct {
	Data []Response      `json:"data"`
	Meta pagination.Meta `json:"meta"`
}

// BulkResult summarizes a bulk operation.
type BulkResult struct {
	Requested int      `json:"requested"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

type Service interface {
	List(ctx context.Context, filter ListFilter) (*ListResult, error)
	GetByID(ctx context.Context, id string, includeDeleted bool) (*Response, error)
	Create(ctx context.Context, req CreateEmployeeRequest) (*Response, error)
	Update(ctx context.Context, req UpdateEmployeeRequest) (*Response, error)
	// Delete soft-deletes by default; force removes the rows permanently.
	Delete(ctx context.Context, id string, force bool) error
	Recent(ctx context.Context, limit int) ([]Response, error)
	Count(ctx context.Context) (int64, error)
	// BulkCreate inserts employees in chunked transactions; one bad chunk
	// does not roll back the others.
	BulkCreate(ctx context.Context, reqs []CreateEmployeeRequest) (*BulkResult, error)
	BulkDelete(ctx context.Context, ids []string, force bool) (*BulkResult, error)
	// PurgeDeleted removes employees soft-deleted before the cutoff.
	PurgeDeleted(ctx context.Context, olderThanDays int) (int64, error)
	// WarmCaches precomputes the common list pages and aggregates.
	WarmCaches(ctx context.Context) error
	// InvalidateCaches drops every employee-derived cache entry.
	InvalidateCaches(ctx context.Context) error
}
