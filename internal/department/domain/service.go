package domain

import "context"

type Service interface {
	List(ctx context.Context) ([]Department, error)
	GetByID(ctx context.Context, id int64) (*Department, error)
	Create(ctx context.Context, req CreateDepartmentRequest) (*Department, error)
	Update(ctx context.Context, req UpdateDepartmentRequest) (*Department, error)
	Delete(ctx context.Context, id int64) error
	Statistics(ctx context.Context) ([]Statistics, error)
}
