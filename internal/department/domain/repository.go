package domain

import (
	"context"

	"gorm.io/gorm"
)

// Repository receives the handle on every call so services can pass a
// transaction where one is needed.
type Repository interface {
	List(ctx context.Context, db *gorm.DB) ([]Department, error)
	FindByID(ctx context.Context, db *gorm.DB, id int64) (*Department, error)
	FindByName(ctx context.Context, db *gorm.DB, name string) (*Department, error)
	Insert(ctx context.Context, db *gorm.DB, dept *Department) error
	Update(ctx context.Context, db *gorm.DB, dept *Department) error
	Delete(ctx context.Context, db *gorm.DB, id int64) error
	CountEmployees(ctx context.Context, db *gorm.DB, id int64) (int64, error)
	Statistics(ctx context.Context, db *gorm.DB) ([]Statistics, error)
}
