package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Repository receives the handle on every call so services can pass a
// transaction where one is needed.
type Repository interface {
	// List returns one page of joined rows plus the total match count.
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]ListRow, int64, error)
	// FindByID loads the employee with its detail row. With includeDeleted
	// set, soft-deleted employees are visible too.
	FindByID(ctx context.Context, db *gorm.DB, id string, includeDeleted bool) (*Employee, error)
	// FindByIDForUpdate loads the employee under a row lock. Callers must
	// hold a transaction.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id string) (*Employee, error)
	Insert(ctx context.Context, db *gorm.DB, employee *Employee) error
	Update(ctx context.Context, db *gorm.DB, employee *Employee) error
	SoftDelete(ctx context.Context, db *gorm.DB, id string) error
	// ForceDelete removes the employee and its detail row permanently.
	ForceDelete(ctx context.Context, db *gorm.DB, id string) error
	EmailExists(ctx context.Context, db *gorm.DB, email, excludeID string) (bool, error)
	Count(ctx context.Context, db *gorm.DB) (int64, error)
	// Recent returns the newest active employees by creation time.
	Recent(ctx context.Context, db *gorm.DB, limit int) ([]ListRow, error)
	// PurgeDeletedBefore hard-deletes employees soft-deleted before the
	// cutoff, chunkSize rows per transaction, and reports how many went.
	PurgeDeletedBefore(ctx context.Context, db *gorm.DB, cutoff time.Time, chunkSize int) (int64, error)
	// InsertBatch inserts employees with their details in one statement
	// batch. Callers chunk and wrap in transactions.
	InsertBatch(ctx context.Context, db *gorm.DB, employees []*Employee) error
}
