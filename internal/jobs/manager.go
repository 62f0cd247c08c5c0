package jobs

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/config"
)

// Manager runs enqueued jobs. The pool backend dispatches to per-queue
// worker pools; the inline backend executes synchronously on enqueue.
// Both expose the same lifecycle and status surface.
type Manager interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Enqueue records a run and schedules the job, returning the run id.
	Enqueue(ctx context.Context, job Job) (int64, error)
	Status(ctx context.Context) (*Status, error)
}

// QueueStatus describes one queue of the pool backend.
type QueueStatus struct {
	Queue   string `json:"queue"`
	Workers int    `json:"workers"`
	Pending int    `json:"pending"`
	Active  int    `json:"active"`
}

// Status is the live view served by the jobs status endpoint.
type Status struct {
	Backend    string        `json:"backend"`
	Queues     []QueueStatus `json:"queues"`
	RecentRuns []Run         `json:"recent_runs"`
}

// NewManager selects the backend from configuration.
func NewManager(cfg config.Config, gdb *gorm.DB, node *snowflake.Node) Manager {
	if cfg.WorkerBackend == config.BackendInline {
		return newInlineManager(gdb, node)
	}
	return newPoolManager(gdb, node)
}

func recentRuns(ctx context.Context, gdb *gorm.DB, limit int) ([]Run, error) {
	var runs []Run
	err := gdb.WithContext(ctx).
		Order("enqueued_at DESC").
		Limit(limit).
		Find(&runs).Error
	return runs, err
}

func newRun(node *snowflake.Node, job Job, now time.Time) *Run {
	return &Run{
		ID:         node.Generate().Int64(),
		Name:       job.Name,
		Queue:      job.Queue,
		Status:     RunStatusQueued,
		Payload:    datatypes.JSONMap(job.Payload),
		EnqueuedAt: now,
	}
}
