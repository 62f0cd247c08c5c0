package jobs

import (
	"context"
	"time"

	"gorm.io/datatypes"
)

// Named queues and their worker counts. Destructive work is serialized on
// its own single-worker queue so bulk deletes never run concurrently.
const (
	QueueDefault     = "default"
	QueueEmployeeOps = "employee-operations"
	QueueReports     = "employee-reports"
	QueueMaintenance = "maintenance"
	QueueDestructive = "destructive-operations"
)

var queueWorkers = map[string]int{
	QueueDefault:     4,
	QueueEmployeeOps: 3,
	QueueReports:     2,
	QueueMaintenance: 1,
	QueueDestructive: 1,
}

// QueueNames lists every known queue in a stable order.
func QueueNames() []string {
	return []string{QueueDefault, QueueEmployeeOps, QueueReports, QueueMaintenance, QueueDestructive}
}

// Per-class execution limits.
const (
	TimeoutBulkOperation = 10 * time.Minute
	TimeoutReport        = 60 * time.Minute
	TimeoutResync        = 30 * time.Minute
	TimeoutMaintenance   = 15 * time.Minute

	AttemptsDefault     = 3
	AttemptsDestructive = 2
)

// Job is a unit of background work. Fn must honor ctx cancellation; the
// runner enforces Timeout per attempt and retries up to MaxAttempts.
type Job struct {
	Name        string
	Queue       string
	Timeout     time.Duration
	MaxAttempts int
	Payload     map[string]any
	Fn          func(ctx context.Context) error
}

// NewBulkOperationJob builds a job on the employee-operations queue.
func NewBulkOperationJob(name string, payload map[string]any, fn func(context.Context) error) Job {
	return Job{
		Name:        name,
		Queue:       QueueEmployeeOps,
		Timeout:     TimeoutBulkOperation,
		MaxAttempts: AttemptsDefault,
		Payload:     payload,
		Fn:          fn,
	}
}

// NewDestructiveJob builds a job on the serialized destructive queue.
func NewDestructiveJob(name string, payload map[string]any, fn func(context.Context) error) Job {
	return Job{
		Name:        name,
		Queue:       QueueDestructive,
		Timeout:     TimeoutBulkOperation,
		MaxAttempts: AttemptsDestructive,
		Payload:     payload,
		Fn:          fn,
	}
}

// NewReportJob builds a job on the reports queue.
func NewReportJob(name string, payload map[string]any, fn func(context.Context) error) Job {
	return Job{
		Name:        name,
		Queue:       QueueReports,
		Timeout:     TimeoutReport,
		MaxAttempts: AttemptsDefault,
		Payload:     payload,
		Fn:          fn,
	}
}

// NewResyncJob builds a cache resync job on the maintenance queue.
func NewResyncJob(name string, fn func(context.Context) error) Job {
	return Job{
		Name:        name,
		Queue:       QueueMaintenance,
		Timeout:     TimeoutResync,
		MaxAttempts: AttemptsDefault,
		Fn:          fn,
	}
}

// NewMaintenanceJob builds a housekeeping job on the maintenance queue.
func NewMaintenanceJob(name string, fn func(context.Context) error) Job {
	return Job{
		Name:        name,
		Queue:       QueueMaintenance,
		Timeout:     TimeoutMaintenance,
		MaxAttempts: AttemptsDestructive,
		Fn:          fn,
	}
}

// Run statuses.
const (
	RunStatusQueued    = "queued"
	RunStatusRunning   = "running"
	RunStatusSucceeded = "succeeded"
	RunStatusFailed    = "failed"
)

// Run is the persisted record of one enqueued job.
type Run struct {
	ID         int64             `gorm:"primaryKey" json:"id"`
	Name       string            `gorm:"size:255;not null;index" json:"name"`
	Queue      string            `gorm:"size:64;not null;index" json:"queue"`
	Status     string            `gorm:"size:32;not null;index" json:"status"`
	Attempt    int               `json:"attempt"`
	Payload    datatypes.JSONMap `json:"payload,omitempty"`
	Error      string            `gorm:"type:text" json:"error,omitempty"`
	EnqueuedAt time.Time         `json:"enqueued_at"`
	StartedAt  *time.Time        `json:"started_at,omitempty"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
}

func (Run) TableName() string {
	return "job_runs"
}
