package metrics

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

const (
	JobReasonDeadlineExceeded = "deadline_exceeded"
	JobReasonDB               = "db"
	JobReasonUnknown          = "unknown"
)

// JobMetrics captures background job health signals.
type JobMetrics struct {
	runs     *prometheus.CounterVec
	duration *prometheus.HistogramVec
	timeouts *prometheus.CounterVec
	errors   *prometheus.CounterVec
	retries  *prometheus.CounterVec
	failed   *prometheus.CounterVec
}

var (
	jobMetricsOnce sync.Once
	jobMetrics     *JobMetrics
)

// Jobs returns the singleton job metrics registry.
func Jobs() *JobMetrics {
	return JobsWithConfig(Config{})
}

// JobsWithConfig returns the singleton job metrics registry using config labels.
func JobsWithConfig(cfg Config) *JobMetrics {
	jobMetricsOnce.Do(func() {
		jobMetrics = newJobMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return jobMetrics
}

// ResetJobMetricsForTest resets the job metrics singleton for tests.
func ResetJobMetricsForTest() {
	jobMetricsOnce = sync.Once{}
	jobMetrics = nil
}

func newJobMetrics(registerer prometheus.Registerer, cfg Config) *JobMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	factory := promauto.With(registerer)
	constLabels := cfg.constLabels()

	return &JobMetrics{
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "workforce_job_runs_total",
			Help:        "Background job runs by name and queue.",
			ConstLabels: constLabels,
		}, []string{"job", "queue"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "workforce_job_duration_seconds",
			Help:        "Background job duration by name.",
			ConstLabels: constLabels,
			Buckets:     prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"job"}),
		timeouts: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "workforce_job_timeouts_total",
			Help:        "Background job wall-clock timeouts by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		errors: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "workforce_job_errors_total",
			Help:        "Background job errors by name and reason.",
			ConstLabels: constLabels,
		}, []string{"job", "reason"}),
		retries: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "workforce_job_retries_total",
			Help:        "Background job retry attempts by name.",
			ConstLabels: constLabels,
		}, []string{"job"}),
		failed: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "workforce_job_failed_total",
			Help:        "Background jobs that exhausted their retries.",
			ConstLabels: constLabels,
		}, []string{"job", "queue"}),
	}
}

func (m *JobMetrics) IncJobRun(job, queue string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(job, queue).Inc()
}

func (m *JobMetrics) ObserveJobDuration(job string, d time.Duration) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(job).Observe(d.Seconds())
}

func (m *JobMetrics) IncJobTimeout(job string) {
	if m == nil {
		return
	}
	m.timeouts.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobRetry(job string) {
	if m == nil {
		return
	}
	m.retries.WithLabelValues(job).Inc()
}

func (m *JobMetrics) IncJobFailed(job, queue string) {
	if m == nil {
		return
	}
	m.failed.WithLabelValues(job, queue).Inc()
}

func (m *JobMetrics) IncJobError(job string, err error) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(job, classifyJobError(err)).Inc()
}

func classifyJobError(err error) string {
	switch {
	case err == nil:
		return JobReasonUnknown
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return JobReasonDeadlineExceeded
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, gorm.ErrDuplicatedKey),
		errors.Is(err, gorm.ErrForeignKeyViolated),
		errors.Is(err, gorm.ErrInvalidTransaction),
		errors.Is(err, sql.ErrConnDone),
		errors.Is(err, sql.ErrTxDone):
		return JobReasonDB
	default:
		return JobReasonUnknown
	}
}
