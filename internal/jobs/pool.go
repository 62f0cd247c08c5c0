package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/smallbiznis/workforce/internal/observability/logger"
)

// ErrQueueFull is returned when a queue's buffer cannot accept more work.
var ErrQueueFull = errors.New("job queue is full")

// ErrNotStarted is returned when enqueueing before Start or after Stop.
var ErrNotStarted = errors.New("job manager is not running")

const queueBuffer = 256

type task struct {
	job   Job
	runID int64
}

type queue struct {
	name    string
	workers int
	tasks   chan task
	active  atomic.Int64
}

// poolManager runs a fixed goroutine pool per named queue.
type poolManager struct {
	db   *gorm.DB
	node *snowflake.Node

	mu      sync.Mutex
	started bool
	queues  map[string]*queue
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	clk     nowFunc
}

func newPoolManager(gdb *gorm.DB, node *snowflake.Node) Manager {
	return &poolManager{db: gdb, node: node, clk: utcNow}
}

func (m *poolManager) Start(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		return nil
	}

	runCtx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.queues = make(map[string]*queue, len(queueWorkers))

	for _, name := range QueueNames() {
		q := &queue{
			name:    name,
			workers: queueWorkers[name],
			tasks:   make(chan task, queueBuffer),
		}
		m.queues[name] = q
		for i := 0; i < q.workers; i++ {
			m.wg.Add(1)
			go m.worker(runCtx, q)
		}
	}

	m.started = true
	return nil
}

func (m *poolManager) worker(ctx context.Context, q *queue) {
	defer m.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case t, ok := <-q.tasks:
			if !ok {
				return
			}
			q.active.Add(1)
			if err := execute(ctx, m.db, t.job, t.runID); err != nil {
				logger.FromContext(ctx).Debug("job finished with error",
					zap.String("job", t.job.Name), zap.Error(err))
			}
			q.active.Add(-1)
		}
	}
}

// Stop cancels running jobs and waits for the workers to drain.
func (m *poolManager) Stop(ctx context.Context) error {
	m.mu.Lock()
	if !m.started {
		m.mu.Unlock()
		return nil
	}
	m.started = false
	m.cancel()
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *poolManager) Enqueue(ctx context.Context, job Job) (int64, error) {
	m.mu.Lock()
	started := m.started
	q := m.queues[job.Queue]
	m.mu.Unlock()

	if !started {
		return 0, ErrNotStarted
	}
	if q == nil {
		q = m.queues[QueueDefault]
	}

	run := newRun(m.node, job, m.clk())
	if err := m.db.WithContext(ctx).Create(run).Error; err != nil {
		return 0, err
	}

	select {
	case q.tasks <- task{job: job, runID: run.ID}:
		return run.ID, nil
	default:
		markFinished(ctx, m.db, run.ID, RunStatusFailed, ErrQueueFull.Error())
		return 0, ErrQueueFull
	}
}

func (m *poolManager) Status(ctx context.Context) (*Status, error) {
	m.mu.Lock()
	queues := make([]QueueStatus, 0, len(m.queues))
	for _, name := range QueueNames() {
		q, ok := m.queues[name]
		if !ok {
			continue
		}
		queues = append(queues, QueueStatus{
			Queue:   q.name,
			Workers: q.workers,
			Pending: len(q.tasks),
			Active:  int(q.active.Load()),
		})
	}
	m.mu.Unlock()

	runs, err := recentRuns(ctx, m.db, 20)
	if err != nil {
		return nil, err
	}
	return &Status{Backend: "pool", Queues: queues, RecentRuns: runs}, nil
}
