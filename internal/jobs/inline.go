package jobs

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type nowFunc func() time.Time

func utcNow() time.Time {
	return time.Now().UTC()
}

// inlineManager executes jobs synchronously on enqueue with the same
// timeout, retry and bookkeeping semantics as the pool backend. It exists
// for environments without background capacity and for tests.
type inlineManager struct {
	db   *gorm.DB
	node *snowflake.Node
	clk  nowFunc
}

func newInlineManager(gdb *gorm.DB, node *snowflake.Node) Manager {
	return &inlineManager{db: gdb, node: node, clk: utcNow}
}

func (m *inlineManager) Start(context.Context) error { return nil }

func (m *inlineManager) Stop(context.Context) error { return nil }

func (m *inlineManager) Enqueue(ctx context.Context, job Job) (int64, error) {
	run := newRun(m.node, job, m.clk())
	if err := m.db.WithContext(ctx).Create(run).Error; err != nil {
		return 0, err
	}
	if err := execute(ctx, m.db, job, run.ID); err != nil {
		return run.ID, err
	}
	return run.ID, nil
}

func (m *inlineManager) Status(ctx context.Context) (*Status, error) {
	runs, err := recentRuns(ctx, m.db, 20)
	if err != nil {
		return nil, err
	}
	return &Status{Backend: "inline", RecentRuns: runs}, nil
}
