package jobs

import (
	"context"
	"os"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
)

var Module = fx.Module("jobs",
	fx.Provide(newSnowflakeNode),
	fx.Provide(NewManager),
	fx.Invoke(registerLifecycle),
)

func newSnowflakeNode() (*snowflake.Node, error) {
	// Derive the node id from the pid so replicas on one host differ.
	return snowflake.NewNode(int64(os.Getpid()) % 1024)
}

func registerLifecycle(lc fx.Lifecycle, manager Manager) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return manager.Start(ctx)
		},
		OnStop: func(ctx context.Context) error {
			return manager.Stop(ctx)
		},
	})
}
