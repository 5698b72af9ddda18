package ledger

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the ledger RPC client. Bootstrap runs on startup so the
// ledger code and platform fee account exist before any request arrives;
// the call is idempotent on the ledger side.
var Module = fx.Module("ledger.client",
	fx.Provide(
		NewClient,
		func(c *Client) Service { return c },
	),
	fx.Invoke(func(lc fx.Lifecycle, c *Client, log *zap.Logger) {
		lc.Append(fx.Hook{
			OnStart: func(ctx context.Context) error {
				if err := c.Bootstrap(ctx); err != nil {
					log.Warn("ledger bootstrap failed, continuing", zap.Error(err))
				}
				return nil
			},
		})
	}),
)
