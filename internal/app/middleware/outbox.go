package middleware

import (
	"context"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/outbox"
)

// OutboxFlush flushes box after each successful command. The command stays
// committed when the flush fails.
func OutboxFlush(box outbox.Outbox) CommandMiddleware {
	if box == nil {
		panic("middleware: outbox required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			res, err := next.Dispatch(ctx, cmd)
			if err != nil {
				return nil, err
			}
			if err := box.Flush(ctx); err != nil {
				return res, err
			}
			return res, nil
		})
	}
}
