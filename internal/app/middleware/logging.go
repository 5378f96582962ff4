package middleware

import (
	"context"
	"log/slog"
	"time"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/queries"
)

func CommandLogging(logger *slog.Logger) CommandMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			start := time.Now()
			res, err := next.Dispatch(ctx, cmd)
			logOutcome(ctx, logger, "command", cmd.Key(), describe(cmd, commands.Attrs(cmd)), start, err)
			return res, err
		})
	}
}

func QueryLogging(logger *slog.Logger) QueryMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			start := time.Now()
			res, err := next.Ask(ctx, q)
			logOutcome(ctx, logger, "query", q.Key(), describe(q, queries.Attrs(q)), start, err)
			return res, err
		})
	}
}

// describe prefixes the message attributes with the caller's id.
func describe(message any, attrs []any) []any {
	if a, ok := message.(Actor); ok && a.Actor().ID != "" {
		return append([]any{"actor", a.Actor().ID}, attrs...)
	}
	return attrs
}

func logOutcome(ctx context.Context, logger *slog.Logger, kind, key string, described []any, start time.Time, err error) {
	attrs := append([]any{kind, key, "duration", time.Since(start)}, described...)
	switch {
	case err == nil:
		logger.DebugContext(ctx, kind+" handled", attrs...)
	case faults.KindOf(err) == faults.Internal:
		logger.ErrorContext(ctx, kind+" failed", append(attrs, "error", err)...)
	default:
		logger.InfoContext(ctx, kind+" rejected", append(attrs, "kind", faults.KindOf(err), "error", err)...)
	}
}
