package middleware

import (
	"context"
	"log/slog"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/outbox"
	"hotelbook/internal/app/queries"
)

// Stack is the request pipeline shared by the HTTP handlers and the payment
// consumer. Idempotency and Outbox are optional.
type Stack struct {
	Logger      *slog.Logger
	Authorizer  Authorizer
	Idempotency IdempotencyStore
	Outbox      outbox.Outbox
}

// Commands runs logging, then authorization, then replay of keyed commands,
// and flushes the outbox once the handler succeeds.
func (s Stack) Commands(base commands.Bus) commands.Bus {
	mws := []CommandMiddleware{CommandLogging(s.Logger), Authorization(s.authorizer())}
	if s.Idempotency != nil {
		mws = append(mws, Idempotency(s.Idempotency, nil))
	}
	if s.Outbox != nil {
		mws = append(mws, OutboxFlush(s.Outbox))
	}
	return ChainCommands(base, mws...)
}

func (s Stack) Queries(base queries.Bus) queries.Bus {
	return ChainQueries(base, QueryLogging(s.Logger), QueryAuthorization(s.authorizer()))
}

func (s Stack) authorizer() Authorizer {
	if s.Authorizer == nil {
		return IdentityAuthorizer{}
	}
	return s.Authorizer
}

type CommandMiddleware func(next commands.Bus) commands.Bus

type QueryMiddleware func(next queries.Bus) queries.Bus

// ChainCommands wraps base so that mws[0] runs first.
func ChainCommands(base commands.Bus, mws ...CommandMiddleware) commands.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

// ChainQueries wraps base so that mws[0] runs first.
func ChainQueries(base queries.Bus, mws ...QueryMiddleware) queries.Bus {
	wrapped := base
	for i := len(mws) - 1; i >= 0; i-- {
		wrapped = mws[i](wrapped)
	}
	return wrapped
}

type commandFunc func(ctx context.Context, cmd commands.Command) (any, error)

func (f commandFunc) Dispatch(ctx context.Context, cmd commands.Command) (any, error) {
	return f(ctx, cmd)
}

type queryFunc func(ctx context.Context, q queries.Query) (any, error)

func (f queryFunc) Ask(ctx context.Context, q queries.Query) (any, error) {
	return f(ctx, q)
}
