package middleware

import (
	"context"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/queries"
)

type Authorizer interface {
	Authorize(ctx context.Context, message any) error
}

// Actor is implemented by messages issued on behalf of a caller.
type Actor interface {
	Actor() ledger.Requester
}

// Privileged is implemented by messages reserved for administrators.
type Privileged interface {
	RequiresPrivilege() bool
}

// IdentityAuthorizer rejects actor messages without a resolved caller and
// administrator messages from ordinary callers.
type IdentityAuthorizer struct{}

func (IdentityAuthorizer) Authorize(_ context.Context, message any) error {
	actor, ok := message.(Actor)
	if !ok {
		return nil
	}
	req := actor.Actor()
	if req.ID == "" {
		return faults.New(faults.Unauthenticated, "authentication required")
	}
	if p, ok := message.(Privileged); ok && p.RequiresPrivilege() && !req.Privileged {
		return faults.New(faults.Forbidden, "administrator access required")
	}
	return nil
}

func Authorization(a Authorizer) CommandMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next commands.Bus) commands.Bus {
		return commandFunc(func(ctx context.Context, cmd commands.Command) (any, error) {
			if err := a.Authorize(ctx, cmd); err != nil {
				return nil, err
			}
			return next.Dispatch(ctx, cmd)
		})
	}
}

func QueryAuthorization(a Authorizer) QueryMiddleware {
	if a == nil {
		panic("middleware: authorizer required")
	}
	return func(next queries.Bus) queries.Bus {
		return queryFunc(func(ctx context.Context, q queries.Query) (any, error) {
			if err := a.Authorize(ctx, q); err != nil {
				return nil, err
			}
			return next.Ask(ctx, q)
		})
	}
}
