package uow

import (
	"context"
	"errors"

	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
)

// ErrConflict is returned by Commit when a concurrent unit modified the same records.
var ErrConflict = errors.New("uow: concurrent modification")

// UnitOfWork coordinates repositories inside a transaction boundary.
type UnitOfWork interface {
	Rooms() domainrooms.RoomRepository
	Categories() domainrooms.CategoryRepository
	Bookings() domainbooking.Repository

	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// UoWFactory starts unit of work instances.
type UoWFactory interface {
	Begin(ctx context.Context, opts TxOptions) (UnitOfWork, error)
}

// TxOptions configure transaction boundaries.
type TxOptions struct {
	ReadOnly bool
}

// ExecContext returns the context repositories of unit must be called with.
func ExecContext(ctx context.Context, unit UnitOfWork) context.Context {
	if injector, ok := unit.(interface {
		InjectContext(context.Context) context.Context
	}); ok {
		ctx = injector.InjectContext(ctx)
	}
	return ContextWithUnitOfWork(ctx, unit)
}
