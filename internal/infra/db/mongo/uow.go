package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
)

// Factory wires Mongo transactions into the generic UnitOfWork interface.
type Factory struct {
	DB *mongo.Database

	RoomsRepo      *RoomRepository
	CategoriesRepo *CategoryRepository
	BookingsRepo   *BookingRepository
}

var ErrUnitOfWorkNotConfigured = errors.New("mongo: unit of work factory missing database")

// NewFactory builds the repositories over db.
func NewFactory(db *mongo.Database) Factory {
	return Factory{
		DB:             db,
		RoomsRepo:      NewRoomRepository(db),
		CategoriesRepo: NewCategoryRepository(db),
		BookingsRepo:   NewBookingRepository(db),
	}
}

// EnsureIndexes creates the booking indexes; rooms and categories are keyed by
// _id only.
func (f Factory) EnsureIndexes(ctx context.Context) error {
	if f.BookingsRepo == nil {
		return ErrUnitOfWorkNotConfigured
	}
	return f.BookingsRepo.EnsureIndexes(ctx)
}

// Begin starts a session. Write units run inside a snapshot transaction with
// majority write concern; read-only units use the session without one.
func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.DB == nil || f.RoomsRepo == nil || f.CategoriesRepo == nil || f.BookingsRepo == nil {
		return nil, ErrUnitOfWorkNotConfigured
	}
	session, err := f.DB.Client().StartSession()
	if err != nil {
		return nil, err
	}
	unit := &Unit{session: session, factory: f, readOnly: opts.ReadOnly}
	if opts.ReadOnly {
		return unit, nil
	}
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := session.StartTransaction(txnOpts); err != nil {
		session.EndSession(ctx)
		return nil, err
	}
	return unit, nil
}

type Unit struct {
	session  mongo.Session
	factory  Factory
	readOnly bool
	done     bool
}

func (u *Unit) Rooms() domainrooms.RoomRepository {
	return u.factory.RoomsRepo
}

func (u *Unit) Categories() domainrooms.CategoryRepository {
	return u.factory.CategoriesRepo
}

func (u *Unit) Bookings() domainbooking.Repository {
	return u.factory.BookingsRepo
}

func (u *Unit) Commit(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return translateWriteErr(u.session.CommitTransaction(ctx))
}

func (u *Unit) Rollback(ctx context.Context) error {
	if u.done {
		return nil
	}
	u.done = true
	defer u.session.EndSession(ctx)
	if u.readOnly {
		return nil
	}
	return u.session.AbortTransaction(ctx)
}

// InjectContext ensures Mongo session is available in context for downstream repos.
func (u *Unit) InjectContext(ctx context.Context) context.Context {
	return mongo.NewSessionContext(ctx, u.session)
}

var (
	_ uow.UoWFactory = Factory{}
	_ uow.UnitOfWork = (*Unit)(nil)
)

// SeedRoom and SeedCategory let startup fixtures write through the factory.
func (f Factory) SeedRoom(ctx context.Context, room *domainrooms.Room) error {
	return f.RoomsRepo.SeedRoom(ctx, room)
}

func (f Factory) SeedCategory(ctx context.Context, c *domainrooms.Category) error {
	return f.CategoriesRepo.SeedCategory(ctx, c)
}
