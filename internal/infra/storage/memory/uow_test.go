package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appoutbox "hotelbook/internal/app/outbox"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/money"
)

func seeded(t *testing.T) (*Store, *Outbox, Factory) {
	t.Helper()
	store := NewStore()
	require.NoError(t, store.SeedRoom(context.Background(), &domainrooms.Room{
		ID:           "room-x",
		NightlyPrice: money.Must("100", "EUR"),
		Bookable:     true,
		Available:    true,
	}))
	box := NewOutbox()
	return store, box, Factory{Store: store, Outbox: box}
}

func newTestBooking(t *testing.T, id string, in, out int) *domainbooking.Booking {
	t.Helper()
	dr, err := daterange.New(time.Date(2024, 1, in, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, out, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	q, err := domainbooking.QuoteStay(dr, money.Must("100", "EUR"))
	require.NoError(t, err)
	b, err := domainbooking.NewBooking(domainbooking.CreateParams{
		ID:        domainbooking.BookingID(id),
		RoomID:    "room-x",
		UserID:    "user-1",
		Range:     dr,
		Guests:    domainbooking.Guests{Adults: 1},
		Quote:     q,
		CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(in) * time.Minute),
	})
	require.NoError(t, err)
	return b
}

func begin(t *testing.T, f Factory) (context.Context, uow.UnitOfWork) {
	t.Helper()
	unit, err := f.Begin(context.Background(), uow.TxOptions{})
	require.NoError(t, err)
	return uow.ExecContext(context.Background(), unit), unit
}

func TestUnit_WritesInvisibleUntilCommit(t *testing.T) {
	store, box, f := seeded(t)
	ctx, unit := begin(t, f)

	b := newTestBooking(t, "b-1", 10, 12)
	require.NoError(t, unit.Bookings().Save(ctx, b))
	require.NoError(t, unit.Rooms().SetAvailability(ctx, "room-x", false, time.Now()))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1", Name: "booking.created"}))

	got, err := unit.Bookings().ByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got.Version)
	room, err := unit.Rooms().ByID(ctx, "room-x")
	require.NoError(t, err)
	assert.False(t, room.Available)

	assert.Zero(t, store.BookingCount())
	assert.Empty(t, box.Records())
	committed, _ := store.Room("room-x")
	assert.True(t, committed.Available)

	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, 1, store.BookingCount())
	assert.Len(t, box.Records(), 1)
	committed, _ = store.Room("room-x")
	assert.False(t, committed.Available)

	assert.ErrorIs(t, unit.Commit(ctx), ErrUnitClosed)
}

func TestUnit_RollbackDiscardsStagedWrites(t *testing.T) {
	store, box, f := seeded(t)
	ctx, unit := begin(t, f)
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-1"}))
	require.NoError(t, unit.Rollback(ctx))

	assert.Zero(t, store.BookingCount())
	assert.Empty(t, box.Records())

	// once closed, the unit no longer captures outbox records
	require.NoError(t, box.Add(ctx, appoutbox.EventRecord{ID: "evt-2"}))
	assert.Len(t, box.Records(), 1)
}

func TestUnit_ConcurrentUpdateConflicts(t *testing.T) {
	_, _, f := seeded(t)
	ctx, unit := begin(t, f)
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, unit.Commit(ctx))

	ctxA, a := begin(t, f)
	ctxB, b := begin(t, f)
	fromA, err := a.Bookings().ByID(ctxA, "b-1")
	require.NoError(t, err)
	fromB, err := b.Bookings().ByID(ctxB, "b-1")
	require.NoError(t, err)

	require.NoError(t, fromA.Cancel(time.Now()))
	require.NoError(t, a.Bookings().Save(ctxA, fromA))
	require.NoError(t, fromB.Transition(domainbooking.StatusConfirmed, time.Now()))
	require.NoError(t, b.Bookings().Save(ctxB, fromB))

	require.NoError(t, a.Commit(ctxA))
	assert.ErrorIs(t, b.Commit(ctxB), uow.ErrConflict)
}

func TestUnit_DuplicateInsertConflicts(t *testing.T) {
	_, _, f := seeded(t)
	ctxA, a := begin(t, f)
	ctxB, b := begin(t, f)
	require.NoError(t, a.Bookings().Save(ctxA, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, b.Bookings().Save(ctxB, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, a.Commit(ctxA))
	assert.ErrorIs(t, b.Commit(ctxB), uow.ErrConflict)
}

func TestBookingRepo_ActiveForRoomAndListing(t *testing.T) {
	_, _, f := seeded(t)
	ctx, unit := begin(t, f)
	first := newTestBooking(t, "b-1", 10, 12)
	second := newTestBooking(t, "b-2", 12, 14)
	cancelled := newTestBooking(t, "b-3", 10, 14)
	require.NoError(t, cancelled.Cancel(time.Now()))
	for _, b := range []*domainbooking.Booking{first, second, cancelled} {
		require.NoError(t, unit.Bookings().Save(ctx, b))
	}
	require.NoError(t, unit.Commit(ctx))

	ctx, reader := begin(t, f)
	night, err := daterange.New(time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 12, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	active, err := reader.Bookings().ActiveForRoom(ctx, "room-x", night)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, domainbooking.BookingID("b-1"), active[0].ID)

	mine, err := reader.Bookings().ListByUser(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, mine, 3)
	assert.Equal(t, domainbooking.BookingID("b-2"), mine[0].ID)

	page, err := reader.Bookings().List(ctx, domainbooking.Filter{Status: domainbooking.StatusPending, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, domainbooking.BookingID("b-1"), page[0].ID)
}

func TestUnit_OverlappingInsertsRejectedAtCommit(t *testing.T) {
	store, _, f := seeded(t)
	ctxA, a := begin(t, f)
	ctxB, b := begin(t, f)
	require.NoError(t, a.Bookings().Save(ctxA, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, b.Bookings().Save(ctxB, newTestBooking(t, "b-2", 11, 13)))
	require.NoError(t, a.Commit(ctxA))
	assert.ErrorIs(t, b.Commit(ctxB), domainbooking.ErrOverlap)
	assert.Equal(t, 1, store.BookingCount())

	// adjacent stays and stays over a cancelled booking still commit
	ctx, unit := begin(t, f)
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-3", 12, 14)))
	require.NoError(t, unit.Commit(ctx))

	ctx, unit = begin(t, f)
	first, err := unit.Bookings().ByID(ctx, "b-1")
	require.NoError(t, err)
	require.NoError(t, first.Cancel(time.Now()))
	require.NoError(t, unit.Bookings().Save(ctx, first))
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-4", 10, 12)))
	require.NoError(t, unit.Commit(ctx))
	assert.Equal(t, 3, store.BookingCount())
}

func TestUnit_OverlapWithinOneUnitRejected(t *testing.T) {
	_, _, f := seeded(t)
	ctx, unit := begin(t, f)
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-1", 10, 12)))
	require.NoError(t, unit.Bookings().Save(ctx, newTestBooking(t, "b-2", 10, 11)))
	assert.ErrorIs(t, unit.Commit(ctx), domainbooking.ErrOverlap)
}
