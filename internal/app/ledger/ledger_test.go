package ledger_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/policies"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/money"
	"hotelbook/internal/infra/lock"
	"hotelbook/internal/infra/storage/memory"
)

const roomX = domainrooms.RoomID("room-x")

func jan(day int) time.Time {
	return time.Date(2024, time.January, day, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	store  *memory.Store
	box    *memory.Outbox
	ledger *ledger.Ledger
	now    time.Time
	seq    int
}

func newFixture(t *testing.T, locker policies.RoomLocker) *fixture {
	t.Helper()
	f := &fixture{
		store: memory.NewStore(),
		box:   memory.NewOutbox(),
		now:   time.Date(2024, time.January, 11, 9, 30, 0, 0, time.UTC),
	}
	ctx := context.Background()
	require.NoError(t, f.store.SeedCategory(ctx, &domainrooms.Category{
		ID:            "deluxe",
		Name:          "Deluxe",
		PricePerNight: money.Must("80", "EUR"),
	}))
	f.seedRoom(t, domainrooms.Room{
		ID:           roomX,
		CategoryID:   "deluxe",
		Name:         "Room X",
		Capacity:     3,
		NightlyPrice: money.Must("100", "EUR"),
		Bookable:     true,
		Available:    true,
	})
	if locker == nil {
		locker = lock.NewKeyedMutex()
	}
	f.ledger = &ledger.Ledger{
		UoWFactory: memory.Factory{Store: f.store, Outbox: f.box},
		Locker:     locker,
		Outbox:     f.box,
		Clock:      func() time.Time { return f.now },
		Policy:     ledger.DefaultPolicy(),
	}
	return f
}

func (f *fixture) seedRoom(t *testing.T, room domainrooms.Room) {
	t.Helper()
	require.NoError(t, f.store.SeedRoom(context.Background(), &room))
}

// sequentialIDs makes booking ids predictable; not safe for concurrent creates.
func (f *fixture) sequentialIDs() {
	f.ledger.IDGenerator = func() string {
		f.seq++
		return fmt.Sprintf("b-%d", f.seq)
	}
}

func (f *fixture) create(t *testing.T, user string, in, out time.Time) (*domainbooking.Booking, error) {
	t.Helper()
	return f.ledger.CreateBooking(context.Background(), ledger.CreateBookingInput{
		RoomID:   string(roomX),
		UserID:   user,
		CheckIn:  in,
		CheckOut: out,
		Guests:   domainbooking.Guests{Adults: 2},
	})
}

func (f *fixture) roomAvailable(t *testing.T) bool {
	t.Helper()
	room, ok := f.store.Room(roomX)
	require.True(t, ok)
	return room.Available
}

func assertKind(t *testing.T, want faults.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want, faults.KindOf(err), err.Error())
}

func TestLedger_BookingScenarios(t *testing.T) {
	f := newFixture(t, nil)
	f.sequentialIDs()
	ctx := context.Background()
	guest := ledger.Requester{ID: "user-1"}

	// A: two nights at 100
	a, err := f.create(t, guest.ID, jan(10), jan(12))
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, a.Status)
	assert.Equal(t, 2, a.Quote.Nights)
	assert.True(t, a.Quote.Total.Equal(money.Must("200", "EUR")), a.Quote.Total.String())
	assert.False(t, f.roomAvailable(t), "today falls inside booking A")

	available, err := f.ledger.CheckAvailability(ctx, string(roomX), jan(10), jan(12))
	require.NoError(t, err)
	assert.False(t, available)

	// B: overlaps A
	_, err = f.create(t, "user-2", jan(11), jan(13))
	assertKind(t, faults.Conflict, err)

	// C: back to back with A
	c, err := f.create(t, "user-2", jan(12), jan(14))
	require.NoError(t, err)
	assert.True(t, c.Quote.Total.Equal(money.Must("200", "EUR")))

	// D: cancelling A reopens its window
	cancelled, err := f.ledger.CancelBooking(ctx, string(a.ID), guest)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, cancelled.Status)
	available, err = f.ledger.CheckAvailability(ctx, string(roomX), jan(10), jan(12))
	require.NoError(t, err)
	assert.True(t, available)
	assert.True(t, f.roomAvailable(t))

	// E: reversed dates
	before := f.store.BookingCount()
	_, err = f.create(t, guest.ID, jan(20), jan(18))
	assertKind(t, faults.InvalidInput, err)
	assert.Equal(t, before, f.store.BookingCount())
}

func TestLedger_CheckAvailabilityErrors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.ledger.CheckAvailability(ctx, "missing", jan(1), jan(2))
	assertKind(t, faults.NotFound, err)

	_, err = f.ledger.CheckAvailability(ctx, string(roomX), jan(2), jan(2))
	assertKind(t, faults.InvalidInput, err)

	_, err = f.ledger.CheckAvailability(ctx, string(roomX), time.Time{}, jan(2))
	assertKind(t, faults.InvalidInput, err)

	available, err := f.ledger.CheckAvailability(ctx, string(roomX), jan(1), jan(2))
	require.NoError(t, err)
	assert.True(t, available)
}

func TestLedger_CreateBookingRejections(t *testing.T) {
	ctx := context.Background()

	t.Run("missing room", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.ledger.CreateBooking(ctx, ledger.CreateBookingInput{
			RoomID: "nope", UserID: "u", CheckIn: jan(1), CheckOut: jan(2), Guests: domainbooking.Guests{Adults: 1},
		})
		assertKind(t, faults.NotFound, err)
	})

	t.Run("no adults", func(t *testing.T) {
		f := newFixture(t, nil)
		_, err := f.ledger.CreateBooking(ctx, ledger.CreateBookingInput{
			RoomID: string(roomX), UserID: "u", CheckIn: jan(1), CheckOut: jan(2), Guests: domainbooking.Guests{Children: 2},
		})
		assertKind(t, faults.InvalidInput, err)
	})

	t.Run("administratively blocked room", func(t *testing.T) {
		f := newFixture(t, nil)
		room, _ := f.store.Room(roomX)
		room.Bookable = false
		f.seedRoom(t, room)
		_, err := f.create(t, "u", jan(1), jan(3))
		assertKind(t, faults.InvalidState, err)
		assert.Zero(t, f.store.BookingCount())
		assert.Empty(t, f.box.Records())
		assert.True(t, f.roomAvailable(t), "rejected create must not touch the cache")
	})

	t.Run("missing nightly price", func(t *testing.T) {
		f := newFixture(t, nil)
		room, _ := f.store.Room(roomX)
		room.NightlyPrice = money.Money{}
		f.seedRoom(t, room)
		_, err := f.create(t, "u", jan(1), jan(3))
		assertKind(t, faults.InvalidState, err)
		assert.Zero(t, f.store.BookingCount())
	})

	t.Run("currency outside policy", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ledger.Policy.Currency = "USD"
		_, err := f.create(t, "u", jan(1), jan(3))
		assertKind(t, faults.InvalidState, err)
	})
}

func TestLedger_PricingPolicy(t *testing.T) {
	t.Run("category price", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ledger.Policy.PriceSource = ledger.PriceFromCategory
		b, err := f.create(t, "u", jan(1), jan(3))
		require.NoError(t, err)
		assert.True(t, b.Quote.Total.Equal(money.Must("160", "EUR")), b.Quote.Total.String())
	})

	t.Run("category missing", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ledger.Policy.PriceSource = ledger.PriceFromCategory
		room, _ := f.store.Room(roomX)
		room.CategoryID = ""
		f.seedRoom(t, room)
		_, err := f.create(t, "u", jan(1), jan(3))
		assertKind(t, faults.InvalidState, err)
	})

	t.Run("partial night rounds up", func(t *testing.T) {
		f := newFixture(t, nil)
		b, err := f.create(t, "u", jan(1), jan(2).Add(3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 2, b.Quote.Nights)
		assert.True(t, b.Quote.Total.Equal(money.Must("200", "EUR")))
	})

	t.Run("confirmed on create", func(t *testing.T) {
		f := newFixture(t, nil)
		f.ledger.Policy.InitialStatus = domainbooking.StatusConfirmed
		b, err := f.create(t, "u", jan(1), jan(3))
		require.NoError(t, err)
		assert.Equal(t, domainbooking.StatusConfirmed, b.Status)
	})
}

func TestLedger_PriceSurvivesRoomPriceChange(t *testing.T) {
	f := newFixture(t, nil)
	b, err := f.create(t, "u", jan(1), jan(4))
	require.NoError(t, err)

	room, _ := f.store.Room(roomX)
	room.NightlyPrice = money.Must("150", "EUR")
	f.seedRoom(t, room)

	stored, err := f.ledger.GetBooking(context.Background(), string(b.ID), ledger.Requester{ID: "u"})
	require.NoError(t, err)
	assert.True(t, stored.Quote.Total.Equal(money.Must("300", "EUR")))
	assert.True(t, stored.Quote.Total.Equal(stored.Quote.NightlyPrice.Multiply(int64(stored.Range.Nights()))))

	next, err := f.create(t, "u", jan(4), jan(6))
	require.NoError(t, err)
	assert.True(t, next.Quote.Total.Equal(money.Must("300", "EUR")))
}

func TestLedger_CancelTwiceIsInvalidState(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := ledger.Requester{ID: "u"}
	b, err := f.create(t, owner.ID, jan(1), jan(3))
	require.NoError(t, err)

	_, err = f.ledger.CancelBooking(ctx, string(b.ID), owner)
	require.NoError(t, err)
	_, err = f.ledger.CancelBooking(ctx, string(b.ID), owner)
	assertKind(t, faults.InvalidState, err)
	_, err = f.ledger.CancelBooking(ctx, string(b.ID), ledger.Requester{ID: "admin", Privileged: true})
	assertKind(t, faults.InvalidState, err)
}

func TestLedger_Authorization(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	owner := ledger.Requester{ID: "owner"}
	stranger := ledger.Requester{ID: "stranger"}
	admin := ledger.Requester{ID: "admin", Privileged: true}
	b, err := f.create(t, owner.ID, jan(1), jan(3))
	require.NoError(t, err)

	_, err = f.ledger.CancelBooking(ctx, string(b.ID), stranger)
	assertKind(t, faults.Forbidden, err)
	_, err = f.ledger.GetBooking(ctx, string(b.ID), stranger)
	assertKind(t, faults.Forbidden, err)
	_, err = f.ledger.TransitionStatus(ctx, string(b.ID), "confirmed", owner)
	assertKind(t, faults.Forbidden, err)
	_, err = f.ledger.ListBookings(ctx, domainbooking.Filter{}, owner)
	assertKind(t, faults.Forbidden, err)

	got, err := f.ledger.GetBooking(ctx, string(b.ID), admin)
	require.NoError(t, err)
	assert.Equal(t, b.ID, got.ID)

	_, err = f.ledger.CancelBooking(ctx, "missing", owner)
	assertKind(t, faults.NotFound, err)

	// owners may cancel through the transition entry point
	updated, err := f.ledger.TransitionStatus(ctx, string(b.ID), "cancelled", owner)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCancelled, updated.Status)
}

func TestLedger_TransitionStateMachine(t *testing.T) {
	f := newFixture(t, nil)
	f.sequentialIDs()
	ctx := context.Background()
	admin := ledger.Requester{ID: "admin", Privileged: true}

	b, err := f.create(t, "u", jan(1), jan(3))
	require.NoError(t, err)

	_, err = f.ledger.TransitionStatus(ctx, string(b.ID), "archived", admin)
	assertKind(t, faults.InvalidInput, err)
	_, err = f.ledger.TransitionStatus(ctx, string(b.ID), "completed", admin)
	assertKind(t, faults.InvalidState, err)

	confirmed, err := f.ledger.TransitionStatus(ctx, string(b.ID), "Confirmed", admin)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, confirmed.Status)

	completed, err := f.ledger.TransitionStatus(ctx, string(b.ID), "completed", admin)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusCompleted, completed.Status)

	for _, to := range []string{"pending", "confirmed", "cancelled"} {
		_, err = f.ledger.TransitionStatus(ctx, string(b.ID), to, admin)
		assertKind(t, faults.InvalidState, err)
	}

	other, err := f.create(t, "u", jan(5), jan(7))
	require.NoError(t, err)
	_, err = f.ledger.CancelBooking(ctx, string(other.ID), admin)
	require.NoError(t, err)
	for _, to := range []string{"pending", "confirmed", "completed"} {
		_, err = f.ledger.TransitionStatus(ctx, string(other.ID), to, admin)
		assertKind(t, faults.InvalidState, err)
	}
}

func TestLedger_EventsCommitWithBooking(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	b, err := f.create(t, "u", jan(10), jan(12))
	require.NoError(t, err)
	_, err = f.create(t, "u", jan(11), jan(12))
	assertKind(t, faults.Conflict, err)
	_, err = f.ledger.CancelBooking(ctx, string(b.ID), ledger.Requester{ID: "u"})
	require.NoError(t, err)

	records := f.box.Records()
	require.Len(t, records, 2)
	assert.Equal(t, "booking.created", records[0].Name)
	assert.Equal(t, "booking.cancelled", records[1].Name)
	assert.Equal(t, string(b.ID), records[0].Aggregate)
}

func TestLedger_Listings(t *testing.T) {
	f := newFixture(t, nil)
	f.sequentialIDs()
	ctx := context.Background()
	admin := ledger.Requester{ID: "admin", Privileged: true}

	first, err := f.create(t, "u", jan(1), jan(3))
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	second, err := f.create(t, "u", jan(5), jan(7))
	require.NoError(t, err)
	f.now = f.now.Add(time.Hour)
	_, err = f.create(t, "other", jan(9), jan(10))
	require.NoError(t, err)
	_, err = f.ledger.CancelBooking(ctx, string(first.ID), admin)
	require.NoError(t, err)

	mine, err := f.ledger.ListUserBookings(ctx, "u")
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, second.ID, mine[0].ID)
	assert.Equal(t, first.ID, mine[1].ID)

	_, err = f.ledger.ListUserBookings(ctx, " ")
	assertKind(t, faults.InvalidInput, err)

	all, err := f.ledger.ListBookings(ctx, domainbooking.Filter{}, admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	cancelled, err := f.ledger.ListBookings(ctx, domainbooking.Filter{Status: domainbooking.StatusCancelled}, admin)
	require.NoError(t, err)
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	window, err := f.ledger.ListBookings(ctx, domainbooking.Filter{From: jan(4), To: jan(9)}, admin)
	require.NoError(t, err)
	assert.Len(t, window, 2)

	_, err = f.ledger.ListBookings(ctx, domainbooking.Filter{From: jan(9), To: jan(4)}, admin)
	assertKind(t, faults.InvalidInput, err)
}

func runConcurrentCreates(t *testing.T, f *fixture, n int) (successes, conflicts int) {
	t.Helper()
	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, err := f.ledger.CreateBooking(context.Background(), ledger.CreateBookingInput{
				RoomID:   string(roomX),
				UserID:   fmt.Sprintf("user-%d", i),
				CheckIn:  jan(10),
				CheckOut: jan(12),
				Guests:   domainbooking.Guests{Adults: 1},
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case faults.KindOf(err) == faults.Conflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()
	return successes, conflicts
}

func TestLedger_ConcurrentIdenticalCreates(t *testing.T) {
	for _, n := range []int{2, 16} {
		t.Run(fmt.Sprintf("%d requests", n), func(t *testing.T) {
			f := newFixture(t, nil)
			successes, conflicts := runConcurrentCreates(t, f, n)
			assert.Equal(t, 1, successes)
			assert.Equal(t, n-1, conflicts)
			assert.Equal(t, 1, f.store.BookingCount())
		})
	}
}

func TestLedger_ConcurrentCreatesWithRedisLock(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	f := newFixture(t, &lock.RedisLocker{Client: client, Retry: time.Millisecond})
	successes, conflicts := runConcurrentCreates(t, f, 8)
	assert.Equal(t, 1, successes)
	assert.Equal(t, 7, conflicts)
	assert.Equal(t, 1, f.store.BookingCount())
}

func TestLedger_ConcurrentCreatesWithoutLocker(t *testing.T) {
	f := newFixture(t, nil)
	f.ledger.Locker = nil
	successes, conflicts := runConcurrentCreates(t, f, 32)
	assert.Equal(t, 1, successes)
	assert.Equal(t, 31, conflicts)
	assert.Equal(t, 1, f.store.BookingCount())
}

func TestLedger_LockWaitDeadlineIsConflict(t *testing.T) {
	locker := lock.NewKeyedMutex()
	f := newFixture(t, locker)
	release, err := locker.Lock(context.Background(), string(roomX))
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.ledger.CreateBooking(ctx, ledger.CreateBookingInput{
		RoomID:   string(roomX),
		UserID:   "user-1",
		CheckIn:  jan(10),
		CheckOut: jan(12),
		Guests:   domainbooking.Guests{Adults: 1},
	})
	assertKind(t, faults.Conflict, err)
	assert.Zero(t, f.store.BookingCount())
}

func TestLedger_ConfirmPayment(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	service := ledger.Requester{ID: "payment-service", Privileged: true}
	b, err := f.create(t, "owner", jan(1), jan(3))
	require.NoError(t, err)

	_, err = f.ledger.ConfirmPayment(ctx, string(b.ID), money.Must("200", "EUR"), ledger.Requester{ID: "owner"})
	assertKind(t, faults.Forbidden, err)

	_, err = f.ledger.ConfirmPayment(ctx, string(b.ID), money.Must("0.01", "USD"), service)
	assertKind(t, faults.InvalidState, err)
	assert.ErrorIs(t, err, domainbooking.ErrPaymentMismatch)
	unchanged, err := f.ledger.GetBooking(ctx, string(b.ID), service)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusPending, unchanged.Status)
	assert.Equal(t, domainbooking.PaymentPending, unchanged.Payment)

	paid, err := f.ledger.ConfirmPayment(ctx, string(b.ID), money.Must("200.00", "EUR"), service)
	require.NoError(t, err)
	assert.Equal(t, domainbooking.StatusConfirmed, paid.Status)
	assert.Equal(t, domainbooking.PaymentPaid, paid.Payment)

	_, err = f.ledger.ConfirmPayment(ctx, string(b.ID), money.Must("200", "EUR"), service)
	assertKind(t, faults.InvalidState, err)

	cancelled, err := f.ledger.CancelBooking(ctx, string(b.ID), ledger.Requester{ID: "owner"})
	require.NoError(t, err)
	assert.Equal(t, domainbooking.PaymentRefunded, cancelled.Payment)
}
