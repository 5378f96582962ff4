package memory

import (
	"context"
	"errors"
	"time"

	appoutbox "hotelbook/internal/app/outbox"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
)

// ErrFactoryMisconfigured indicates a missing store.
var ErrFactoryMisconfigured = errors.New("memory: unit of work factory misconfigured")

// ErrUnitClosed is returned when a committed or rolled back unit is reused.
var ErrUnitClosed = errors.New("memory: unit of work already closed")

// Factory starts units of work over a shared Store.
type Factory struct {
	Store  *Store
	Outbox *Outbox
}

func (f Factory) Begin(ctx context.Context, opts uow.TxOptions) (uow.UnitOfWork, error) {
	if f.Store == nil {
		return nil, ErrFactoryMisconfigured
	}
	return &Unit{
		store:        f.Store,
		outbox:       f.Outbox,
		readOnly:     opts.ReadOnly,
		bookings:     make(map[domainbooking.BookingID]stagedBooking),
		availability: make(map[domainrooms.RoomID]stagedAvailability),
	}, nil
}

type stagedBooking struct {
	booking *domainbooking.Booking
	// base is the version read before the change; zero for inserts.
	base int64
}

type stagedAvailability struct {
	available bool
	at        time.Time
}

// Unit buffers writes until Commit. Reads see committed data overlaid with the
// unit's own staged writes.
type Unit struct {
	store        *Store
	outbox       *Outbox
	readOnly     bool
	closed       bool
	bookings     map[domainbooking.BookingID]stagedBooking
	order        []domainbooking.BookingID
	availability map[domainrooms.RoomID]stagedAvailability
	events       []appoutbox.EventRecord
}

func (u *Unit) Rooms() domainrooms.RoomRepository {
	return roomRepo{unit: u}
}

func (u *Unit) Categories() domainrooms.CategoryRepository {
	return categoryRepo{unit: u}
}

func (u *Unit) Bookings() domainbooking.Repository {
	return bookingRepo{unit: u}
}

// Commit applies staged bookings, availability updates and outbox records
// under the store's write lock. A booking whose stored version moved since it
// was read aborts the whole unit with uow.ErrConflict; a staged insert that
// overlaps an active booking of its room aborts it with booking.ErrOverlap.
func (u *Unit) Commit(ctx context.Context) error {
	if u.closed {
		return ErrUnitClosed
	}
	u.closed = true
	if u.readOnly {
		return nil
	}
	s := u.store
	s.mu.Lock()
	if err := u.checkLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	for _, id := range u.order {
		s.bookings[id] = u.bookings[id].booking
	}
	for id, av := range u.availability {
		room, ok := s.rooms[id]
		if !ok {
			continue
		}
		room.Available = av.available
		room.UpdatedAt = av.at
		s.rooms[id] = room
	}
	s.mu.Unlock()

	if u.outbox != nil && len(u.events) > 0 {
		u.outbox.append(u.events...)
	}
	return nil
}

// checkLocked runs with s.mu held.
func (u *Unit) checkLocked() error {
	s := u.store
	for _, id := range u.order {
		staged := u.bookings[id]
		current, exists := s.bookings[id]
		switch {
		case !exists && staged.base != 0:
			return uow.ErrConflict
		case exists && current.Version != staged.base:
			return uow.ErrConflict
		}
	}
	for _, id := range u.order {
		staged := u.bookings[id]
		if staged.base != 0 || !staged.booking.Status.Active() {
			continue
		}
		if u.overlapsLocked(staged.booking) {
			return domainbooking.ErrOverlap
		}
	}
	return nil
}

// overlapsLocked checks b against committed bookings, as this unit would
// leave them, and against the unit's other staged bookings.
func (u *Unit) overlapsLocked(b *domainbooking.Booking) bool {
	clash := func(other *domainbooking.Booking) bool {
		return other.ID != b.ID &&
			other.RoomID == b.RoomID &&
			other.Status.Active() &&
			other.Range.Overlaps(b.Range)
	}
	for id, committed := range u.store.bookings {
		if _, staged := u.bookings[id]; staged {
			continue
		}
		if clash(committed) {
			return true
		}
	}
	for _, id := range u.order {
		if clash(u.bookings[id].booking) {
			return true
		}
	}
	return false
}

func (u *Unit) Rollback(context.Context) error {
	u.closed = true
	u.bookings = map[domainbooking.BookingID]stagedBooking{}
	u.order = nil
	u.availability = map[domainrooms.RoomID]stagedAvailability{}
	u.events = nil
	return nil
}

func (u *Unit) stageBooking(b *domainbooking.Booking) error {
	if u.closed {
		return ErrUnitClosed
	}
	if u.readOnly {
		return errors.New("memory: write in read-only unit")
	}
	if prev, ok := u.bookings[b.ID]; ok {
		// second save inside the same unit keeps the originally read version
		b.Version = prev.base + 1
		u.bookings[b.ID] = stagedBooking{booking: b.Clone(), base: prev.base}
		return nil
	}
	base := b.Version
	b.Version = base + 1
	u.bookings[b.ID] = stagedBooking{booking: b.Clone(), base: base}
	u.order = append(u.order, b.ID)
	return nil
}

func (u *Unit) stageEvent(rec appoutbox.EventRecord) {
	u.events = append(u.events, rec)
}

var _ uow.UnitOfWork = (*Unit)(nil)
var _ uow.UoWFactory = Factory{}
