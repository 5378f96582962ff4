package memory

import (
	"context"
	"sort"
	"time"

	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
)

type roomRepo struct {
	unit *Unit
}

func (r roomRepo) ByID(_ context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	room, ok := r.unit.store.Room(id)
	if !ok {
		return nil, domainrooms.ErrRoomNotFound
	}
	if av, staged := r.unit.availability[id]; staged {
		room.Available = av.available
		room.UpdatedAt = av.at
	}
	return &room, nil
}

func (r roomRepo) SetAvailability(_ context.Context, id domainrooms.RoomID, available bool, at time.Time) error {
	if r.unit.closed {
		return ErrUnitClosed
	}
	if _, ok := r.unit.store.Room(id); !ok {
		return domainrooms.ErrRoomNotFound
	}
	r.unit.availability[id] = stagedAvailability{available: available, at: at.UTC()}
	return nil
}

type categoryRepo struct {
	unit *Unit
}

func (r categoryRepo) ByID(_ context.Context, id domainrooms.CategoryID) (*domainrooms.Category, error) {
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	category, ok := s.categories[id]
	if !ok {
		return nil, domainrooms.ErrCategoryNotFound
	}
	return &category, nil
}

type bookingRepo struct {
	unit *Unit
}

func (r bookingRepo) ByID(_ context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	if staged, ok := r.unit.bookings[id]; ok {
		return staged.booking.Clone(), nil
	}
	s := r.unit.store
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return nil, domainbooking.ErrBookingNotFound
	}
	return b.Clone(), nil
}

func (r bookingRepo) Save(_ context.Context, b *domainbooking.Booking) error {
	if b == nil || b.ID == "" {
		return domainbooking.ErrBookingNotFound
	}
	return r.unit.stageBooking(b)
}

func (r bookingRepo) ActiveForRoom(_ context.Context, roomID domainrooms.RoomID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.RoomID == roomID && b.Status.Active() && b.Range.Overlaps(dr)
	}), nil
}

func (r bookingRepo) ListByUser(_ context.Context, userID string) ([]*domainbooking.Booking, error) {
	return r.collect(func(b *domainbooking.Booking) bool {
		return b.UserID == userID
	}), nil
}

func (r bookingRepo) List(_ context.Context, filter domainbooking.Filter) ([]*domainbooking.Booking, error) {
	out := r.collect(filter.Matches)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*domainbooking.Booking{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// collect merges committed and staged bookings, newest first.
func (r bookingRepo) collect(keep func(*domainbooking.Booking) bool) []*domainbooking.Booking {
	s := r.unit.store
	out := make([]*domainbooking.Booking, 0)
	s.mu.RLock()
	for id, b := range s.bookings {
		if _, staged := r.unit.bookings[id]; staged {
			continue
		}
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	s.mu.RUnlock()
	for _, id := range r.unit.order {
		b := r.unit.bookings[id].booking
		if keep(b) {
			out = append(out, b.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

var (
	_ domainrooms.RoomRepository     = roomRepo{}
	_ domainrooms.CategoryRepository = categoryRepo{}
	_ domainbooking.Repository       = bookingRepo{}
)
