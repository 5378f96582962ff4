package ledger

import (
	"context"
	"strings"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
)

const defaultListLimit = 200

func (l *Ledger) GetBooking(ctx context.Context, bookingID string, req Requester) (*domainbooking.Booking, error) {
	id := domainbooking.BookingID(strings.TrimSpace(bookingID))
	if id == "" {
		return nil, faults.New(faults.InvalidInput, "booking id is required")
	}
	var found *domainbooking.Booking
	err := l.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, id)
		if err != nil {
			return err
		}
		found = b
		return nil
	})
	if err != nil {
		return nil, l.fail(err)
	}
	if !req.owns(found) && !req.Privileged {
		return nil, faults.New(faults.Forbidden, "not authorized to view this booking")
	}
	return found, nil
}

// ListUserBookings returns the user's bookings, newest first.
func (l *Ledger) ListUserBookings(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, faults.New(faults.InvalidInput, "userId is required")
	}
	var out []*domainbooking.Booking
	err := l.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().ListByUser(ctx, userID)
		return err
	})
	if err != nil {
		return nil, l.fail(err)
	}
	return out, nil
}

// ListBookings is the administrative listing over all rooms.
func (l *Ledger) ListBookings(ctx context.Context, filter domainbooking.Filter, req Requester) ([]*domainbooking.Booking, error) {
	if !req.Privileged {
		return nil, faults.New(faults.Forbidden, "administrator access required")
	}
	if !filter.From.IsZero() && !filter.To.IsZero() && filter.To.Before(filter.From) {
		return nil, faults.New(faults.InvalidInput, "endDate must not be before startDate")
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}
	var out []*domainbooking.Booking
	err := l.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		var err error
		out, err = unit.Bookings().List(ctx, filter)
		return err
	})
	if err != nil {
		return nil, l.fail(err)
	}
	return out, nil
}
