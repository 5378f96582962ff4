package booking

import (
	"context"
	"time"

	"hotelbook/internal/app/dto"
	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/queries"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
)

const (
	availabilityKey = "booking.availability"
	getBookingKey   = "booking.get"
	listMineKey     = "booking.list_mine"
	listAllKey      = "booking.list_all"
)

// AvailabilityQuery is public; it carries no requester.
type AvailabilityQuery struct {
	RoomID   string
	CheckIn  time.Time
	CheckOut time.Time
}

func (q AvailabilityQuery) Key() string { return availabilityKey }

func (q AvailabilityQuery) LogAttrs() []any { return []any{"room_id", q.RoomID} }

type GetBookingQuery struct {
	BookingID string
	Requester ledger.Requester
}

func (q GetBookingQuery) Key() string { return getBookingKey }

func (q GetBookingQuery) Actor() ledger.Requester { return q.Requester }

func (q GetBookingQuery) LogAttrs() []any { return []any{"booking_id", q.BookingID} }

type ListMyBookingsQuery struct {
	Requester ledger.Requester
}

func (q ListMyBookingsQuery) Key() string { return listMineKey }

func (q ListMyBookingsQuery) Actor() ledger.Requester { return q.Requester }

type ListAllBookingsQuery struct {
	Status    string
	RoomID    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
	Offset    int
	Requester ledger.Requester
}

func (q ListAllBookingsQuery) Key() string { return listAllKey }

func (q ListAllBookingsQuery) Actor() ledger.Requester { return q.Requester }

func (q ListAllBookingsQuery) RequiresPrivilege() bool { return true }

func (q ListAllBookingsQuery) LogAttrs() []any {
	return []any{"status", q.Status, "room_id", q.RoomID}
}

type AvailabilityHandler struct {
	Ledger Ledger
}

func (h AvailabilityHandler) Handle(ctx context.Context, q AvailabilityQuery) (*dto.Availability, error) {
	available, err := h.Ledger.CheckAvailability(ctx, q.RoomID, q.CheckIn, q.CheckOut)
	if err != nil {
		return nil, err
	}
	return &dto.Availability{RoomID: q.RoomID, CheckIn: q.CheckIn.UTC(), CheckOut: q.CheckOut.UTC(), Available: available}, nil
}

type GetBookingHandler struct {
	Ledger Ledger
}

func (h GetBookingHandler) Handle(ctx context.Context, q GetBookingQuery) (*dto.Booking, error) {
	b, err := h.Ledger.GetBooking(ctx, q.BookingID, q.Requester)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

type ListMyBookingsHandler struct {
	Ledger Ledger
}

func (h ListMyBookingsHandler) Handle(ctx context.Context, q ListMyBookingsQuery) (*dto.BookingCollection, error) {
	items, err := h.Ledger.ListUserBookings(ctx, q.Requester.ID)
	if err != nil {
		return nil, err
	}
	out := dto.MapBookings(items)
	return &out, nil
}

type ListAllBookingsHandler struct {
	Ledger Ledger
}

func (h ListAllBookingsHandler) Handle(ctx context.Context, q ListAllBookingsQuery) (*dto.BookingCollection, error) {
	filter := domainbooking.Filter{
		RoomID: domainrooms.RoomID(q.RoomID),
		From:   q.StartDate,
		To:     q.EndDate,
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Status != "" {
		status, err := domainbooking.ParseStatus(q.Status)
		if err != nil {
			return nil, faults.Wrap(faults.InvalidInput, "invalid status", err)
		}
		filter.Status = status
	}
	items, err := h.Ledger.ListBookings(ctx, filter, q.Requester)
	if err != nil {
		return nil, err
	}
	out := dto.MapBookings(items)
	return &out, nil
}

func RegisterQueries(bus *queries.InMemoryBus, l Ledger) {
	queries.Register[AvailabilityQuery, *dto.Availability](bus, AvailabilityHandler{Ledger: l})
	queries.Register[GetBookingQuery, *dto.Booking](bus, GetBookingHandler{Ledger: l})
	queries.Register[ListMyBookingsQuery, *dto.BookingCollection](bus, ListMyBookingsHandler{Ledger: l})
	queries.Register[ListAllBookingsQuery, *dto.BookingCollection](bus, ListAllBookingsHandler{Ledger: l})
}

var (
	_ queries.Described = AvailabilityQuery{}
	_ queries.Described = GetBookingQuery{}
)
