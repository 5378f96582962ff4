package booking

import (
	"time"

	"hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/money"
)

type BookingCreated struct {
	BookingID BookingID
	RoomID    rooms.RoomID
	UserID    string
	Range     daterange.DateRange
	Total     money.Money
	Status    Status
	At        time.Time
}

func (e BookingCreated) EventName() string     { return "booking.created" }
func (e BookingCreated) AggregateID() string   { return string(e.BookingID) }
func (e BookingCreated) OccurredAt() time.Time { return e.At }

type BookingStatusChanged struct {
	BookingID BookingID
	RoomID    rooms.RoomID
	From      Status
	To        Status
	At        time.Time
}

func (e BookingStatusChanged) EventName() string     { return "booking.status_changed" }
func (e BookingStatusChanged) AggregateID() string   { return string(e.BookingID) }
func (e BookingStatusChanged) OccurredAt() time.Time { return e.At }

type BookingCancelled struct {
	BookingID BookingID
	RoomID    rooms.RoomID
	Range     daterange.DateRange
	From      Status
	At        time.Time
}

func (e BookingCancelled) EventName() string     { return "booking.cancelled" }
func (e BookingCancelled) AggregateID() string   { return string(e.BookingID) }
func (e BookingCancelled) OccurredAt() time.Time { return e.At }
