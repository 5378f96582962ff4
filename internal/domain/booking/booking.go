package booking

import (
	"context"
	"errors"
	"time"

	"hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/events"
)

var (
	ErrInvalidGuests     = errors.New("booking: at least one adult guest required")
	ErrUserRequired      = errors.New("booking: user id required")
	ErrRoomRequired      = errors.New("booking: room id required")
	ErrInvalidTransition = errors.New("booking: invalid status transition")
	ErrAlreadyCancelled  = errors.New("booking: already cancelled")
	ErrBookingNotFound   = errors.New("booking: not found")
	// ErrOverlap is reported by stores that refuse an active booking whose
	// dates intersect another active booking of the same room.
	ErrOverlap = errors.New("booking: dates overlap an active booking")
)

type BookingID string

type Guests struct {
	Adults   int
	Children int
}

func (g Guests) Total() int {
	return g.Adults + g.Children
}

func (g Guests) Validate() error {
	if g.Adults < 1 || g.Children < 0 {
		return ErrInvalidGuests
	}
	return nil
}

type Booking struct {
	ID              BookingID
	RoomID          rooms.RoomID
	UserID          string
	Range           daterange.DateRange
	Guests          Guests
	Quote           Quote
	Status          Status
	Payment         PaymentStatus
	SpecialRequests string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	Version         int64
	events.EventRecorder
}

// Filter narrows admin listings. From/To bound the check-in date inclusively.
type Filter struct {
	Status Status
	RoomID rooms.RoomID
	From   time.Time
	To     time.Time
	Limit  int
	Offset int
}

func (f Filter) Matches(b *Booking) bool {
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.RoomID != "" && b.RoomID != f.RoomID {
		return false
	}
	if !f.From.IsZero() && b.Range.CheckIn.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && b.Range.CheckIn.After(f.To) {
		return false
	}
	return true
}

type Repository interface {
	ByID(ctx context.Context, id BookingID) (*Booking, error)
	Save(ctx context.Context, booking *Booking) error
	// ActiveForRoom returns non-cancelled bookings of the room overlapping dr.
	ActiveForRoom(ctx context.Context, roomID rooms.RoomID, dr daterange.DateRange) ([]*Booking, error)
	ListByUser(ctx context.Context, userID string) ([]*Booking, error)
	List(ctx context.Context, filter Filter) ([]*Booking, error)
}

type CreateParams struct {
	ID              BookingID
	RoomID          rooms.RoomID
	UserID          string
	Range           daterange.DateRange
	Guests          Guests
	Quote           Quote
	Status          Status
	SpecialRequests string
	CreatedAt       time.Time
}

func NewBooking(params CreateParams) (*Booking, error) {
	if params.RoomID == "" {
		return nil, ErrRoomRequired
	}
	if params.UserID == "" {
		return nil, ErrUserRequired
	}
	if err := params.Guests.Validate(); err != nil {
		return nil, err
	}
	if err := params.Range.Validate(); err != nil {
		return nil, err
	}
	status := params.Status
	if status == "" {
		status = StatusPending
	}
	if status != StatusPending && status != StatusConfirmed {
		return nil, ErrInvalidTransition
	}
	now := params.CreatedAt.UTC()
	b := &Booking{
		ID:              params.ID,
		RoomID:          params.RoomID,
		UserID:          params.UserID,
		Range:           params.Range,
		Guests:          params.Guests,
		Quote:           params.Quote,
		Status:          status,
		Payment:         PaymentPending,
		SpecialRequests: params.SpecialRequests,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	b.Record(BookingCreated{
		BookingID: b.ID,
		RoomID:    b.RoomID,
		UserID:    b.UserID,
		Range:     b.Range,
		Total:     b.Quote.Total,
		Status:    b.Status,
		At:        now,
	})
	return b, nil
}

// Transition moves the booking along the status machine.
func (b *Booking) Transition(to Status, now time.Time) error {
	if b.Status == StatusCancelled && to == StatusCancelled {
		return ErrAlreadyCancelled
	}
	if !CanTransition(b.Status, to) {
		return ErrInvalidTransition
	}
	from := b.Status
	b.Status = to
	b.UpdatedAt = now.UTC()
	if to == StatusCancelled {
		if b.Payment == PaymentPaid {
			b.Payment = PaymentRefunded
		}
		b.Record(BookingCancelled{BookingID: b.ID, RoomID: b.RoomID, Range: b.Range, From: from, At: b.UpdatedAt})
		return nil
	}
	b.Record(BookingStatusChanged{BookingID: b.ID, RoomID: b.RoomID, From: from, To: to, At: b.UpdatedAt})
	return nil
}

func (b *Booking) Cancel(now time.Time) error {
	return b.Transition(StatusCancelled, now)
}

// Clone copies the booking without its pending events.
func (b *Booking) Clone() *Booking {
	if b == nil {
		return nil
	}
	out := *b
	out.EventRecorder = events.EventRecorder{}
	return &out
}
