package booking

import (
	"context"
	"time"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/dto"
	"hotelbook/internal/app/ledger"
	"hotelbook/internal/app/middleware"
	domainbooking "hotelbook/internal/domain/booking"
	"hotelbook/internal/domain/shared/money"
)

const (
	createBookingKey     = "booking.create"
	cancelBookingKey     = "booking.cancel"
	transitionBookingKey = "booking.transition"
	confirmPaymentKey    = "booking.confirm_payment"
)

type CreateBookingCommand struct {
	RoomID          string
	CheckIn         time.Time
	CheckOut        time.Time
	Adults          int
	Children        int
	SpecialRequests string
	Requester       ledger.Requester
	IdempotencyKeyV string
}

func (c CreateBookingCommand) Key() string { return createBookingKey }

func (c CreateBookingCommand) Actor() ledger.Requester { return c.Requester }

// IdempotencyKey is scoped to the caller so two users can reuse a client key.
func (c CreateBookingCommand) IdempotencyKey() string {
	if c.IdempotencyKeyV == "" {
		return ""
	}
	return c.Requester.ID + ":" + c.IdempotencyKeyV
}

func (c CreateBookingCommand) ResultPrototype() any { return &dto.Booking{} }

func (c CreateBookingCommand) LogAttrs() []any {
	return []any{"room_id", c.RoomID, "user_id", c.Requester.ID}
}

type CancelBookingCommand struct {
	BookingID string
	Requester ledger.Requester
}

func (c CancelBookingCommand) Key() string { return cancelBookingKey }

func (c CancelBookingCommand) Actor() ledger.Requester { return c.Requester }

func (c CancelBookingCommand) LogAttrs() []any { return []any{"booking_id", c.BookingID} }

type TransitionBookingCommand struct {
	BookingID string
	Status    string
	Requester ledger.Requester
}

func (c TransitionBookingCommand) Key() string { return transitionBookingKey }

func (c TransitionBookingCommand) Actor() ledger.Requester { return c.Requester }

func (c TransitionBookingCommand) RequiresPrivilege() bool { return true }

func (c TransitionBookingCommand) LogAttrs() []any {
	return []any{"booking_id", c.BookingID, "to", c.Status}
}

// ConfirmPaymentCommand settles a booking once the payment provider reports
// the charge.
type ConfirmPaymentCommand struct {
	BookingID string
	Amount    money.Money
	Requester ledger.Requester
}

func (c ConfirmPaymentCommand) Key() string { return confirmPaymentKey }

func (c ConfirmPaymentCommand) Actor() ledger.Requester { return c.Requester }

func (c ConfirmPaymentCommand) RequiresPrivilege() bool { return true }

func (c ConfirmPaymentCommand) LogAttrs() []any {
	return []any{"booking_id", c.BookingID, "amount", c.Amount.String()}
}

// Ledger is the subset of the reservation ledger the handlers drive.
type Ledger interface {
	CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error)
	CreateBooking(ctx context.Context, in ledger.CreateBookingInput) (*domainbooking.Booking, error)
	CancelBooking(ctx context.Context, bookingID string, req ledger.Requester) (*domainbooking.Booking, error)
	TransitionStatus(ctx context.Context, bookingID, newStatus string, req ledger.Requester) (*domainbooking.Booking, error)
	ConfirmPayment(ctx context.Context, bookingID string, paid money.Money, req ledger.Requester) (*domainbooking.Booking, error)
	GetBooking(ctx context.Context, bookingID string, req ledger.Requester) (*domainbooking.Booking, error)
	ListUserBookings(ctx context.Context, userID string) ([]*domainbooking.Booking, error)
	ListBookings(ctx context.Context, filter domainbooking.Filter, req ledger.Requester) ([]*domainbooking.Booking, error)
}

type CreateBookingHandler struct {
	Ledger Ledger
}

func (h CreateBookingHandler) Handle(ctx context.Context, cmd CreateBookingCommand) (*dto.Booking, error) {
	b, err := h.Ledger.CreateBooking(ctx, ledger.CreateBookingInput{
		RoomID:          cmd.RoomID,
		UserID:          cmd.Requester.ID,
		CheckIn:         cmd.CheckIn,
		CheckOut:        cmd.CheckOut,
		Guests:          domainbooking.Guests{Adults: cmd.Adults, Children: cmd.Children},
		SpecialRequests: cmd.SpecialRequests,
	})
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

type CancelBookingHandler struct {
	Ledger Ledger
}

func (h CancelBookingHandler) Handle(ctx context.Context, cmd CancelBookingCommand) (*dto.Booking, error) {
	b, err := h.Ledger.CancelBooking(ctx, cmd.BookingID, cmd.Requester)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

type TransitionBookingHandler struct {
	Ledger Ledger
}

func (h TransitionBookingHandler) Handle(ctx context.Context, cmd TransitionBookingCommand) (*dto.Booking, error) {
	b, err := h.Ledger.TransitionStatus(ctx, cmd.BookingID, cmd.Status, cmd.Requester)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

type ConfirmPaymentHandler struct {
	Ledger Ledger
}

func (h ConfirmPaymentHandler) Handle(ctx context.Context, cmd ConfirmPaymentCommand) (*dto.Booking, error) {
	b, err := h.Ledger.ConfirmPayment(ctx, cmd.BookingID, cmd.Amount, cmd.Requester)
	if err != nil {
		return nil, err
	}
	view := dto.MapBooking(b)
	return &view, nil
}

// RegisterCommands binds the booking command handlers to bus.
func RegisterCommands(bus *commands.InMemoryBus, l Ledger) {
	commands.Register[CreateBookingCommand, *dto.Booking](bus, CreateBookingHandler{Ledger: l})
	commands.Register[CancelBookingCommand, *dto.Booking](bus, CancelBookingHandler{Ledger: l})
	commands.Register[TransitionBookingCommand, *dto.Booking](bus, TransitionBookingHandler{Ledger: l})
	commands.Register[ConfirmPaymentCommand, *dto.Booking](bus, ConfirmPaymentHandler{Ledger: l})
}

var (
	_ middleware.IdempotentCommand = CreateBookingCommand{}
	_ middleware.Actor             = CancelBookingCommand{}
	_ middleware.Privileged        = TransitionBookingCommand{}
	_ middleware.Privileged        = ConfirmPaymentCommand{}
	_ commands.Described           = CreateBookingCommand{}
)
