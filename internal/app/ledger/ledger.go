// Package ledger owns bookings: it decides whether a room can be booked for a
// date range, prices stays, drives the booking status machine and keeps the
// room availability cache in step with it.
package ledger

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/outbox"
	"hotelbook/internal/app/policies"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/money"
)

type PriceSource string

const (
	PriceFromRoom     PriceSource = "room"
	PriceFromCategory PriceSource = "category"
)

type Policy struct {
	// InitialStatus is pending or confirmed.
	InitialStatus domainbooking.Status
	PriceSource   PriceSource
	// Currency, when set, is the only currency bookings may be priced in.
	Currency string
}

func DefaultPolicy() Policy {
	return Policy{InitialStatus: domainbooking.StatusPending, PriceSource: PriceFromRoom}
}

// Requester is the identity resolved by the authentication layer.
type Requester struct {
	ID         string
	Privileged bool
}

func (r Requester) owns(b *domainbooking.Booking) bool {
	return r.ID != "" && r.ID == b.UserID
}

type CreateBookingInput struct {
	RoomID          string
	UserID          string
	CheckIn         time.Time
	CheckOut        time.Time
	Guests          domainbooking.Guests
	SpecialRequests string
}

type Ledger struct {
	UoWFactory  uow.UoWFactory
	Locker      policies.RoomLocker
	Outbox      outbox.Outbox
	Encoder     outbox.EventEncoder
	Clock       policies.Clock
	Policy      Policy
	IDGenerator func() string
	Logger      *slog.Logger
}

// CheckAvailability reports whether no active booking of the room overlaps
// [checkIn, checkOut).
func (l *Ledger) CheckAvailability(ctx context.Context, roomID string, checkIn, checkOut time.Time) (bool, error) {
	roomID = strings.TrimSpace(roomID)
	if roomID == "" {
		return false, faults.New(faults.InvalidInput, "roomId is required")
	}
	dr, err := daterange.New(checkIn, checkOut)
	if err != nil {
		return false, l.fail(err)
	}
	var available bool
	err = l.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		room, err := unit.Rooms().ByID(ctx, domainrooms.RoomID(roomID))
		if err != nil {
			return err
		}
		available, err = l.rangeFree(ctx, unit, room.ID, dr)
		return err
	})
	if err != nil {
		return false, l.fail(err)
	}
	return available, nil
}

// CreateBooking books the room for the range. The room lock is held from the
// overlap check until the unit of work commits.
func (l *Ledger) CreateBooking(ctx context.Context, in CreateBookingInput) (*domainbooking.Booking, error) {
	roomID := strings.TrimSpace(in.RoomID)
	userID := strings.TrimSpace(in.UserID)
	if roomID == "" || userID == "" {
		return nil, faults.New(faults.InvalidInput, "roomId and userId are required")
	}
	if err := in.Guests.Validate(); err != nil {
		return nil, l.fail(err)
	}
	dr, err := daterange.New(in.CheckIn, in.CheckOut)
	if err != nil {
		return nil, l.fail(err)
	}

	release, err := l.lock(ctx, roomID)
	if err != nil {
		return nil, l.fail(err)
	}
	defer release()

	var created *domainbooking.Booking
	err = l.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		room, err := unit.Rooms().ByID(ctx, domainrooms.RoomID(roomID))
		if err != nil {
			return err
		}
		if !room.Bookable {
			return faults.New(faults.InvalidState, "room is not available")
		}
		free, err := l.rangeFree(ctx, unit, room.ID, dr)
		if err != nil {
			return err
		}
		if !free {
			l.logger().Info("booking rejected: dates overlap", "room_id", room.ID, "check_in", dr.CheckIn, "check_out", dr.CheckOut)
			return faults.New(faults.Conflict, "room is not available for these dates")
		}
		nightly, err := l.nightlyPrice(ctx, unit, room)
		if err != nil {
			return err
		}
		quote, err := domainbooking.QuoteStay(dr, nightly)
		if err != nil {
			return err
		}
		b, err := domainbooking.NewBooking(domainbooking.CreateParams{
			ID:              domainbooking.BookingID(l.newID()),
			RoomID:          room.ID,
			UserID:          userID,
			Range:           dr,
			Guests:          in.Guests,
			Quote:           quote,
			Status:          l.initialStatus(),
			SpecialRequests: strings.TrimSpace(in.SpecialRequests),
			CreatedAt:       l.now(),
		})
		if err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := l.refreshAvailability(ctx, unit, room.ID); err != nil {
			return err
		}
		if err := l.recordEvents(ctx, b); err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, l.fail(err)
	}
	l.logger().Info("booking created", "booking_id", created.ID, "room_id", created.RoomID, "status", created.Status, "total", created.Quote.Total.String())
	return created, nil
}

// CancelBooking cancels a booking owned by the requester, or any booking for a
// privileged requester.
func (l *Ledger) CancelBooking(ctx context.Context, bookingID string, req Requester) (*domainbooking.Booking, error) {
	return l.mutate(ctx, bookingID, func(b *domainbooking.Booking, now time.Time) error {
		if !req.owns(b) && !req.Privileged {
			return faults.New(faults.Forbidden, "not authorized to cancel this booking")
		}
		return b.Cancel(now)
	})
}

// TransitionStatus drives the booking status machine. Non-privileged callers
// may only cancel their own bookings.
func (l *Ledger) TransitionStatus(ctx context.Context, bookingID, newStatus string, req Requester) (*domainbooking.Booking, error) {
	status, err := domainbooking.ParseStatus(newStatus)
	if err != nil {
		return nil, l.fail(err)
	}
	if !req.Privileged {
		if status == domainbooking.StatusCancelled {
			return l.CancelBooking(ctx, bookingID, req)
		}
		return nil, faults.New(faults.Forbidden, "only administrators can change booking status")
	}
	return l.mutate(ctx, bookingID, func(b *domainbooking.Booking, now time.Time) error {
		return b.Transition(status, now)
	})
}

// ConfirmPayment settles a booking from a payment notification. The paid
// amount must equal the quoted total in the same currency.
func (l *Ledger) ConfirmPayment(ctx context.Context, bookingID string, paid money.Money, req Requester) (*domainbooking.Booking, error) {
	if !req.Privileged {
		return nil, faults.New(faults.Forbidden, "only the payment service can confirm payments")
	}
	return l.mutate(ctx, bookingID, func(b *domainbooking.Booking, now time.Time) error {
		if err := b.RecordPayment(paid, now); err != nil {
			if errors.Is(err, domainbooking.ErrPaymentMismatch) {
				l.logger().Warn("payment rejected", "booking_id", b.ID, "paid", paid.String(), "total", b.Quote.Total.String())
			}
			return err
		}
		return nil
	})
}

// mutate loads the booking, locks its room and applies change inside one unit.
func (l *Ledger) mutate(ctx context.Context, bookingID string, change func(b *domainbooking.Booking, now time.Time) error) (*domainbooking.Booking, error) {
	id := domainbooking.BookingID(strings.TrimSpace(bookingID))
	if id == "" {
		return nil, faults.New(faults.InvalidInput, "booking id is required")
	}
	var roomID domainrooms.RoomID
	err := l.read(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, id)
		if err != nil {
			return err
		}
		roomID = b.RoomID
		return nil
	})
	if err != nil {
		return nil, l.fail(err)
	}

	release, err := l.lock(ctx, string(roomID))
	if err != nil {
		return nil, l.fail(err)
	}
	defer release()

	var updated *domainbooking.Booking
	err = l.write(ctx, func(ctx context.Context, unit uow.UnitOfWork) error {
		b, err := unit.Bookings().ByID(ctx, id)
		if err != nil {
			return err
		}
		from := b.Status
		if err := change(b, l.now()); err != nil {
			return err
		}
		if err := unit.Bookings().Save(ctx, b); err != nil {
			return err
		}
		if err := l.refreshAvailability(ctx, unit, b.RoomID); err != nil {
			return err
		}
		if err := l.recordEvents(ctx, b); err != nil {
			return err
		}
		l.logger().Info("booking status changed", "booking_id", b.ID, "room_id", b.RoomID, "from", from, "to", b.Status)
		updated = b
		return nil
	})
	if err != nil {
		return nil, l.fail(err)
	}
	return updated, nil
}

func (l *Ledger) rangeFree(ctx context.Context, unit uow.UnitOfWork, roomID domainrooms.RoomID, dr daterange.DateRange) (bool, error) {
	active, err := unit.Bookings().ActiveForRoom(ctx, roomID, dr)
	if err != nil {
		return false, err
	}
	for _, b := range active {
		if b.Status.Active() && b.Range.Overlaps(dr) {
			return false, nil
		}
	}
	return true, nil
}

// refreshAvailability recomputes the room cache for today. The room record is
// written even when the value is unchanged so concurrent units on the same
// room collide in stores that detect write conflicts.
func (l *Ledger) refreshAvailability(ctx context.Context, unit uow.UnitOfWork, roomID domainrooms.RoomID) error {
	now := l.now()
	free, err := l.rangeFree(ctx, unit, roomID, daterange.Day(now))
	if err != nil {
		return err
	}
	return unit.Rooms().SetAvailability(ctx, roomID, free, now)
}

func (l *Ledger) nightlyPrice(ctx context.Context, unit uow.UnitOfWork, room *domainrooms.Room) (money.Money, error) {
	price := room.NightlyPrice
	if l.Policy.PriceSource == PriceFromCategory {
		if room.CategoryID == "" {
			return money.Money{}, domainbooking.ErrPriceUnavailable
		}
		category, err := unit.Categories().ByID(ctx, room.CategoryID)
		if err != nil {
			return money.Money{}, err
		}
		price = category.PricePerNight
	}
	if l.Policy.Currency != "" && price.Currency != "" && !strings.EqualFold(price.Currency, l.Policy.Currency) {
		return money.Money{}, money.ErrCurrencyMismatch
	}
	return price, nil
}

func (l *Ledger) recordEvents(ctx context.Context, b *domainbooking.Booking) error {
	return outbox.RecordDomainEvents(ctx, l.Outbox, l.Encoder, b.PullEvents())
}

func (l *Ledger) lock(ctx context.Context, roomID string) (func(), error) {
	if l.Locker == nil {
		return func() {}, nil
	}
	return l.Locker.Lock(ctx, roomID)
}

func (l *Ledger) write(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return l.run(ctx, uow.TxOptions{}, fn)
}

func (l *Ledger) read(ctx context.Context, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	return l.run(ctx, uow.TxOptions{ReadOnly: true}, fn)
}

func (l *Ledger) run(ctx context.Context, opts uow.TxOptions, fn func(ctx context.Context, unit uow.UnitOfWork) error) error {
	if l.UoWFactory == nil {
		return ErrUnitOfWorkRequired
	}
	unit, err := l.UoWFactory.Begin(ctx, opts)
	if err != nil {
		return err
	}
	execCtx := uow.ExecContext(ctx, unit)
	committed := false
	defer func() {
		if !committed {
			_ = unit.Rollback(execCtx)
		}
	}()
	if err := fn(execCtx, unit); err != nil {
		return err
	}
	if opts.ReadOnly {
		return nil
	}
	if err := unit.Commit(execCtx); err != nil {
		return err
	}
	committed = true
	return nil
}

func (l *Ledger) initialStatus() domainbooking.Status {
	if l.Policy.InitialStatus == domainbooking.StatusConfirmed {
		return domainbooking.StatusConfirmed
	}
	return domainbooking.StatusPending
}

func (l *Ledger) now() time.Time {
	if l.Clock != nil {
		return l.Clock().UTC()
	}
	return policies.SystemClock()
}

func (l *Ledger) newID() string {
	if l.IDGenerator != nil {
		return l.IDGenerator()
	}
	return uuid.NewString()
}

func (l *Ledger) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}
