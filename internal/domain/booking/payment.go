package booking

import (
	"errors"
	"time"

	"hotelbook/internal/domain/shared/money"
)

var (
	ErrPaymentMismatch = errors.New("booking: payment does not match the booking total")
	ErrAlreadyPaid     = errors.New("booking: already paid")
)

// PaymentStatus tracks money for a booking independently of its lifecycle
// status.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
)

// ParsePaymentStatus maps stored values, treating empty as pending.
func ParsePaymentStatus(raw string) PaymentStatus {
	switch PaymentStatus(raw) {
	case PaymentPaid:
		return PaymentPaid
	case PaymentRefunded:
		return PaymentRefunded
	default:
		return PaymentPending
	}
}

type BookingPaid struct {
	BookingID BookingID
	Amount    money.Money
	Status    Status
	At        time.Time
}

func (e BookingPaid) EventName() string     { return "booking.paid" }
func (e BookingPaid) AggregateID() string   { return string(e.BookingID) }
func (e BookingPaid) OccurredAt() time.Time { return e.At }

// RecordPayment settles the booking when paid equals the quoted total. A
// pending booking becomes confirmed; a confirmed one only changes payment
// status. Nothing changes on error.
func (b *Booking) RecordPayment(paid money.Money, now time.Time) error {
	if b.Payment == PaymentPaid {
		return ErrAlreadyPaid
	}
	if b.Status != StatusPending && b.Status != StatusConfirmed {
		return ErrInvalidTransition
	}
	if !paid.Equal(b.Quote.Total) {
		return ErrPaymentMismatch
	}
	if b.Status == StatusPending {
		if err := b.Transition(StatusConfirmed, now); err != nil {
			return err
		}
	}
	b.Payment = PaymentPaid
	b.UpdatedAt = now.UTC()
	b.Record(BookingPaid{BookingID: b.ID, Amount: paid, Status: b.Status, At: b.UpdatedAt})
	return nil
}
