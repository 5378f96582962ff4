// Package payments reacts to events published by the payment service.
package payments

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"hotelbook/internal/app/commands"
	"hotelbook/internal/app/dto"
	"hotelbook/internal/app/faults"
	bookinghandlers "hotelbook/internal/app/handlers/booking"
	"hotelbook/internal/app/ledger"
	domainbooking "hotelbook/internal/domain/booking"
	"hotelbook/internal/domain/shared/money"
)

// ServiceActor is the requester id used for status changes driven by payments.
const ServiceActor = "payment-service"

var (
	ErrMissingBooking = errors.New("payments: event has no booking id")
	ErrInvalidAmount  = errors.New("payments: event amount or currency invalid")
)

// Inbox records processed event ids. Forget undoes Seen so a failed event can
// be delivered again.
type Inbox interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Forget(ctx context.Context, eventID string) error
}

// PaymentPaid is the broker-independent view of a "payment.paid" event.
type PaymentPaid struct {
	EventID   string
	PaymentID string
	BookingID string
	Amount    string
	Currency  string
}

func (p PaymentPaid) paid() (money.Money, error) {
	if strings.TrimSpace(p.Amount) == "" || strings.TrimSpace(p.Currency) == "" {
		return money.Money{}, ErrInvalidAmount
	}
	m, err := money.Parse(p.Amount, strings.TrimSpace(p.Currency))
	if err != nil {
		return money.Money{}, errors.Join(ErrInvalidAmount, err)
	}
	return m, nil
}

func (p PaymentPaid) dedupKey() string {
	if p.EventID != "" {
		return p.EventID
	}
	return p.PaymentID
}

// Confirmer confirms pending bookings once a payment for their exact total
// settles.
type Confirmer struct {
	Commands commands.Bus
	Inbox    Inbox
	Logger   *slog.Logger
}

// HandlePaid returns an error only when the event should be redelivered.
func (c *Confirmer) HandlePaid(ctx context.Context, evt PaymentPaid) error {
	evt.BookingID = strings.TrimSpace(evt.BookingID)
	log := c.logger().With("booking_id", evt.BookingID, "payment_id", evt.PaymentID, "event_id", evt.EventID)
	if evt.BookingID == "" {
		log.Warn("payment event dropped", "error", ErrMissingBooking)
		return nil
	}
	paid, err := evt.paid()
	if err != nil {
		log.Warn("payment event dropped", "amount", evt.Amount, "currency", evt.Currency, "error", err)
		return nil
	}
	key := evt.dedupKey()
	if key != "" && c.Inbox != nil {
		seen, err := c.Inbox.Seen(ctx, key)
		if err != nil {
			return err
		}
		if seen {
			log.Debug("payment event already processed")
			return nil
		}
	}

	_, err = commands.Dispatch[bookinghandlers.ConfirmPaymentCommand, *dto.Booking](ctx, c.Commands, bookinghandlers.ConfirmPaymentCommand{
		BookingID: evt.BookingID,
		Amount:    paid,
		Requester: ledger.Requester{ID: ServiceActor, Privileged: true},
	})
	switch kind := faults.KindOf(err); {
	case err == nil:
		log.Info("booking confirmed by payment", "amount", paid.String())
		return nil
	case errors.Is(err, domainbooking.ErrPaymentMismatch):
		// left pending for an operator to reconcile
		log.Warn("payment amount mismatch", "amount", paid.String(), "reason", faults.PublicMessage(err))
		return nil
	case kind == faults.Internal || kind == faults.Conflict:
		if key != "" && c.Inbox != nil {
			if ferr := c.Inbox.Forget(ctx, key); ferr != nil {
				log.Error("inbox forget failed", "error", ferr)
			}
		}
		return err
	default:
		// not found, already paid, or cancelled: nothing to retry
		log.Info("payment event ignored", "kind", string(kind), "reason", faults.PublicMessage(err))
		return nil
	}
}

func (c *Confirmer) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
