package ledger

import (
	"errors"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/policies"
	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/money"
)

var ErrUnitOfWorkRequired = errors.New("ledger: unit of work factory required")

type classification struct {
	target  error
	kind    faults.Kind
	message string
}

var classifications = []classification{
	{domainrooms.ErrRoomNotFound, faults.NotFound, "room not found"},
	{domainbooking.ErrBookingNotFound, faults.NotFound, "booking not found"},
	{daterange.ErrMissingDate, faults.InvalidInput, "checkIn and checkOut are required"},
	{daterange.ErrInvalidRange, faults.InvalidInput, "checkOut must be after checkIn"},
	{domainbooking.ErrInvalidGuests, faults.InvalidInput, "at least one adult guest is required"},
	{domainbooking.ErrUserRequired, faults.InvalidInput, "userId is required"},
	{domainbooking.ErrRoomRequired, faults.InvalidInput, "roomId is required"},
	{domainbooking.ErrUnknownStatus, faults.InvalidInput, "invalid status"},
	{domainbooking.ErrNonPositiveNights, faults.InvalidInput, "stay must cover at least one night"},
	{domainbooking.ErrPriceUnavailable, faults.InvalidState, "cannot calculate room price due to missing data"},
	{domainrooms.ErrCategoryNotFound, faults.InvalidState, "cannot calculate room price due to missing data"},
	{money.ErrCurrencyMismatch, faults.InvalidState, "room price currency does not match the ledger currency"},
	{domainbooking.ErrAlreadyCancelled, faults.InvalidState, "booking is already cancelled"},
	{domainbooking.ErrInvalidTransition, faults.InvalidState, "status transition not allowed"},
	{domainbooking.ErrPaymentMismatch, faults.InvalidState, "payment does not match the booking total"},
	{domainbooking.ErrAlreadyPaid, faults.InvalidState, "booking is already paid"},
	{domainbooking.ErrOverlap, faults.Conflict, "room is not available for these dates"},
	{uow.ErrConflict, faults.Conflict, "booking changed concurrently, retry"},
	{policies.ErrLockTimeout, faults.Conflict, "room is being booked by another request, retry"},
}

// classify tags err with a fault kind. Errors already tagged pass through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var fe *faults.Error
	if errors.As(err, &fe) {
		return err
	}
	for _, c := range classifications {
		if errors.Is(err, c.target) {
			return faults.Wrap(c.kind, c.message, err)
		}
	}
	return faults.Wrap(faults.Internal, "ledger operation failed", err)
}

func (l *Ledger) fail(err error) error {
	tagged := classify(err)
	if faults.KindOf(tagged) == faults.Internal {
		l.logger().Error("ledger internal error", "error", err)
	}
	return tagged
}
