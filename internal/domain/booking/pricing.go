package booking

import (
	"errors"

	"hotelbook/internal/domain/shared/daterange"
	"hotelbook/internal/domain/shared/money"
)

var (
	ErrNonPositiveNights = errors.New("booking: stay must cover at least one night")
	ErrPriceUnavailable  = errors.New("booking: nightly price missing or not positive")
)

// Quote is the price snapshot stored on a booking. It can be recomputed from
// the stored range and nightly price.
type Quote struct {
	Nights       int
	NightlyPrice money.Money
	Total        money.Money
}

// QuoteStay prices a stay as nights * nightly. No proration, taxes or fees.
func QuoteStay(dr daterange.DateRange, nightly money.Money) (Quote, error) {
	nights := dr.Nights()
	if nights <= 0 {
		return Quote{}, ErrNonPositiveNights
	}
	if !nightly.IsPositive() || nightly.Currency == "" {
		return Quote{}, ErrPriceUnavailable
	}
	return Quote{
		Nights:       nights,
		NightlyPrice: nightly,
		Total:        nightly.Multiply(int64(nights)),
	}, nil
}
