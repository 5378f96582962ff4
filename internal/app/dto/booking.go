package dto

import (
	"time"

	domainbooking "hotelbook/internal/domain/booking"
	"hotelbook/internal/domain/shared/money"
)

// MoneyDTO carries decimal amounts as strings so they survive JSON unchanged.
type MoneyDTO struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

type GuestsDTO struct {
	Adults   int `json:"adults"`
	Children int `json:"children"`
}

// Booking is the one booking shape every endpoint returns.
type Booking struct {
	ID              string    `json:"id"`
	RoomID          string    `json:"roomId"`
	UserID          string    `json:"userId"`
	CheckIn         time.Time `json:"checkIn"`
	CheckOut        time.Time `json:"checkOut"`
	Nights          int       `json:"nights"`
	GuestCount      int       `json:"guestCount"`
	Guests          GuestsDTO `json:"guests"`
	NightlyPrice    MoneyDTO  `json:"nightlyPrice"`
	TotalPrice      MoneyDTO  `json:"totalPrice"`
	Status          string    `json:"status"`
	PaymentStatus   string    `json:"paymentStatus"`
	SpecialRequests string    `json:"specialRequests,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type BookingCollection struct {
	Bookings []Booking `json:"bookings"`
	Count    int       `json:"count"`
}

type Availability struct {
	RoomID    string    `json:"roomId"`
	CheckIn   time.Time `json:"checkIn"`
	CheckOut  time.Time `json:"checkOut"`
	Available bool      `json:"available"`
}

func MapMoney(value money.Money) MoneyDTO {
	return MoneyDTO{Amount: value.Amount.StringFixed(2), Currency: value.Currency}
}

func MapBooking(b *domainbooking.Booking) Booking {
	return Booking{
		ID:              string(b.ID),
		RoomID:          string(b.RoomID),
		UserID:          b.UserID,
		CheckIn:         b.Range.CheckIn,
		CheckOut:        b.Range.CheckOut,
		Nights:          b.Quote.Nights,
		GuestCount:      b.Guests.Total(),
		Guests:          GuestsDTO{Adults: b.Guests.Adults, Children: b.Guests.Children},
		NightlyPrice:    MapMoney(b.Quote.NightlyPrice),
		TotalPrice:      MapMoney(b.Quote.Total),
		Status:          string(b.Status),
		PaymentStatus:   string(domainbooking.ParsePaymentStatus(string(b.Payment))),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       b.CreatedAt,
		UpdatedAt:       b.UpdatedAt,
	}
}

func MapBookings(items []*domainbooking.Booking) BookingCollection {
	out := BookingCollection{Bookings: make([]Booking, 0, len(items))}
	for _, b := range items {
		out.Bookings = append(out.Bookings, MapBooking(b))
	}
	out.Count = len(out.Bookings)
	return out
}
