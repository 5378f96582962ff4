package rooms

import (
	"context"
	"errors"
	"time"

	"hotelbook/internal/domain/shared/money"
)

var (
	ErrRoomNotFound     = errors.New("rooms: room not found")
	ErrCategoryNotFound = errors.New("rooms: category not found")
)

type RoomID string

type CategoryID string

// Room is owned by room management. The ledger reads it and only writes the
// Available cache.
type Room struct {
	ID           RoomID
	CategoryID   CategoryID
	Name         string
	Capacity     int
	NightlyPrice money.Money
	// Bookable is the administrative flag; false blocks every new booking.
	Bookable bool
	// Available caches "no active booking covers today". Never authoritative.
	Available bool
	UpdatedAt time.Time
}

// Category groups rooms into a pricing tier.
type Category struct {
	ID            CategoryID
	Name          string
	Description   string
	PricePerNight money.Money
}

type RoomRepository interface {
	ByID(ctx context.Context, id RoomID) (*Room, error)
	SetAvailability(ctx context.Context, id RoomID, available bool, at time.Time) error
}

type CategoryRepository interface {
	ByID(ctx context.Context, id CategoryID) (*Category, error)
}
