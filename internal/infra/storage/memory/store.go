package memory

import (
	"context"
	"sync"

	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
)

// Store keeps rooms, categories and bookings for a single process. Units of
// work stage their writes and apply them atomically on commit.
type Store struct {
	mu         sync.RWMutex
	rooms      map[domainrooms.RoomID]domainrooms.Room
	categories map[domainrooms.CategoryID]domainrooms.Category
	bookings   map[domainbooking.BookingID]*domainbooking.Booking
}

func NewStore() *Store {
	return &Store{
		rooms:      make(map[domainrooms.RoomID]domainrooms.Room),
		categories: make(map[domainrooms.CategoryID]domainrooms.Category),
		bookings:   make(map[domainbooking.BookingID]*domainbooking.Booking),
	}
}

// SeedRoom inserts or replaces a room record. Room management owns these.
func (s *Store) SeedRoom(_ context.Context, room *domainrooms.Room) error {
	if room == nil || room.ID == "" {
		return domainrooms.ErrRoomNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[room.ID] = *room
	return nil
}

func (s *Store) SeedCategory(_ context.Context, category *domainrooms.Category) error {
	if category == nil || category.ID == "" {
		return domainrooms.ErrCategoryNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[category.ID] = *category
	return nil
}

// Room returns a copy of the committed room record.
func (s *Store) Room(id domainrooms.RoomID) (domainrooms.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[id]
	return room, ok
}

// BookingCount reports committed bookings.
func (s *Store) BookingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.bookings)
}
