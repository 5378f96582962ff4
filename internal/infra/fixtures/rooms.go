// Package fixtures imports rooms and categories from a JSON file at startup.
package fixtures

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/money"
)

// Seeder writes room management data. Both storage backends implement it.
type Seeder interface {
	SeedRoom(ctx context.Context, room *domainrooms.Room) error
	SeedCategory(ctx context.Context, category *domainrooms.Category) error
}

type File struct {
	Categories []categoryFixture `json:"categories"`
	Rooms      []roomFixture     `json:"rooms"`
}

type categoryFixture struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	PricePerNight string `json:"price_per_night"`
	Currency      string `json:"currency"`
}

type roomFixture struct {
	ID           string `json:"id"`
	CategoryID   string `json:"category_id"`
	Name         string `json:"name"`
	Capacity     int    `json:"capacity"`
	NightlyPrice string `json:"nightly_price"`
	Currency     string `json:"currency"`
	Bookable     *bool  `json:"bookable"`
}

// Result counts what Load imported. Invalid entries are logged and skipped.
type Result struct {
	Categories int
	Rooms      int
	Skipped    int
}

// Load imports path into seeder. A missing file is not an error.
func Load(ctx context.Context, path string, seeder Seeder, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("room fixtures file not found, skipping", "path", path)
			return Result{}, nil
		}
		return Result{}, fmt.Errorf("read fixtures: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		logger.Warn("room fixtures file empty", "path", path)
		return Result{}, nil
	}
	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return Result{}, fmt.Errorf("decode fixtures: %w", err)
	}
	return Apply(ctx, file, seeder, logger)
}

// Apply seeds categories before rooms so category pricing resolves.
func Apply(ctx context.Context, file File, seeder Seeder, logger *slog.Logger) (Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var res Result
	for _, fx := range file.Categories {
		price, err := money.Parse(fx.PricePerNight, fx.Currency)
		if err != nil {
			logger.Error("category fixture invalid", "category_id", fx.ID, "error", err)
			res.Skipped++
			continue
		}
		cat := &domainrooms.Category{
			ID:            domainrooms.CategoryID(fx.ID),
			Name:          fx.Name,
			Description:   fx.Description,
			PricePerNight: price,
		}
		if err := seeder.SeedCategory(ctx, cat); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Error("cannot store fixture category", "category_id", fx.ID, "error", err)
			res.Skipped++
			continue
		}
		res.Categories++
	}
	for _, fx := range file.Rooms {
		room, err := fx.toRoom()
		if err != nil {
			logger.Error("room fixture invalid", "room_id", fx.ID, "error", err)
			res.Skipped++
			continue
		}
		if err := seeder.SeedRoom(ctx, room); err != nil {
			if ctx.Err() != nil {
				return res, ctx.Err()
			}
			logger.Error("cannot store fixture room", "room_id", fx.ID, "error", err)
			res.Skipped++
			continue
		}
		res.Rooms++
		logger.Debug("room fixture imported", "room_id", room.ID)
	}
	logger.Info("room fixtures imported", "categories", res.Categories, "rooms", res.Rooms, "skipped", res.Skipped)
	return res, nil
}

func (fx roomFixture) toRoom() (*domainrooms.Room, error) {
	var price money.Money
	if strings.TrimSpace(fx.NightlyPrice) != "" {
		p, err := money.Parse(fx.NightlyPrice, fx.Currency)
		if err != nil {
			return nil, err
		}
		price = p
	}
	bookable := true
	if fx.Bookable != nil {
		bookable = *fx.Bookable
	}
	return &domainrooms.Room{
		ID:           domainrooms.RoomID(fx.ID),
		CategoryID:   domainrooms.CategoryID(fx.CategoryID),
		Name:         fx.Name,
		Capacity:     fx.Capacity,
		NightlyPrice: price,
		Bookable:     bookable,
		Available:    true,
	}, nil
}

// DefaultPath returns the first existing candidate, or the first candidate.
func DefaultPath() string {
	candidates := []string{
		filepath.Join("data", "rooms.json"),
		filepath.Join("..", "data", "rooms.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}
