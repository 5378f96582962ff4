package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	domainrooms "hotelbook/internal/domain/rooms"
)

type RoomRepository struct {
	col *mongo.Collection
}

func NewRoomRepository(db *mongo.Database) *RoomRepository {
	return &RoomRepository{col: db.Collection(roomsCollection)}
}

func (r *RoomRepository) ByID(ctx context.Context, id domainrooms.RoomID) (*domainrooms.Room, error) {
	var doc roomDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrooms.ErrRoomNotFound
		}
		return nil, err
	}
	return doc.toRoom()
}

// SetAvailability rewrites the cache and bumps ledger_seq so every booking
// unit touching the room writes the same document.
func (r *RoomRepository) SetAvailability(ctx context.Context, id domainrooms.RoomID, available bool, at time.Time) error {
	update := bson.M{
		"$set": bson.M{"available": available, "updated_at": toMillis(at)},
		"$inc": bson.M{"ledger_seq": 1},
	}
	res, err := r.col.UpdateByID(ctx, string(id), update)
	if err != nil {
		return translateWriteErr(err)
	}
	if res.MatchedCount == 0 {
		return domainrooms.ErrRoomNotFound
	}
	return nil
}

// SeedRoom upserts the room content, keeping the ledger owned fields.
func (r *RoomRepository) SeedRoom(ctx context.Context, room *domainrooms.Room) error {
	price, err := newMoneyDocument(room.NightlyPrice)
	if err != nil {
		return err
	}
	update := bson.M{
		"$set": bson.M{
			"category_id":   string(room.CategoryID),
			"name":          room.Name,
			"capacity":      room.Capacity,
			"nightly_price": price,
			"bookable":      room.Bookable,
		},
		"$setOnInsert": bson.M{"available": room.Available, "ledger_seq": int64(0), "updated_at": toMillis(time.Now())},
	}
	_, err = r.col.UpdateByID(ctx, string(room.ID), update, options.Update().SetUpsert(true))
	return err
}

type roomDocument struct {
	ID           string        `bson:"_id"`
	CategoryID   string        `bson:"category_id,omitempty"`
	Name         string        `bson:"name"`
	Capacity     int           `bson:"capacity"`
	NightlyPrice moneyDocument `bson:"nightly_price"`
	Bookable     bool          `bson:"bookable"`
	Available    bool          `bson:"available"`
	LedgerSeq    int64         `bson:"ledger_seq"`
	UpdatedAt    int64         `bson:"updated_at"`
}

func (d roomDocument) toRoom() (*domainrooms.Room, error) {
	price, err := d.NightlyPrice.toMoney()
	if err != nil {
		return nil, err
	}
	return &domainrooms.Room{
		ID:           domainrooms.RoomID(d.ID),
		CategoryID:   domainrooms.CategoryID(d.CategoryID),
		Name:         d.Name,
		Capacity:     d.Capacity,
		NightlyPrice: price,
		Bookable:     d.Bookable,
		Available:    d.Available,
		UpdatedAt:    fromMillis(d.UpdatedAt),
	}, nil
}

type CategoryRepository struct {
	col *mongo.Collection
}

func NewCategoryRepository(db *mongo.Database) *CategoryRepository {
	return &CategoryRepository{col: db.Collection(categoriesCollection)}
}

func (r *CategoryRepository) ByID(ctx context.Context, id domainrooms.CategoryID) (*domainrooms.Category, error) {
	var doc categoryDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainrooms.ErrCategoryNotFound
		}
		return nil, err
	}
	price, err := doc.PricePerNight.toMoney()
	if err != nil {
		return nil, err
	}
	return &domainrooms.Category{
		ID:            domainrooms.CategoryID(doc.ID),
		Name:          doc.Name,
		Description:   doc.Description,
		PricePerNight: price,
	}, nil
}

func (r *CategoryRepository) SeedCategory(ctx context.Context, c *domainrooms.Category) error {
	price, err := newMoneyDocument(c.PricePerNight)
	if err != nil {
		return err
	}
	doc := categoryDocument{ID: string(c.ID), Name: c.Name, Description: c.Description, PricePerNight: price}
	_, err = r.col.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true))
	return err
}

type categoryDocument struct {
	ID            string        `bson:"_id"`
	Name          string        `bson:"name"`
	Description   string        `bson:"description,omitempty"`
	PricePerNight moneyDocument `bson:"price_per_night"`
}

var (
	_ domainrooms.RoomRepository     = (*RoomRepository)(nil)
	_ domainrooms.CategoryRepository = (*CategoryRepository)(nil)
)
