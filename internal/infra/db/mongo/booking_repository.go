package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelbook/internal/app/uow"
	domainbooking "hotelbook/internal/domain/booking"
	domainrooms "hotelbook/internal/domain/rooms"
	"hotelbook/internal/domain/shared/daterange"
)

type BookingRepository struct {
	col *mongo.Collection
}

func NewBookingRepository(db *mongo.Database) *BookingRepository {
	return &BookingRepository{col: db.Collection(bookingsCollection)}
}

// bookingIndexes serve the overlap lookup and the per-guest listing.
func bookingIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{Keys: bson.D{{Key: "room_id", Value: 1}, {Key: "status", Value: 1}, {Key: "range.check_in", Value: 1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}
}

func (r *BookingRepository) EnsureIndexes(ctx context.Context) error {
	return CreateIndexes(ctx, r.col, bookingIndexes())
}

func (r *BookingRepository) ByID(ctx context.Context, id domainbooking.BookingID) (*domainbooking.Booking, error) {
	var doc bookingDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domainbooking.ErrBookingNotFound
		}
		return nil, err
	}
	return doc.toAggregate()
}

// Save upserts on (_id, version). A stale version misses the filter and the
// upsert collides on _id, which is reported as uow.ErrConflict.
func (r *BookingRepository) Save(ctx context.Context, b *domainbooking.Booking) error {
	doc, err := newBookingDocument(b)
	if err != nil {
		return err
	}
	filter := bson.M{"_id": doc.ID, "version": b.Version}
	doc.Version = b.Version + 1
	res, err := r.col.UpdateOne(ctx, filter, bson.M{"$set": doc}, options.Update().SetUpsert(true))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return uow.ErrConflict
		}
		return translateWriteErr(err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return uow.ErrConflict
	}
	b.Version = doc.Version
	return nil
}

func (r *BookingRepository) ActiveForRoom(ctx context.Context, roomID domainrooms.RoomID, dr daterange.DateRange) ([]*domainbooking.Booking, error) {
	filter := bson.M{
		"room_id":         string(roomID),
		"status":          bson.M{"$ne": string(domainbooking.StatusCancelled)},
		"range.check_in":  bson.M{"$lt": toMillis(dr.CheckOut)},
		"range.check_out": bson.M{"$gt": toMillis(dr.CheckIn)},
	}
	return r.find(ctx, filter, options.Find())
}

func (r *BookingRepository) ListByUser(ctx context.Context, userID string) ([]*domainbooking.Booking, error) {
	opts := options.Find().SetSort(newestFirst())
	return r.find(ctx, bson.M{"user_id": userID}, opts)
}

func (r *BookingRepository) List(ctx context.Context, f domainbooking.Filter) ([]*domainbooking.Booking, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = string(f.Status)
	}
	if f.RoomID != "" {
		filter["room_id"] = string(f.RoomID)
	}
	checkIn := bson.M{}
	if !f.From.IsZero() {
		checkIn["$gte"] = toMillis(f.From)
	}
	if !f.To.IsZero() {
		checkIn["$lte"] = toMillis(f.To)
	}
	if len(checkIn) > 0 {
		filter["range.check_in"] = checkIn
	}
	opts := options.Find().SetSort(newestFirst())
	if f.Offset > 0 {
		opts.SetSkip(int64(f.Offset))
	}
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	return r.find(ctx, filter, opts)
}

func (r *BookingRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domainbooking.Booking, error) {
	cur, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := make([]*domainbooking.Booking, 0)
	for cur.Next(ctx) {
		var doc bookingDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		b, err := doc.toAggregate()
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, cur.Err()
}

func newestFirst() bson.D {
	return bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}}
}

type bookingDocument struct {
	ID              string         `bson:"_id"`
	RoomID          string         `bson:"room_id"`
	UserID          string         `bson:"user_id"`
	Range           rangeDocument  `bson:"range"`
	Guests          guestsDocument `bson:"guests"`
	GuestCount      int            `bson:"guest_count"`
	Nights          int            `bson:"nights"`
	NightlyPrice    moneyDocument  `bson:"nightly_price"`
	TotalPrice      moneyDocument  `bson:"total_price"`
	Status          string         `bson:"status"`
	PaymentStatus   string         `bson:"payment_status,omitempty"`
	SpecialRequests string         `bson:"special_requests,omitempty"`
	CreatedAt       int64          `bson:"created_at"`
	UpdatedAt       int64          `bson:"updated_at"`
	Version         int64          `bson:"version"`
}

type rangeDocument struct {
	CheckIn  int64 `bson:"check_in"`
	CheckOut int64 `bson:"check_out"`
}

type guestsDocument struct {
	Adults   int `bson:"adults"`
	Children int `bson:"children"`
}

func newBookingDocument(b *domainbooking.Booking) (bookingDocument, error) {
	nightly, err := newMoneyDocument(b.Quote.NightlyPrice)
	if err != nil {
		return bookingDocument{}, err
	}
	total, err := newMoneyDocument(b.Quote.Total)
	if err != nil {
		return bookingDocument{}, err
	}
	return bookingDocument{
		ID:              string(b.ID),
		RoomID:          string(b.RoomID),
		UserID:          b.UserID,
		Range:           rangeDocument{CheckIn: toMillis(b.Range.CheckIn), CheckOut: toMillis(b.Range.CheckOut)},
		Guests:          guestsDocument{Adults: b.Guests.Adults, Children: b.Guests.Children},
		GuestCount:      b.Guests.Total(),
		Nights:          b.Quote.Nights,
		NightlyPrice:    nightly,
		TotalPrice:      total,
		Status:          string(b.Status),
		PaymentStatus:   string(b.Payment),
		SpecialRequests: b.SpecialRequests,
		CreatedAt:       toMillis(b.CreatedAt),
		UpdatedAt:       toMillis(b.UpdatedAt),
		Version:         b.Version,
	}, nil
}

func (d bookingDocument) toAggregate() (*domainbooking.Booking, error) {
	nightly, err := d.NightlyPrice.toMoney()
	if err != nil {
		return nil, err
	}
	total, err := d.TotalPrice.toMoney()
	if err != nil {
		return nil, err
	}
	status, err := domainbooking.ParseStatus(d.Status)
	if err != nil {
		return nil, err
	}
	return &domainbooking.Booking{
		ID:              domainbooking.BookingID(d.ID),
		RoomID:          domainrooms.RoomID(d.RoomID),
		UserID:          d.UserID,
		Range:           daterange.DateRange{CheckIn: fromMillis(d.Range.CheckIn), CheckOut: fromMillis(d.Range.CheckOut)},
		Guests:          domainbooking.Guests{Adults: d.Guests.Adults, Children: d.Guests.Children},
		Quote:           domainbooking.Quote{Nights: d.Nights, NightlyPrice: nightly, Total: total},
		Status:          status,
		Payment:         domainbooking.ParsePaymentStatus(d.PaymentStatus),
		SpecialRequests: d.SpecialRequests,
		CreatedAt:       fromMillis(d.CreatedAt),
		UpdatedAt:       fromMillis(d.UpdatedAt),
		Version:         d.Version,
	}, nil
}

var _ domainbooking.Repository = (*BookingRepository)(nil)
