package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"hotelbook/internal/app/faults"
	"hotelbook/internal/app/middleware"
)

const defaultIdempotencyTTL = 7 * 24 * time.Hour

type IdempotencyStore struct {
	col *mongo.Collection
	ttl time.Duration
}

// NewIdempotencyStore expires records ttl after creation; zero means a week.
// The expiry index is created by EnsureIndexes.
func NewIdempotencyStore(db *mongo.Database, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = defaultIdempotencyTTL
	}
	return &IdempotencyStore{col: db.Collection("app_idempotency"), ttl: ttl}
}

func idempotencyIndexes(ttl time.Duration) []mongo.IndexModel {
	return []mongo.IndexModel{{
		Keys:    bson.D{{Key: "created_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(int32(ttl.Seconds())),
	}}
}

func (s *IdempotencyStore) EnsureIndexes(ctx context.Context) error {
	return CreateIndexes(ctx, s.col, idempotencyIndexes(s.ttl))
}

func (s *IdempotencyStore) Get(ctx context.Context, key string) (middleware.IdempotencyRecord, bool, error) {
	var doc idempotencyDocument
	if err := s.col.FindOne(ctx, bson.M{"_id": key}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return middleware.IdempotencyRecord{}, false, nil
		}
		return middleware.IdempotencyRecord{}, false, err
	}
	return doc.toRecord(), true, nil
}

// Save keeps the first stored outcome for a key.
func (s *IdempotencyStore) Save(ctx context.Context, rec middleware.IdempotencyRecord) error {
	fields := bson.M{
		"command":     rec.Command,
		"occurred_at": rec.OccurredAt,
		"created_at":  time.Now().UTC(),
	}
	if len(rec.Payload) > 0 {
		fields["payload"] = rec.Payload
	}
	if rec.ErrorKind != "" {
		fields["error_kind"] = string(rec.ErrorKind)
		fields["error_message"] = rec.ErrorMessage
	}
	_, err := s.col.UpdateByID(ctx, rec.Key, bson.M{"$setOnInsert": fields}, options.Update().SetUpsert(true))
	return err
}

type idempotencyDocument struct {
	ID           string    `bson:"_id"`
	Command      string    `bson:"command"`
	Payload      []byte    `bson:"payload,omitempty"`
	ErrorKind    string    `bson:"error_kind,omitempty"`
	ErrorMessage string    `bson:"error_message,omitempty"`
	OccurredAt   time.Time `bson:"occurred_at"`
	CreatedAt    time.Time `bson:"created_at"`
}

func (d idempotencyDocument) toRecord() middleware.IdempotencyRecord {
	return middleware.IdempotencyRecord{
		Key:          d.ID,
		Command:      d.Command,
		Payload:      d.Payload,
		ErrorKind:    faults.Kind(d.ErrorKind),
		ErrorMessage: d.ErrorMessage,
		OccurredAt:   d.OccurredAt,
	}
}

var _ middleware.IdempotencyStore = (*IdempotencyStore)(nil)
