package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
)

// DefaultIndexTimeout bounds index creation for one collection at startup.
const DefaultIndexTimeout = 15 * time.Second

// IndexEnsurer is implemented by stores that own a collection's indexes.
type IndexEnsurer interface {
	EnsureIndexes(ctx context.Context) error
}

// EnsureIndexes runs every ensurer under its own timeout and reports all
// failures.
func EnsureIndexes(ctx context.Context, timeout time.Duration, stores ...IndexEnsurer) error {
	if timeout <= 0 {
		timeout = DefaultIndexTimeout
	}
	var errs []error
	for _, s := range stores {
		if s == nil {
			continue
		}
		ictx, cancel := context.WithTimeout(ctx, timeout)
		err := s.EnsureIndexes(ictx)
		cancel()
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// CreateIndexes creates models on col and names the collection on failure.
func CreateIndexes(ctx context.Context, col *mongo.Collection, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	if _, err := col.Indexes().CreateMany(ctx, models); err != nil {
		return fmt.Errorf("mongo: create indexes on %s: %w", col.Name(), err)
	}
	return nil
}
