package policies

import (
	"context"
	"errors"
)

// ErrLockTimeout is returned when a room lock could not be acquired in time.
var ErrLockTimeout = errors.New("policies: room lock not acquired")

// RoomLocker serializes ledger writes per room. The returned release func must
// be called exactly once; it is safe to call after ctx is done.
type RoomLocker interface {
	Lock(ctx context.Context, roomID string) (release func(), err error)
}
