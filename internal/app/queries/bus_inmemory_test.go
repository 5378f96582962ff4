package queries

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type lookupQuery struct{ ID string }

func (lookupQuery) Key() string { return "test.lookup" }

func TestInMemoryBus_Ask(t *testing.T) {
	bus := NewInMemoryBus()
	Register[lookupQuery, []string](bus, HandlerFunc[lookupQuery, []string](func(_ context.Context, q lookupQuery) ([]string, error) {
		return []string{q.ID}, nil
	}))

	out, err := Ask[lookupQuery, []string](context.Background(), bus, lookupQuery{ID: "room-x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"room-x"}, out)

	_, err = Ask[lookupQuery, string](context.Background(), bus, lookupQuery{})
	assert.ErrorIs(t, err, ErrResultType)
}

type unknownQuery struct{}

func (unknownQuery) Key() string { return "test.unknown" }

func TestInMemoryBus_UnknownQuery(t *testing.T) {
	_, err := NewInMemoryBus().Ask(context.Background(), unknownQuery{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
}
