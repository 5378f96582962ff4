package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoCommand struct{ Text string }

func (echoCommand) Key() string { return "test.echo" }

type otherCommand struct{}

func (otherCommand) Key() string { return "test.other" }

func TestInMemoryBus_DispatchesTyped(t *testing.T) {
	bus := NewInMemoryBus()
	Register[echoCommand, string](bus, HandlerFunc[echoCommand, string](func(_ context.Context, cmd echoCommand) (string, error) {
		return "echo:" + cmd.Text, nil
	}))

	out, err := Dispatch[echoCommand, string](context.Background(), bus, echoCommand{Text: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo:hi", out)
	assert.Equal(t, []string{"test.echo"}, bus.Keys())

	_, err = Dispatch[echoCommand, int](context.Background(), bus, echoCommand{})
	assert.ErrorIs(t, err, ErrResultType)
}

func TestInMemoryBus_Errors(t *testing.T) {
	bus := NewInMemoryBus()
	_, err := bus.Dispatch(context.Background(), otherCommand{})
	assert.ErrorIs(t, err, ErrHandlerNotFound)
	assert.ErrorContains(t, err, "test.other")

	_, err = bus.Dispatch(context.Background(), nil)
	assert.ErrorIs(t, err, ErrInvalidCommand)

	_, err = Dispatch[echoCommand, string](context.Background(), nil, echoCommand{})
	assert.ErrorIs(t, err, ErrNilBus)
}

func TestInMemoryBus_DuplicateRegistrationPanics(t *testing.T) {
	bus := NewInMemoryBus()
	h := HandlerFunc[echoCommand, string](func(context.Context, echoCommand) (string, error) { return "", nil })
	Register[echoCommand, string](bus, h)
	assert.Panics(t, func() { Register[echoCommand, string](bus, h) })
}
