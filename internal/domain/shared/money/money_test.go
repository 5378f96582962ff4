package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultiply_IsExact(t *testing.T) {
	m := Must("99.99", "eur")
	total := m.Multiply(3)

	assert.Equal(t, "EUR", total.Currency)
	assert.True(t, total.Equal(Must("299.97", "EUR")))
	assert.Equal(t, "299.97 EUR", total.String())
}

func TestAdd_CurrencyMismatch(t *testing.T) {
	_, err := Must("10", "EUR").Add(Must("10", "USD"))
	assert.ErrorIs(t, err, ErrCurrencyMismatch)

	sum, err := Must("10", "EUR").Add(Must("0.5", "EUR"))
	require.NoError(t, err)
	assert.True(t, sum.Equal(Must("10.50", "EUR")))
}

func TestParse_Rejects(t *testing.T) {
	_, err := Parse("abc", "EUR")
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = Parse("10", "EURO")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}
