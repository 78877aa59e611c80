package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestParseAndString(t *testing.T) {
	m, err := Parse("50.5", USD)
	require.NoError(t, err)
	require.Equal(t, "50.50", m.String())

	twd, err := Parse("50.5", TWD)
	require.NoError(t, err)
	require.Equal(t, "51", twd.String())
}

func TestParseInvalidAmount(t *testing.T) {
	_, err := Parse("not-a-number", USD)
	require.Error(t, err)
}

func TestAddSubCurrencyMismatch(t *testing.T) {
	usd := New(decimal.NewFromInt(10), USD)
	twd := New(decimal.NewFromInt(10), TWD)

	_, err := usd.Add(twd)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = usd.Sub(twd)
	require.ErrorIs(t, err, ErrCurrencyMismatch)

	_, err = usd.Cmp(twd)
	require.ErrorIs(t, err, ErrCurrencyMismatch)
}

func TestAddSub(t *testing.T) {
	a := New(decimal.NewFromInt(100), USD)
	b := New(decimal.NewFromInt(40), USD)

	sum, err := a.Add(b)
	require.NoError(t, err)
	require.Equal(t, "140.00", sum.String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	require.Equal(t, "60.00", diff.String())
}

func TestNegAndPredicates(t *testing.T) {
	z := Zero(USD)
	require.True(t, z.IsZero())

	pos := New(decimal.NewFromInt(5), USD)
	require.True(t, pos.IsPositive())
	require.True(t, pos.Neg().IsNegative())
}

func TestJSONRoundTrip(t *testing.T) {
	m, err := Parse("12.34", USD)
	require.NoError(t, err)

	data, err := m.MarshalJSON()
	require.NoError(t, err)
	require.Equal(t, `"12.34"`, string(data))

	var out Money
	require.NoError(t, out.UnmarshalJSON(data))
	require.Equal(t, "12.34", out.Amount.StringFixed(2))
}

func TestParseCurrency(t *testing.T) {
	_, err := ParseCurrency("EUR")
	require.ErrorIs(t, err, ErrInvalidCurrency)

	c, err := ParseCurrency("USD")
	require.NoError(t, err)
	require.Equal(t, USD, c)
}
