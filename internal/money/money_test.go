package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoiced/internal/money"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, value string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(value)
	require.NoError(t, err)
	return d
}

func TestComputeTotalsRoundsEachAggregate(t *testing.T) {
	totals, err := money.ComputeTotals([]money.Line{
		{Quantity: 2, UnitPrice: dec(t, "99.99")},
	}, dec(t, "0.08"))
	require.NoError(t, err)

	// 199.98 × 0.08 = 15.9984 → 16.00
	assert.True(t, totals.Subtotal.Equal(dec(t, "199.98")), "subtotal %s", totals.Subtotal)
	assert.True(t, totals.TaxAmount.Equal(dec(t, "16.00")), "tax %s", totals.TaxAmount)
	assert.True(t, totals.Total.Equal(dec(t, "215.98")), "total %s", totals.Total)
}

func TestComputeTotalsZeroTaxRate(t *testing.T) {
	totals, err := money.ComputeTotals([]money.Line{
		{Quantity: 3, UnitPrice: dec(t, "10.50")},
		{Quantity: 1, UnitPrice: dec(t, "0.01")},
	}, decimal.Zero)
	require.NoError(t, err)

	assert.True(t, totals.Subtotal.Equal(dec(t, "31.51")))
	assert.True(t, totals.TaxAmount.IsZero())
	assert.True(t, totals.Total.Equal(dec(t, "31.51")))
}

func TestComputeTotalsFullTaxRate(t *testing.T) {
	totals, err := money.ComputeTotals([]money.Line{
		{Quantity: 1, UnitPrice: dec(t, "100")},
	}, decimal.NewFromInt(1))
	require.NoError(t, err)

	assert.True(t, totals.Total.Equal(dec(t, "200")))
}

func TestComputeTotalsRejectsBadInput(t *testing.T) {
	valid := []money.Line{{Quantity: 1, UnitPrice: dec(t, "1.00")}}

	_, err := money.ComputeTotals(nil, decimal.Zero)
	assert.ErrorIs(t, err, money.ErrEmptyItems)

	_, err = money.ComputeTotals([]money.Line{{Quantity: 0, UnitPrice: dec(t, "1.00")}}, decimal.Zero)
	assert.ErrorIs(t, err, money.ErrInvalidQuantity)

	_, err = money.ComputeTotals([]money.Line{{Quantity: 2, UnitPrice: decimal.Zero}}, decimal.Zero)
	assert.ErrorIs(t, err, money.ErrInvalidPrice)

	_, err = money.ComputeTotals(valid, dec(t, "-0.01"))
	assert.ErrorIs(t, err, money.ErrInvalidTaxRate)

	_, err = money.ComputeTotals(valid, dec(t, "1.01"))
	assert.ErrorIs(t, err, money.ErrInvalidTaxRate)
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.13", money.Round2(dec(t, "0.125")).StringFixed(2))
	assert.Equal(t, "-0.13", money.Round2(dec(t, "-0.125")).StringFixed(2))
	assert.Equal(t, "16.00", money.Round2(dec(t, "15.9984")).StringFixed(2))
}
