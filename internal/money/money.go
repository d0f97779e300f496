// Package money implements rounding-safe decimal arithmetic for invoice
// amounts. All public amounts are rounded to 2 decimal places using round
// half away from zero; rounding is applied to each aggregate independently,
// never to intermediate per-line values.
package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

const scale = 2

func init() {
	// Amounts serialize as JSON numbers, matching the public API contract.
	decimal.MarshalJSONWithoutQuotes = true
}

var (
	ErrEmptyItems      = errors.New("invalid_items")
	ErrInvalidQuantity = errors.New("invalid_quantity")
	ErrInvalidPrice    = errors.New("invalid_unit_price")
	ErrInvalidTaxRate  = errors.New("invalid_tax_rate")
)

// Line is one quantity × unit-price pair feeding an invoice total.
type Line struct {
	Quantity  int64
	UnitPrice decimal.Decimal
}

// Totals holds the three invoice aggregates, each rounded to 2dp.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Round2 rounds half away from zero to 2 decimal places.
func Round2(value decimal.Decimal) decimal.Decimal {
	return value.Round(scale)
}

// LineTotal returns quantity × unitPrice without rounding.
func LineTotal(quantity int64, unitPrice decimal.Decimal) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(quantity))
}

// ComputeTotals derives subtotal, tax amount and total from the given lines
// and tax rate. taxRate must be within [0, 1]. Each aggregate is rounded
// independently from its own unrounded expression:
// total = Round2(subtotal_raw + subtotal_raw × taxRate), not
// Round2(subtotal) + Round2(taxAmount).
func ComputeTotals(lines []Line, taxRate decimal.Decimal) (Totals, error) {
	if len(lines) == 0 {
		return Totals{}, ErrEmptyItems
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return Totals{}, ErrInvalidTaxRate
	}

	subtotal := decimal.Zero
	for _, line := range lines {
		if line.Quantity <= 0 {
			return Totals{}, ErrInvalidQuantity
		}
		if !line.UnitPrice.IsPositive() {
			return Totals{}, ErrInvalidPrice
		}
		subtotal = subtotal.Add(LineTotal(line.Quantity, line.UnitPrice))
	}

	taxAmount := subtotal.Mul(taxRate)
	total := subtotal.Add(taxAmount)

	return Totals{
		Subtotal:  Round2(subtotal),
		TaxAmount: Round2(taxAmount),
		Total:     Round2(total),
	}, nil
}
