// Package money holds the pure line and document total math for sale
// transactions. Amounts are whole HUF: every line amount is rounded half-up
// to the smallest currency unit at the line level, and document totals are
// sums of already-rounded lines — they are never re-derived from a rounded
// subtotal times a rate, which would compound rounding error.
package money

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// legalTaxRates are the enumerated Hungarian VAT rates, in percent.
var legalTaxRates = map[int64]bool{0: true, 5: true, 18: true, 27: true}

// ValidTaxRate reports whether rate is one of the legal VAT rates {0, 5, 18, 27}.
func ValidTaxRate(rate int64) bool { return legalTaxRates[rate] }

// Round rounds to whole HUF, half-up.
func Round(d decimal.Decimal) decimal.Decimal { return d.Round(0) }

// Line is the computed amounts of one sale item.
type Line struct {
	Subtotal decimal.Decimal // discounted, tax-exclusive
	Discount decimal.Decimal // amount taken off the gross subtotal
	Tax      decimal.Decimal
	Total    decimal.Decimal // Subtotal + Tax
}

// ComputeLine computes the rounded amounts for one line:
//
//	gross      = quantity × unitPrice
//	discounted = gross × (1 − discountPct/100)
//	subtotal   = round(discounted)
//	tax        = round(discounted × taxRate/100)
//	total      = subtotal + tax
//
// The tax rate must already be validated against ValidTaxRate; ComputeLine
// does arithmetic only.
func ComputeLine(quantity, unitPrice decimal.Decimal, taxRate int64, discountPct decimal.Decimal) Line {
	gross := quantity.Mul(unitPrice)
	discounted := gross.Mul(hundred.Sub(discountPct)).Div(hundred)

	subtotal := Round(discounted)
	tax := Round(discounted.Mul(decimal.NewFromInt(taxRate)).Div(hundred))

	return Line{
		Subtotal: subtotal,
		Discount: Round(gross.Sub(discounted)),
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}
