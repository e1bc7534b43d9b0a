// Package pricing computes line and document monetary totals for purchases,
// sales and returns. All arithmetic is fixed-point decimal; every stored line value
// is rounded to two places with banker's rounding before it is summed.
package pricing

import (
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places monetary values are rounded to
const MoneyPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// Round applies banker's rounding to MoneyPlaces
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundBank(MoneyPlaces)
}

// LineInput describes one priced line
type LineInput struct {
	UnitPrice decimal.Decimal
	Quantity  int
	// Only one of DiscountPercentage and DiscountAmount may be set
	DiscountPercentage decimal.Decimal
	DiscountAmount     decimal.Decimal
	Tax                TaxSnapshot
}

// LineAmounts holds the computed, rounded values of a line
type LineAmounts struct {
	GrossAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	TaxableAmount  decimal.Decimal
	TaxRate        decimal.Decimal
	TaxAmount      decimal.Decimal
	TaxComponents  []AppliedTaxComponent
	LineTotal      decimal.Decimal
}

// CalculateLine prices a line in fixed order: gross, discount, taxable, tax, total
func CalculateLine(in LineInput) (LineAmounts, error) {
	if in.Quantity < 0 {
		return LineAmounts{}, shared.NewValidationError("INVALID_QUANTITY", "Quantity cannot be negative")
	}
	if in.UnitPrice.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if err := validatePercentage("INVALID_DISCOUNT", in.DiscountPercentage); err != nil {
		return LineAmounts{}, err
	}
	if in.DiscountAmount.IsNegative() {
		return LineAmounts{}, shared.NewValidationError("INVALID_DISCOUNT", "Discount amount cannot be negative")
	}
	if !in.DiscountPercentage.IsZero() && !in.DiscountAmount.IsZero() {
		return LineAmounts{}, shared.NewValidationError("INVALID_DISCOUNT",
			"Specify either a discount percentage or a discount amount, not both")
	}
	if err := validatePercentage("INVALID_TAX_RATE", in.Tax.TotalRate); err != nil {
		return LineAmounts{}, err
	}

	gross := Round(in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity))))

	discount := Round(in.DiscountAmount)
	if !in.DiscountPercentage.IsZero() {
		discount = Round(gross.Mul(in.DiscountPercentage).Div(hundred))
	}
	if discount.GreaterThan(gross) {
		return LineAmounts{}, shared.NewValidationError("INVALID_DISCOUNT", "Discount cannot exceed the line amount")
	}

	taxable := gross.Sub(discount)
	tax := Round(taxable.Mul(in.Tax.TotalRate).Div(hundred))

	return LineAmounts{
		GrossAmount:    gross,
		DiscountAmount: discount,
		TaxableAmount:  taxable,
		TaxRate:        in.Tax.TotalRate,
		TaxAmount:      tax,
		TaxComponents:  in.Tax.apportion(tax),
		LineTotal:      taxable.Add(tax),
	}, nil
}

// DocumentTotals are the sums of already-rounded line values plus the overall adjustment
type DocumentTotals struct {
	TotalGrossAmount    decimal.Decimal
	TotalDiscountAmount decimal.Decimal
	TotalTaxableAmount  decimal.Decimal
	TotalTaxAmount      decimal.Decimal
	TotalLineAmount     decimal.Decimal
	Adjustment          *Adjustment
	// AdjustmentAmount is the non-negative magnitude of the overall adjustment
	AdjustmentAmount decimal.Decimal
	GrandTotal       decimal.Decimal
}

// SignedAdjustment returns the adjustment as it affects the grand total (negative for discounts)
func (t DocumentTotals) SignedAdjustment() decimal.Decimal {
	if t.Adjustment != nil && t.Adjustment.Type.IsDiscount() {
		return t.AdjustmentAmount.Neg()
	}
	return t.AdjustmentAmount
}

// Summarize adds up line values and applies the optional overall adjustment
// to the summed taxable total. Sums are never re-rounded.
func Summarize(lines []LineAmounts, adj *Adjustment) (DocumentTotals, error) {
	t := DocumentTotals{
		TotalGrossAmount:    decimal.Zero,
		TotalDiscountAmount: decimal.Zero,
		TotalTaxableAmount:  decimal.Zero,
		TotalTaxAmount:      decimal.Zero,
		TotalLineAmount:     decimal.Zero,
		AdjustmentAmount:    decimal.Zero,
	}
	for _, l := range lines {
		t.TotalGrossAmount = t.TotalGrossAmount.Add(l.GrossAmount)
		t.TotalDiscountAmount = t.TotalDiscountAmount.Add(l.DiscountAmount)
		t.TotalTaxableAmount = t.TotalTaxableAmount.Add(l.TaxableAmount)
		t.TotalTaxAmount = t.TotalTaxAmount.Add(l.TaxAmount)
		t.TotalLineAmount = t.TotalLineAmount.Add(l.LineTotal)
	}

	amount, err := adj.AmountOn(t.TotalTaxableAmount)
	if err != nil {
		return DocumentTotals{}, err
	}
	if adj != nil && adj.Type != "" {
		cp := *adj
		t.Adjustment = &cp
	}
	t.AdjustmentAmount = amount
	t.GrandTotal = t.TotalLineAmount.Add(t.SignedAdjustment())
	return t, nil
}

// PaymentStatus is the settlement state of a purchase invoice
type PaymentStatus string

const (
	PaymentPending       PaymentStatus = "PENDING"
	PaymentPartiallyPaid PaymentStatus = "PARTIALLY_PAID"
	PaymentPaid          PaymentStatus = "PAID"
	PaymentCancelled     PaymentStatus = "CANCELLED"
)

// PaymentStatusFor derives the status from the invoice total and the amount paid so far
func PaymentStatusFor(total, paid decimal.Decimal) PaymentStatus {
	switch {
	case paid.GreaterThanOrEqual(total):
		return PaymentPaid
	case paid.IsPositive():
		return PaymentPartiallyPaid
	default:
		return PaymentPending
	}
}

func validatePercentage(code string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(hundred) {
		return shared.NewValidationError(code, "Percentage must be between 0 and 100").
			WithDetail("value", pct.String())
	}
	return nil
}
