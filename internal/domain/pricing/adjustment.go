package pricing

import (
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// AdjustmentType is the kind of document-level adjustment
type AdjustmentType string

const (
	PercentageDiscount AdjustmentType = "PERCENTAGE_DISCOUNT"
	FixedDiscount      AdjustmentType = "FIXED_DISCOUNT"
	AdditionalCharge   AdjustmentType = "ADDITIONAL_CHARGE"
)

// IsValid checks if the adjustment type is known
func (t AdjustmentType) IsValid() bool {
	switch t {
	case PercentageDiscount, FixedDiscount, AdditionalCharge:
		return true
	}
	return false
}

// IsDiscount reports whether the adjustment lowers the total
func (t AdjustmentType) IsDiscount() bool {
	return t == PercentageDiscount || t == FixedDiscount
}

// Adjustment is one optional overall discount or surcharge on a document
type Adjustment struct {
	Type  AdjustmentType  `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// AmountOn computes the adjustment magnitude against a taxable total.
// A nil or empty adjustment yields zero.
func (a *Adjustment) AmountOn(taxableTotal decimal.Decimal) (decimal.Decimal, error) {
	if a == nil || a.Type == "" {
		return decimal.Zero, nil
	}
	if !a.Type.IsValid() {
		return decimal.Zero, shared.NewValidationError("INVALID_ADJUSTMENT", "Unknown adjustment type: "+string(a.Type))
	}
	if a.Value.IsNegative() {
		return decimal.Zero, shared.NewValidationError("INVALID_ADJUSTMENT", "Adjustment value cannot be negative")
	}

	switch a.Type {
	case PercentageDiscount:
		if err := validatePercentage("INVALID_ADJUSTMENT", a.Value); err != nil {
			return decimal.Zero, err
		}
		return Round(taxableTotal.Mul(a.Value).Div(hundred)), nil
	case FixedDiscount:
		amount := Round(a.Value)
		if amount.GreaterThan(taxableTotal) {
			return decimal.Zero, shared.NewValidationError("INVALID_ADJUSTMENT",
				"Fixed discount cannot exceed the taxable total").
				WithDetail("taxable_total", taxableTotal.String())
		}
		return amount, nil
	default:
		return Round(a.Value), nil
	}
}
