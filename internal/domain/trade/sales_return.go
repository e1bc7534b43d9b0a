package trade

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/shopspring/decimal"
)

// SalesReturnItem is one batch line taken back from a customer
type SalesReturnItem struct {
	MedicineID               string          `json:"medicineId"`
	BatchID                  string          `json:"batchId"`
	BatchNo                  string          `json:"batchNo"`
	ReturnQuantity           int             `json:"returnQuantity"`
	ReturnPrice              decimal.Decimal `json:"returnPrice"`
	MRPAtTimeOfSale          decimal.Decimal `json:"mrpAtTimeOfSale"`
	DiscountPercentageAtSale decimal.Decimal `json:"discountPercentageAtSale"`
	TaxRateAtSale            decimal.Decimal `json:"taxRateAtSale"`

	LineItemDiscountAmount decimal.Decimal               `json:"lineItemDiscountAmount"`
	LineItemTaxableAmount  decimal.Decimal               `json:"lineItemTaxableAmount"`
	LineItemTaxAmount      decimal.Decimal               `json:"lineItemTaxAmount"`
	LineItemReturnValue    decimal.Decimal               `json:"lineItemReturnValue"`
	TaxComponents          []pricing.AppliedTaxComponent `json:"taxComponents,omitempty"`
}

// Price refunds the line at the price, discount and tax rate of the original sale line
func (i *SalesReturnItem) Price(original *SaleItem) error {
	components := make([]pricing.TaxComponent, len(original.TaxComponents))
	for n, c := range original.TaxComponents {
		components[n] = pricing.TaxComponent{Name: c.Name, Rate: c.Rate}
	}
	amounts, err := pricing.CalculateLine(pricing.LineInput{
		UnitPrice:          original.SalePrice,
		Quantity:           i.ReturnQuantity,
		DiscountPercentage: original.DiscountPercentage,
		Tax: pricing.TaxSnapshot{
			ProfileID:  original.TaxProfileID,
			TotalRate:  original.TaxRateApplied,
			Components: components,
		},
	})
	if err != nil {
		return err
	}
	i.ReturnPrice = original.SalePrice
	i.MRPAtTimeOfSale = original.MRPPerItem
	i.DiscountPercentageAtSale = original.DiscountPercentage
	i.TaxRateAtSale = original.TaxRateApplied
	i.LineItemDiscountAmount = amounts.DiscountAmount
	i.LineItemTaxableAmount = amounts.TaxableAmount
	i.LineItemTaxAmount = amounts.TaxAmount
	i.LineItemReturnValue = amounts.LineTotal
	i.TaxComponents = amounts.TaxComponents
	return nil
}

// SalesReturn takes sold units back into stock and records the refund
type SalesReturn struct {
	ID             string            `json:"id"`
	OrganizationID string            `json:"organizationId"`
	BranchID       string            `json:"branchId"`
	OriginalSaleID string            `json:"originalSaleId"`
	PatientID      string            `json:"patientId,omitempty"`
	Reason         string            `json:"reason,omitempty"`
	ReturnDate     time.Time         `json:"returnDate"`
	Items          []SalesReturnItem `json:"items"`

	TotalReturnedMRP      decimal.Decimal `json:"totalReturnedMrp"`
	TotalReturnedDiscount decimal.Decimal `json:"totalReturnedDiscount"`
	TotalReturnedTaxable  decimal.Decimal `json:"totalReturnedTaxable"`
	TotalReturnedTax      decimal.Decimal `json:"totalReturnedTax"`
	RefundAmount          decimal.Decimal `json:"refundAmount"`

	OverallDiscountPercentage decimal.Decimal `json:"overallDiscountPercentage"`
	OverallDiscountAmount     decimal.Decimal `json:"overallDiscountAmount"`
	NetRefundAmount           decimal.Decimal `json:"netRefundAmount"`

	RefundMode      string    `json:"refundMode,omitempty"`
	RefundReference string    `json:"refundReference,omitempty"`
	CreatedBy       string    `json:"createdBy,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

// GetID implements shared.Identifiable
func (r *SalesReturn) GetID() string { return r.ID }

// Summarize totals the priced lines. A document-level discount on the original sale is
// pro-rated onto the returned taxable value and withheld from the refund; additional
// charges on the original sale are not refunded.
func (r *SalesReturn) Summarize(original *Sale) {
	r.TotalReturnedMRP = decimal.Zero
	r.TotalReturnedDiscount = decimal.Zero
	r.TotalReturnedTaxable = decimal.Zero
	r.TotalReturnedTax = decimal.Zero
	r.RefundAmount = decimal.Zero
	for _, item := range r.Items {
		qty := decimal.NewFromInt(int64(item.ReturnQuantity))
		r.TotalReturnedMRP = r.TotalReturnedMRP.Add(pricing.Round(item.MRPAtTimeOfSale.Mul(qty)))
		r.TotalReturnedDiscount = r.TotalReturnedDiscount.Add(item.LineItemDiscountAmount)
		r.TotalReturnedTaxable = r.TotalReturnedTaxable.Add(item.LineItemTaxableAmount)
		r.TotalReturnedTax = r.TotalReturnedTax.Add(item.LineItemTaxAmount)
		r.RefundAmount = r.RefundAmount.Add(item.LineItemReturnValue)
	}

	r.OverallDiscountPercentage = decimal.Zero
	r.OverallDiscountAmount = decimal.Zero
	if original.OverallAdjustmentType.IsDiscount() && original.TotalTaxableAmount.IsPositive() {
		share := original.CalculatedOverallAdjustmentAmount.Div(original.TotalTaxableAmount)
		r.OverallDiscountPercentage = share.Mul(decimal.NewFromInt(100)).Round(4)
		r.OverallDiscountAmount = pricing.Round(r.TotalReturnedTaxable.Mul(share))
	}
	r.NetRefundAmount = r.RefundAmount.Sub(r.OverallDiscountAmount)
}

// SalesReturnsCollection is the collection of a branch's sales returns
func SalesReturnsCollection(organizationID, branchID string) docstore.Path {
	return docstore.BranchRoot(organizationID, branchID).Sub("sales_returns")
}

// SalesReturnPath locates a sales return document
func SalesReturnPath(organizationID, branchID, returnID string) docstore.Path {
	return SalesReturnsCollection(organizationID, branchID).Doc(returnID)
}
