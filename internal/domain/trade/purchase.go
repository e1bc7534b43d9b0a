package trade

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PurchaseItem is one received line of a supplier invoice
type PurchaseItem struct {
	MedicineID            string          `json:"medicineId"`
	BatchID               string          `json:"batchId"`
	BatchNo               string          `json:"batchNo"`
	ExpiryDate            time.Time       `json:"expiryDate"`
	PackQuantity          int             `json:"packQuantity"`
	FreePackQuantity      int             `json:"freePackQuantity"`
	ItemsPerPack          int             `json:"itemsPerPack"`
	TotalReceivedQuantity int             `json:"totalReceivedQuantity"`
	PurchaseCostPerPack   decimal.Decimal `json:"purchaseCostPerPack"`
	DiscountPercentage    decimal.Decimal `json:"discountPercentage"`
	MRPPerItem            decimal.Decimal `json:"mrpPerItem"`

	LineItemGrossAmount    decimal.Decimal               `json:"lineItemGrossAmount"`
	LineItemDiscountAmount decimal.Decimal               `json:"lineItemDiscountAmount"`
	LineItemTaxableAmount  decimal.Decimal               `json:"lineItemTaxableAmount"`
	LineItemTaxAmount      decimal.Decimal               `json:"lineItemTaxAmount"`
	LineItemTotalAmount    decimal.Decimal               `json:"lineItemTotalAmount"`
	TaxProfileID           string                        `json:"taxProfileId,omitempty"`
	TaxRateApplied         decimal.Decimal               `json:"taxRateApplied"`
	TaxComponents          []pricing.AppliedTaxComponent `json:"taxComponents,omitempty"`

	ReturnedQuantity int             `json:"returnedQuantity"`
	ReturnedAmount   decimal.Decimal `json:"returnedAmount"`
}

// Price validates the line's quantities, computes the received quantity and prices it.
// Only paid packs are charged; free packs are received at no cost.
func (i *PurchaseItem) Price(tax pricing.TaxSnapshot) error {
	if i.PackQuantity < 0 || i.FreePackQuantity < 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Pack quantities cannot be negative").
			WithDetail("medicine_id", i.MedicineID)
	}
	if i.PackQuantity+i.FreePackQuantity == 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "A purchase line must receive at least one pack").
			WithDetail("medicine_id", i.MedicineID)
	}
	if i.ItemsPerPack <= 0 {
		return shared.NewValidationError("INVALID_PACK_SIZE", "Items per pack must be positive").
			WithDetail("medicine_id", i.MedicineID)
	}
	if i.MRPPerItem.IsNegative() {
		return shared.NewValidationError("INVALID_PRICE", "MRP cannot be negative").
			WithDetail("medicine_id", i.MedicineID)
	}

	amounts, err := pricing.CalculateLine(pricing.LineInput{
		UnitPrice:          i.PurchaseCostPerPack,
		Quantity:           i.PackQuantity,
		DiscountPercentage: i.DiscountPercentage,
		Tax:                tax,
	})
	if err != nil {
		return err
	}

	i.TotalReceivedQuantity = (i.PackQuantity + i.FreePackQuantity) * i.ItemsPerPack
	i.TaxProfileID = tax.ProfileID
	i.setAmounts(amounts)
	return nil
}

func (i *PurchaseItem) setAmounts(a pricing.LineAmounts) {
	i.LineItemGrossAmount = a.GrossAmount
	i.LineItemDiscountAmount = a.DiscountAmount
	i.LineItemTaxableAmount = a.TaxableAmount
	i.LineItemTaxAmount = a.TaxAmount
	i.LineItemTotalAmount = a.LineTotal
	i.TaxRateApplied = a.TaxRate
	i.TaxComponents = a.TaxComponents
}

// Amounts returns the stored line values for summarizing
func (i *PurchaseItem) Amounts() pricing.LineAmounts {
	return pricing.LineAmounts{
		GrossAmount:    i.LineItemGrossAmount,
		DiscountAmount: i.LineItemDiscountAmount,
		TaxableAmount:  i.LineItemTaxableAmount,
		TaxRate:        i.TaxRateApplied,
		TaxAmount:      i.LineItemTaxAmount,
		TaxComponents:  i.TaxComponents,
		LineTotal:      i.LineItemTotalAmount,
	}
}

// CostPerItem is the pre-tax list cost of a single paid unit, before discount
func (i *PurchaseItem) CostPerItem() decimal.Decimal {
	if i.ItemsPerPack <= 0 {
		return decimal.Zero
	}
	return i.PurchaseCostPerPack.Div(decimal.NewFromInt(int64(i.ItemsPerPack)))
}

// ReturnableQuantity is what can still be returned to the supplier from this line
func (i *PurchaseItem) ReturnableQuantity() int {
	return i.TotalReceivedQuantity - i.ReturnedQuantity
}

// Purchase is a received supplier invoice
type Purchase struct {
	ID             string         `json:"id"`
	OrganizationID string         `json:"organizationId"`
	BranchID       string         `json:"branchId"`
	SupplierID     string         `json:"supplierId"`
	SupplierName   string         `json:"supplierName,omitempty"`
	InvoiceDate    time.Time      `json:"invoiceDate"`
	ReferenceID    string         `json:"referenceId,omitempty"`
	Items          []PurchaseItem `json:"items"`

	TotalGrossAmount    decimal.Decimal `json:"totalGrossAmount"`
	TotalDiscountAmount decimal.Decimal `json:"totalDiscountAmount"`
	TotalTaxableAmount  decimal.Decimal `json:"totalTaxableAmount"`
	TotalTaxAmount      decimal.Decimal `json:"totalTaxAmount"`
	TotalAmount         decimal.Decimal `json:"totalAmount"`

	OverallAdjustmentType             pricing.AdjustmentType `json:"overallAdjustmentType,omitempty"`
	OverallAdjustmentValue            decimal.Decimal        `json:"overallAdjustmentValue"`
	CalculatedOverallAdjustmentAmount decimal.Decimal        `json:"calculatedOverallAdjustmentAmount"`

	AmountPaid          decimal.Decimal       `json:"amountPaid"`
	TotalReturnedAmount decimal.Decimal       `json:"totalReturnedAmount"`
	DueAmount           decimal.Decimal       `json:"dueAmount"`
	PaymentStatus       pricing.PaymentStatus `json:"paymentStatus"`
	PaymentMode         string                `json:"paymentMode,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID implements shared.Identifiable
func (p *Purchase) GetID() string { return p.ID }

// ApplyTotals stores document totals computed from the priced items and sets the payment state
func (p *Purchase) ApplyTotals(t pricing.DocumentTotals) {
	p.TotalGrossAmount = t.TotalGrossAmount
	p.TotalDiscountAmount = t.TotalDiscountAmount
	p.TotalTaxableAmount = t.TotalTaxableAmount
	p.TotalTaxAmount = t.TotalTaxAmount
	p.TotalAmount = t.GrandTotal
	p.setAdjustment(t)
	p.refreshDue()
}

// NetAmount is the invoice total less the value of goods returned against it
func (p *Purchase) NetAmount() decimal.Decimal {
	return p.TotalAmount.Sub(p.TotalReturnedAmount)
}

// refreshDue derives the due amount and payment state from the net amount and payments.
// Returns beyond what is still due leave a supplier credit, not a negative due.
func (p *Purchase) refreshDue() {
	net := p.NetAmount()
	p.DueAmount = decimal.Max(net.Sub(p.AmountPaid), decimal.Zero)
	p.PaymentStatus = pricing.PaymentStatusFor(net, p.AmountPaid)
}

func (p *Purchase) setAdjustment(t pricing.DocumentTotals) {
	p.OverallAdjustmentValue = decimal.Zero
	p.CalculatedOverallAdjustmentAmount = t.AdjustmentAmount
	if t.Adjustment != nil {
		p.OverallAdjustmentType = t.Adjustment.Type
		p.OverallAdjustmentValue = t.Adjustment.Value
	}
}

// LineAmounts returns every item's stored amounts
func (p *Purchase) LineAmounts() []pricing.LineAmounts {
	out := make([]pricing.LineAmounts, len(p.Items))
	for i := range p.Items {
		out[i] = p.Items[i].Amounts()
	}
	return out
}

// ValidatePayment checks an initial payment does not exceed the invoice total
func (p *Purchase) ValidatePayment() error {
	if p.AmountPaid.IsNegative() {
		return shared.NewValidationError("INVALID_AMOUNT", "Amount paid cannot be negative")
	}
	if p.AmountPaid.GreaterThan(p.TotalAmount) {
		return shared.NewValidationError("OVERPAYMENT", "Amount paid exceeds the invoice total").
			WithDetail("total_amount", p.TotalAmount.String()).
			WithDetail("amount_paid", p.AmountPaid.String())
	}
	return nil
}

// RecordPayment applies a later payment against the invoice
func (p *Purchase) RecordPayment(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if p.PaymentStatus == pricing.PaymentCancelled {
		return shared.NewValidationError("INVALID_STATE", "Cannot pay a cancelled purchase").
			WithDetail("purchase_id", p.ID)
	}
	if amount.GreaterThan(p.DueAmount) {
		return shared.NewValidationError("OVERPAYMENT", "Payment exceeds the amount due").
			WithDetail("purchase_id", p.ID).
			WithDetail("due_amount", p.DueAmount.String())
	}
	p.AmountPaid = p.AmountPaid.Add(amount)
	p.refreshDue()
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// FindItem returns the index of the line that received the given batch of a medicine, or -1
func (p *Purchase) FindItem(medicineID, batchNo string) int {
	for i := range p.Items {
		if p.Items[i].MedicineID == medicineID && p.Items[i].BatchNo == batchNo {
			return i
		}
	}
	return -1
}

// billedValue is what the line contributed to the invoice total, including its
// pro-rated share of the overall adjustment
func (p *Purchase) billedValue(index int) decimal.Decimal {
	lines := decimal.Zero
	for i := range p.Items {
		lines = lines.Add(p.Items[i].LineItemTotalAmount)
	}
	line := p.Items[index].LineItemTotalAmount
	if !lines.IsPositive() || lines.Equal(p.TotalAmount) {
		return line
	}
	return line.Mul(p.TotalAmount).Div(lines)
}

// UnitCost is the billed cost of one received unit of a line. Free units share the cost
// of the paid ones, and line tax and discount are included.
func (p *Purchase) UnitCost(index int) decimal.Decimal {
	item := &p.Items[index]
	if item.TotalReceivedQuantity <= 0 {
		return decimal.Zero
	}
	return p.billedValue(index).Div(decimal.NewFromInt(int64(item.TotalReceivedQuantity)))
}

// RecordReturn books returned units against a line, refusing to return more than was
// received, and returns the credit due for them. Credits are cumulative on the line, so
// returning every unit credits exactly what the line was billed.
func (p *Purchase) RecordReturn(index, quantity int) (decimal.Decimal, error) {
	if index < 0 || index >= len(p.Items) {
		return decimal.Zero, shared.NewValidationError("ITEM_NOT_ON_PURCHASE", "Item is not part of the original purchase").
			WithDetail("purchase_id", p.ID)
	}
	item := &p.Items[index]
	if quantity <= 0 {
		return decimal.Zero, shared.NewValidationError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	if quantity > item.ReturnableQuantity() {
		return decimal.Zero, shared.NewValidationError("RETURN_EXCEEDS_RECEIVED", "Return quantity exceeds the quantity received").
			WithDetail("medicine_id", item.MedicineID).
			WithDetail("batch_no", item.BatchNo).
			WithDetail("returnable", item.ReturnableQuantity())
	}
	item.ReturnedQuantity += quantity
	cumulative := pricing.Round(p.billedValue(index).
		Mul(decimal.NewFromInt(int64(item.ReturnedQuantity))).
		Div(decimal.NewFromInt(int64(item.TotalReceivedQuantity))))
	credit := cumulative.Sub(item.ReturnedAmount)
	item.ReturnedAmount = cumulative
	p.UpdatedAt = time.Now().UTC()
	return credit, nil
}

// FullyReturned reports whether every received unit has gone back to the supplier
func (p *Purchase) FullyReturned() bool {
	for i := range p.Items {
		if p.Items[i].ReturnableQuantity() > 0 {
			return false
		}
	}
	return true
}

// SettleReturn applies a return's credit to the invoice and returns the amount to book
// against the supplier. Once everything is returned the last cent of the invoice total is
// credited, so rounded line credits never leave a residue.
func (p *Purchase) SettleReturn(credit decimal.Decimal) decimal.Decimal {
	if p.FullyReturned() {
		credit = p.TotalAmount.Sub(p.TotalReturnedAmount)
	}
	p.TotalReturnedAmount = p.TotalReturnedAmount.Add(credit)
	p.refreshDue()
	return credit
}

// PurchasesCollection is the collection of a branch's purchases
func PurchasesCollection(organizationID, branchID string) docstore.Path {
	return docstore.BranchRoot(organizationID, branchID).Sub("purchases")
}

// PurchasePath locates a purchase document
func PurchasePath(organizationID, branchID, purchaseID string) docstore.Path {
	return PurchasesCollection(organizationID, branchID).Doc(purchaseID)
}
