package trade

import (
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// SaleType distinguishes prescription sales from over-the-counter sales
type SaleType string

const (
	SaleTypePrescription SaleType = "PRESCRIPTION"
	SaleTypeOTC          SaleType = "OTC"
)

// IsValid checks if the sale type is known
func (t SaleType) IsValid() bool {
	return t == SaleTypePrescription || t == SaleTypeOTC
}

// SaleItem is one sold line; the units come from the batches in BatchAllocations
type SaleItem struct {
	MedicineID         string                      `json:"medicineId"`
	BatchAllocations   []inventory.BatchAllocation `json:"batchAllocations"`
	Quantity           int                         `json:"quantity"`
	SalePrice          decimal.Decimal             `json:"salePrice"`
	MRPPerItem         decimal.Decimal             `json:"mrpPerItem"`
	DiscountPercentage decimal.Decimal             `json:"discountPercentage"`

	LineItemGrossAmount    decimal.Decimal               `json:"lineItemGrossAmount"`
	LineItemDiscountAmount decimal.Decimal               `json:"lineItemDiscountAmount"`
	LineItemTaxableAmount  decimal.Decimal               `json:"lineItemTaxableAmount"`
	TaxAmount              decimal.Decimal               `json:"taxAmount"`
	LineItemTotalAmount    decimal.Decimal               `json:"lineItemTotalAmount"`
	TaxProfileID           string                        `json:"taxProfileId,omitempty"`
	TaxRateApplied         decimal.Decimal               `json:"taxRateApplied"`
	TaxComponents          []pricing.AppliedTaxComponent `json:"taxComponents,omitempty"`

	// ReturnedByBatch counts units already returned, keyed by batch id
	ReturnedByBatch map[string]int `json:"returnedByBatch,omitempty"`
}

// Price computes the line amounts from the sale price, discount and tax snapshot
func (i *SaleItem) Price(tax pricing.TaxSnapshot) error {
	amounts, err := pricing.CalculateLine(pricing.LineInput{
		UnitPrice:          i.SalePrice,
		Quantity:           i.Quantity,
		DiscountPercentage: i.DiscountPercentage,
		Tax:                tax,
	})
	if err != nil {
		return err
	}
	i.TaxProfileID = tax.ProfileID
	i.LineItemGrossAmount = amounts.GrossAmount
	i.LineItemDiscountAmount = amounts.DiscountAmount
	i.LineItemTaxableAmount = amounts.TaxableAmount
	i.TaxAmount = amounts.TaxAmount
	i.LineItemTotalAmount = amounts.LineTotal
	i.TaxRateApplied = amounts.TaxRate
	i.TaxComponents = amounts.TaxComponents
	return nil
}

// Amounts returns the stored line values for summarizing
func (i *SaleItem) Amounts() pricing.LineAmounts {
	return pricing.LineAmounts{
		GrossAmount:    i.LineItemGrossAmount,
		DiscountAmount: i.LineItemDiscountAmount,
		TaxableAmount:  i.LineItemTaxableAmount,
		TaxRate:        i.TaxRateApplied,
		TaxAmount:      i.TaxAmount,
		TaxComponents:  i.TaxComponents,
		LineTotal:      i.LineItemTotalAmount,
	}
}

// Allocation returns the allocation that drew from the given batch number
func (i *SaleItem) Allocation(batchNo string) (inventory.BatchAllocation, bool) {
	for _, a := range i.BatchAllocations {
		if a.BatchNo == batchNo {
			return a, true
		}
	}
	return inventory.BatchAllocation{}, false
}

// ReturnableFrom is what can still be returned into a batch from this line
func (i *SaleItem) ReturnableFrom(a inventory.BatchAllocation) int {
	return a.QuantityTaken - i.ReturnedByBatch[a.BatchID]
}

// Sale is a dispensing of medicines to a patient or walk-in customer
type Sale struct {
	ID                   string     `json:"id"`
	OrganizationID       string     `json:"organizationId"`
	BranchID             string     `json:"branchId"`
	SaleType             SaleType   `json:"saleType"`
	SaleDate             time.Time  `json:"saleDate"`
	PatientID            string     `json:"patientId,omitempty"`
	DoctorID             string     `json:"doctorId,omitempty"`
	DoctorName           string     `json:"doctorName,omitempty"`
	PrescriptionDate     *time.Time `json:"prescriptionDate,omitempty"`
	WalkInCustomerName   string     `json:"walkInCustomerName,omitempty"`
	WalkInCustomerMobile string     `json:"walkInCustomerMobile,omitempty"`
	Items                []SaleItem `json:"items"`

	TotalGrossAmount    decimal.Decimal `json:"totalGrossAmount"`
	TotalTaxableAmount  decimal.Decimal `json:"totalTaxableAmount"`
	TotalTaxAmount      decimal.Decimal `json:"totalTaxAmount"`
	TotalDiscountAmount decimal.Decimal `json:"totalDiscountAmount"`
	TotalMRPAmount      decimal.Decimal `json:"totalMrpAmount"`
	GrandTotal          decimal.Decimal `json:"grandTotal"`

	OverallAdjustmentType             pricing.AdjustmentType `json:"overallAdjustmentType,omitempty"`
	OverallAdjustmentValue            decimal.Decimal        `json:"overallAdjustmentValue"`
	CalculatedOverallAdjustmentAmount decimal.Decimal        `json:"calculatedOverallAdjustmentAmount"`

	PaymentMode          string `json:"paymentMode,omitempty"`
	TransactionReference string `json:"transactionReference,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// GetID implements shared.Identifiable
func (s *Sale) GetID() string { return s.ID }

// ValidateParties checks the customer details required by the sale type
func (s *Sale) ValidateParties() error {
	if s.SaleType == "" {
		s.SaleType = SaleTypeOTC
	}
	if !s.SaleType.IsValid() {
		return shared.NewValidationError("INVALID_SALE_TYPE", "Unknown sale type: "+string(s.SaleType))
	}
	if s.SaleType == SaleTypePrescription {
		if s.PatientID == "" {
			return shared.NewValidationError("PATIENT_REQUIRED", "Prescription sales require a patient")
		}
		if s.DoctorID == "" && strings.TrimSpace(s.DoctorName) == "" {
			return shared.NewValidationError("DOCTOR_REQUIRED", "Prescription sales require the prescribing doctor")
		}
	}
	return nil
}

// ApplyTotals stores document totals computed from the priced items
func (s *Sale) ApplyTotals(t pricing.DocumentTotals) {
	s.TotalGrossAmount = t.TotalGrossAmount
	s.TotalTaxableAmount = t.TotalTaxableAmount
	s.TotalTaxAmount = t.TotalTaxAmount
	s.TotalDiscountAmount = t.TotalDiscountAmount
	s.GrandTotal = t.GrandTotal
	s.OverallAdjustmentValue = decimal.Zero
	s.CalculatedOverallAdjustmentAmount = t.AdjustmentAmount
	if t.Adjustment != nil {
		s.OverallAdjustmentType = t.Adjustment.Type
		s.OverallAdjustmentValue = t.Adjustment.Value
	}
}

// LineAmounts returns every item's stored amounts
func (s *Sale) LineAmounts() []pricing.LineAmounts {
	out := make([]pricing.LineAmounts, len(s.Items))
	for i := range s.Items {
		out[i] = s.Items[i].Amounts()
	}
	return out
}

// FindItem returns the index of the line selling the given medicine out of the given batch, or -1
func (s *Sale) FindItem(medicineID, batchNo string) int {
	for i := range s.Items {
		if s.Items[i].MedicineID != medicineID {
			continue
		}
		if _, ok := s.Items[i].Allocation(batchNo); ok {
			return i
		}
	}
	return -1
}

// ReturnPortion is the part of a returned quantity booked against one sale line
type ReturnPortion struct {
	Index      int
	Allocation inventory.BatchAllocation
	Quantity   int
}

// RecordReturn books units of a medicine returned into a batch. The lines that drew from
// the batch absorb the quantity in sale order, so a return larger than what one line took
// from the batch carries over to the next line.
func (s *Sale) RecordReturn(medicineID, batchNo string, quantity int) ([]ReturnPortion, error) {
	if quantity <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Return quantity must be positive")
	}
	var matches []ReturnPortion
	returnable := 0
	for i := range s.Items {
		if s.Items[i].MedicineID != medicineID {
			continue
		}
		if alloc, ok := s.Items[i].Allocation(batchNo); ok {
			matches = append(matches, ReturnPortion{Index: i, Allocation: alloc})
			returnable += s.Items[i].ReturnableFrom(alloc)
		}
	}
	if len(matches) == 0 {
		return nil, shared.NewValidationError("ITEM_NOT_ON_SALE", "Item is not part of the original sale").
			WithDetail("sale_id", s.ID).
			WithDetail("medicine_id", medicineID).
			WithDetail("batch_no", batchNo)
	}
	if quantity > returnable {
		return nil, shared.NewValidationError("RETURN_EXCEEDS_SOLD", "Return quantity exceeds the quantity sold from this batch").
			WithDetail("medicine_id", medicineID).
			WithDetail("batch_no", batchNo).
			WithDetail("returnable", returnable)
	}

	portions := make([]ReturnPortion, 0, len(matches))
	remaining := quantity
	for _, m := range matches {
		item := &s.Items[m.Index]
		take := min(remaining, item.ReturnableFrom(m.Allocation))
		if take == 0 {
			continue
		}
		if item.ReturnedByBatch == nil {
			item.ReturnedByBatch = make(map[string]int)
		}
		item.ReturnedByBatch[m.Allocation.BatchID] += take
		m.Quantity = take
		portions = append(portions, m)
		if remaining -= take; remaining == 0 {
			break
		}
	}
	s.UpdatedAt = time.Now().UTC()
	return portions, nil
}

// SalesCollection is the collection of a branch's sales
func SalesCollection(organizationID, branchID string) docstore.Path {
	return docstore.BranchRoot(organizationID, branchID).Sub("sales")
}

// SalePath locates a sale document
func SalePath(organizationID, branchID, saleID string) docstore.Path {
	return SalesCollection(organizationID, branchID).Doc(saleID)
}
