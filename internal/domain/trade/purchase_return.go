package trade

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/shopspring/decimal"
)

// PurchaseReturnItem is one batch line sent back to the supplier
type PurchaseReturnItem struct {
	MedicineID           string          `json:"medicineId"`
	BatchID              string          `json:"batchId"`
	BatchNo              string          `json:"batchNo"`
	ReturnQuantity       int             `json:"returnQuantity"`
	CostAtTimeOfPurchase decimal.Decimal `json:"costAtTimeOfPurchase"`
	LineItemReturnValue  decimal.Decimal `json:"lineItemReturnValue"`
}

// Price records the billed unit cost of the original line and the credit for the returned units
func (i *PurchaseReturnItem) Price(unitCost, credit decimal.Decimal) {
	i.CostAtTimeOfPurchase = unitCost.Round(4)
	i.LineItemReturnValue = credit
}

// PurchaseReturn sends received stock back to the supplier and reduces what is owed
type PurchaseReturn struct {
	ID                  string               `json:"id"`
	OrganizationID      string               `json:"organizationId"`
	BranchID            string               `json:"branchId"`
	OriginalPurchaseID  string               `json:"originalPurchaseId"`
	SupplierID          string               `json:"supplierId"`
	SupplierName        string               `json:"supplierName,omitempty"`
	Reason              string               `json:"reason,omitempty"`
	ReturnDate          time.Time            `json:"returnDate"`
	Items               []PurchaseReturnItem `json:"items"`
	TotalReturnedAmount decimal.Decimal      `json:"totalReturnedAmount"`
	CreatedBy           string               `json:"createdBy,omitempty"`
	CreatedAt           time.Time            `json:"createdAt"`
}

// GetID implements shared.Identifiable
func (r *PurchaseReturn) GetID() string { return r.ID }

// Summarize totals the priced lines
func (r *PurchaseReturn) Summarize() {
	total := decimal.Zero
	for _, item := range r.Items {
		total = total.Add(item.LineItemReturnValue)
	}
	r.TotalReturnedAmount = total
}

// Settle replaces the total with the credit the invoice actually took, carrying any
// rounding difference on the last line
func (r *PurchaseReturn) Settle(credited decimal.Decimal) {
	if diff := credited.Sub(r.TotalReturnedAmount); !diff.IsZero() && len(r.Items) > 0 {
		last := &r.Items[len(r.Items)-1]
		last.LineItemReturnValue = last.LineItemReturnValue.Add(diff)
	}
	r.TotalReturnedAmount = credited
}

// PurchaseReturnsCollection is the collection of a branch's purchase returns
func PurchaseReturnsCollection(organizationID, branchID string) docstore.Path {
	return docstore.BranchRoot(organizationID, branchID).Sub("purchase_returns")
}

// PurchaseReturnPath locates a purchase return document
func PurchaseReturnPath(organizationID, branchID, returnID string) docstore.Path {
	return PurchaseReturnsCollection(organizationID, branchID).Doc(returnID)
}
