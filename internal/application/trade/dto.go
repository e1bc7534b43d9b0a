package trade

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
)

// ==================== Shared inputs ====================

// AdjustmentInput is a document-level discount or charge
type AdjustmentInput struct {
	Type  pricing.AdjustmentType `json:"type" binding:"required,oneof=PERCENTAGE_DISCOUNT FIXED_DISCOUNT ADDITIONAL_CHARGE"`
	Value decimal.Decimal        `json:"value"`
}

func (a *AdjustmentInput) toDomain() (*pricing.Adjustment, error) {
	if a == nil {
		return nil, nil
	}
	if !a.Type.IsValid() {
		return nil, shared.NewValidationError("INVALID_ADJUSTMENT", "Unknown adjustment type: "+string(a.Type))
	}
	if a.Value.IsNegative() {
		return nil, shared.NewValidationError("INVALID_ADJUSTMENT", "Adjustment value cannot be negative")
	}
	return &pricing.Adjustment{Type: a.Type, Value: a.Value}, nil
}

// ==================== Purchase DTOs ====================

// PurchaseItemInput is one received line
type PurchaseItemInput struct {
	MedicineID          string          `json:"medicineId" binding:"required,max=128"`
	BatchNo             string          `json:"batchNo" binding:"required,max=64"`
	ExpiryDate          time.Time       `json:"expiryDate" binding:"required"`
	PackQuantity        int             `json:"packQuantity" binding:"gte=0"`
	FreePackQuantity    int             `json:"freePackQuantity" binding:"gte=0"`
	ItemsPerPack        int             `json:"itemsPerPack" binding:"required,gt=0"`
	PurchaseCostPerPack decimal.Decimal `json:"purchaseCostPerPack"`
	DiscountPercentage  decimal.Decimal `json:"discountPercentage"`
	MRPPerItem          decimal.Decimal `json:"mrpPerItem"`
	TaxProfileID        string          `json:"taxProfileId" binding:"max=128"`
}

// PurchaseRequest receives a supplier invoice into stock
type PurchaseRequest struct {
	PurchaseID        string              `json:"purchaseId" binding:"max=128"`
	SupplierID        string              `json:"supplierId" binding:"required,max=128"`
	InvoiceDate       time.Time           `json:"invoiceDate"`
	ReferenceID       string              `json:"referenceId" binding:"max=128"`
	Items             []PurchaseItemInput `json:"items" binding:"required,min=1,dive"`
	OverallAdjustment *AdjustmentInput    `json:"overallAdjustment" binding:"omitempty"`
	AmountPaid        decimal.Decimal     `json:"amountPaid"`
	PaymentMode       partner.PaymentMode `json:"paymentMode" binding:"omitempty,oneof=CASH CARD UPI BANK_TRANSFER CHEQUE CREDIT"`
}

// checkDistinctBatches rejects two lines receiving the same batch of a medicine
func (r *PurchaseRequest) checkDistinctBatches() error {
	seen := make(map[string]bool, len(r.Items))
	for _, item := range r.Items {
		key := item.MedicineID + "\x00" + item.BatchNo
		if seen[key] {
			return shared.NewValidationError("DUPLICATE_BATCH_LINE", "A batch can only appear once per purchase").
				WithDetail("medicine_id", item.MedicineID).
				WithDetail("batch_no", item.BatchNo)
		}
		seen[key] = true
	}
	return nil
}

// ==================== Sale DTOs ====================

// SaleItemInput is one sold line. Stock is allocated from batches automatically.
type SaleItemInput struct {
	MedicineID         string           `json:"medicineId" binding:"required,max=128"`
	Quantity           int              `json:"quantity" binding:"required,gt=0"`
	SalePrice          *decimal.Decimal `json:"salePrice"` // defaults to the medicine's unit price
	DiscountPercentage decimal.Decimal  `json:"discountPercentage"`
	TaxProfileID       string           `json:"taxProfileId" binding:"max=128"` // defaults to the medicine's profile
}

// SaleRequest dispenses medicines
type SaleRequest struct {
	SaleID               string           `json:"saleId" binding:"max=128"`
	SaleType             trade.SaleType   `json:"saleType" binding:"omitempty,oneof=PRESCRIPTION OTC"`
	SaleDate             time.Time        `json:"saleDate"`
	PatientID            string           `json:"patientId" binding:"max=128"`
	DoctorID             string           `json:"doctorId" binding:"max=128"`
	DoctorName           string           `json:"doctorName" binding:"max=200"`
	PrescriptionDate     *time.Time       `json:"prescriptionDate"`
	WalkInCustomerName   string           `json:"walkInCustomerName" binding:"max=200"`
	WalkInCustomerMobile string           `json:"walkInCustomerMobile" binding:"max=20"`
	Items                []SaleItemInput  `json:"items" binding:"required,min=1,dive"`
	OverallAdjustment    *AdjustmentInput `json:"overallAdjustment" binding:"omitempty"`
	PaymentMode          string           `json:"paymentMode" binding:"max=32"`
	TransactionReference string           `json:"transactionReference" binding:"max=128"`
}

// ==================== Return DTOs ====================

// ReturnItemInput names a batch line and how many units go back
type ReturnItemInput struct {
	MedicineID     string `json:"medicineId" binding:"required,max=128"`
	BatchNo        string `json:"batchNo" binding:"required,max=64"`
	ReturnQuantity int    `json:"returnQuantity" binding:"required,gt=0"`
}

// PurchaseReturnRequest sends received stock back to the supplier
type PurchaseReturnRequest struct {
	ReturnID           string            `json:"returnId" binding:"max=128"`
	OriginalPurchaseID string            `json:"originalPurchaseId" binding:"required,max=128"`
	ReturnDate         time.Time         `json:"returnDate"`
	Reason             string            `json:"reason" binding:"max=500"`
	Items              []ReturnItemInput `json:"items" binding:"required,min=1,dive"`
}

// SalesReturnRequest takes sold units back from a customer
type SalesReturnRequest struct {
	ReturnID        string            `json:"returnId" binding:"max=128"`
	OriginalSaleID  string            `json:"originalSaleId" binding:"required,max=128"`
	ReturnDate      time.Time         `json:"returnDate"`
	Reason          string            `json:"reason" binding:"max=500"`
	RefundMode      string            `json:"refundMode" binding:"max=32"`
	RefundReference string            `json:"refundReference" binding:"max=128"`
	Items           []ReturnItemInput `json:"items" binding:"required,min=1,dive"`
}

// ==================== Supplier payment DTOs ====================

// SupplierPaymentRequest pays a supplier, optionally against one purchase invoice
type SupplierPaymentRequest struct {
	PaymentID         string              `json:"paymentId" binding:"max=128"`
	SupplierID        string              `json:"supplierId" binding:"required,max=128"`
	PurchaseInvoiceID string              `json:"purchaseInvoiceId" binding:"max=128"`
	Amount            decimal.Decimal     `json:"amount"`
	PaymentMode       partner.PaymentMode `json:"paymentMode" binding:"omitempty,oneof=CASH CARD UPI BANK_TRANSFER CHEQUE CREDIT"`
	ReferenceNumber   string              `json:"referenceNumber" binding:"max=128"`
	PaymentDate       time.Time           `json:"paymentDate"`
}
