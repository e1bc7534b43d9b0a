package partner

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// PaymentMode is how money changed hands
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "CASH"
	PaymentModeCard   PaymentMode = "CARD"
	PaymentModeUPI    PaymentMode = "UPI"
	PaymentModeBank   PaymentMode = "BANK_TRANSFER"
	PaymentModeCheque PaymentMode = "CHEQUE"
	PaymentModeCredit PaymentMode = "CREDIT"
)

// IsValid checks if the payment mode is known
func (m PaymentMode) IsValid() bool {
	switch m {
	case PaymentModeCash, PaymentModeCard, PaymentModeUPI, PaymentModeBank, PaymentModeCheque, PaymentModeCredit:
		return true
	}
	return false
}

// SupplierPayment records money paid to a supplier, optionally against a purchase invoice
type SupplierPayment struct {
	PaymentID         string          `json:"paymentId"`
	SupplierID        string          `json:"supplierId"`
	PurchaseInvoiceID string          `json:"purchaseInvoiceId,omitempty"`
	PaymentDate       time.Time       `json:"paymentDate"`
	AmountPaid        decimal.Decimal `json:"amountPaid"`
	PaymentMode       PaymentMode     `json:"paymentMode"`
	ReferenceNumber   string          `json:"referenceNumber,omitempty"`
	CreatedBy         string          `json:"createdBy,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
}

// GetID implements shared.Identifiable
func (p *SupplierPayment) GetID() string { return p.PaymentID }

// NewSupplierPayment creates a payment record
func NewSupplierPayment(id, supplierID string, amount decimal.Decimal, mode PaymentMode, paidAt time.Time) (*SupplierPayment, error) {
	if !amount.IsPositive() {
		return nil, shared.NewValidationError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if mode == "" {
		mode = PaymentModeCash
	}
	if !mode.IsValid() {
		return nil, shared.NewValidationError("INVALID_PAYMENT_MODE", "Unknown payment mode: "+string(mode))
	}
	if id == "" {
		id = shared.NewID("pay")
	}
	if paidAt.IsZero() {
		paidAt = time.Now()
	}
	return &SupplierPayment{
		PaymentID:   id,
		SupplierID:  supplierID,
		PaymentDate: paidAt.UTC(),
		AmountPaid:  amount,
		PaymentMode: mode,
		CreatedAt:   time.Now().UTC(),
	}, nil
}

// PaymentsCollection is the collection of payments made to a supplier
func PaymentsCollection(organizationID, supplierID string) docstore.Path {
	return SupplierPath(organizationID, supplierID).Sub("payments")
}

// PaymentPath locates a supplier payment document
func PaymentPath(organizationID, supplierID, paymentID string) docstore.Path {
	return PaymentsCollection(organizationID, supplierID).Doc(paymentID)
}
