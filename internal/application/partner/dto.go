package partner

import (
	"time"

	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Supplier DTOs
// =============================================================================

// CreateSupplierRequest represents a request to create a new supplier
type CreateSupplierRequest struct {
	SupplierID        string          `json:"supplierId" binding:"max=128"`
	Name              string          `json:"name" binding:"required,min=1,max=200"`
	GSTIN             string          `json:"gstin" binding:"omitempty,len=15"`
	ContactPerson     string          `json:"contactPerson" binding:"max=100"`
	MobileNumber      string          `json:"mobileNumber" binding:"max=50"`
	Email             string          `json:"email" binding:"omitempty,email,max=200"`
	Address           string          `json:"address" binding:"max=500"`
	DrugLicenseNumber string          `json:"drugLicenseNumber" binding:"max=100"`
	OpeningBalance    decimal.Decimal `json:"openingBalance"`
}

// SupplierResponse represents a supplier in API responses
type SupplierResponse struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	GSTIN              string          `json:"gstin,omitempty"`
	ContactPerson      string          `json:"contactPerson,omitempty"`
	MobileNumber       string          `json:"mobileNumber,omitempty"`
	Email              string          `json:"email,omitempty"`
	Address            string          `json:"address,omitempty"`
	DrugLicenseNumber  string          `json:"drugLicenseNumber,omitempty"`
	Status             string          `json:"status"`
	OpeningBalance     decimal.Decimal `json:"openingBalance"`
	OutstandingBalance decimal.Decimal `json:"outstandingBalance"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// ToSupplierResponse converts a domain Supplier to SupplierResponse
func ToSupplierResponse(s *partner.Supplier) SupplierResponse {
	return SupplierResponse{
		ID:                 s.ID,
		Name:               s.Name,
		GSTIN:              s.GSTIN,
		ContactPerson:      s.ContactPerson,
		MobileNumber:       s.MobileNumber,
		Email:              s.Email,
		Address:            s.Address,
		DrugLicenseNumber:  s.DrugLicenseNumber,
		Status:             string(s.Status),
		OpeningBalance:     s.Balance,
		OutstandingBalance: s.OutstandingBalance,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
	}
}

// =============================================================================
// Supplier payment DTOs
// =============================================================================

// PaymentListFilter represents filter options for a supplier's payment history
type PaymentListFilter struct {
	PurchaseInvoiceID string `form:"purchaseInvoiceId"`
	Limit             int    `form:"limit" binding:"omitempty,min=1,max=500"`
}

// PaymentListResponse is a supplier's payment history with its running total
type PaymentListResponse struct {
	SupplierID string                     `json:"supplierId"`
	Payments   []*partner.SupplierPayment `json:"payments"`
	TotalPaid  decimal.Decimal            `json:"totalPaid"`
}
