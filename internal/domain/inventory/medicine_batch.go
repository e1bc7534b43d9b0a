package inventory

import (
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MedicineBatch is a physical lot of a medicine with its own expiry and stock
type MedicineBatch struct {
	BatchID           string          `json:"batchId"`
	MedicineID        string          `json:"medicineId"`
	BatchNo           string          `json:"batchNo"`
	ExpiryDate        time.Time       `json:"expiryDate"`
	QuantityAvailable int             `json:"quantityAvailable"`
	PurchaseCost      decimal.Decimal `json:"purchaseCost"`
	MRP               decimal.Decimal `json:"mrp"`
	SourcePurchaseID  string          `json:"sourcePurchaseId,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// GetID implements shared.Identifiable
func (b *MedicineBatch) GetID() string { return b.BatchID }

// NewMedicineBatch creates a batch received from a purchase
func NewMedicineBatch(
	batchID, medicineID, batchNo string,
	expiry time.Time,
	quantity int,
	purchaseCost, mrp decimal.Decimal,
	sourcePurchaseID string,
) (*MedicineBatch, error) {
	if strings.TrimSpace(batchNo) == "" {
		return nil, shared.NewValidationError("INVALID_BATCH_NO", "Batch number cannot be empty")
	}
	if expiry.IsZero() {
		return nil, shared.NewValidationError("INVALID_EXPIRY", "Batch expiry date is required")
	}
	if quantity < 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Batch quantity cannot be negative")
	}
	if purchaseCost.IsNegative() || mrp.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Batch cost and MRP cannot be negative")
	}
	if batchID == "" {
		batchID = shared.NewID("batch")
	}
	now := time.Now().UTC()
	return &MedicineBatch{
		BatchID:           batchID,
		MedicineID:        medicineID,
		BatchNo:           batchNo,
		ExpiryDate:        expiry.UTC(),
		QuantityAvailable: quantity,
		PurchaseCost:      purchaseCost,
		MRP:               mrp,
		SourcePurchaseID:  sourcePurchaseID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}, nil
}

// IsExpiredAt reports whether the batch expires before the given instant
func (b *MedicineBatch) IsExpiredAt(t time.Time) bool {
	return b.ExpiryDate.Before(t)
}

// SameExpiry compares expiry dates at day precision
func (b *MedicineBatch) SameExpiry(t time.Time) bool {
	y1, m1, d1 := b.ExpiryDate.UTC().Date()
	y2, m2, d2 := t.UTC().Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// BatchAllocation records how much of one batch a sale line took.
// Allocations are immutable once written to a sale.
type BatchAllocation struct {
	BatchID       string    `json:"batchId"`
	BatchNo       string    `json:"batchNo"`
	QuantityTaken int       `json:"quantityTaken"`
	ExpiryDate    time.Time `json:"expiryDate"`
}
