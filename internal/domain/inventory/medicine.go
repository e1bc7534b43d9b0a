package inventory

import (
	"strings"
	"time"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// MedicineStatus is the lifecycle status of a medicine
type MedicineStatus string

const (
	MedicineActive   MedicineStatus = "ACTIVE"
	MedicineInactive MedicineStatus = "INACTIVE"
)

// Medicine is a stocked product of one branch.
// QuantityInStock is the aggregate of its batches' QuantityAvailable.
type Medicine struct {
	ID                string          `json:"id"`
	OrganizationID    string          `json:"organizationId"`
	BranchID          string          `json:"branchId"`
	Name              string          `json:"name"`
	GenericName       string          `json:"genericName,omitempty"`
	Category          string          `json:"category,omitempty"`
	Manufacturer      string          `json:"manufacturer,omitempty"`
	SKU               string          `json:"sku,omitempty"`
	HSNCode           string          `json:"hsnCode,omitempty"`
	Location          string          `json:"location,omitempty"`
	UnitOfMeasurement string          `json:"unitOfMeasurement,omitempty"`
	LowStockThreshold int             `json:"lowStockThreshold"`
	TaxProfileID      string          `json:"taxProfileId,omitempty"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	QuantityInStock   int             `json:"quantityInStock"`
	Status            MedicineStatus  `json:"status"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// GetID implements shared.Identifiable
func (m *Medicine) GetID() string { return m.ID }

// NewMedicine creates an active medicine with no stock.
// Stock only arrives through purchase receipts.
func NewMedicine(bc shared.BranchContext, id, name string, unitPrice decimal.Decimal) (*Medicine, error) {
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewValidationError("INVALID_MEDICINE_NAME", "Medicine name cannot be empty")
	}
	if unitPrice.IsNegative() {
		return nil, shared.NewValidationError("INVALID_PRICE", "Unit price cannot be negative")
	}
	if id == "" {
		id = shared.NewID("med")
	}
	now := time.Now().UTC()
	return &Medicine{
		ID:             id,
		OrganizationID: bc.OrganizationID,
		BranchID:       bc.BranchID,
		Name:           name,
		UnitPrice:      unitPrice,
		Status:         MedicineActive,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// IsActive reports whether the medicine can be bought or sold
func (m *Medicine) IsActive() bool { return m.Status == MedicineActive }

// IsLowStock reports whether stock is at or below the configured threshold
func (m *Medicine) IsLowStock() bool {
	return m.LowStockThreshold > 0 && m.QuantityInStock <= m.LowStockThreshold
}

// MedicinesCollection is the collection of a branch's medicines
func MedicinesCollection(organizationID, branchID string) docstore.Path {
	return docstore.BranchRoot(organizationID, branchID).Sub("medicines")
}

// MedicinePath locates a medicine document
func MedicinePath(organizationID, branchID, medicineID string) docstore.Path {
	return MedicinesCollection(organizationID, branchID).Doc(medicineID)
}

// BatchesCollection is the collection of a medicine's batches
func BatchesCollection(organizationID, branchID, medicineID string) docstore.Path {
	return MedicinePath(organizationID, branchID, medicineID).Sub("batches")
}

// BatchPath locates a batch document
func BatchPath(organizationID, branchID, medicineID, batchID string) docstore.Path {
	return BatchesCollection(organizationID, branchID, medicineID).Doc(batchID)
}

// Field names used in store queries and increments
const (
	FieldQuantityInStock   = "quantityInStock"
	FieldQuantityAvailable = "quantityAvailable"
	FieldExpiryDate        = "expiryDate"
	FieldBatchNo           = "batchNo"
	FieldStatus            = "status"
	FieldUpdatedAt         = "updatedAt"
)
