package catalog

import (
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Medicine DTOs
// =============================================================================

// CreateMedicineRequest represents a request to add a medicine to a branch
type CreateMedicineRequest struct {
	MedicineID        string          `json:"medicineId" binding:"max=128"`
	Name              string          `json:"name" binding:"required,min=1,max=200"`
	GenericName       string          `json:"genericName" binding:"max=200"`
	Category          string          `json:"category" binding:"max=100"`
	Manufacturer      string          `json:"manufacturer" binding:"max=200"`
	SKU               string          `json:"sku" binding:"max=64"`
	HSNCode           string          `json:"hsnCode" binding:"max=16"`
	Location          string          `json:"location" binding:"max=100"`
	UnitOfMeasurement string          `json:"unitOfMeasurement" binding:"max=20"`
	LowStockThreshold int             `json:"lowStockThreshold" binding:"gte=0"`
	TaxProfileID      string          `json:"taxProfileId" binding:"max=128"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
}

// BatchFilter narrows a batch listing
type BatchFilter struct {
	// IncludeEmpty lists batches with no stock left as well
	IncludeEmpty bool `form:"includeEmpty"`
}

// StockReport compares a medicine's aggregate counter with its batches
type StockReport struct {
	MedicineID      string `json:"medicineId"`
	QuantityInStock int    `json:"quantityInStock"`
	BatchTotal      int    `json:"batchTotal"`
	BatchCount      int    `json:"batchCount"`
	NegativeBatches int    `json:"negativeBatches"`
	Consistent      bool   `json:"consistent"`
}

func newStockReport(med *inventory.Medicine, batches []inventory.MedicineBatch) *StockReport {
	r := &StockReport{
		MedicineID:      med.ID,
		QuantityInStock: med.QuantityInStock,
		BatchCount:      len(batches),
	}
	for _, b := range batches {
		r.BatchTotal += b.QuantityAvailable
		if b.QuantityAvailable < 0 {
			r.NegativeBatches++
		}
	}
	r.Consistent = r.NegativeBatches == 0 && r.BatchTotal == r.QuantityInStock
	return r
}

// =============================================================================
// Tax profile DTOs
// =============================================================================

// TaxComponentInput is one named part of a tax rate
type TaxComponentInput struct {
	Name string          `json:"name" binding:"required,max=50"`
	Rate decimal.Decimal `json:"rate"`
}

// CreateTaxProfileRequest represents a request to define an organization tax profile
type CreateTaxProfileRequest struct {
	TaxProfileID string              `json:"taxProfileId" binding:"max=128"`
	ProfileName  string              `json:"profileName" binding:"required,min=1,max=100"`
	TotalRate    decimal.Decimal     `json:"totalRate"`
	Components   []TaxComponentInput `json:"components" binding:"dive"`
}
