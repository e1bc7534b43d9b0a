package catalog

import (
	"context"
	"time"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// MedicineService manages a branch's medicines and reads their batches.
// Stock only changes through the trade coordinator; this service never moves it.
type MedicineService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewMedicineService creates a new MedicineService
func NewMedicineService(scope appshared.TransactionScope, logger *zap.Logger) *MedicineService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MedicineService{scope: scope, logger: logger.Named("catalog")}
}

// CreateMedicine adds a medicine with no stock
func (s *MedicineService) CreateMedicine(ctx context.Context, bc shared.BranchContext, req CreateMedicineRequest) (*inventory.Medicine, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	med, err := inventory.NewMedicine(bc, req.MedicineID, req.Name, req.UnitPrice)
	if err != nil {
		return nil, err
	}
	med.GenericName = req.GenericName
	med.Category = req.Category
	med.Manufacturer = req.Manufacturer
	med.SKU = req.SKU
	med.HSNCode = req.HSNCode
	med.Location = req.Location
	med.UnitOfMeasurement = req.UnitOfMeasurement
	med.LowStockThreshold = req.LowStockThreshold
	med.TaxProfileID = req.TaxProfileID

	path := inventory.MedicinePath(bc.OrganizationID, bc.BranchID, med.ID)
	err = s.scope.Execute(ctx, "create_medicine", func(ctx context.Context, txn docstore.Txn) error {
		if err := appshared.EnsureAbsent(ctx, txn, path, "medicine"); err != nil {
			return err
		}
		// The default tax profile must exist
		if med.TaxProfileID != "" {
			if _, err := appshared.Load[pricing.TaxProfile](ctx, txn,
				pricing.TaxProfilePath(bc.OrganizationID, med.TaxProfileID), "tax profile"); err != nil {
				return err
			}
		}
		return txn.Set(path, med)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("medicine created",
		zap.String("organization_id", bc.OrganizationID),
		zap.String("branch_id", bc.BranchID),
		zap.String("medicine_id", med.ID),
	)
	return med, nil
}

// GetMedicine reads one medicine
func (s *MedicineService) GetMedicine(ctx context.Context, bc shared.BranchContext, medicineID string) (*inventory.Medicine, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var med *inventory.Medicine
	err := s.scope.Execute(ctx, "get_medicine", func(ctx context.Context, txn docstore.Txn) error {
		var err error
		med, err = appshared.Load[inventory.Medicine](ctx, txn,
			inventory.MedicinePath(bc.OrganizationID, bc.BranchID, medicineID), "medicine")
		return err
	})
	return med, err
}

// ListBatches lists a medicine's batches in FEFO order
func (s *MedicineService) ListBatches(ctx context.Context, bc shared.BranchContext, medicineID string, filter BatchFilter) ([]inventory.MedicineBatch, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var batches []inventory.MedicineBatch
	err := s.scope.Execute(ctx, "list_batches", func(ctx context.Context, txn docstore.Txn) error {
		_, err := appshared.Load[inventory.Medicine](ctx, txn,
			inventory.MedicinePath(bc.OrganizationID, bc.BranchID, medicineID), "medicine")
		if err != nil {
			return err
		}
		batches, err = s.batches(ctx, txn, bc, medicineID)
		return err
	})
	if err != nil {
		return nil, err
	}

	// Batches with stock come first in FEFO order; drained ones follow by expiry
	sorted := inventory.SortFEFO(batches)
	if filter.IncludeEmpty {
		for _, b := range batches {
			if b.QuantityAvailable <= 0 {
				sorted = append(sorted, b)
			}
		}
	}
	return sorted, nil
}

// DeactivateMedicine stops a medicine from being bought or sold. Its batches are kept.
func (s *MedicineService) DeactivateMedicine(ctx context.Context, bc shared.BranchContext, medicineID string) (*inventory.Medicine, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var med *inventory.Medicine
	err := s.scope.Execute(ctx, "deactivate_medicine", func(ctx context.Context, txn docstore.Txn) error {
		path := inventory.MedicinePath(bc.OrganizationID, bc.BranchID, medicineID)
		var err error
		if med, err = appshared.Load[inventory.Medicine](ctx, txn, path, "medicine"); err != nil {
			return err
		}
		if !med.IsActive() {
			return nil
		}
		med.Status = inventory.MedicineInactive
		med.UpdatedAt = time.Now().UTC()
		return txn.Update(path,
			docstore.Value(inventory.FieldStatus, string(med.Status)),
			docstore.Value(inventory.FieldUpdatedAt, med.UpdatedAt),
		)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("medicine deactivated",
		zap.String("organization_id", bc.OrganizationID),
		zap.String("branch_id", bc.BranchID),
		zap.String("medicine_id", medicineID),
	)
	return med, nil
}

// DeleteMedicine removes a medicine together with all its batches in one transaction.
// It is the only way a batch is ever removed.
func (s *MedicineService) DeleteMedicine(ctx context.Context, bc shared.BranchContext, medicineID string) error {
	if err := appshared.Begin(bc, nil); err != nil {
		return err
	}
	removed := 0
	err := s.scope.Execute(ctx, "delete_medicine", func(ctx context.Context, txn docstore.Txn) error {
		path := inventory.MedicinePath(bc.OrganizationID, bc.BranchID, medicineID)
		if _, err := appshared.Load[inventory.Medicine](ctx, txn, path, "medicine"); err != nil {
			return err
		}
		batches, err := s.batches(ctx, txn, bc, medicineID)
		if err != nil {
			return err
		}

		for _, b := range batches {
			if err := txn.Delete(inventory.BatchPath(bc.OrganizationID, bc.BranchID, medicineID, b.BatchID)); err != nil {
				return err
			}
		}
		removed = len(batches)
		return txn.Delete(path)
	})
	if err != nil {
		return err
	}

	s.logger.Info("medicine deleted",
		zap.String("organization_id", bc.OrganizationID),
		zap.String("branch_id", bc.BranchID),
		zap.String("medicine_id", medicineID),
		zap.Int("batches_removed", removed),
	)
	return nil
}

// ReconcileStock checks a medicine's quantityInStock against the sum of its batches
func (s *MedicineService) ReconcileStock(ctx context.Context, bc shared.BranchContext, medicineID string) (*StockReport, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var report *StockReport
	err := s.scope.Execute(ctx, "reconcile_stock", func(ctx context.Context, txn docstore.Txn) error {
		med, err := appshared.Load[inventory.Medicine](ctx, txn,
			inventory.MedicinePath(bc.OrganizationID, bc.BranchID, medicineID), "medicine")
		if err != nil {
			return err
		}
		batches, err := s.batches(ctx, txn, bc, medicineID)
		if err != nil {
			return err
		}
		report = newStockReport(med, batches)
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !report.Consistent {
		s.logger.Error("stock aggregate out of line with batches",
			zap.String("organization_id", bc.OrganizationID),
			zap.String("branch_id", bc.BranchID),
			zap.String("medicine_id", medicineID),
			zap.Int("quantity_in_stock", report.QuantityInStock),
			zap.Int("batch_total", report.BatchTotal),
		)
	}
	return report, nil
}

// batches reads every batch of a medicine
func (s *MedicineService) batches(ctx context.Context, txn docstore.Txn, bc shared.BranchContext, medicineID string) ([]inventory.MedicineBatch, error) {
	docs, err := txn.Query(ctx, docstore.Query{
		Collection: inventory.BatchesCollection(bc.OrganizationID, bc.BranchID, medicineID),
		OrderBy:    []docstore.Order{{Field: inventory.FieldExpiryDate, Direction: docstore.Asc}},
	})
	if err != nil {
		return nil, err
	}
	return appshared.Decode[inventory.MedicineBatch](docs, "batch")
}
