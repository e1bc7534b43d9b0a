package trade

import (
	"context"
	"time"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// RecordSale dispenses medicines. Each line is allocated FEFO across the medicine's batches;
// a shortfall on any line aborts the whole sale.
func (c *Coordinator) RecordSale(ctx context.Context, bc shared.BranchContext, req SaleRequest) (*trade.Sale, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	adj, err := req.OverallAdjustment.toDomain()
	if err != nil {
		return nil, err
	}
	for _, line := range req.Items {
		if line.SalePrice != nil && line.SalePrice.IsNegative() {
			return nil, shared.NewValidationError("INVALID_PRICE", "Sale price cannot be negative").
				WithDetail("medicine_id", line.MedicineID)
		}
	}
	header := trade.Sale{
		SaleType:             req.SaleType,
		PatientID:            req.PatientID,
		DoctorID:             req.DoctorID,
		DoctorName:           req.DoctorName,
		PrescriptionDate:     req.PrescriptionDate,
		WalkInCustomerName:   req.WalkInCustomerName,
		WalkInCustomerMobile: req.WalkInCustomerMobile,
		PaymentMode:          req.PaymentMode,
		TransactionReference: req.TransactionReference,
	}
	if err := header.ValidateParties(); err != nil {
		return nil, err
	}
	saleID := req.SaleID
	if saleID == "" {
		saleID = shared.NewID("sale")
	}
	saleDate := c.dateOr(req.SaleDate)

	var result *trade.Sale
	err = c.scope.Execute(ctx, "record_sale", func(ctx context.Context, txn docstore.Txn) error {
		snap := newSnapshot(bc)
		salePath := trade.SalePath(bc.OrganizationID, bc.BranchID, saleID)

		// READ
		if err := appshared.EnsureAbsent(ctx, txn, salePath, "sale"); err != nil {
			return err
		}
		meds := make([]*inventory.Medicine, len(req.Items))
		taxes := make([]pricing.TaxSnapshot, len(req.Items))
		working := make(map[string][]inventory.MedicineBatch)
		snapshots := make(map[string]map[string]inventory.MedicineBatch)
		for i, line := range req.Items {
			med, err := snap.medicine(ctx, txn, line.MedicineID)
			if err != nil {
				return err
			}
			meds[i] = med
			if taxes[i], err = snap.tax(ctx, txn, line.TaxProfileID, med); err != nil {
				return err
			}
			if _, ok := working[med.ID]; ok {
				continue
			}
			batches, err := snap.availableBatches(ctx, txn, med.ID)
			if err != nil {
				return err
			}
			if c.opts.ExcludeExpiredBatches {
				batches = unexpired(batches, saleDate)
			}
			byID := make(map[string]inventory.MedicineBatch, len(batches))
			for _, b := range batches {
				byID[b.BatchID] = b
			}
			snapshots[med.ID] = byID
			working[med.ID] = batches
		}

		// ALLOCATE and PRICE
		now := c.opts.Clock()
		sale := header
		sale.ID = saleID
		sale.OrganizationID = bc.OrganizationID
		sale.BranchID = bc.BranchID
		sale.SaleDate = saleDate
		sale.Items = make([]trade.SaleItem, len(req.Items))
		sale.CreatedBy = bc.UserID
		sale.CreatedAt = now
		sale.UpdatedAt = now

		totalMRP := decimal.Zero
		for i, line := range req.Items {
			med := meds[i]
			plan, err := c.allocator.Allocate(med.ID, working[med.ID], line.Quantity)
			if err != nil {
				return err
			}
			plan.DeductFrom(working[med.ID])

			item := trade.SaleItem{
				MedicineID:         med.ID,
				BatchAllocations:   plan.Allocations,
				Quantity:           line.Quantity,
				SalePrice:          med.UnitPrice,
				DiscountPercentage: line.DiscountPercentage,
			}
			if line.SalePrice != nil {
				item.SalePrice = *line.SalePrice
			}
			for n, a := range plan.Allocations {
				mrp := snapshots[med.ID][a.BatchID].MRP
				if n == 0 {
					item.MRPPerItem = mrp
				}
				totalMRP = totalMRP.Add(mrp.Mul(decimal.NewFromInt(int64(a.QuantityTaken))))
			}
			if err := item.Price(taxes[i]); err != nil {
				return err
			}
			sale.Items[i] = item
		}
		totals, err := pricing.Summarize(sale.LineAmounts(), adj)
		if err != nil {
			return err
		}
		sale.ApplyTotals(totals)
		sale.TotalMRPAmount = pricing.Round(totalMRP)

		// STAGE: batches, aggregates, sale
		stock := inventory.NewDocumentStockLedger(bc.OrganizationID, bc.BranchID)
		for _, item := range sale.Items {
			for _, a := range item.BatchAllocations {
				b := snapshots[item.MedicineID][a.BatchID]
				if err := stock.ApplyBatchDelta(txn, &b, -a.QuantityTaken); err != nil {
					return err
				}
			}
		}
		if err := stock.Flush(txn); err != nil {
			return err
		}
		if err := txn.Set(salePath, &sale); err != nil {
			return err
		}

		result = &sale
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log(ctx, bc).Info("sale recorded",
		zap.String("sale_id", result.ID),
		zap.String("sale_type", string(result.SaleType)),
		zap.Int("lines", len(result.Items)),
		zap.String("grand_total", result.GrandTotal.String()),
	)
	return result, nil
}

// unexpired drops batches that expire before the given date
func unexpired(batches []inventory.MedicineBatch, at time.Time) []inventory.MedicineBatch {
	out := batches[:0]
	for _, b := range batches {
		if !b.IsExpiredAt(at) {
			out = append(out, b)
		}
	}
	return out
}
