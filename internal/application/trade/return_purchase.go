package trade

import (
	"context"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// ReturnPurchase sends stock from the batches of a received purchase back to the supplier.
// Lines are credited at what the original invoice billed per received unit; the invoice's
// due amount and the supplier balance drop by the credit.
func (c *Coordinator) ReturnPurchase(ctx context.Context, bc shared.BranchContext, req PurchaseReturnRequest) (*trade.PurchaseReturn, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	returnID := req.ReturnID
	if returnID == "" {
		returnID = shared.NewID("pret")
	}
	returnDate := c.dateOr(req.ReturnDate)

	var result *trade.PurchaseReturn
	err := c.scope.Execute(ctx, "return_purchase", func(ctx context.Context, txn docstore.Txn) error {
		snap := newSnapshot(bc)
		returnPath := trade.PurchaseReturnPath(bc.OrganizationID, bc.BranchID, returnID)
		purchasePath := trade.PurchasePath(bc.OrganizationID, bc.BranchID, req.OriginalPurchaseID)

		// READ
		if err := appshared.EnsureAbsent(ctx, txn, returnPath, "purchase return"); err != nil {
			return err
		}
		purchase, err := appshared.Load[trade.Purchase](ctx, txn, purchasePath, "purchase")
		if err != nil {
			return err
		}
		supplier, err := appshared.Load[partner.Supplier](ctx, txn, partner.SupplierPath(bc.OrganizationID, purchase.SupplierID), "supplier")
		if err != nil {
			return err
		}
		indexes := make([]int, len(req.Items))
		batches := make(map[string]*inventory.MedicineBatch)
		for i, line := range req.Items {
			idx := purchase.FindItem(line.MedicineID, line.BatchNo)
			if idx < 0 {
				return shared.NewValidationError("ITEM_NOT_ON_PURCHASE", "Item is not part of the original purchase").
					WithDetail("purchase_id", purchase.ID).
					WithDetail("medicine_id", line.MedicineID).
					WithDetail("batch_no", line.BatchNo)
			}
			indexes[i] = idx
			batchID := purchase.Items[idx].BatchID
			if _, ok := batches[batchID]; ok {
				continue
			}
			if batches[batchID], err = snap.batch(ctx, txn, line.MedicineID, batchID); err != nil {
				return err
			}
		}

		// VALIDATE and PRICE
		now := c.opts.Clock()
		ret := &trade.PurchaseReturn{
			ID:                 returnID,
			OrganizationID:     bc.OrganizationID,
			BranchID:           bc.BranchID,
			OriginalPurchaseID: purchase.ID,
			SupplierID:         supplier.ID,
			SupplierName:       supplier.Name,
			Reason:             req.Reason,
			ReturnDate:         returnDate,
			Items:              make([]trade.PurchaseReturnItem, len(req.Items)),
			CreatedBy:          bc.UserID,
			CreatedAt:          now,
		}
		for i, line := range req.Items {
			credit, err := purchase.RecordReturn(indexes[i], line.ReturnQuantity)
			if err != nil {
				return err
			}
			original := &purchase.Items[indexes[i]]
			item := trade.PurchaseReturnItem{
				MedicineID:     original.MedicineID,
				BatchID:        original.BatchID,
				BatchNo:        original.BatchNo,
				ReturnQuantity: line.ReturnQuantity,
			}
			item.Price(purchase.UnitCost(indexes[i]), credit)
			ret.Items[i] = item
		}
		ret.Summarize()
		ret.Settle(purchase.SettleReturn(ret.TotalReturnedAmount))
		purchase.UpdatedAt = now

		// STAGE: batches, aggregates, purchase (returned quantities, due), return, supplier balance
		stock := inventory.NewDocumentStockLedger(bc.OrganizationID, bc.BranchID)
		for _, item := range ret.Items {
			if err := stock.ApplyBatchDelta(txn, batches[item.BatchID], -item.ReturnQuantity,
				docstore.Value(inventory.FieldUpdatedAt, now)); err != nil {
				return err
			}
		}
		if err := stock.Flush(txn); err != nil {
			return err
		}
		if err := txn.Set(purchasePath, purchase); err != nil {
			return err
		}
		if err := txn.Set(returnPath, ret); err != nil {
			return err
		}
		balance := partner.NewDocumentBalanceLedger(bc.OrganizationID)
		if err := balance.Decrease(txn, supplier.ID, ret.TotalReturnedAmount); err != nil {
			return err
		}

		result = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log(ctx, bc).Info("purchase return recorded",
		zap.String("return_id", result.ID),
		zap.String("purchase_id", result.OriginalPurchaseID),
		zap.String("total_returned", result.TotalReturnedAmount.String()),
	)
	return result, nil
}
