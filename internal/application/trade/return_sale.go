package trade

import (
	"context"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// ReturnSale takes sold units back into the batches they were allocated from and computes
// the refund at the original sale's prices.
func (c *Coordinator) ReturnSale(ctx context.Context, bc shared.BranchContext, req SalesReturnRequest) (*trade.SalesReturn, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	returnID := req.ReturnID
	if returnID == "" {
		returnID = shared.NewID("sret")
	}
	returnDate := c.dateOr(req.ReturnDate)

	var result *trade.SalesReturn
	err := c.scope.Execute(ctx, "return_sale", func(ctx context.Context, txn docstore.Txn) error {
		snap := newSnapshot(bc)
		returnPath := trade.SalesReturnPath(bc.OrganizationID, bc.BranchID, returnID)
		salePath := trade.SalePath(bc.OrganizationID, bc.BranchID, req.OriginalSaleID)

		// READ
		if err := appshared.EnsureAbsent(ctx, txn, returnPath, "sales return"); err != nil {
			return err
		}
		sale, err := appshared.Load[trade.Sale](ctx, txn, salePath, "sale")
		if err != nil {
			return err
		}
		batches := make(map[string]*inventory.MedicineBatch)
		for _, line := range req.Items {
			idx := sale.FindItem(line.MedicineID, line.BatchNo)
			if idx < 0 {
				return shared.NewValidationError("ITEM_NOT_ON_SALE", "Item is not part of the original sale").
					WithDetail("sale_id", sale.ID).
					WithDetail("medicine_id", line.MedicineID).
					WithDetail("batch_no", line.BatchNo)
			}
			alloc, _ := sale.Items[idx].Allocation(line.BatchNo)
			if _, ok := batches[alloc.BatchID]; ok {
				continue
			}
			if batches[alloc.BatchID], err = snap.batch(ctx, txn, line.MedicineID, alloc.BatchID); err != nil {
				return err
			}
		}

		// VALIDATE and PRICE
		now := c.opts.Clock()
		ret := &trade.SalesReturn{
			ID:              returnID,
			OrganizationID:  bc.OrganizationID,
			BranchID:        bc.BranchID,
			OriginalSaleID:  sale.ID,
			PatientID:       sale.PatientID,
			Reason:          req.Reason,
			ReturnDate:      returnDate,
			Items:           make([]trade.SalesReturnItem, 0, len(req.Items)),
			RefundMode:      req.RefundMode,
			RefundReference: req.RefundReference,
			CreatedBy:       bc.UserID,
			CreatedAt:       now,
		}
		for _, line := range req.Items {
			portions, err := sale.RecordReturn(line.MedicineID, line.BatchNo, line.ReturnQuantity)
			if err != nil {
				return err
			}
			// Each sale line the units came back from is refunded at its own prices
			for _, p := range portions {
				item := trade.SalesReturnItem{
					MedicineID:     line.MedicineID,
					BatchID:        p.Allocation.BatchID,
					BatchNo:        p.Allocation.BatchNo,
					ReturnQuantity: p.Quantity,
				}
				if err := item.Price(&sale.Items[p.Index]); err != nil {
					return err
				}
				ret.Items = append(ret.Items, item)
			}
		}
		ret.Summarize(sale)
		sale.UpdatedAt = now

		// STAGE: batches, aggregates, sale, return
		stock := inventory.NewDocumentStockLedger(bc.OrganizationID, bc.BranchID)
		for _, item := range ret.Items {
			if err := stock.ApplyBatchDelta(txn, batches[item.BatchID], item.ReturnQuantity,
				docstore.Value(inventory.FieldUpdatedAt, now)); err != nil {
				return err
			}
		}
		if err := stock.Flush(txn); err != nil {
			return err
		}
		if err := txn.Set(salePath, sale); err != nil {
			return err
		}
		if err := txn.Set(returnPath, ret); err != nil {
			return err
		}

		result = ret
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log(ctx, bc).Info("sales return recorded",
		zap.String("return_id", result.ID),
		zap.String("sale_id", result.OriginalSaleID),
		zap.String("net_refund", result.NetRefundAmount.String()),
	)
	return result, nil
}
