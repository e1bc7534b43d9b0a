package trade

import (
	"context"
	"strconv"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// ReceivePurchase books a supplier invoice: every line becomes stock in a batch, the
// medicine aggregates grow by what was received, and the supplier is owed the unpaid part.
func (c *Coordinator) ReceivePurchase(ctx context.Context, bc shared.BranchContext, req PurchaseRequest) (*trade.Purchase, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	if err := req.checkDistinctBatches(); err != nil {
		return nil, err
	}
	adj, err := req.OverallAdjustment.toDomain()
	if err != nil {
		return nil, err
	}
	purchaseID := req.PurchaseID
	if purchaseID == "" {
		purchaseID = shared.NewID("pur")
	}
	invoiceDate := c.dateOr(req.InvoiceDate)

	var result *trade.Purchase
	err = c.scope.Execute(ctx, "receive_purchase", func(ctx context.Context, txn docstore.Txn) error {
		snap := newSnapshot(bc)
		purchasePath := trade.PurchasePath(bc.OrganizationID, bc.BranchID, purchaseID)

		// READ
		if err := appshared.EnsureAbsent(ctx, txn, purchasePath, "purchase"); err != nil {
			return err
		}
		supplier, err := snap.supplier(ctx, txn, req.SupplierID)
		if err != nil {
			return err
		}
		taxes := make([]pricing.TaxSnapshot, len(req.Items))
		existing := make([]*inventory.MedicineBatch, len(req.Items))
		for i, line := range req.Items {
			med, err := snap.medicine(ctx, txn, line.MedicineID)
			if err != nil {
				return err
			}
			if taxes[i], err = snap.tax(ctx, txn, line.TaxProfileID, med); err != nil {
				return err
			}
			if existing[i], err = snap.batchByNo(ctx, txn, line.MedicineID, line.BatchNo); err != nil {
				return err
			}
		}

		// VALIDATE and PRICE
		now := c.opts.Clock()
		purchase := &trade.Purchase{
			ID:             purchaseID,
			OrganizationID: bc.OrganizationID,
			BranchID:       bc.BranchID,
			SupplierID:     supplier.ID,
			SupplierName:   supplier.Name,
			InvoiceDate:    invoiceDate,
			ReferenceID:    req.ReferenceID,
			Items:          make([]trade.PurchaseItem, len(req.Items)),
			AmountPaid:     req.AmountPaid,
			PaymentMode:    string(req.PaymentMode),
			CreatedBy:      bc.UserID,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		for i, line := range req.Items {
			item := trade.PurchaseItem{
				MedicineID:          line.MedicineID,
				BatchNo:             line.BatchNo,
				ExpiryDate:          line.ExpiryDate.UTC(),
				PackQuantity:        line.PackQuantity,
				FreePackQuantity:    line.FreePackQuantity,
				ItemsPerPack:        line.ItemsPerPack,
				PurchaseCostPerPack: line.PurchaseCostPerPack,
				DiscountPercentage:  line.DiscountPercentage,
				MRPPerItem:          line.MRPPerItem,
			}
			if err := item.Price(taxes[i]); err != nil {
				return err
			}
			if b := existing[i]; b != nil {
				if !b.SameExpiry(line.ExpiryDate) {
					return shared.NewValidationError("BATCH_EXPIRY_MISMATCH",
						"Batch "+line.BatchNo+" already exists with a different expiry date").
						WithDetail("medicine_id", line.MedicineID).
						WithDetail("batch_no", line.BatchNo).
						WithDetail("existing_expiry", b.ExpiryDate.Format("2006-01-02"))
				}
				item.BatchID = b.BatchID
			} else {
				item.BatchID = shared.DeterministicID("batch", purchaseID, strconv.Itoa(i))
			}
			purchase.Items[i] = item
		}
		totals, err := pricing.Summarize(purchase.LineAmounts(), adj)
		if err != nil {
			return err
		}
		purchase.ApplyTotals(totals)
		if err := purchase.ValidatePayment(); err != nil {
			return err
		}

		// STAGE: batches, aggregates, purchase, payment, supplier balance
		stock := inventory.NewDocumentStockLedger(bc.OrganizationID, bc.BranchID)
		for i := range purchase.Items {
			item := &purchase.Items[i]
			if b := existing[i]; b != nil {
				// The batch keeps the cost, mrp and source of the lot that created it
				err = stock.ApplyBatchDelta(txn, b, item.TotalReceivedQuantity,
					docstore.Value(inventory.FieldUpdatedAt, now))
			} else {
				var batch *inventory.MedicineBatch
				batch, err = inventory.NewMedicineBatch(item.BatchID, item.MedicineID, item.BatchNo, item.ExpiryDate,
					item.TotalReceivedQuantity, item.CostPerItem(), item.MRPPerItem, purchaseID)
				if err == nil {
					err = stock.CreateBatch(txn, batch)
				}
			}
			if err != nil {
				return err
			}
		}
		if err := stock.Flush(txn); err != nil {
			return err
		}
		if err := txn.Set(purchasePath, purchase); err != nil {
			return err
		}

		if purchase.AmountPaid.IsPositive() {
			payment, err := partner.NewSupplierPayment(shared.DeterministicID("pay", purchaseID),
				supplier.ID, purchase.AmountPaid, req.PaymentMode, invoiceDate)
			if err != nil {
				return err
			}
			payment.PurchaseInvoiceID = purchaseID
			payment.CreatedBy = bc.UserID
			if err := txn.Set(partner.PaymentPath(bc.OrganizationID, supplier.ID, payment.PaymentID), payment); err != nil {
				return err
			}
		}
		balance := partner.NewDocumentBalanceLedger(bc.OrganizationID)
		if err := balance.Increase(txn, supplier.ID, purchase.DueAmount); err != nil {
			return err
		}

		result = purchase
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log(ctx, bc).Info("purchase received",
		zap.String("purchase_id", result.ID),
		zap.String("supplier_id", result.SupplierID),
		zap.Int("lines", len(result.Items)),
		zap.String("total_amount", result.TotalAmount.String()),
	)
	return result, nil
}
