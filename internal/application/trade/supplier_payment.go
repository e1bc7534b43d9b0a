package trade

import (
	"context"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/domain/trade"
	"go.uber.org/zap"
)

// RecordSupplierPayment pays a supplier. A payment against an invoice also settles that
// invoice's due amount and can never exceed it.
func (c *Coordinator) RecordSupplierPayment(ctx context.Context, bc shared.BranchContext, req SupplierPaymentRequest) (*partner.SupplierPayment, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}
	paymentID := req.PaymentID
	if paymentID == "" {
		paymentID = shared.NewID("pay")
	}
	payment, err := partner.NewSupplierPayment(paymentID, req.SupplierID, req.Amount, req.PaymentMode, c.dateOr(req.PaymentDate))
	if err != nil {
		return nil, err
	}
	payment.PurchaseInvoiceID = req.PurchaseInvoiceID
	payment.ReferenceNumber = req.ReferenceNumber
	payment.CreatedBy = bc.UserID

	err = c.scope.Execute(ctx, "record_supplier_payment", func(ctx context.Context, txn docstore.Txn) error {
		snap := newSnapshot(bc)
		paymentPath := partner.PaymentPath(bc.OrganizationID, req.SupplierID, paymentID)

		// READ
		if err := appshared.EnsureAbsent(ctx, txn, paymentPath, "supplier payment"); err != nil {
			return err
		}
		if _, err := snap.supplier(ctx, txn, req.SupplierID); err != nil {
			return err
		}
		var purchase *trade.Purchase
		var purchasePath docstore.Path
		if req.PurchaseInvoiceID != "" {
			purchasePath = trade.PurchasePath(bc.OrganizationID, bc.BranchID, req.PurchaseInvoiceID)
			if purchase, err = appshared.Load[trade.Purchase](ctx, txn, purchasePath, "purchase"); err != nil {
				return err
			}
		}

		// VALIDATE
		if purchase != nil {
			if purchase.SupplierID != req.SupplierID {
				return shared.NewValidationError("SUPPLIER_MISMATCH", "Purchase invoice belongs to another supplier").
					WithDetail("purchase_id", purchase.ID).
					WithDetail("supplier_id", purchase.SupplierID)
			}
			if err := purchase.RecordPayment(payment.AmountPaid); err != nil {
				return err
			}
			purchase.UpdatedAt = c.opts.Clock()
		}

		// STAGE: invoice, payment, supplier balance
		if purchase != nil {
			if err := txn.Set(purchasePath, purchase); err != nil {
				return err
			}
		}
		if err := txn.Set(paymentPath, payment); err != nil {
			return err
		}
		return partner.NewDocumentBalanceLedger(bc.OrganizationID).Decrease(txn, req.SupplierID, payment.AmountPaid)
	})
	if err != nil {
		return nil, err
	}

	c.log(ctx, bc).Info("supplier payment recorded",
		zap.String("payment_id", payment.PaymentID),
		zap.String("supplier_id", payment.SupplierID),
		zap.String("amount", payment.AmountPaid.String()),
	)
	return payment, nil
}
