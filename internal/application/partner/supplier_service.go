package partner

import (
	"context"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SupplierService handles supplier-related business operations.
// The outstanding balance is only moved by purchases, returns and payments.
type SupplierService struct {
	scope  appshared.TransactionScope
	logger *zap.Logger
}

// NewSupplierService creates a new SupplierService
func NewSupplierService(scope appshared.TransactionScope, logger *zap.Logger) *SupplierService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SupplierService{scope: scope, logger: logger.Named("partner")}
}

// CreateSupplier creates a new supplier with its opening balance outstanding
func (s *SupplierService) CreateSupplier(ctx context.Context, bc shared.BranchContext, req CreateSupplierRequest) (*SupplierResponse, error) {
	if err := appshared.Begin(bc, req); err != nil {
		return nil, err
	}

	// Create the supplier
	supplier, err := partner.NewSupplier(bc.OrganizationID, req.SupplierID, req.Name, req.OpeningBalance)
	if err != nil {
		return nil, err
	}

	// Set contact
	if req.ContactPerson != "" || req.MobileNumber != "" || req.Email != "" || req.Address != "" {
		if err := supplier.SetContact(req.ContactPerson, req.MobileNumber, req.Email, req.Address); err != nil {
			return nil, err
		}
	}

	// Set registration
	if req.GSTIN != "" || req.DrugLicenseNumber != "" {
		if err := supplier.SetRegistration(req.GSTIN, req.DrugLicenseNumber); err != nil {
			return nil, err
		}
	}

	path := partner.SupplierPath(bc.OrganizationID, supplier.ID)
	err = s.scope.Execute(ctx, "create_supplier", func(ctx context.Context, txn docstore.Txn) error {
		if err := appshared.EnsureAbsent(ctx, txn, path, "supplier"); err != nil {
			return err
		}
		return txn.Set(path, supplier)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("supplier created",
		zap.String("organization_id", bc.OrganizationID),
		zap.String("supplier_id", supplier.ID),
		zap.String("opening_balance", supplier.Balance.String()),
	)
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// GetSupplier retrieves a supplier by ID
func (s *SupplierService) GetSupplier(ctx context.Context, bc shared.BranchContext, supplierID string) (*SupplierResponse, error) {
	if err := appshared.Begin(bc, nil); err != nil {
		return nil, err
	}
	var supplier *partner.Supplier
	err := s.scope.Execute(ctx, "get_supplier", func(ctx context.Context, txn docstore.Txn) error {
		var err error
		supplier, err = appshared.Load[partner.Supplier](ctx, txn, partner.SupplierPath(bc.OrganizationID, supplierID), "supplier")
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToSupplierResponse(supplier)
	return &resp, nil
}

// ListPayments returns a supplier's payments, newest first
func (s *SupplierService) ListPayments(ctx context.Context, bc shared.BranchContext, supplierID string, filter PaymentListFilter) (*PaymentListResponse, error) {
	if err := appshared.Begin(bc, filter); err != nil {
		return nil, err
	}

	q := docstore.Query{
		Collection: partner.PaymentsCollection(bc.OrganizationID, supplierID),
		OrderBy:    []docstore.Order{{Field: "paymentDate", Direction: docstore.Desc}},
		Limit:      filter.Limit,
	}
	if filter.PurchaseInvoiceID != "" {
		q.Filters = append(q.Filters, docstore.Where("purchaseInvoiceId", docstore.OpEqual, filter.PurchaseInvoiceID))
	}

	var payments []*partner.SupplierPayment
	err := s.scope.Execute(ctx, "list_supplier_payments", func(ctx context.Context, txn docstore.Txn) error {
		if _, err := appshared.Load[partner.Supplier](ctx, txn, partner.SupplierPath(bc.OrganizationID, supplierID), "supplier"); err != nil {
			return err
		}
		docs, err := txn.Query(ctx, q)
		if err != nil {
			return err
		}
		decoded, err := appshared.Decode[partner.SupplierPayment](docs, "supplier payment")
		if err != nil {
			return err
		}
		payments = make([]*partner.SupplierPayment, len(decoded))
		for i := range decoded {
			payments[i] = &decoded[i]
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.AmountPaid)
	}
	return &PaymentListResponse{SupplierID: supplierID, Payments: payments, TotalPaid: total}, nil
}
