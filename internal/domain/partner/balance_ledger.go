package partner

import (
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// BalanceLedger stages changes to a supplier's outstanding balance.
// Changes are atomic increments, never read-modify-write.
type BalanceLedger interface {
	Increase(txn docstore.Txn, supplierID string, amount decimal.Decimal) error
	Decrease(txn docstore.Txn, supplierID string, amount decimal.Decimal) error
}

// DocumentBalanceLedger is the BalanceLedger over an organization's supplier documents
type DocumentBalanceLedger struct {
	organizationID string
}

// NewDocumentBalanceLedger creates a ledger for one organization
func NewDocumentBalanceLedger(organizationID string) *DocumentBalanceLedger {
	return &DocumentBalanceLedger{organizationID: organizationID}
}

// Increase adds to what the organization owes the supplier
func (l *DocumentBalanceLedger) Increase(txn docstore.Txn, supplierID string, amount decimal.Decimal) error {
	return l.apply(txn, supplierID, amount)
}

// Decrease subtracts from what the organization owes the supplier
func (l *DocumentBalanceLedger) Decrease(txn docstore.Txn, supplierID string, amount decimal.Decimal) error {
	return l.apply(txn, supplierID, amount.Neg())
}

func (l *DocumentBalanceLedger) apply(txn docstore.Txn, supplierID string, delta decimal.Decimal) error {
	if supplierID == "" {
		return shared.NewValidationError("INVALID_SUPPLIER", "Supplier id is required")
	}
	if delta.IsZero() {
		return nil
	}
	return txn.Update(SupplierPath(l.organizationID, supplierID), docstore.Increment(FieldOutstandingBalance, delta))
}

var _ BalanceLedger = (*DocumentBalanceLedger)(nil)
