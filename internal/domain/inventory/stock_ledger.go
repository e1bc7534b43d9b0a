package inventory

import (
	"sort"

	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
)

// StockLedger stages stock movements into a caller's transaction.
// It never commits; the aggregate counter only moves together with the batch deltas behind it.
type StockLedger interface {
	// CreateBatch stages a new batch and records its quantity against the medicine
	CreateBatch(txn docstore.Txn, batch *MedicineBatch) error
	// ApplyBatchDelta stages an increment of a batch's available quantity.
	// extra updates are written in the same staged update.
	ApplyBatchDelta(txn docstore.Txn, batch *MedicineBatch, delta int, extra ...docstore.FieldUpdate) error
	// ApplyAggregateDelta stages an increment of a medicine's quantityInStock
	ApplyAggregateDelta(txn docstore.Txn, medicineID string, delta int) error
	// Flush stages the accumulated per-medicine aggregate deltas
	Flush(txn docstore.Txn) error
}

// StockChange is the net movement of one medicine in a transaction
type StockChange struct {
	MedicineID string
	Delta      int
}

// DocumentStockLedger is the StockLedger over a branch's documents.
// Create one per transaction attempt.
type DocumentStockLedger struct {
	organizationID string
	branchID       string

	batchDeltas map[string]int // batch id -> staged delta
	pending     map[string]int // medicine id -> delta not yet flushed
	changes     map[string]int
}

// NewDocumentStockLedger creates a ledger for one branch
func NewDocumentStockLedger(organizationID, branchID string) *DocumentStockLedger {
	return &DocumentStockLedger{
		organizationID: organizationID,
		branchID:       branchID,
		batchDeltas:    make(map[string]int),
		pending:        make(map[string]int),
		changes:        make(map[string]int),
	}
}

// CreateBatch implements StockLedger
func (l *DocumentStockLedger) CreateBatch(txn docstore.Txn, batch *MedicineBatch) error {
	if batch.QuantityAvailable < 0 {
		return shared.NewValidationError("INVALID_QUANTITY", "Batch quantity cannot be negative").
			WithDetail("batch_id", batch.BatchID)
	}
	path := BatchPath(l.organizationID, l.branchID, batch.MedicineID, batch.BatchID)
	if err := txn.Set(path, batch); err != nil {
		return err
	}
	l.batchDeltas[batch.BatchID] += batch.QuantityAvailable
	l.pending[batch.MedicineID] += batch.QuantityAvailable
	return nil
}

// ApplyBatchDelta implements StockLedger. batch is the snapshot read in this transaction;
// the result of all deltas staged against it may not go below zero.
func (l *DocumentStockLedger) ApplyBatchDelta(txn docstore.Txn, batch *MedicineBatch, delta int, extra ...docstore.FieldUpdate) error {
	if delta == 0 && len(extra) == 0 {
		return nil
	}
	staged := l.batchDeltas[batch.BatchID] + delta
	if batch.QuantityAvailable+staged < 0 {
		available := batch.QuantityAvailable + l.batchDeltas[batch.BatchID]
		return shared.NewInsufficientStockError(batch.MedicineID, -delta, available)
	}

	updates := make([]docstore.FieldUpdate, 0, len(extra)+1)
	if delta != 0 {
		updates = append(updates, docstore.IncrementInt(FieldQuantityAvailable, delta))
	}
	updates = append(updates, extra...)

	path := BatchPath(l.organizationID, l.branchID, batch.MedicineID, batch.BatchID)
	if err := txn.Update(path, updates...); err != nil {
		return err
	}
	l.batchDeltas[batch.BatchID] = staged
	l.pending[batch.MedicineID] += delta
	return nil
}

// ApplyAggregateDelta implements StockLedger
func (l *DocumentStockLedger) ApplyAggregateDelta(txn docstore.Txn, medicineID string, delta int) error {
	if delta == 0 {
		return nil
	}
	path := MedicinePath(l.organizationID, l.branchID, medicineID)
	if err := txn.Update(path, docstore.IncrementInt(FieldQuantityInStock, delta)); err != nil {
		return err
	}
	l.changes[medicineID] += delta
	return nil
}

// Flush implements StockLedger. Medicines are flushed in id order.
func (l *DocumentStockLedger) Flush(txn docstore.Txn) error {
	ids := make([]string, 0, len(l.pending))
	for id := range l.pending {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		if err := l.ApplyAggregateDelta(txn, id, l.pending[id]); err != nil {
			return err
		}
		delete(l.pending, id)
	}
	return nil
}

// Changes returns the aggregate movements staged so far, ordered by medicine id
func (l *DocumentStockLedger) Changes() []StockChange {
	out := make([]StockChange, 0, len(l.changes))
	for id, delta := range l.changes {
		out = append(out, StockChange{MedicineID: id, Delta: delta})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MedicineID < out[j].MedicineID })
	return out
}

var _ StockLedger = (*DocumentStockLedger)(nil)
