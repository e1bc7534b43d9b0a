package trade

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func date(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

// countingStore counts Begin calls on the wrapped store
type countingStore struct {
	docstore.Store
	begins atomic.Int32
}

func (s *countingStore) Begin(ctx context.Context) (docstore.Txn, error) {
	s.begins.Add(1)
	return s.Store.Begin(ctx)
}

type fixture struct {
	store *countingStore
	mem   *persistence.MemoryStore
	coord *Coordinator
	bc    shared.BranchContext
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	mem := persistence.NewMemoryStore()
	store := &countingStore{Store: mem}
	scope := appshared.NewRetryingTransactionScope(store, appshared.RetryConfig{
		MaxAttempts: 100,
		BaseBackoff: time.Millisecond,
		MaxBackoff:  5 * time.Millisecond,
	}, zap.NewNop())
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return date(2024, 11, 1) }
	}
	return &fixture{
		store: store,
		mem:   mem,
		coord: NewCoordinator(scope, nil, zap.NewNop(), opts),
		bc:    shared.BranchContext{OrganizationID: "org1", BranchID: "br1", UserID: "u1"},
	}
}

// write commits fn's staged writes directly, bypassing the coordinator
func (f *fixture) write(t *testing.T, fn func(txn docstore.Txn) error) {
	t.Helper()
	ctx := context.Background()
	txn, err := f.mem.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, fn(txn))
	require.NoError(t, txn.Commit(ctx))
}

func (f *fixture) seedMedicine(t *testing.T, id string, unitPrice decimal.Decimal, taxProfileID string) {
	t.Helper()
	med, err := inventory.NewMedicine(f.bc, id, "Medicine "+id, unitPrice)
	require.NoError(t, err)
	med.TaxProfileID = taxProfileID
	f.write(t, func(txn docstore.Txn) error {
		return txn.Set(inventory.MedicinePath(f.bc.OrganizationID, f.bc.BranchID, id), med)
	})
}

// seedBatch creates a batch and moves the medicine aggregate with it
func (f *fixture) seedBatch(t *testing.T, medicineID, batchNo string, expiry time.Time, qty int, mrp decimal.Decimal) {
	t.Helper()
	batch, err := inventory.NewMedicineBatch("batch-"+batchNo, medicineID, batchNo, expiry, qty, dec("1"), mrp, "")
	require.NoError(t, err)
	f.write(t, func(txn docstore.Txn) error {
		ledger := inventory.NewDocumentStockLedger(f.bc.OrganizationID, f.bc.BranchID)
		if err := ledger.CreateBatch(txn, batch); err != nil {
			return err
		}
		return ledger.Flush(txn)
	})
}

func (f *fixture) seedSupplier(t *testing.T, id string, opening decimal.Decimal) {
	t.Helper()
	sup, err := partner.NewSupplier(f.bc.OrganizationID, id, "Supplier "+id, opening)
	require.NoError(t, err)
	f.write(t, func(txn docstore.Txn) error {
		return txn.Set(partner.SupplierPath(f.bc.OrganizationID, id), sup)
	})
}

func (f *fixture) seedGST18(t *testing.T) string {
	t.Helper()
	profile, err := pricing.NewTaxProfile("gst18", f.bc.OrganizationID, "GST 18%", dec("18"), []pricing.TaxComponent{
		{Name: "CGST", Rate: dec("9")},
		{Name: "SGST", Rate: dec("9")},
	})
	require.NoError(t, err)
	f.write(t, func(txn docstore.Txn) error {
		return txn.Set(pricing.TaxProfilePath(f.bc.OrganizationID, profile.TaxProfileID), profile)
	})
	return profile.TaxProfileID
}

// get reads and decodes one committed document
func get[T any](t *testing.T, f *fixture, path docstore.Path) *T {
	t.Helper()
	ctx := context.Background()
	txn, err := f.mem.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback(ctx)
	doc, err := txn.Get(ctx, path)
	require.NoError(t, err)
	var out T
	require.NoError(t, doc.DataTo(&out))
	return &out
}

// exists reports whether a document is committed at path
func (f *fixture) exists(t *testing.T, path docstore.Path) bool {
	t.Helper()
	ctx := context.Background()
	txn, err := f.mem.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback(ctx)
	_, err = txn.Get(ctx, path)
	if shared.IsNotFound(err) {
		return false
	}
	require.NoError(t, err)
	return true
}

func (f *fixture) medicine(t *testing.T, id string) *inventory.Medicine {
	return get[inventory.Medicine](t, f, inventory.MedicinePath(f.bc.OrganizationID, f.bc.BranchID, id))
}

func (f *fixture) batch(t *testing.T, medicineID, batchID string) *inventory.MedicineBatch {
	return get[inventory.MedicineBatch](t, f, inventory.BatchPath(f.bc.OrganizationID, f.bc.BranchID, medicineID, batchID))
}

func (f *fixture) supplier(t *testing.T, id string) *partner.Supplier {
	return get[partner.Supplier](t, f, partner.SupplierPath(f.bc.OrganizationID, id))
}

// batchTotal sums the available quantity over every batch of a medicine
func (f *fixture) batchTotal(t *testing.T, medicineID string) int {
	t.Helper()
	ctx := context.Background()
	txn, err := f.mem.Begin(ctx)
	require.NoError(t, err)
	defer txn.Rollback(ctx)
	docs, err := txn.Query(ctx, docstore.Query{
		Collection: inventory.BatchesCollection(f.bc.OrganizationID, f.bc.BranchID, medicineID),
	})
	require.NoError(t, err)
	total := 0
	for _, doc := range docs {
		var b inventory.MedicineBatch
		require.NoError(t, doc.DataTo(&b))
		require.GreaterOrEqual(t, b.QuantityAvailable, 0, "batch %s went negative", b.BatchID)
		total += b.QuantityAvailable
	}
	return total
}

// seedScenarioStock creates medicine M with batch B1 (10 units, earlier expiry) and B2 (20 units)
func (f *fixture) seedScenarioStock(t *testing.T) {
	t.Helper()
	f.seedMedicine(t, "M", dec("10"), "")
	f.seedBatch(t, "M", "B1", date(2025, 1, 1), 10, dec("12"))
	f.seedBatch(t, "M", "B2", date(2025, 6, 1), 20, dec("15"))
}

func saleOf(medicineID string, qty int) SaleRequest {
	return SaleRequest{Items: []SaleItemInput{{MedicineID: medicineID, Quantity: qty}}}
}
