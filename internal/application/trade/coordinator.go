package trade

import (
	"context"
	"time"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/inventory"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/pricing"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// Options tune coordinator behaviour
type Options struct {
	// ExcludeExpiredBatches keeps batches that expired before the sale date out of allocation
	ExcludeExpiredBatches bool
	// Clock supplies document dates when a request leaves them empty
	Clock func() time.Time
}

// Coordinator runs the stock-moving business operations. Each operation reads a consistent
// snapshot, validates and allocates against it, stages every write and commits once.
// A lost optimistic race re-runs the whole operation through the transaction scope.
type Coordinator struct {
	scope     appshared.TransactionScope
	allocator inventory.BatchAllocator
	logger    *zap.Logger
	opts      Options
}

// NewCoordinator creates a Coordinator
func NewCoordinator(scope appshared.TransactionScope, allocator inventory.BatchAllocator, zapLogger *zap.Logger, opts Options) *Coordinator {
	if allocator == nil {
		allocator = inventory.NewFEFOAllocator()
	}
	if zapLogger == nil {
		zapLogger = zap.NewNop()
	}
	if opts.Clock == nil {
		opts.Clock = func() time.Time { return time.Now().UTC() }
	}
	return &Coordinator{
		scope:     scope,
		allocator: allocator,
		logger:    zapLogger.Named("coordinator"),
		opts:      opts,
	}
}

// log returns the request-scoped logger enriched with the branch
func (c *Coordinator) log(ctx context.Context, bc shared.BranchContext) *logger.ContextLogger {
	return logger.WithLogger(ctx, c.logger).With(
		zap.String("organization_id", bc.OrganizationID),
		zap.String("branch_id", bc.BranchID),
	)
}

// dateOr returns t, or the current time when t is zero
func (c *Coordinator) dateOr(t time.Time) time.Time {
	if t.IsZero() {
		return c.opts.Clock()
	}
	return t.UTC()
}

// ==================== snapshot reads ====================

// snapshot caches the documents one transaction attempt has read
type snapshot struct {
	bc          shared.BranchContext
	medicines   map[string]*inventory.Medicine
	taxProfiles map[string]pricing.TaxSnapshot
}

func newSnapshot(bc shared.BranchContext) *snapshot {
	return &snapshot{
		bc:          bc,
		medicines:   make(map[string]*inventory.Medicine),
		taxProfiles: make(map[string]pricing.TaxSnapshot),
	}
}

// medicine reads an active medicine once per attempt
func (s *snapshot) medicine(ctx context.Context, txn docstore.Txn, id string) (*inventory.Medicine, error) {
	if m, ok := s.medicines[id]; ok {
		return m, nil
	}
	m, err := appshared.Load[inventory.Medicine](ctx, txn, inventory.MedicinePath(s.bc.OrganizationID, s.bc.BranchID, id), "medicine")
	if err != nil {
		return nil, err
	}
	if !m.IsActive() {
		return nil, shared.NewValidationError("MEDICINE_INACTIVE", "Medicine is not active: "+id).
			WithDetail("medicine_id", id)
	}
	s.medicines[id] = m
	return m, nil
}

// tax resolves the tax profile for a line: the explicit one, else the medicine's, else none
func (s *snapshot) tax(ctx context.Context, txn docstore.Txn, explicit string, med *inventory.Medicine) (pricing.TaxSnapshot, error) {
	id := explicit
	if id == "" {
		id = med.TaxProfileID
	}
	if id == "" {
		return pricing.NoTax(), nil
	}
	if t, ok := s.taxProfiles[id]; ok {
		return t, nil
	}
	profile, err := appshared.Load[pricing.TaxProfile](ctx, txn, pricing.TaxProfilePath(s.bc.OrganizationID, id), "tax profile")
	if err != nil {
		return pricing.TaxSnapshot{}, err
	}
	if profile.Status != pricing.TaxProfileActive {
		return pricing.TaxSnapshot{}, shared.NewValidationError("TAX_PROFILE_INACTIVE", "Tax profile is not active: "+id)
	}
	t := profile.Snapshot()
	s.taxProfiles[id] = t
	return t, nil
}

// supplier reads a supplier that can still be traded with
func (s *snapshot) supplier(ctx context.Context, txn docstore.Txn, id string) (*partner.Supplier, error) {
	sup, err := appshared.Load[partner.Supplier](ctx, txn, partner.SupplierPath(s.bc.OrganizationID, id), "supplier")
	if err != nil {
		return nil, err
	}
	if !sup.IsActive() {
		return nil, shared.NewValidationError("SUPPLIER_INACTIVE", "Supplier is not active: "+id).
			WithDetail("supplier_id", id)
	}
	return sup, nil
}

// batchByNo finds a medicine's batch by its printed batch number, or nil
func (s *snapshot) batchByNo(ctx context.Context, txn docstore.Txn, medicineID, batchNo string) (*inventory.MedicineBatch, error) {
	docs, err := txn.Query(ctx, docstore.Query{
		Collection: inventory.BatchesCollection(s.bc.OrganizationID, s.bc.BranchID, medicineID),
		Filters:    []docstore.Filter{docstore.Where(inventory.FieldBatchNo, docstore.OpEqual, batchNo)},
		Limit:      1,
	})
	if err != nil || len(docs) == 0 {
		return nil, err
	}
	var b inventory.MedicineBatch
	if err := docs[0].DataTo(&b); err != nil {
		return nil, shared.NewInternalError("corrupt batch document "+docs[0].ID(), err)
	}
	return &b, nil
}

// availableBatches reads a medicine's batches with stock, earliest expiry first
func (s *snapshot) availableBatches(ctx context.Context, txn docstore.Txn, medicineID string) ([]inventory.MedicineBatch, error) {
	docs, err := txn.Query(ctx, docstore.Query{
		Collection: inventory.BatchesCollection(s.bc.OrganizationID, s.bc.BranchID, medicineID),
		Filters:    []docstore.Filter{docstore.Where(inventory.FieldQuantityAvailable, docstore.OpGreater, 0)},
		OrderBy:    []docstore.Order{{Field: inventory.FieldExpiryDate, Direction: docstore.Asc}},
	})
	if err != nil {
		return nil, err
	}
	return appshared.Decode[inventory.MedicineBatch](docs, "batch")
}

// batch reads one batch by id
func (s *snapshot) batch(ctx context.Context, txn docstore.Txn, medicineID, batchID string) (*inventory.MedicineBatch, error) {
	return appshared.Load[inventory.MedicineBatch](ctx, txn,
		inventory.BatchPath(s.bc.OrganizationID, s.bc.BranchID, medicineID, batchID), "batch")
}
