package inventory

import (
	"sort"

	"github.com/pharmacy/backend/internal/domain/shared"
)

// BatchAllocator decides which batches absorb an outbound quantity
type BatchAllocator interface {
	Allocate(medicineID string, batches []MedicineBatch, required int) (*AllocationPlan, error)
}

// AllocationPlan is the result of allocating a quantity across batches
type AllocationPlan struct {
	MedicineID      string
	Allocations     []BatchAllocation
	TotalTaken      int
	BatchesConsumed []string // batches drained to zero
	BatchesPartial  []string // batches left with stock
}

// DeductFrom subtracts the plan from a working copy of the batches it was computed on,
// so a following allocation for the same medicine sees the remaining stock.
func (p *AllocationPlan) DeductFrom(batches []MedicineBatch) {
	taken := make(map[string]int, len(p.Allocations))
	for _, a := range p.Allocations {
		taken[a.BatchID] += a.QuantityTaken
	}
	for i := range batches {
		if q, ok := taken[batches[i].BatchID]; ok {
			batches[i].QuantityAvailable -= q
		}
	}
}

// FEFOAllocator allocates First-Expiry-First-Out
type FEFOAllocator struct{}

// NewFEFOAllocator creates a FEFO allocator
func NewFEFOAllocator() *FEFOAllocator { return &FEFOAllocator{} }

// SortFEFO returns the batches with stock, ordered by expiry date, then by smaller
// quantity (to clear partial lots first), then by batch id. The input is not modified.
func SortFEFO(batches []MedicineBatch) []MedicineBatch {
	out := make([]MedicineBatch, 0, len(batches))
	for _, b := range batches {
		if b.QuantityAvailable > 0 {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].ExpiryDate.Equal(out[j].ExpiryDate) {
			return out[i].ExpiryDate.Before(out[j].ExpiryDate)
		}
		if out[i].QuantityAvailable != out[j].QuantityAvailable {
			return out[i].QuantityAvailable < out[j].QuantityAvailable
		}
		return out[i].BatchID < out[j].BatchID
	})
	return out
}

// Allocate takes the required quantity from batches in FEFO order.
// Nothing is allocated when total stock is short.
func (a *FEFOAllocator) Allocate(medicineID string, batches []MedicineBatch, required int) (*AllocationPlan, error) {
	if required <= 0 {
		return nil, shared.NewValidationError("INVALID_QUANTITY", "Requested quantity must be positive").
			WithDetail("medicine_id", medicineID)
	}

	sorted := SortFEFO(batches)
	available := 0
	for _, b := range sorted {
		available += b.QuantityAvailable
	}
	if available < required {
		return nil, shared.NewInsufficientStockError(medicineID, required, available)
	}

	plan := &AllocationPlan{
		MedicineID:      medicineID,
		Allocations:     make([]BatchAllocation, 0, len(sorted)),
		BatchesConsumed: make([]string, 0),
		BatchesPartial:  make([]string, 0),
	}
	remaining := required
	for _, b := range sorted {
		if remaining == 0 {
			break
		}
		take := min(b.QuantityAvailable, remaining)
		plan.Allocations = append(plan.Allocations, BatchAllocation{
			BatchID:       b.BatchID,
			BatchNo:       b.BatchNo,
			QuantityTaken: take,
			ExpiryDate:    b.ExpiryDate,
		})
		plan.TotalTaken += take
		remaining -= take
		if take == b.QuantityAvailable {
			plan.BatchesConsumed = append(plan.BatchesConsumed, b.BatchID)
		} else {
			plan.BatchesPartial = append(plan.BatchesPartial, b.BatchID)
		}
	}
	return plan, nil
}
