package partner

import (
	"context"
	"errors"
	"testing"
	"time"

	appshared "github.com/pharmacy/backend/internal/application/shared"
	"github.com/pharmacy/backend/internal/domain/partner"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/persistence"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestSupplierService() (*SupplierService, *persistence.MemoryStore) {
	mem := persistence.NewMemoryStore()
	scope := appshared.NewRetryingTransactionScope(mem, appshared.DefaultRetryConfig(), zap.NewNop())
	return NewSupplierService(scope, zap.NewNop()), mem
}

var testBranch = shared.BranchContext{OrganizationID: "org1", BranchID: "br1", UserID: "u1"}

func TestSupplierService_CreateSupplier(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		req      CreateSupplierRequest
		wantCode string
	}{
		{
			name: "full registration",
			req: CreateSupplierRequest{
				SupplierID:        "s1",
				Name:              "  Acme Pharma  ",
				GSTIN:             "27abcde1234f1z5",
				ContactPerson:     "R. Shah",
				MobileNumber:      "+91 98200 00000",
				Email:             "orders@acme.example",
				DrugLicenseNumber: "MH-123",
				OpeningBalance:    decimal.NewFromInt(500),
			},
		},
		{
			name:     "missing name",
			req:      CreateSupplierRequest{SupplierID: "s2"},
			wantCode: "INVALID_REQUEST",
		},
		{
			name:     "bad email",
			req:      CreateSupplierRequest{SupplierID: "s3", Name: "X", Email: "not-an-email"},
			wantCode: "INVALID_REQUEST",
		},
		{
			name:     "bad phone",
			req:      CreateSupplierRequest{SupplierID: "s4", Name: "X", MobileNumber: "call me"},
			wantCode: "INVALID_PHONE",
		},
		{
			name:     "negative opening balance",
			req:      CreateSupplierRequest{SupplierID: "s5", Name: "X", OpeningBalance: decimal.NewFromInt(-1)},
			wantCode: "INVALID_BALANCE",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestSupplierService()
			resp, err := svc.CreateSupplier(ctx, testBranch, tt.req)
			if tt.wantCode != "" {
				var de *shared.DomainError
				require.True(t, errors.As(err, &de), "got %v", err)
				assert.Equal(t, shared.KindValidation, de.Kind)
				assert.Equal(t, tt.wantCode, de.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "Acme Pharma", resp.Name)
			assert.Equal(t, "27ABCDE1234F1Z5", resp.GSTIN)
			assert.Equal(t, "ACTIVE", resp.Status)
			assert.True(t, resp.OutstandingBalance.Equal(decimal.NewFromInt(500)))

			got, err := svc.GetSupplier(ctx, testBranch, "s1")
			require.NoError(t, err)
			assert.Equal(t, resp.ID, got.ID)
			assert.True(t, got.OpeningBalance.Equal(decimal.NewFromInt(500)))
		})
	}
}

func TestSupplierService_CreateSupplier_Duplicate(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestSupplierService()
	req := CreateSupplierRequest{SupplierID: "s1", Name: "Acme"}

	_, err := svc.CreateSupplier(ctx, testBranch, req)
	require.NoError(t, err)
	_, err = svc.CreateSupplier(ctx, testBranch, req)
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "ALREADY_EXISTS", de.Code)
}

func TestSupplierService_GetSupplier_NotFound(t *testing.T) {
	svc, _ := newTestSupplierService()
	_, err := svc.GetSupplier(context.Background(), testBranch, "missing")
	assert.True(t, shared.IsNotFound(err))
}

func TestSupplierService_ListPayments(t *testing.T) {
	ctx := context.Background()
	svc, mem := newTestSupplierService()
	_, err := svc.CreateSupplier(ctx, testBranch, CreateSupplierRequest{SupplierID: "s1", Name: "Acme"})
	require.NoError(t, err)

	payments := []struct {
		id, invoice string
		amount      int64
		day         int
	}{
		{"pay-1", "pur-1", 100, 1},
		{"pay-2", "", 50, 3},
		{"pay-3", "pur-1", 25, 2},
	}
	txn, err := mem.Begin(ctx)
	require.NoError(t, err)
	for _, p := range payments {
		pay, err := partner.NewSupplierPayment(p.id, "s1", decimal.NewFromInt(p.amount), partner.PaymentModeBank,
			time.Date(2024, 11, p.day, 0, 0, 0, 0, time.UTC))
		require.NoError(t, err)
		pay.PurchaseInvoiceID = p.invoice
		require.NoError(t, txn.Set(partner.PaymentPath("org1", "s1", p.id), pay))
	}
	require.NoError(t, txn.Commit(ctx))

	t.Run("all newest first", func(t *testing.T) {
		resp, err := svc.ListPayments(ctx, testBranch, "s1", PaymentListFilter{})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 3)
		assert.Equal(t, "pay-2", resp.Payments[0].PaymentID)
		assert.Equal(t, "pay-3", resp.Payments[1].PaymentID)
		assert.Equal(t, "pay-1", resp.Payments[2].PaymentID)
		assert.True(t, resp.TotalPaid.Equal(decimal.NewFromInt(175)))
	})

	t.Run("by invoice", func(t *testing.T) {
		resp, err := svc.ListPayments(ctx, testBranch, "s1", PaymentListFilter{PurchaseInvoiceID: "pur-1"})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 2)
		assert.True(t, resp.TotalPaid.Equal(decimal.NewFromInt(125)))
	})

	t.Run("limit", func(t *testing.T) {
		resp, err := svc.ListPayments(ctx, testBranch, "s1", PaymentListFilter{Limit: 1})
		require.NoError(t, err)
		require.Len(t, resp.Payments, 1)
		assert.Equal(t, "pay-2", resp.Payments[0].PaymentID)
	})

	t.Run("unknown supplier", func(t *testing.T) {
		_, err := svc.ListPayments(ctx, testBranch, "nobody", PaymentListFilter{})
		assert.True(t, shared.IsNotFound(err))
	})
}
