//go:build integration

package persistence

import (
	"context"
	"testing"
	"time"

	catalogapp "github.com/pharmacy/backend/internal/application/catalog"
	partnerapp "github.com/pharmacy/backend/internal/application/partner"
	appshared "github.com/pharmacy/backend/internal/application/shared"
	tradeapp "github.com/pharmacy/backend/internal/application/trade"
	"github.com/pharmacy/backend/internal/domain/docstore"
	"github.com/pharmacy/backend/internal/domain/shared"
	"github.com/pharmacy/backend/internal/infrastructure/migration"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// startPostgres runs a disposable PostgreSQL container and applies the embedded migrations
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("pharmacy_test"),
		tcpostgres.WithUsername("postgres"),
		tcpostgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err, "Failed to start PostgreSQL container")
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	m, err := migration.NewFromURL(dsn, "", zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, m.Up())
	require.NoError(t, m.Close())

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
		TranslateError:         true,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

func TestPostgresStore(t *testing.T) {
	if testing.Short() {
		t.Skip("container test")
	}
	db := startPostgres(t)

	t.Run("contract", func(t *testing.T) {
		runStoreContract(t, func(t *testing.T) docstore.Store {
			// Each subtest clears the tables instead of starting a container
			require.NoError(t, db.Exec("TRUNCATE documents, document_collections").Error)
			return NewDocumentStore(db, zap.NewNop())
		})
	})

	t.Run("concurrent sales of the last units", func(t *testing.T) {
		require.NoError(t, db.Exec("TRUNCATE documents, document_collections").Error)
		ctx := context.Background()
		bc := shared.BranchContext{OrganizationID: "org1", BranchID: "br1", UserID: "u1"}
		scope := appshared.NewRetryingTransactionScope(NewDocumentStore(db, zap.NewNop()), appshared.RetryConfig{
			MaxAttempts: 20,
			BaseBackoff: 5 * time.Millisecond,
			MaxBackoff:  50 * time.Millisecond,
		}, zap.NewNop())
		medicines := catalogapp.NewMedicineService(scope, zap.NewNop())
		coordinator := tradeapp.NewCoordinator(scope, nil, zap.NewNop(), tradeapp.Options{})

		_, err := partnerapp.NewSupplierService(scope, zap.NewNop()).CreateSupplier(ctx, bc, partnerapp.CreateSupplierRequest{SupplierID: "sup1", Name: "Acme"})
		require.NoError(t, err)
		_, err = medicines.CreateMedicine(ctx, bc, catalogapp.CreateMedicineRequest{MedicineID: "med1", Name: "Amoxicillin", UnitPrice: decimal.NewFromInt(10)})
		require.NoError(t, err)
		_, err = coordinator.ReceivePurchase(ctx, bc, tradeapp.PurchaseRequest{
			SupplierID: "sup1",
			Items: []tradeapp.PurchaseItemInput{{
				MedicineID:          "med1",
				BatchNo:             "B1",
				ExpiryDate:          time.Now().AddDate(1, 0, 0),
				PackQuantity:        5,
				ItemsPerPack:        1,
				PurchaseCostPerPack: decimal.NewFromInt(6),
			}},
		})
		require.NoError(t, err)

		results := make([]error, 2)
		var g errgroup.Group
		for i := range results {
			g.Go(func() error {
				_, results[i] = coordinator.RecordSale(ctx, bc, tradeapp.SaleRequest{
					Items: []tradeapp.SaleItemInput{{MedicineID: "med1", Quantity: 5}},
				})
				return nil
			})
		}
		require.NoError(t, g.Wait())

		succeeded, short := 0, 0
		for _, err := range results {
			switch {
			case err == nil:
				succeeded++
			case shared.IsInsufficientStock(err):
				short++
			default:
				t.Fatalf("unexpected error: %v", err)
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, short)

		report, err := medicines.ReconcileStock(ctx, bc, "med1")
		require.NoError(t, err)
		assert.Equal(t, 0, report.QuantityInStock)
		assert.True(t, report.Consistent)
	})
}
