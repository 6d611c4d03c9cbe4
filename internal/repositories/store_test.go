package repositories_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/database"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/models"
	"github.com/J0hnMilt0n/dojo-republic-sub001/internal/repositories"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	_ repositories.OrderRepository   = (*repositories.GORMOrderRepository)(nil)
	_ repositories.ProductRepository = (*repositories.GORMProductRepository)(nil)
)

func newSQLiteStore(t *testing.T) repositories.Store {
	t.Helper()
	db, err := database.Open(database.DriverSQLite, "file:"+uuid.NewString()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return repositories.NewGORMStore(db)
}

// newSQLiteFileStore opens a sqlite file that several goroutines can write
// to; writers queue on the busy timeout.
func newSQLiteFileStore(t *testing.T) repositories.Store {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "shop.db") + "?_busy_timeout=10000&_txlock=immediate&_journal_mode=WAL"
	db, err := database.Open(database.DriverSQLite, dsn)
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	return repositories.NewGORMStore(db)
}

// forEachStore runs fn against every Store implementation.
func forEachStore(t *testing.T, fn func(t *testing.T, store repositories.Store)) {
	t.Run("memory", func(t *testing.T) { fn(t, repositories.NewMemoryStore()) })
	t.Run("gorm-sqlite", func(t *testing.T) { fn(t, newSQLiteStore(t)) })
}

func seedProduct(t *testing.T, store repositories.Store, stock int) *models.Product {
	t.Helper()
	p := &models.Product{SellerID: "seller-1", Name: "Gi", Price: decimal.RequireFromString("40.00"), Stock: stock}
	require.NoError(t, store.Products().Create(context.Background(), p))
	return p
}

func stockOf(t *testing.T, store repositories.Store, id string) int {
	t.Helper()
	p, err := store.Products().GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func TestDecrementStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, 5)

		require.NoError(t, store.Products().DecrementStock(ctx, p.ID, 3))
		assert.Equal(t, 2, stockOf(t, store, p.ID))

		err := store.Products().DecrementStock(ctx, p.ID, 3)
		assert.True(t, errors.Is(err, repositories.ErrInsufficientStock), "got %v", err)
		assert.Equal(t, 2, stockOf(t, store, p.ID))

		require.NoError(t, store.Products().DecrementStock(ctx, p.ID, 2))
		assert.Equal(t, 0, stockOf(t, store, p.ID))

		err = store.Products().DecrementStock(ctx, "missing", 1)
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})
}

func TestTransactionRollsBack(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, 5)

		err := store.Transaction(ctx, func(tx repositories.Store) error {
			order := &models.Order{CustomerID: "cust-1", SellerID: "seller-1", Status: models.OrderStatusPending}
			if err := tx.Orders().Create(ctx, order); err != nil {
				return err
			}
			if err := tx.Products().DecrementStock(ctx, p.ID, 2); err != nil {
				return err
			}
			return tx.Products().DecrementStock(ctx, p.ID, 4)
		})

		assert.True(t, errors.Is(err, repositories.ErrInsufficientStock), "got %v", err)
		assert.Equal(t, 5, stockOf(t, store, p.ID))
		orders, err := store.Orders().List(ctx, repositories.OrderFilter{})
		require.NoError(t, err)
		assert.Empty(t, orders)
	})
}

func TestTransactionCommits(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, 5)

		err := store.Transaction(ctx, func(tx repositories.Store) error {
			if err := tx.Orders().Create(ctx, &models.Order{CustomerID: "cust-1", SellerID: "seller-1"}); err != nil {
				return err
			}
			return tx.Products().DecrementStock(ctx, p.ID, 5)
		})

		require.NoError(t, err)
		assert.Equal(t, 0, stockOf(t, store, p.ID))
		orders, err := store.Orders().List(ctx, repositories.OrderFilter{CustomerID: "cust-1"})
		require.NoError(t, err)
		assert.Len(t, orders, 1)
	})
}

func TestOrderRoundTripAndUpdateFields(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		created := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		order := &models.Order{
			CustomerID: "cust-1",
			SellerID:   "seller-1",
			Products: []models.OrderItem{
				{ProductID: "p1", Name: "Gi", Quantity: 2, Price: decimal.RequireFromString("40.00")},
				{ProductID: "p2", Name: "Belt", Quantity: 1, Price: decimal.RequireFromString("12.50")},
			},
			TotalAmount:      decimal.RequireFromString("92.50"),
			CommissionRate:   decimal.RequireFromString("0.1"),
			CommissionAmount: decimal.RequireFromString("9.25"),
			Status:           models.OrderStatusPending,
			PaymentStatus:    models.PaymentStatusPending,
			ShippingAddress:  models.ShippingAddress{FullName: "Kenji Sato", City: "Pune"},
			PaymentMethod:    "upi",
			CreatedAt:        created,
			UpdatedAt:        created,
		}
		require.NoError(t, store.Orders().Create(ctx, order))

		got, err := store.Orders().GetByID(ctx, order.ID)
		require.NoError(t, err)
		require.Len(t, got.Products, 2)
		assert.Equal(t, "p1", got.Products[0].ProductID)
		assert.True(t, decimal.RequireFromString("40.00").Equal(got.Products[0].Price))
		assert.True(t, order.TotalAmount.Equal(got.TotalAmount))
		assert.Equal(t, "Kenji Sato", got.ShippingAddress.FullName)

		shipped := models.OrderStatusShipped
		tracking := "TRK-9"
		later := created.Add(time.Hour)
		require.NoError(t, store.Orders().UpdateFields(ctx, order.ID, repositories.OrderUpdate{
			Status:         &shipped,
			TrackingNumber: &tracking,
			UpdatedAt:      later,
		}))

		got, err = store.Orders().GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, models.OrderStatusShipped, got.Status)
		assert.Equal(t, "TRK-9", got.TrackingNumber)
		assert.Equal(t, models.PaymentStatusPending, got.PaymentStatus)
		assert.True(t, later.Equal(got.UpdatedAt), "updated_at %v", got.UpdatedAt)
		assert.True(t, order.TotalAmount.Equal(got.TotalAmount))

		err = store.Orders().UpdateFields(ctx, "missing", repositories.OrderUpdate{Status: &shipped, UpdatedAt: later})
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})
}

func TestOrderListFilters(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		base := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
		for i, o := range []models.Order{
			{CustomerID: "cust-1", SellerID: "seller-1"},
			{CustomerID: "cust-1", SellerID: "seller-2"},
			{CustomerID: "cust-2", SellerID: "seller-1"},
		} {
			o.CreatedAt = base.Add(time.Duration(i) * time.Minute)
			o.UpdatedAt = o.CreatedAt
			require.NoError(t, store.Orders().Create(ctx, &o))
		}

		mine, err := store.Orders().List(ctx, repositories.OrderFilter{CustomerID: "cust-1"})
		require.NoError(t, err)
		require.Len(t, mine, 2)
		assert.Equal(t, "seller-2", mine[0].SellerID, "newest first")

		sold, err := store.Orders().List(ctx, repositories.OrderFilter{SellerID: "seller-1"})
		require.NoError(t, err)
		assert.Len(t, sold, 2)

		settled := &models.Order{CustomerID: "cust-3", SellerID: "seller-1", GatewayOrderID: "gw-1", PaymentID: "pay-1",
			CreatedAt: base.Add(time.Hour), UpdatedAt: base.Add(time.Hour)}
		require.NoError(t, store.Orders().Create(ctx, settled))
		byGateway, err := store.Orders().List(ctx, repositories.OrderFilter{GatewayOrderID: "gw-1"})
		require.NoError(t, err)
		require.Len(t, byGateway, 1)
		assert.Equal(t, settled.ID, byGateway[0].ID)
		byPayment, err := store.Orders().List(ctx, repositories.OrderFilter{PaymentID: "pay-1"})
		require.NoError(t, err)
		assert.Len(t, byPayment, 1)
		none, err := store.Orders().List(ctx, repositories.OrderFilter{PaymentID: "pay-2"})
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := store.Orders().List(ctx, repositories.OrderFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 4)
	})
}

func TestUniqueConstraints(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		require.NoError(t, store.Users().Create(ctx, &models.User{Username: "kenji", Email: "k@example.com", Role: models.RoleStudent}))
		err := store.Users().Create(ctx, &models.User{Username: "kenji", Email: "other@example.com", Role: models.RoleStudent})
		assert.True(t, errors.Is(err, repositories.ErrDuplicate), "got %v", err)

		require.NoError(t, store.Sellers().Create(ctx, &models.Seller{UserID: "u1", StoreName: "One"}))
		err = store.Sellers().Create(ctx, &models.Seller{UserID: "u1", StoreName: "Two"})
		assert.True(t, errors.Is(err, repositories.ErrDuplicate), "got %v", err)

		_, err = store.Users().GetByUsername(ctx, "nobody")
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})
}

func TestDeletedProductIsGone(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, 5)
		require.NoError(t, store.Products().Delete(ctx, p.ID))

		_, err := store.Products().GetByID(ctx, p.ID)
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
		err = store.Products().DecrementStock(ctx, p.ID, 1)
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})
}

func TestDecrementStockConcurrent(t *testing.T) {
	stores := map[string]func(t *testing.T) repositories.Store{
		"memory":      func(*testing.T) repositories.Store { return repositories.NewMemoryStore() },
		"sqlite-file": newSQLiteFileStore,
	}
	for name, open := range stores {
		t.Run(name, func(t *testing.T) {
			store := open(t)
			p := seedProduct(t, store, 3)

			const buyers = 10
			var wg sync.WaitGroup
			errs := make([]error, buyers)
			for i := 0; i < buyers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					errs[i] = store.Products().DecrementStock(context.Background(), p.ID, 1)
				}(i)
			}
			wg.Wait()

			succeeded := 0
			for _, err := range errs {
				if err == nil {
					succeeded++
					continue
				}
				assert.True(t, errors.Is(err, repositories.ErrInsufficientStock), "got %v", err)
			}
			assert.Equal(t, 3, succeeded)
			assert.Equal(t, 0, stockOf(t, store, p.ID))
		})
	}
}

func TestProductUpdateGuardsStock(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		p := seedProduct(t, store, 5)
		require.NoError(t, store.Products().DecrementStock(ctx, p.ID, 5))

		// p still holds the stock read before the sale.
		p.Name = "Renamed Gi"
		stale := 5
		err := store.Products().Update(ctx, p, &stale)
		assert.True(t, errors.Is(err, repositories.ErrStaleWrite), "got %v", err)
		got, err := store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Gi", got.Name)
		assert.Equal(t, 0, got.Stock)

		require.NoError(t, store.Products().Update(ctx, p, nil))
		got, err = store.Products().GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed Gi", got.Name)
		assert.Equal(t, 0, got.Stock)

		current := 0
		p.Stock = 7
		require.NoError(t, store.Products().Update(ctx, p, &current))
		assert.Equal(t, 7, stockOf(t, store, p.ID))

		missing := &models.Product{ID: "missing", Name: "Gi", Price: p.Price}
		err = store.Products().Update(ctx, missing, &current)
		assert.True(t, errors.Is(err, repositories.ErrNotFound), "got %v", err)
	})
}

func TestUpdateFieldsIfPaymentStatus(t *testing.T) {
	forEachStore(t, func(t *testing.T, store repositories.Store) {
		ctx := context.Background()
		order := &models.Order{CustomerID: "cust-1", SellerID: "seller-1", Status: models.OrderStatusPending, PaymentStatus: models.PaymentStatusPending}
		require.NoError(t, store.Orders().Create(ctx, order))

		pending := models.PaymentStatusPending
		paid := models.PaymentStatusPaid
		first, second := "pay-1", "pay-2"
		now := time.Now().UTC()

		require.NoError(t, store.Orders().UpdateFields(ctx, order.ID, repositories.OrderUpdate{
			PaymentStatus: &paid, PaymentID: &first, UpdatedAt: now, IfPaymentStatus: &pending,
		}))
		err := store.Orders().UpdateFields(ctx, order.ID, repositories.OrderUpdate{
			PaymentStatus: &paid, PaymentID: &second, UpdatedAt: now, IfPaymentStatus: &pending,
		})
		assert.True(t, errors.Is(err, repositories.ErrStaleWrite), "got %v", err)

		got, err := store.Orders().GetByID(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "pay-1", got.PaymentID)
	})
}
