package order_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

type fixture struct {
	store      *memory.Store
	orders     *order.Service
	carts      *cart.Service
	products   domain.ProductRepository
	customerID int64
	productID  int64
}

func quietLogger() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger.WithField("test", true)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.NewStore()

	category, err := memory.NewCategoryRepository(store).Create(ctx, domain.Category{Name: "dairy"})
	require.NoError(t, err)

	products := memory.NewProductRepository(store)
	product, err := products.Create(ctx, domain.Product{
		Name:       "milk",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.20),
		Stock:      30,
		Active:     true,
	})
	require.NoError(t, err)

	customers := memory.NewCustomerRepository(store)
	customer, err := customers.Create(ctx, domain.Customer{
		FirstName: "Olga",
		LastName:  "Orlova",
		Email:     "olga@example.com",
	})
	require.NoError(t, err)

	logger := quietLogger()
	lines := orderline.NewService(store, logger)
	orderRepo := memory.NewOrderRepository(store)

	return &fixture{
		store:      store,
		orders:     order.NewService(orderRepo, customers, products, logger),
		carts:      cart.NewService(store, lines, nil, logger),
		products:   products,
		customerID: customer.ID,
		productID:  product.ID,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	product, err := f.products.Get(context.Background(), f.productID)
	require.NoError(t, err)
	return product.Stock
}

func TestCreateValidatesCustomerAndStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.orders.Create(ctx, domain.Order{CustomerID: f.customerID + 9, Status: domain.OrderStatusPending})
	require.ErrorIs(t, err, domain.ErrCustomerNotFound)

	_, err = f.orders.Create(ctx, domain.Order{CustomerID: f.customerID, Status: "shipped"})
	require.ErrorIs(t, err, domain.ErrInvalidStatus)

	created, err := f.orders.Create(ctx, domain.Order{CustomerID: f.customerID, Status: domain.OrderStatusPending})
	require.NoError(t, err)
	require.NotZero(t, created.ID)
	require.True(t, created.Total.Equal(decimal.Zero))
	require.False(t, created.CreatedAt.IsZero())
}

func TestSetStatusOverrideDoesNotRestoreStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, f.customerID, f.productID, 10)
	require.NoError(t, err)
	require.Equal(t, 20, f.stock(t))

	// Принудительный cancelled мимо корзины: сток НЕ возвращается,
	// в отличие от Cancel.
	updated, err := f.orders.SetStatus(ctx, view.OrderID, "cancelled")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusCancelled, updated.Status)
	require.Equal(t, 20, f.stock(t))
}

func TestSetStatusRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)

	_, err := f.orders.SetStatus(context.Background(), 1, "refunded")
	require.ErrorIs(t, err, domain.ErrInvalidStatus)
}

func TestDeleteReturnsStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	view, err := f.carts.AddItem(ctx, f.customerID, f.productID, 7)
	require.NoError(t, err)
	require.Equal(t, 23, f.stock(t))

	require.NoError(t, f.orders.Delete(ctx, view.OrderID))
	require.Equal(t, 30, f.stock(t))

	_, err = f.orders.Get(ctx, view.OrderID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)
}

func TestDashboardSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, f.customerID, f.productID, 28)
	require.NoError(t, err)
	_, err = f.carts.Checkout(ctx, f.customerID)
	require.NoError(t, err)

	// Порог по умолчанию 5: остаток 2 < 5.
	summary, err := f.orders.Dashboard(ctx, f.customerID, 0)
	require.NoError(t, err)
	require.Equal(t, 5, summary.LowStockThreshold)
	require.Equal(t, 1, summary.LowStockCount)
	require.False(t, summary.HasActiveCart)
	require.Equal(t, 1, summary.TodayOrders)
	require.True(t, summary.TodayRevenue.Equal(decimal.NewFromFloat(33.60)))

	// Открытая корзина видна в сводке.
	_, err = f.carts.AddItem(ctx, f.customerID, f.productID, 1)
	require.NoError(t, err)
	summary, err = f.orders.Dashboard(ctx, f.customerID, 0)
	require.NoError(t, err)
	require.True(t, summary.HasActiveCart)
}

func TestReportExtendsToDateToEndOfDay(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.carts.AddItem(ctx, f.customerID, f.productID, 1)
	require.NoError(t, err)
	_, err = f.carts.Checkout(ctx, f.customerID)
	require.NoError(t, err)

	// Граница "to" — сегодняшняя полночь; фильтр должен захватить весь день.
	today := timeNowDay()
	reports, err := f.orders.Report(ctx, domain.ReportFilter{From: &today, To: &today})
	require.NoError(t, err)
	require.Len(t, reports, 1)
	require.Equal(t, "Olga Orlova", reports[0].CustomerName)
}

func timeNowDay() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
