package orderline_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

type fixture struct {
	store     *memory.Store
	lines     *orderline.Service
	products  domain.ProductRepository
	orderID   int64
	productID int64
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

	category, err := memory.NewCategoryRepository(store).Create(ctx, domain.Category{Name: "snacks"})
	require.NoError(t, err)

	products := memory.NewProductRepository(store)
	product, err := products.Create(ctx, domain.Product{
		Name:       "chips",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(3.00),
		Stock:      50,
		Active:     true,
	})
	require.NoError(t, err)

	customer, err := memory.NewCustomerRepository(store).Create(ctx, domain.Customer{
		FirstName: "Anna",
		LastName:  "Sidorova",
		Email:     "anna@example.com",
	})
	require.NoError(t, err)

	var orderID int64
	err = store.WithinCart(ctx, func(tx domain.CartTx) error {
		order, err := tx.InsertPendingOrder(ctx, customer.ID, time.Now().UTC())
		if err != nil {
			return err
		}
		orderID = order.ID
		return nil
	})
	require.NoError(t, err)

	return &fixture{
		store:     store,
		lines:     orderline.NewService(store, quietLogger()),
		products:  products,
		orderID:   orderID,
		productID: product.ID,
	}
}

func (f *fixture) stock(t *testing.T) int {
	t.Helper()
	product, err := f.products.Get(context.Background(), f.productID)
	require.NoError(t, err)
	return product.Stock
}

func (f *fixture) orderTotal(t *testing.T) decimal.Decimal {
	t.Helper()
	order, err := memory.NewOrderRepository(f.store).Get(context.Background(), f.orderID)
	require.NoError(t, err)
	return order.Total
}

func TestAddReservesStockAndKeepsTotal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	line, err := f.lines.Add(ctx, f.orderID, f.productID, 4)
	require.NoError(t, err)
	require.Equal(t, 4, line.Quantity)
	require.True(t, line.UnitPrice.Equal(decimal.NewFromFloat(3.00)))
	require.True(t, line.Subtotal.Equal(decimal.NewFromFloat(12.00)))

	require.Equal(t, 46, f.stock(t))
	require.True(t, f.orderTotal(t).Equal(decimal.NewFromFloat(12.00)))
}

func TestAddMergesAndResnapshotsPrice(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.lines.Add(ctx, f.orderID, f.productID, 2)
	require.NoError(t, err)

	// Цена меняется между добавлениями: строка переснимает новую.
	product, err := f.products.Get(ctx, f.productID)
	require.NoError(t, err)
	product.Price = decimal.NewFromFloat(5.00)
	_, err = f.products.Update(ctx, product)
	require.NoError(t, err)

	merged, err := f.lines.Add(ctx, f.orderID, f.productID, 3)
	require.NoError(t, err)
	require.Equal(t, first.ID, merged.ID)
	require.Equal(t, 5, merged.Quantity)
	require.True(t, merged.UnitPrice.Equal(decimal.NewFromFloat(5.00)))
	require.True(t, merged.Subtotal.Equal(decimal.NewFromFloat(25.00)))

	require.Equal(t, 45, f.stock(t))

	lines, err := f.lines.ListByOrder(ctx, f.orderID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
}

func TestAddFailuresLeaveStockUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.lines.Add(ctx, f.orderID, f.productID, 0)
	require.ErrorIs(t, err, domain.ErrInvalidQuantity)

	_, err = f.lines.Add(ctx, f.orderID, f.productID, 51)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	_, err = f.lines.Add(ctx, f.orderID+100, f.productID, 1)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	_, err = f.lines.Add(ctx, f.orderID, f.productID+100, 1)
	require.ErrorIs(t, err, domain.ErrProductNotFound)

	require.Equal(t, 50, f.stock(t))
	require.True(t, f.orderTotal(t).Equal(decimal.Zero))
}

func TestUpdateQuantityRoundTripIsStockNeutral(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	line, err := f.lines.Add(ctx, f.orderID, f.productID, 5)
	require.NoError(t, err)
	require.Equal(t, 45, f.stock(t))

	// 5 → 9 → 5 возвращает сток в исходное состояние.
	_, err = f.lines.UpdateQuantity(ctx, f.orderID, line.ID, 9)
	require.NoError(t, err)
	require.Equal(t, 41, f.stock(t))

	_, err = f.lines.UpdateQuantity(ctx, f.orderID, line.ID, 5)
	require.NoError(t, err)
	require.Equal(t, 45, f.stock(t))
	require.True(t, f.orderTotal(t).Equal(decimal.NewFromFloat(15.00)))
}

func TestUpdateQuantityChecksDeltaAgainstCurrentStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	line, err := f.lines.Add(ctx, f.orderID, f.productID, 10)
	require.NoError(t, err)
	require.Equal(t, 40, f.stock(t))

	// Запрошено 51: delta 41 > 40 на складе.
	_, err = f.lines.UpdateQuantity(ctx, f.orderID, line.ID, 51)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	require.Equal(t, 40, f.stock(t))

	// Ровно по остатку: delta 40.
	updated, err := f.lines.UpdateQuantity(ctx, f.orderID, line.ID, 50)
	require.NoError(t, err)
	require.Equal(t, 50, updated.Quantity)
	require.Equal(t, 0, f.stock(t))
}

func TestRemoveReturnsWholeLineQuantity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	line, err := f.lines.Add(ctx, f.orderID, f.productID, 8)
	require.NoError(t, err)
	require.Equal(t, 42, f.stock(t))

	require.NoError(t, f.lines.Remove(ctx, f.orderID, line.ID))
	require.Equal(t, 50, f.stock(t))
	require.True(t, f.orderTotal(t).Equal(decimal.Zero))

	err = f.lines.Remove(ctx, f.orderID, line.ID)
	require.ErrorIs(t, err, domain.ErrLineNotFound)
}
