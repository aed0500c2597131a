package catalog_test

import (
	"context"
	"io"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
	"github.com/vladislavdragonenkov/minimarket/internal/service/catalog"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

type fixture struct {
	store   *memory.Store
	catalog *catalog.Service
}

func newFixture() *fixture {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	store := memory.NewStore()
	svc := catalog.NewService(
		memory.NewCategoryRepository(store),
		memory.NewProductRepository(store),
		logger.WithField("test", true),
	)
	return &fixture{store: store, catalog: svc}
}

func TestCreateProductRequiresCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.catalog.CreateProduct(ctx, domain.Product{Name: "water", CategoryID: 42, Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)

	category, err := f.catalog.CreateCategory(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)

	product, err := f.catalog.CreateProduct(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      10,
		Active:     true,
	})
	require.NoError(t, err)
	require.NotZero(t, product.ID)
}

func TestProductValidation(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	_, err := f.catalog.CreateProduct(ctx, domain.Product{CategoryID: 1, Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrNameRequired)

	_, err = f.catalog.CreateProduct(ctx, domain.Product{Name: "water", CategoryID: 1, Price: decimal.NewFromInt(-1)})
	require.ErrorIs(t, err, domain.ErrPriceNegative)

	_, err = f.catalog.CreateProduct(ctx, domain.Product{Name: "water", Price: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrCategoryRequired)

	_, err = f.catalog.CreateProduct(ctx, domain.Product{Name: "water", CategoryID: 1, Stock: -1})
	require.ErrorIs(t, err, domain.ErrStockNegative)

	_, err = f.catalog.CreateCategory(ctx, domain.Category{Name: "   "})
	require.ErrorIs(t, err, domain.ErrNameRequired)
}

func TestUpdateProductChecksNewCategory(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	category, err := f.catalog.CreateCategory(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)
	product, err := f.catalog.CreateProduct(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      10,
		Active:     true,
	})
	require.NoError(t, err)

	product.CategoryID = category.ID + 7
	_, err = f.catalog.UpdateProduct(ctx, product)
	require.ErrorIs(t, err, domain.ErrCategoryNotFound)

	product.CategoryID = category.ID
	product.Stock = 25
	updated, err := f.catalog.UpdateProduct(ctx, product)
	require.NoError(t, err)
	require.Equal(t, 25, updated.Stock)
}

func TestDeleteCategoryInUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	category, err := f.catalog.CreateCategory(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)
	product, err := f.catalog.CreateProduct(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      10,
		Active:     true,
	})
	require.NoError(t, err)

	require.ErrorIs(t, f.catalog.DeleteCategory(ctx, category.ID), domain.ErrCategoryInUse)

	require.NoError(t, f.catalog.DeleteProduct(ctx, product.ID))
	require.NoError(t, f.catalog.DeleteCategory(ctx, category.ID))
}

func TestDeleteProductInUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	category, err := f.catalog.CreateCategory(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)
	product, err := f.catalog.CreateProduct(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      10,
		Active:     true,
	})
	require.NoError(t, err)

	customer, err := memory.NewCustomerRepository(f.store).Create(ctx, domain.Customer{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "ivan@example.com",
	})
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("test", true)
	carts := cart.NewService(f.store, orderline.NewService(f.store, entry), nil, entry)
	_, err = carts.AddItem(ctx, customer.ID, product.ID, 1)
	require.NoError(t, err)

	require.ErrorIs(t, f.catalog.DeleteProduct(ctx, product.ID), domain.ErrProductInUse)
}
