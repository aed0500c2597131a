package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

// addLine кладёт строку в pending-заказ покупателя напрямую через cartTx.
func addLine(t *testing.T, store *memory.Store, customerID, productID int64, quantity int) int64 {
	t.Helper()
	ctx := context.Background()

	var orderID int64
	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		order, err := tx.PendingOrder(ctx, customerID)
		if errors.Is(err, domain.ErrNoActiveCart) {
			order, err = tx.InsertPendingOrder(ctx, customerID, time.Now().UTC())
		}
		if err != nil {
			return err
		}
		orderID = order.ID

		product, err := tx.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		price := product.Price
		if _, err := tx.InsertLine(ctx, domain.OrderLine{
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  quantity,
			UnitPrice: price,
			Subtotal:  price.Mul(decimal.NewFromInt(int64(quantity))),
		}); err != nil {
			return err
		}
		if err := tx.SetProductStock(ctx, productID, product.Stock-quantity); err != nil {
			return err
		}
		total, err := tx.LinesTotal(ctx, order.ID)
		if err != nil {
			return err
		}
		return tx.SetOrderTotal(ctx, order.ID, total)
	})
	if err != nil {
		t.Fatalf("add line failed: %v", err)
	}
	return orderID
}

func productStock(t *testing.T, store *memory.Store, productID int64) int {
	t.Helper()
	product, err := memory.NewProductRepository(store).Get(context.Background(), productID)
	if err != nil {
		t.Fatalf("get product failed: %v", err)
	}
	return product.Stock
}

func TestOrderRepositoryDeleteRestoresStock(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	orderID := addLine(t, store, customerID, productID, 3)

	if got := productStock(t, store, productID); got != 97 {
		t.Fatalf("expected stock 97 after reservation, got %d", got)
	}

	repo := memory.NewOrderRepository(store)
	if err := repo.Delete(context.Background(), orderID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if got := productStock(t, store, productID); got != 100 {
		t.Fatalf("expected stock restored to 100, got %d", got)
	}
	if _, err := repo.Get(context.Background(), orderID); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestOrderRepositorySetStatusKeepsStock(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	orderID := addLine(t, store, customerID, productID, 5)

	repo := memory.NewOrderRepository(store)
	order, err := repo.SetStatus(context.Background(), orderID, domain.OrderStatusCancelled)
	if err != nil {
		t.Fatalf("set status failed: %v", err)
	}
	if order.Status != domain.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", order.Status)
	}

	// Прямая смена статуса не трогает сток.
	if got := productStock(t, store, productID); got != 95 {
		t.Fatalf("expected stock to stay 95, got %d", got)
	}
}

func TestOrderRepositorySinglePendingOrderPerCustomer(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	firstID := addLine(t, store, customerID, productID, 1)

	repo := memory.NewOrderRepository(store)
	ctx := context.Background()

	// Второго открытого заказа админский путь завести не может.
	_, err := repo.Create(ctx, domain.Order{
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		CreatedAt:  time.Now().UTC(),
	})
	if !errors.Is(err, domain.ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict for second pending order, got %v", err)
	}

	// Завершённый заказ заводится свободно, но обратно в pending не переводится,
	// пока у покупателя открыта корзина.
	completed, err := repo.Create(ctx, domain.Order{
		CustomerID: customerID,
		Status:     domain.OrderStatusCompleted,
		CreatedAt:  time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("create completed order failed: %v", err)
	}

	completed.Status = domain.OrderStatusPending
	if _, err := repo.Update(ctx, completed); !errors.Is(err, domain.ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict on update to pending, got %v", err)
	}
	if _, err := repo.SetStatus(ctx, completed.ID, domain.OrderStatusPending); !errors.Is(err, domain.ErrCartConflict) {
		t.Fatalf("expected ErrCartConflict on set status to pending, got %v", err)
	}

	// Свой собственный pending-заказ обновляется без конфликта.
	first, err := repo.Get(ctx, firstID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if _, err := repo.Update(ctx, first); err != nil {
		t.Fatalf("update of own pending order failed: %v", err)
	}
}

func TestOrderRepositoryUpdateRecomputesTotal(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	orderID := addLine(t, store, customerID, productID, 2)

	repo := memory.NewOrderRepository(store)
	order, err := repo.Get(context.Background(), orderID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}

	// Сумма из аргумента игнорируется: только строки — источник истины.
	order.Total = decimal.NewFromInt(9999)
	updated, err := repo.Update(context.Background(), order)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	want := decimal.NewFromFloat(3.00)
	if !updated.Total.Equal(want) {
		t.Fatalf("expected total %s, got %s", want, updated.Total)
	}
}

func TestOrderRepositoryCompletedStats(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	orderID := addLine(t, store, customerID, productID, 4)

	repo := memory.NewOrderRepository(store)
	ctx := context.Background()
	if _, err := repo.SetStatus(ctx, orderID, domain.OrderStatusCompleted); err != nil {
		t.Fatalf("set status failed: %v", err)
	}

	now := time.Now().UTC()
	from := now.Add(-time.Hour)
	to := now.Add(time.Hour)

	count, revenue, err := repo.CompletedStats(ctx, from, to)
	if err != nil {
		t.Fatalf("completed stats failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 completed order, got %d", count)
	}
	want := decimal.NewFromFloat(6.00)
	if !revenue.Equal(want) {
		t.Fatalf("expected revenue %s, got %s", want, revenue)
	}

	// Вне интервала заказ не считается.
	count, _, err = repo.CompletedStats(ctx, now.Add(time.Hour), now.Add(2*time.Hour))
	if err != nil {
		t.Fatalf("completed stats failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 orders out of range, got %d", count)
	}
}

func TestOrderRepositoryReportFiltersAndCustomerData(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 100)
	addLine(t, store, customerID, productID, 1)

	repo := memory.NewOrderRepository(store)
	ctx := context.Background()

	reports, err := repo.Report(ctx, domain.ReportFilter{CustomerID: customerID})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("expected 1 report row, got %d", len(reports))
	}
	if reports[0].CustomerName != "Ivan Petrov" {
		t.Fatalf("unexpected customer name: %q", reports[0].CustomerName)
	}
	if reports[0].CustomerEmail != "ivan@example.com" {
		t.Fatalf("unexpected customer email: %q", reports[0].CustomerEmail)
	}

	reports, err = repo.Report(ctx, domain.ReportFilter{CustomerID: customerID + 1})
	if err != nil {
		t.Fatalf("report failed: %v", err)
	}
	if len(reports) != 0 {
		t.Fatalf("expected no rows for other customer, got %d", len(reports))
	}
}
