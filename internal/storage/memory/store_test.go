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

func seedCustomerAndProduct(t *testing.T, store *memory.Store, stock int) (int64, int64) {
	t.Helper()
	ctx := context.Background()

	category, err := memory.NewCategoryRepository(store).Create(ctx, domain.Category{Name: "drinks"})
	if err != nil {
		t.Fatalf("create category failed: %v", err)
	}
	product, err := memory.NewProductRepository(store).Create(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      stock,
		Active:     true,
	})
	if err != nil {
		t.Fatalf("create product failed: %v", err)
	}
	customer, err := memory.NewCustomerRepository(store).Create(ctx, domain.Customer{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "ivan@example.com",
	})
	if err != nil {
		t.Fatalf("create customer failed: %v", err)
	}
	return customer.ID, product.ID
}

func TestWithinCartRollbackOnError(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 10)
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		if _, err := tx.InsertPendingOrder(ctx, customerID, time.Now().UTC()); err != nil {
			return err
		}
		if err := tx.SetProductStock(ctx, productID, 3); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	// Все мутации fn должны откатиться.
	err = store.WithinCart(ctx, func(tx domain.CartTx) error {
		if _, err := tx.PendingOrder(ctx, customerID); !errors.Is(err, domain.ErrNoActiveCart) {
			t.Fatalf("expected no active cart after rollback, got %v", err)
		}
		product, err := tx.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if product.Stock != 10 {
			t.Fatalf("expected stock 10 after rollback, got %d", product.Stock)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
}

func TestInsertPendingOrderConflict(t *testing.T) {
	store := memory.NewStore()
	customerID, _ := seedCustomerAndProduct(t, store, 10)
	ctx := context.Background()

	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		if _, err := tx.InsertPendingOrder(ctx, customerID, time.Now().UTC()); err != nil {
			return err
		}
		_, err := tx.InsertPendingOrder(ctx, customerID, time.Now().UTC())
		if !errors.Is(err, domain.ErrCartConflict) {
			t.Fatalf("expected ErrCartConflict, got %v", err)
		}
		return domain.ErrCartConflict
	})
	if !errors.Is(err, domain.ErrCartConflict) {
		t.Fatalf("expected conflict to propagate, got %v", err)
	}
}

func TestSetProductStockNegative(t *testing.T) {
	store := memory.NewStore()
	_, productID := seedCustomerAndProduct(t, store, 2)
	ctx := context.Background()

	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		return tx.SetProductStock(ctx, productID, -1)
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}
}

func TestInsertLineDuplicateProduct(t *testing.T) {
	store := memory.NewStore()
	customerID, productID := seedCustomerAndProduct(t, store, 10)
	ctx := context.Background()

	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		order, err := tx.InsertPendingOrder(ctx, customerID, time.Now().UTC())
		if err != nil {
			return err
		}

		line := domain.OrderLine{
			OrderID:   order.ID,
			ProductID: productID,
			Quantity:  1,
			UnitPrice: decimal.NewFromFloat(1.50),
			Subtotal:  decimal.NewFromFloat(1.50),
		}
		if _, err := tx.InsertLine(ctx, line); err != nil {
			return err
		}
		if _, err := tx.InsertLine(ctx, line); !errors.Is(err, domain.ErrCartConflict) {
			t.Fatalf("expected ErrCartConflict on duplicate product line, got %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("within cart failed: %v", err)
	}
}

func TestEnqueueOutboxVisibleAfterCommit(t *testing.T) {
	store := memory.NewStore()
	ctx := context.Background()

	err := store.WithinCart(ctx, func(tx domain.CartTx) error {
		return tx.EnqueueOutbox(ctx, domain.OutboxMessage{
			AggregateType: domain.OutboxAggregateOrder,
			AggregateID:   "1",
			EventType:     domain.EventOrderCheckedOut,
			Payload:       []byte(`{}`),
		})
	})
	if err != nil {
		t.Fatalf("enqueue failed: %v", err)
	}

	pending, err := memory.NewOutboxRepository(store).PullPending(ctx, 10)
	if err != nil {
		t.Fatalf("pull pending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending message, got %d", len(pending))
	}
	if pending[0].EventType != domain.EventOrderCheckedOut {
		t.Fatalf("unexpected event type: %s", pending[0].EventType)
	}
}
