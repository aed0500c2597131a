package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

func TestCustomerRepositoryEmailUnique(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewCustomerRepository(store)
	ctx := context.Background()

	first, err := repo.Create(ctx, domain.Customer{FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Уникальность без учёта регистра.
	_, err = repo.Create(ctx, domain.Customer{FirstName: "Petr", LastName: "Ivanov", Email: "IVAN@example.com"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}

	// Обновление без смены email не конфликтует с самим собой.
	first.LastName = "Sidorov"
	if _, err := repo.Update(ctx, first); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func TestCustomerRepositoryDeleteRestrictedByOrders(t *testing.T) {
	store := memory.NewStore()
	repo := memory.NewCustomerRepository(store)
	ctx := context.Background()

	customer, err := repo.Create(ctx, domain.Customer{FirstName: "Ivan", LastName: "Petrov", Email: "ivan@example.com"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	err = store.WithinCart(ctx, func(tx domain.CartTx) error {
		_, err := tx.InsertPendingOrder(ctx, customer.ID, time.Now().UTC())
		return err
	})
	if err != nil {
		t.Fatalf("insert pending order failed: %v", err)
	}

	if err := repo.Delete(ctx, customer.ID); !errors.Is(err, domain.ErrCustomerHasOrders) {
		t.Fatalf("expected ErrCustomerHasOrders, got %v", err)
	}
}

func TestCustomerRepositoryGetNotFound(t *testing.T) {
	repo := memory.NewCustomerRepository(memory.NewStore())

	_, err := repo.Get(context.Background(), 42)
	if !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}
