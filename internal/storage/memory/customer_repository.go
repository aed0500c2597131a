package memory

import (
	"context"
	"sort"
	"time"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type customerRepository struct {
	store *Store
}

// NewCustomerRepository возвращает in-memory репозиторий покупателей.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{store: store}
}

func (r *customerRepository) Create(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if r.emailTaken(customer.NormalizedEmail(), 0) {
		return domain.Customer{}, domain.ErrEmailTaken
	}

	r.store.st.nextCustomerID++
	customer.ID = r.store.st.nextCustomerID
	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}
	r.store.st.customers[customer.ID] = customer
	return customer, nil
}

func (r *customerRepository) Get(_ context.Context, id int64) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	customer, ok := r.store.st.customers[id]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	return customer, nil
}

func (r *customerRepository) List(_ context.Context) ([]domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.Customer, 0, len(r.store.st.customers))
	for _, customer := range r.store.st.customers {
		result = append(result, customer)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *customerRepository) Update(_ context.Context, customer domain.Customer) (domain.Customer, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.st.customers[customer.ID]
	if !ok {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if r.emailTaken(customer.NormalizedEmail(), customer.ID) {
		return domain.Customer{}, domain.ErrEmailTaken
	}

	customer.CreatedAt = current.CreatedAt
	r.store.st.customers[customer.ID] = customer
	return customer, nil
}

func (r *customerRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.customers[id]; !ok {
		return domain.ErrCustomerNotFound
	}
	// Аналог FK RESTRICT: покупатель с заказами не удаляется.
	for _, order := range r.store.st.orders {
		if order.CustomerID == id {
			return domain.ErrCustomerHasOrders
		}
	}
	delete(r.store.st.customers, id)
	return nil
}

// emailTaken проверяет занятость email без учёта регистра, игнорируя exceptID.
func (r *customerRepository) emailTaken(normalized string, exceptID int64) bool {
	for _, existing := range r.store.st.customers {
		if existing.ID != exceptID && existing.NormalizedEmail() == normalized {
			return true
		}
	}
	return false
}

var _ domain.CustomerRepository = (*customerRepository)(nil)
