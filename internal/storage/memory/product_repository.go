package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type productRepository struct {
	store *Store
}

// NewProductRepository возвращает in-memory репозиторий товаров.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(_ context.Context, product domain.Product) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.categories[product.CategoryID]; !ok {
		return domain.Product{}, domain.ErrCategoryNotFound
	}

	r.store.st.nextProductID++
	product.ID = r.store.st.nextProductID
	r.store.st.products[product.ID] = product
	return product, nil
}

func (r *productRepository) Get(_ context.Context, id int64) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	product, ok := r.store.st.products[id]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (r *productRepository) List(_ context.Context) ([]domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.Product, 0, len(r.store.st.products))
	for _, product := range r.store.st.products {
		result = append(result, product)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *productRepository) Update(_ context.Context, product domain.Product) (domain.Product, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.products[product.ID]; !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if _, ok := r.store.st.categories[product.CategoryID]; !ok {
		return domain.Product{}, domain.ErrCategoryNotFound
	}
	r.store.st.products[product.ID] = product
	return product, nil
}

func (r *productRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.products[id]; !ok {
		return domain.ErrProductNotFound
	}
	// Аналог FK RESTRICT: товар со строками заказов не удаляется.
	for _, line := range r.store.st.lines {
		if line.ProductID == id {
			return domain.ErrProductInUse
		}
	}
	delete(r.store.st.products, id)
	return nil
}

func (r *productRepository) CountLowStock(_ context.Context, threshold int) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	for _, product := range r.store.st.products {
		if product.Active && product.Stock < threshold {
			count++
		}
	}
	return count, nil
}

var _ domain.ProductRepository = (*productRepository)(nil)
