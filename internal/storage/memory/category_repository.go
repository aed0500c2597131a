package memory

import (
	"context"
	"sort"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type categoryRepository struct {
	store *Store
}

// NewCategoryRepository возвращает in-memory репозиторий категорий.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{store: store}
}

func (r *categoryRepository) Create(_ context.Context, category domain.Category) (domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	r.store.st.nextCategoryID++
	category.ID = r.store.st.nextCategoryID
	r.store.st.categories[category.ID] = category
	return category, nil
}

func (r *categoryRepository) Get(_ context.Context, id int64) (domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	category, ok := r.store.st.categories[id]
	if !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	return category, nil
}

func (r *categoryRepository) List(_ context.Context) ([]domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.Category, 0, len(r.store.st.categories))
	for _, category := range r.store.st.categories {
		result = append(result, category)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (r *categoryRepository) Update(_ context.Context, category domain.Category) (domain.Category, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.categories[category.ID]; !ok {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	r.store.st.categories[category.ID] = category
	return category, nil
}

func (r *categoryRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.categories[id]; !ok {
		return domain.ErrCategoryNotFound
	}
	for _, product := range r.store.st.products {
		if product.CategoryID == id {
			return domain.ErrCategoryInUse
		}
	}
	delete(r.store.st.categories, id)
	return nil
}

var _ domain.CategoryRepository = (*categoryRepository)(nil)
