// Package catalog — внешний по отношению к движку корзины CRUD категорий
// и товаров. Ядро спрашивает у каталога только цену, активность и остаток;
// само резервирование стока идёт через движок строк заказа.
package catalog

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

// Service реализует CRUD каталога: категории и товары.
type Service struct {
	categories domain.CategoryRepository
	products   domain.ProductRepository
	logger     *log.Entry
}

// NewService конструирует сервис каталога.
func NewService(categories domain.CategoryRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "catalog")
	}
	return &Service{categories: categories, products: products, logger: logger}
}

// CreateCategory заводит категорию.
func (s *Service) CreateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if errs := category.Validate(); len(errs) > 0 {
		return domain.Category{}, errors.Join(errs...)
	}
	return s.categories.Create(ctx, category)
}

// GetCategory возвращает категорию или ErrCategoryNotFound.
func (s *Service) GetCategory(ctx context.Context, id int64) (domain.Category, error) {
	return s.categories.Get(ctx, id)
}

// ListCategories возвращает все категории.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	return s.categories.List(ctx)
}

// UpdateCategory меняет поля категории.
func (s *Service) UpdateCategory(ctx context.Context, category domain.Category) (domain.Category, error) {
	if errs := category.Validate(); len(errs) > 0 {
		return domain.Category{}, errors.Join(errs...)
	}
	return s.categories.Update(ctx, category)
}

// DeleteCategory удаляет категорию; отказ ErrCategoryInUse, пока в ней есть товары.
func (s *Service) DeleteCategory(ctx context.Context, id int64) error {
	return s.categories.Delete(ctx, id)
}

// CreateProduct заводит товар; категория обязана существовать.
func (s *Service) CreateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}
	if _, err := s.categories.Get(ctx, product.CategoryID); err != nil {
		return domain.Product{}, err
	}

	created, err := s.products.Create(ctx, product)
	if err != nil {
		return domain.Product{}, err
	}

	s.logger.WithFields(log.Fields{
		"product_id": created.ID,
		"stock":      created.Stock,
	}).Info("product created")
	return created, nil
}

// GetProduct возвращает товар или ErrProductNotFound.
func (s *Service) GetProduct(ctx context.Context, id int64) (domain.Product, error) {
	return s.products.Get(ctx, id)
}

// ListProducts возвращает все товары.
func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.products.List(ctx)
}

// UpdateProduct меняет поля товара, включая административную правку остатка.
// Смена категории проверяется на существование новой категории.
func (s *Service) UpdateProduct(ctx context.Context, product domain.Product) (domain.Product, error) {
	if errs := product.Validate(); len(errs) > 0 {
		return domain.Product{}, errors.Join(errs...)
	}

	current, err := s.products.Get(ctx, product.ID)
	if err != nil {
		return domain.Product{}, err
	}
	if current.CategoryID != product.CategoryID {
		if _, err := s.categories.Get(ctx, product.CategoryID); err != nil {
			return domain.Product{}, err
		}
	}

	return s.products.Update(ctx, product)
}

// DeleteProduct удаляет товар; отказ ErrProductInUse, пока на него
// ссылаются строки заказов.
func (s *Service) DeleteProduct(ctx context.Context, id int64) error {
	return s.products.Delete(ctx, id)
}
