// Package customer — внешний по отношению к движку корзины CRUD покупателей.
// Ядро пользуется им только через вопрос «существует ли покупатель».
package customer

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

// Service реализует CRUD покупателей с контролем уникальности email.
type Service struct {
	repo   domain.CustomerRepository
	logger *log.Entry
}

// NewService конструирует сервис покупателей.
func NewService(repo domain.CustomerRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "customer")
	}
	return &Service{repo: repo, logger: logger}
}

// Create заводит покупателя. Email уникален без учёта регистра.
func (s *Service) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Normalize()
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}

	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return domain.Customer{}, err
	}

	s.logger.WithField("customer_id", created.ID).Info("customer created")
	return created, nil
}

// Get возвращает покупателя или ErrCustomerNotFound.
func (s *Service) Get(ctx context.Context, id int64) (domain.Customer, error) {
	return s.repo.Get(ctx, id)
}

// List возвращает всех покупателей.
func (s *Service) List(ctx context.Context) ([]domain.Customer, error) {
	return s.repo.List(ctx)
}

// Update меняет поля покупателя; занятый чужой email даёт ErrEmailTaken.
func (s *Service) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	customer.Normalize()
	if errs := customer.Validate(); len(errs) > 0 {
		return domain.Customer{}, errors.Join(errs...)
	}
	return s.repo.Update(ctx, customer)
}

// Delete удаляет покупателя; отказ ErrCustomerHasOrders, пока есть его заказы.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("customer_id", id).Info("customer deleted")
	return nil
}
