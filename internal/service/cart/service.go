// Package cart предъявляет корзину покупателя как абстракцию поверх
// pending-заказа: до одного открытого заказа на покупателя, сток
// резервируется в момент добавления, checkout и cancel — терминальные
// переходы статуса. Прямой доступ к заказам и строкам скрыт от вызывающих.
package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/metrics"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
)

const (
	conflictRetryAttempts = 3
	conflictRetryDelay    = 25 * time.Millisecond
)

// Service реализует операции корзины поверх движка строк заказа.
type Service struct {
	store   domain.CartStore
	lines   *orderline.Service
	logger  *log.Entry
	metrics *metrics.CartMetrics
}

// NewService конструирует движок корзины.
func NewService(store domain.CartStore, lines *orderline.Service, cartMetrics *metrics.CartMetrics, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "cart")
	}
	return &Service{
		store:   store,
		lines:   lines,
		logger:  logger,
		metrics: cartMetrics,
	}
}

// GetOrCreate возвращает корзину покупателя. Если pending-заказа нет,
// отдаёт пустую корзину-view c OrderID 0, ничего не записывая.
// Сумма существующей корзины сверяется со строками и чинится при дрейфе.
func (s *Service) GetOrCreate(ctx context.Context, customerID int64) (domain.Cart, error) {
	started := time.Now()
	var cart domain.Cart

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := s.requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if errors.Is(err, domain.ErrNoActiveCart) {
			cart = domain.EmptyCart(customerID)
			return nil
		}
		if err != nil {
			return err
		}

		if computed := order.LinesTotal(); !order.Total.Equal(computed) {
			if err := tx.SetOrderTotal(ctx, order.ID, computed); err != nil {
				return err
			}
			order.Total = computed
		}
		cart = domain.CartFromOrder(order)
		return nil
	})

	s.metrics.RecordOperation("get_or_create", err, time.Since(started))
	return cart, err
}

// AddItem кладёт товар в корзину, создав pending-заказ при необходимости.
// Создание заказа и добавление строки фиксируются одним коммитом.
func (s *Service) AddItem(ctx context.Context, customerID, productID int64, quantity int) (domain.Cart, error) {
	started := time.Now()
	var cart domain.Cart

	// Количество проверяется и здесь, и в движке строк.
	if quantity <= 0 {
		s.metrics.RecordOperation("add_item", domain.ErrInvalidQuantity, time.Since(started))
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := s.requireCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if errors.Is(err, domain.ErrNoActiveCart) {
			order, err = tx.InsertPendingOrder(ctx, customerID, time.Now().UTC())
			if err == nil {
				s.metrics.CartOpened()
				s.logger.WithFields(log.Fields{
					"customer_id": customerID,
					"order_id":    order.ID,
				}).Info("pending order opened for cart")
			}
		}
		if err != nil {
			return err
		}

		if _, err := s.lines.AddTx(ctx, tx, order.ID, productID, quantity); err != nil {
			return err
		}

		cart, err = s.refreshCart(ctx, tx, customerID)
		return err
	})

	if err == nil {
		s.metrics.RecordStockReserved(quantity)
	}
	s.metrics.RecordOperation("add_item", err, time.Since(started))
	return cart, err
}

// UpdateItem выставляет количество строки существующей корзины.
func (s *Service) UpdateItem(ctx context.Context, customerID, lineID int64, quantity int) (domain.Cart, error) {
	started := time.Now()
	var (
		cart  domain.Cart
		delta int
	)

	if quantity <= 0 {
		s.metrics.RecordOperation("update_item", domain.ErrInvalidQuantity, time.Since(started))
		return domain.Cart{}, domain.ErrInvalidQuantity
	}

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if err != nil {
			return err
		}

		line, err := s.lines.UpdateQuantityTx(ctx, tx, order.ID, lineID, quantity)
		if err != nil {
			return err
		}
		delta = quantity - previousQuantity(order, line.ID)

		cart, err = s.refreshCart(ctx, tx, customerID)
		return err
	})

	if err == nil {
		if delta > 0 {
			s.metrics.RecordStockReserved(delta)
		} else {
			s.metrics.RecordStockReturned(-delta)
		}
	}
	s.metrics.RecordOperation("update_item", err, time.Since(started))
	return cart, err
}

// RemoveItem убирает строку из корзины, вернув её сток товару.
func (s *Service) RemoveItem(ctx context.Context, customerID, lineID int64) (domain.Cart, error) {
	started := time.Now()
	var (
		cart     domain.Cart
		returned int
	)

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if err != nil {
			return err
		}
		returned = previousQuantity(order, lineID)

		if err := s.lines.RemoveTx(ctx, tx, order.ID, lineID); err != nil {
			return err
		}

		cart, err = s.refreshCart(ctx, tx, customerID)
		return err
	})

	if err == nil {
		s.metrics.RecordStockReturned(returned)
	}
	s.metrics.RecordOperation("remove_item", err, time.Since(started))
	return cart, err
}

// Checkout финализирует корзину: pending → completed. Сток не двигается —
// он был зарезервирован при добавлении. Сумма пересчитывается по строкам.
func (s *Service) Checkout(ctx context.Context, customerID int64) (domain.Order, error) {
	started := time.Now()
	var result domain.Order

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if err != nil {
			return err
		}
		if len(order.Lines) == 0 {
			return domain.ErrEmptyCart
		}

		total := order.LinesTotal()
		if err := tx.SetOrderTotal(ctx, order.ID, total); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, order.ID, domain.OrderStatusCompleted); err != nil {
			return err
		}
		if err := s.enqueueOrderEvent(ctx, tx, domain.EventOrderCheckedOut, order, total); err != nil {
			return err
		}

		order.Status = domain.OrderStatusCompleted
		order.Total = total
		result = order
		return nil
	})

	if err == nil {
		s.metrics.CartClosed()
		s.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"order_id":    result.ID,
			"total":       result.Total.String(),
		}).Info("cart checked out")
	}
	s.metrics.RecordOperation("checkout", err, time.Since(started))
	return result, err
}

// Cancel отменяет корзину: каждая строка возвращает свой сток товару,
// заказ переходит pending → cancelled и сохраняется для аудита.
func (s *Service) Cancel(ctx context.Context, customerID int64) (domain.Order, error) {
	started := time.Now()
	var (
		result   domain.Order
		returned int
	)

	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		if err := tx.LockCustomerCart(ctx, customerID); err != nil {
			return err
		}

		order, err := tx.PendingOrder(ctx, customerID)
		if err != nil {
			return err
		}

		returned = 0
		for _, line := range order.Lines {
			product, err := tx.ProductForUpdate(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if err := tx.SetProductStock(ctx, product.ID, product.Stock+line.Quantity); err != nil {
				return err
			}
			returned += line.Quantity
		}

		// Сумма пересчитывается по отменяемым строкам — для аудита.
		total := order.LinesTotal()
		if err := tx.SetOrderTotal(ctx, order.ID, total); err != nil {
			return err
		}
		if err := tx.SetOrderStatus(ctx, order.ID, domain.OrderStatusCancelled); err != nil {
			return err
		}
		if err := s.enqueueOrderEvent(ctx, tx, domain.EventOrderCancelled, order, total); err != nil {
			return err
		}

		order.Status = domain.OrderStatusCancelled
		order.Total = total
		result = order
		return nil
	})

	if err == nil {
		s.metrics.CartClosed()
		s.metrics.RecordStockReturned(returned)
		s.logger.WithFields(log.Fields{
			"customer_id": customerID,
			"order_id":    result.ID,
			"returned":    returned,
		}).Info("cart cancelled, stock returned")
	}
	s.metrics.RecordOperation("cancel", err, time.Since(started))
	return result, err
}

func (s *Service) requireCustomer(ctx context.Context, tx domain.CartTx, customerID int64) error {
	exists, err := tx.CustomerExists(ctx, customerID)
	if err != nil {
		return fmt.Errorf("check customer: %w", err)
	}
	if !exists {
		return domain.ErrCustomerNotFound
	}
	return nil
}

func (s *Service) refreshCart(ctx context.Context, tx domain.CartTx, customerID int64) (domain.Cart, error) {
	order, err := tx.PendingOrder(ctx, customerID)
	if err != nil {
		return domain.Cart{}, err
	}
	return domain.CartFromOrder(order), nil
}

type orderEventPayload struct {
	EventType  string          `json:"event_type"`
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	Status     string          `json:"status"`
	Total      decimal.Decimal `json:"total"`
	OccurredAt time.Time       `json:"occurred_at"`
}

func (s *Service) enqueueOrderEvent(ctx context.Context, tx domain.CartTx, eventType string, order domain.Order, total decimal.Decimal) error {
	status := domain.OrderStatusCompleted
	if eventType == domain.EventOrderCancelled {
		status = domain.OrderStatusCancelled
	}

	payload, err := json.Marshal(orderEventPayload{
		EventType:  eventType,
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Status:     string(status),
		Total:      total,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("marshal order event: %w", err)
	}

	return tx.EnqueueOutbox(ctx, domain.OutboxMessage{
		ID:            uuid.NewString(),
		AggregateType: domain.OutboxAggregateOrder,
		AggregateID:   strconv.FormatInt(order.ID, 10),
		EventType:     eventType,
		Payload:       payload,
	})
}

func previousQuantity(order domain.Order, lineID int64) int {
	for _, line := range order.Lines {
		if line.ID == lineID {
			return line.Quantity
		}
	}
	return 0
}

// withinCart исполняет fn транзакцией с ограниченным повтором при конфликте:
// гонка lookup-or-create на pending-заказе разрешается уникальным частичным
// индексом хранилища, а проигравшая сторона повторяет попытку.
func (s *Service) withinCart(ctx context.Context, fn func(tx domain.CartTx) error) error {
	var err error
	for attempt := 1; attempt <= conflictRetryAttempts; attempt++ {
		err = s.store.WithinCart(ctx, fn)
		if !domain.IsCartConflict(err) {
			return err
		}
		s.metrics.RecordConflictRetry()
		s.logger.WithField("attempt", attempt).Warn("cart transaction conflict, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(conflictRetryDelay * time.Duration(attempt)):
		}
	}
	return err
}
