// Package orderline реализует движок строк заказа — единственный компонент,
// которому разрешено перемещать сток между «доступно» и «зарезервировано
// открытым заказом». Каждая операция выполняется одной транзакцией:
// движение стока и мутация строки фиксируются вместе или не фиксируются вовсе.
package orderline

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

const (
	conflictRetryAttempts = 3
	conflictRetryDelay    = 25 * time.Millisecond
)

// Service выполняет стоковую арифметику строк заказа.
type Service struct {
	store  domain.CartStore
	logger *log.Entry
}

// NewService конструирует движок строк заказа.
func NewService(store domain.CartStore, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "orderline")
	}
	return &Service{store: store, logger: logger}
}

// Add добавляет товар в заказ: сливает повтор в существующую строку,
// пересняв цену, и списывает сток на добавленное количество.
func (s *Service) Add(ctx context.Context, orderID, productID int64, quantity int) (domain.OrderLine, error) {
	var line domain.OrderLine
	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		var err error
		line, err = s.AddTx(ctx, tx, orderID, productID, quantity)
		return err
	})
	return line, err
}

// UpdateQuantity выставляет количество строки, двигая сток на разницу.
func (s *Service) UpdateQuantity(ctx context.Context, orderID, lineID int64, quantity int) (domain.OrderLine, error) {
	var line domain.OrderLine
	err := s.withinCart(ctx, func(tx domain.CartTx) error {
		var err error
		line, err = s.UpdateQuantityTx(ctx, tx, orderID, lineID, quantity)
		return err
	})
	return line, err
}

// Remove удаляет строку, вернув весь её сток товару.
func (s *Service) Remove(ctx context.Context, orderID, lineID int64) error {
	return s.withinCart(ctx, func(tx domain.CartTx) error {
		return s.RemoveTx(ctx, tx, orderID, lineID)
	})
}

// ListByOrder возвращает строки заказа.
func (s *Service) ListByOrder(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	var lines []domain.OrderLine
	err := s.store.WithinCart(ctx, func(tx domain.CartTx) error {
		order, err := tx.OrderByID(ctx, orderID)
		if err != nil {
			return err
		}
		lines = order.Lines
		return nil
	})
	return lines, err
}

// AddTx — вариант Add внутри уже открытой транзакции; им пользуется
// движок корзины, чтобы создание pending-заказа и добавление строки
// зафиксировались одним коммитом.
func (s *Service) AddTx(ctx context.Context, tx domain.CartTx, orderID, productID int64, quantity int) (domain.OrderLine, error) {
	if quantity <= 0 {
		return domain.OrderLine{}, domain.ErrInvalidQuantity
	}

	if _, err := tx.OrderByID(ctx, orderID); err != nil {
		return domain.OrderLine{}, err
	}

	product, err := tx.ProductForUpdate(ctx, productID)
	if err != nil {
		return domain.OrderLine{}, err
	}
	if !product.Active {
		return domain.OrderLine{}, domain.ErrProductInactive
	}
	if product.Stock < quantity {
		return domain.OrderLine{}, domain.ErrInsufficientStock
	}

	line, err := tx.LineByProduct(ctx, orderID, productID)
	switch {
	case err == nil:
		// Повторное добавление того же товара увеличивает строку,
		// а не создаёт дубликат; цена переснимается с товара.
		line.Quantity += quantity
		line.UnitPrice = product.Price
		line.Subtotal = product.Price.Mul(decimalFromInt(line.Quantity))
		if err := tx.UpdateLine(ctx, line); err != nil {
			return domain.OrderLine{}, err
		}
	case errors.Is(err, domain.ErrLineNotFound):
		line = domain.OrderLine{
			OrderID:     orderID,
			ProductID:   productID,
			ProductName: product.Name,
			Quantity:    quantity,
			UnitPrice:   product.Price,
			Subtotal:    product.Price.Mul(decimalFromInt(quantity)),
		}
		line, err = tx.InsertLine(ctx, line)
		if err != nil {
			return domain.OrderLine{}, err
		}
	default:
		return domain.OrderLine{}, err
	}

	if err := tx.SetProductStock(ctx, productID, product.Stock-quantity); err != nil {
		return domain.OrderLine{}, err
	}
	if err := s.recomputeTotal(ctx, tx, orderID); err != nil {
		return domain.OrderLine{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id":   orderID,
		"product_id": productID,
		"quantity":   quantity,
	}).Debug("line added, stock reserved")

	return line, nil
}

// UpdateQuantityTx — вариант UpdateQuantity внутри открытой транзакции.
// Увеличение проверяется против текущего остатка, а не исходного:
// сток мог быть съеден другими корзинами. Уменьшение возвращает ровно
// разницу, а не всю строку.
func (s *Service) UpdateQuantityTx(ctx context.Context, tx domain.CartTx, orderID, lineID int64, quantity int) (domain.OrderLine, error) {
	if quantity <= 0 {
		return domain.OrderLine{}, domain.ErrInvalidQuantity
	}

	if _, err := tx.OrderByID(ctx, orderID); err != nil {
		return domain.OrderLine{}, err
	}

	line, err := tx.LineByID(ctx, orderID, lineID)
	if err != nil {
		return domain.OrderLine{}, err
	}

	product, err := tx.ProductForUpdate(ctx, line.ProductID)
	if err != nil {
		return domain.OrderLine{}, err
	}

	delta := quantity - line.Quantity
	if delta > 0 && product.Stock < delta {
		return domain.OrderLine{}, domain.ErrInsufficientStock
	}

	if err := tx.SetProductStock(ctx, product.ID, product.Stock-delta); err != nil {
		return domain.OrderLine{}, err
	}

	line.Quantity = quantity
	line.UnitPrice = product.Price
	line.Subtotal = product.Price.Mul(decimalFromInt(quantity))
	if err := tx.UpdateLine(ctx, line); err != nil {
		return domain.OrderLine{}, err
	}
	if err := s.recomputeTotal(ctx, tx, orderID); err != nil {
		return domain.OrderLine{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"line_id":  lineID,
		"delta":    delta,
	}).Debug("line quantity updated")

	return line, nil
}

// RemoveTx — вариант Remove внутри открытой транзакции.
func (s *Service) RemoveTx(ctx context.Context, tx domain.CartTx, orderID, lineID int64) error {
	if _, err := tx.OrderByID(ctx, orderID); err != nil {
		return err
	}

	line, err := tx.LineByID(ctx, orderID, lineID)
	if err != nil {
		return err
	}

	product, err := tx.ProductForUpdate(ctx, line.ProductID)
	if err != nil {
		return err
	}

	if err := tx.SetProductStock(ctx, product.ID, product.Stock+line.Quantity); err != nil {
		return err
	}
	if err := tx.DeleteLine(ctx, orderID, lineID); err != nil {
		return err
	}
	if err := s.recomputeTotal(ctx, tx, orderID); err != nil {
		return err
	}

	s.logger.WithFields(log.Fields{
		"order_id": orderID,
		"line_id":  lineID,
		"returned": line.Quantity,
	}).Debug("line removed, stock returned")

	return nil
}

func decimalFromInt(v int) decimal.Decimal {
	return decimal.NewFromInt(int64(v))
}

func (s *Service) recomputeTotal(ctx context.Context, tx domain.CartTx, orderID int64) error {
	total, err := tx.LinesTotal(ctx, orderID)
	if err != nil {
		return err
	}
	return tx.SetOrderTotal(ctx, orderID, total)
}

// withinCart исполняет fn транзакцией с ограниченным повтором при конфликте
// конкурентных мутаций корзины.
func (s *Service) withinCart(ctx context.Context, fn func(tx domain.CartTx) error) error {
	var err error
	for attempt := 1; attempt <= conflictRetryAttempts; attempt++ {
		err = s.store.WithinCart(ctx, fn)
		if !domain.IsCartConflict(err) {
			return err
		}
		s.logger.WithField("attempt", attempt).Warn("cart transaction conflict, retrying")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(conflictRetryDelay * time.Duration(attempt)):
		}
	}
	return err
}
