package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus описывает жизненный цикл заказа.
type OrderStatus string

const (
	// OrderStatusPending — заказ открыт и используется как корзина покупателя.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusCompleted — заказ оформлен через checkout; терминальный статус.
	OrderStatusCompleted OrderStatus = "completed"
	// OrderStatusCancelled — заказ отменён с возвратом стока; терминальный статус.
	OrderStatusCancelled OrderStatus = "cancelled"
)

// ParseOrderStatus преобразует строку в OrderStatus или возвращает ErrInvalidStatus.
func ParseOrderStatus(s string) (OrderStatus, error) {
	switch OrderStatus(s) {
	case OrderStatusPending, OrderStatusCompleted, OrderStatusCancelled:
		return OrderStatus(s), nil
	default:
		return "", ErrInvalidStatus
	}
}

// OrderLine представляет одну позицию заказа: ровно одна строка на пару (заказ, товар).
type OrderLine struct {
	ID      int64
	OrderID int64
	// ProductID — ссылка на товар; товар нельзя удалить, пока на него ссылаются строки.
	ProductID int64
	// ProductName денормализуется в выборках для отчётов и витрины корзины.
	ProductName string
	// Quantity всегда строго положительно; нулевое количество означает удаление строки.
	Quantity int
	// UnitPrice — снимок цены товара на момент последней мутации строки,
	// а не на момент первого добавления.
	UnitPrice decimal.Decimal
	// Subtotal = Quantity × UnitPrice.
	Subtotal decimal.Decimal
}

// Order агрегирует состояние заказа и его строки.
type Order struct {
	ID         int64
	CustomerID int64
	Status     OrderStatus
	// Total — сумма Subtotal всех строк; пересчитывается после каждой мутации.
	Total     decimal.Decimal
	Lines     []OrderLine
	CreatedAt time.Time
}

// LinesTotal пересчитывает сумму заказа по строкам.
func (o *Order) LinesTotal() decimal.Decimal {
	total := decimal.Zero
	for _, line := range o.Lines {
		total = total.Add(line.Subtotal)
	}
	return total
}

// ValidateInvariants проверяет согласованность заказа и возвращает список замечаний.
func (o *Order) ValidateInvariants() []error {
	var errs []error

	if o.CustomerID <= 0 {
		errs = append(errs, ErrCustomerRequired)
	}
	if _, err := ParseOrderStatus(string(o.Status)); err != nil {
		errs = append(errs, ErrInvalidStatus)
	}
	if o.Total.IsNegative() {
		errs = append(errs, ErrTotalNegative)
	}

	for _, line := range o.Lines {
		if line.Quantity <= 0 {
			errs = append(errs, ErrInvalidQuantity)
		}
		if line.UnitPrice.IsNegative() {
			errs = append(errs, ErrPriceNegative)
		}
	}
	if !o.Total.Equal(o.LinesTotal()) {
		errs = append(errs, ErrTotalMismatch)
	}

	return errs
}

// Cart — представление корзины покупателя поверх pending-заказа.
// Для покупателя без открытого заказа возвращается пустая корзина с OrderID == 0;
// такая корзина существует только как view и не записывается в хранилище.
type Cart struct {
	OrderID    int64
	CustomerID int64
	Total      decimal.Decimal
	Lines      []OrderLine
}

// IsEmpty сообщает, есть ли в корзине хотя бы одна строка.
func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// CartFromOrder строит представление корзины из pending-заказа.
func CartFromOrder(order Order) Cart {
	return Cart{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		Total:      order.Total,
		Lines:      order.Lines,
	}
}

// EmptyCart возвращает пустую корзину-view для покупателя без pending-заказа.
func EmptyCart(customerID int64) Cart {
	return Cart{
		OrderID:    0,
		CustomerID: customerID,
		Total:      decimal.Zero,
		Lines:      []OrderLine{},
	}
}
