// Package order — административный доступ к заказам вне потока корзины:
// CRUD, отчёты, сводка dashboard и прямой перевод статуса.
package order

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

const defaultLowStockThreshold = 5

// Service реализует административные операции над заказами.
type Service struct {
	orders    domain.OrderRepository
	customers domain.CustomerRepository
	products  domain.ProductRepository
	logger    *log.Entry
}

// NewService конструирует административный сервис заказов.
func NewService(orders domain.OrderRepository, customers domain.CustomerRepository, products domain.ProductRepository, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "order-admin")
	}
	return &Service{
		orders:    orders,
		customers: customers,
		products:  products,
		logger:    logger,
	}
}

// List возвращает все заказы.
func (s *Service) List(ctx context.Context) ([]domain.Order, error) {
	return s.orders.List(ctx)
}

// Get возвращает заказ со строками или ErrOrderNotFound.
func (s *Service) Get(ctx context.Context, id int64) (domain.Order, error) {
	return s.orders.Get(ctx, id)
}

// Create заводит заказ административно, без строк; сумма нулевая
// и будет посчитана по строкам.
func (s *Service) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	if _, err := s.customers.Get(ctx, order.CustomerID); err != nil {
		return domain.Order{}, err
	}
	if _, err := domain.ParseOrderStatus(string(order.Status)); err != nil {
		return domain.Order{}, err
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}
	return s.orders.Create(ctx, order)
}

// Update меняет покупателя, дату и статус заказа. Смена покупателя
// проверяется на существование; сумма всегда пересчитывается по строкам.
func (s *Service) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	if _, err := domain.ParseOrderStatus(string(order.Status)); err != nil {
		return domain.Order{}, err
	}

	current, err := s.orders.Get(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	if current.CustomerID != order.CustomerID {
		if _, err := s.customers.Get(ctx, order.CustomerID); err != nil {
			return domain.Order{}, err
		}
	}

	return s.orders.Update(ctx, order)
}

// Delete удаляет заказ каскадно со строками, вернув сток каждой строки.
// Жёсткое удаление — административный путь; корзина заказы не удаляет.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.orders.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithField("order_id", id).Info("order deleted, stock returned")
	return nil
}

// SetStatus пишет статус напрямую, минуя state machine корзины и не трогая
// сток. Принудительный перевод в cancelled этим путём сток НЕ возвращает —
// это инструмент ручной коррекции, о чём вызывающие должны знать.
func (s *Service) SetStatus(ctx context.Context, id int64, status string) (domain.Order, error) {
	parsed, err := domain.ParseOrderStatus(status)
	if err != nil {
		return domain.Order{}, err
	}

	updated, err := s.orders.SetStatus(ctx, id, parsed)
	if err != nil {
		return domain.Order{}, err
	}

	s.logger.WithFields(log.Fields{
		"order_id": id,
		"status":   parsed,
	}).Warn("order status overridden without stock adjustment")
	return updated, nil
}

// Report возвращает заказы с данными покупателя и названиями товаров,
// с фильтром по интервалу дат и покупателю.
func (s *Service) Report(ctx context.Context, filter domain.ReportFilter) ([]domain.OrderReport, error) {
	if filter.To != nil {
		// Правая граница включает весь день: [from, to 23:59:59.999...].
		end := filter.To.UTC().Truncate(24 * time.Hour).Add(24*time.Hour - time.Nanosecond)
		filter.To = &end
	}
	return s.orders.Report(ctx, filter)
}

// ReportByID возвращает отчётную строку одного заказа.
func (s *Service) ReportByID(ctx context.Context, id int64) (domain.OrderReport, error) {
	return s.orders.ReportByID(ctx, id)
}

// Dashboard собирает сводку: активная корзина выбранного покупателя,
// количество и выручка completed-заказов за сегодня (UTC), счётчик
// товаров с низким остатком.
func (s *Service) Dashboard(ctx context.Context, customerID int64, lowStockThreshold int) (domain.DashboardSummary, error) {
	if lowStockThreshold <= 0 {
		lowStockThreshold = defaultLowStockThreshold
	}

	summary := domain.DashboardSummary{LowStockThreshold: lowStockThreshold}

	if customerID > 0 {
		hasCart, err := s.orders.HasPendingOrder(ctx, customerID)
		if err != nil {
			return domain.DashboardSummary{}, err
		}
		summary.HasActiveCart = hasCart
	}

	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, revenue, err := s.orders.CompletedStats(ctx, dayStart, dayStart.Add(24*time.Hour))
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	summary.TodayOrders = count
	summary.TodayRevenue = revenue

	lowStock, err := s.products.CountLowStock(ctx, lowStockThreshold)
	if err != nil {
		return domain.DashboardSummary{}, err
	}
	summary.LowStockCount = lowStock

	return summary, nil
}
