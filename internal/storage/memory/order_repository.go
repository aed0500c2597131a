package memory

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type orderRepository struct {
	store *Store
}

// NewOrderRepository возвращает in-memory репозиторий заказов
// для административных операций.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{store: store}
}

func (r *orderRepository) Create(_ context.Context, order domain.Order) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	// Аналог уникального частичного индекса (customer_id WHERE status='pending'):
	// админский путь не может завести второй открытый заказ.
	if order.Status == domain.OrderStatusPending {
		if _, ok := r.store.st.pendingOrderID(order.CustomerID); ok {
			return domain.Order{}, domain.ErrCartConflict
		}
	}

	r.store.st.nextOrderID++
	order.ID = r.store.st.nextOrderID
	order.Total = decimal.Zero
	stored := order
	stored.Lines = nil
	r.store.st.orders[order.ID] = stored

	order.Lines = []domain.OrderLine{}
	return order, nil
}

func (r *orderRepository) Get(_ context.Context, id int64) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.store.st.assembleOrder(id)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (r *orderRepository) List(_ context.Context) ([]domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.Order, 0, len(r.store.st.orders))
	for id := range r.store.st.orders {
		order, _ := r.store.st.assembleOrder(id)
		result = append(result, order)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (r *orderRepository) Update(_ context.Context, order domain.Order) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	current, ok := r.store.st.orders[order.ID]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if _, ok := r.store.st.customers[order.CustomerID]; !ok {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	if order.Status == domain.OrderStatusPending {
		if pendingID, ok := r.store.st.pendingOrderID(order.CustomerID); ok && pendingID != order.ID {
			return domain.Order{}, domain.ErrCartConflict
		}
	}

	current.CustomerID = order.CustomerID
	current.CreatedAt = order.CreatedAt
	current.Status = order.Status
	// Сумма всегда по строкам; значение из аргумента игнорируется.
	total := decimal.Zero
	for _, line := range r.store.st.lines {
		if line.OrderID == order.ID {
			total = total.Add(line.Subtotal)
		}
	}
	current.Total = total
	r.store.st.orders[order.ID] = current

	updated, _ := r.store.st.assembleOrder(order.ID)
	return updated, nil
}

func (r *orderRepository) Delete(_ context.Context, id int64) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.orders[id]; !ok {
		return domain.ErrOrderNotFound
	}

	// Возврат стока каждой строки перед каскадным удалением.
	for lineID, line := range r.store.st.lines {
		if line.OrderID != id {
			continue
		}
		if product, ok := r.store.st.products[line.ProductID]; ok {
			product.Stock += line.Quantity
			r.store.st.products[line.ProductID] = product
		}
		delete(r.store.st.lines, lineID)
	}
	delete(r.store.st.orders, id)
	return nil
}

func (r *orderRepository) SetStatus(_ context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	order, ok := r.store.st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if status == domain.OrderStatusPending {
		if pendingID, ok := r.store.st.pendingOrderID(order.CustomerID); ok && pendingID != id {
			return domain.Order{}, domain.ErrCartConflict
		}
	}
	// Прямая запись статуса: стока не касаемся.
	order.Status = status
	r.store.st.orders[id] = order

	updated, _ := r.store.st.assembleOrder(id)
	return updated, nil
}

func (r *orderRepository) Report(_ context.Context, filter domain.ReportFilter) ([]domain.OrderReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	result := make([]domain.OrderReport, 0)
	for id, order := range r.store.st.orders {
		if filter.CustomerID != 0 && order.CustomerID != filter.CustomerID {
			continue
		}
		if filter.From != nil && order.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && order.CreatedAt.After(*filter.To) {
			continue
		}
		result = append(result, r.buildReport(id))
	}
	sort.Slice(result, func(i, j int) bool { return result[i].OrderID > result[j].OrderID })
	return result, nil
}

func (r *orderRepository) ReportByID(_ context.Context, id int64) (domain.OrderReport, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if _, ok := r.store.st.orders[id]; !ok {
		return domain.OrderReport{}, domain.ErrOrderNotFound
	}
	return r.buildReport(id), nil
}

func (r *orderRepository) HasPendingOrder(_ context.Context, customerID int64) (bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	_, ok := r.store.st.pendingOrderID(customerID)
	return ok, nil
}

func (r *orderRepository) CompletedStats(_ context.Context, from, to time.Time) (int, decimal.Decimal, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	count := 0
	revenue := decimal.Zero
	for _, order := range r.store.st.orders {
		if order.Status != domain.OrderStatusCompleted {
			continue
		}
		if order.CreatedAt.Before(from) || !order.CreatedAt.Before(to) {
			continue
		}
		count++
		revenue = revenue.Add(order.Total)
	}
	return count, revenue, nil
}

func (r *orderRepository) buildReport(orderID int64) domain.OrderReport {
	order, _ := r.store.st.assembleOrder(orderID)
	report := domain.OrderReport{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		CreatedAt:  order.CreatedAt,
		Status:     order.Status,
		Total:      order.Total,
		Lines:      order.Lines,
	}
	if customer, ok := r.store.st.customers[order.CustomerID]; ok {
		report.CustomerName = customer.FullName()
		report.CustomerEmail = customer.Email
	}
	return report
}

var _ domain.OrderRepository = (*orderRepository)(nil)
