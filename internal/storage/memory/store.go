// Package memory — in-memory реализация хранилища для локальной
// разработки и тестов. Повторяет контракт postgres-реализации, включая
// транзакционность корзины: мутации внутри WithinCart либо фиксируются
// вместе, либо вместе откатываются.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

// Store держит всё состояние под одним мьютексом.
type Store struct {
	mu sync.Mutex
	st *state
}

type outboxRecord struct {
	msg       domain.OutboxMessage
	status    string
	attempts  int
	createdAt time.Time
}

type state struct {
	categories map[int64]domain.Category
	products   map[int64]domain.Product
	customers  map[int64]domain.Customer
	// orders хранятся без строк; строки лежат отдельно и собираются при чтении.
	orders map[int64]domain.Order
	lines  map[int64]domain.OrderLine
	outbox map[string]outboxRecord

	nextCategoryID int64
	nextProductID  int64
	nextCustomerID int64
	nextOrderID    int64
	nextLineID     int64
}

// NewStore возвращает пустое in-memory хранилище.
func NewStore() *Store {
	return &Store{
		st: &state{
			categories: make(map[int64]domain.Category),
			products:   make(map[int64]domain.Product),
			customers:  make(map[int64]domain.Customer),
			orders:     make(map[int64]domain.Order),
			lines:      make(map[int64]domain.OrderLine),
			outbox:     make(map[string]outboxRecord),
		},
	}
}

func (s *state) clone() *state {
	cp := &state{
		categories:     make(map[int64]domain.Category, len(s.categories)),
		products:       make(map[int64]domain.Product, len(s.products)),
		customers:      make(map[int64]domain.Customer, len(s.customers)),
		orders:         make(map[int64]domain.Order, len(s.orders)),
		lines:          make(map[int64]domain.OrderLine, len(s.lines)),
		outbox:         make(map[string]outboxRecord, len(s.outbox)),
		nextCategoryID: s.nextCategoryID,
		nextProductID:  s.nextProductID,
		nextCustomerID: s.nextCustomerID,
		nextOrderID:    s.nextOrderID,
		nextLineID:     s.nextLineID,
	}
	for k, v := range s.categories {
		cp.categories[k] = v
	}
	for k, v := range s.products {
		cp.products[k] = v
	}
	for k, v := range s.customers {
		cp.customers[k] = v
	}
	for k, v := range s.orders {
		v.Lines = nil
		cp.orders[k] = v
	}
	for k, v := range s.lines {
		cp.lines[k] = v
	}
	for k, v := range s.outbox {
		cp.outbox[k] = v
	}
	return cp
}

// WithinCart исполняет fn под общим мьютексом. При ошибке состояние
// откатывается к снимку, сделанному до fn.
func (s *Store) WithinCart(ctx context.Context, fn func(tx domain.CartTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	snapshot := s.st.clone()
	if err := fn(&cartTx{st: s.st}); err != nil {
		s.st = snapshot
		return err
	}
	return nil
}

// assembleOrder собирает заказ со строками, отсортированными по ID.
func (s *state) assembleOrder(id int64) (domain.Order, bool) {
	order, ok := s.orders[id]
	if !ok {
		return domain.Order{}, false
	}

	lines := make([]domain.OrderLine, 0)
	for _, line := range s.lines {
		if line.OrderID != id {
			continue
		}
		if product, ok := s.products[line.ProductID]; ok {
			line.ProductName = product.Name
		}
		lines = append(lines, line)
	}
	sort.Slice(lines, func(i, j int) bool { return lines[i].ID < lines[j].ID })
	order.Lines = lines
	return order, true
}

func (s *state) pendingOrderID(customerID int64) (int64, bool) {
	for id, order := range s.orders {
		if order.CustomerID == customerID && order.Status == domain.OrderStatusPending {
			return id, true
		}
	}
	return 0, false
}

// cartTx реализует domain.CartTx поверх уже заблокированного состояния.
type cartTx struct {
	st *state
}

func (t *cartTx) LockCustomerCart(_ context.Context, _ int64) error {
	// Глобальный мьютекс Store уже сериализует все мутации.
	return nil
}

func (t *cartTx) CustomerExists(_ context.Context, customerID int64) (bool, error) {
	_, ok := t.st.customers[customerID]
	return ok, nil
}

func (t *cartTx) PendingOrder(_ context.Context, customerID int64) (domain.Order, error) {
	id, ok := t.st.pendingOrderID(customerID)
	if !ok {
		return domain.Order{}, domain.ErrNoActiveCart
	}
	order, _ := t.st.assembleOrder(id)
	return order, nil
}

func (t *cartTx) InsertPendingOrder(_ context.Context, customerID int64, createdAt time.Time) (domain.Order, error) {
	// Аналог уникального частичного индекса (customer_id WHERE status='pending').
	if _, ok := t.st.pendingOrderID(customerID); ok {
		return domain.Order{}, domain.ErrCartConflict
	}

	t.st.nextOrderID++
	order := domain.Order{
		ID:         t.st.nextOrderID,
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		Total:      decimal.Zero,
		Lines:      []domain.OrderLine{},
		CreatedAt:  createdAt,
	}
	stored := order
	stored.Lines = nil
	t.st.orders[order.ID] = stored
	return order, nil
}

func (t *cartTx) OrderByID(_ context.Context, orderID int64) (domain.Order, error) {
	order, ok := t.st.assembleOrder(orderID)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (t *cartTx) ProductForUpdate(_ context.Context, productID int64) (domain.Product, error) {
	product, ok := t.st.products[productID]
	if !ok {
		return domain.Product{}, domain.ErrProductNotFound
	}
	return product, nil
}

func (t *cartTx) SetProductStock(_ context.Context, productID int64, stock int) error {
	product, ok := t.st.products[productID]
	if !ok {
		return domain.ErrProductNotFound
	}
	if stock < 0 {
		return domain.ErrInsufficientStock
	}
	product.Stock = stock
	t.st.products[productID] = product
	return nil
}

func (t *cartTx) LineByID(_ context.Context, orderID, lineID int64) (domain.OrderLine, error) {
	line, ok := t.st.lines[lineID]
	if !ok || line.OrderID != orderID {
		return domain.OrderLine{}, domain.ErrLineNotFound
	}
	return line, nil
}

func (t *cartTx) LineByProduct(_ context.Context, orderID, productID int64) (domain.OrderLine, error) {
	for _, line := range t.st.lines {
		if line.OrderID == orderID && line.ProductID == productID {
			return line, nil
		}
	}
	return domain.OrderLine{}, domain.ErrLineNotFound
}

func (t *cartTx) InsertLine(_ context.Context, line domain.OrderLine) (domain.OrderLine, error) {
	for _, existing := range t.st.lines {
		if existing.OrderID == line.OrderID && existing.ProductID == line.ProductID {
			return domain.OrderLine{}, domain.ErrCartConflict
		}
	}

	t.st.nextLineID++
	line.ID = t.st.nextLineID
	t.st.lines[line.ID] = line
	return line, nil
}

func (t *cartTx) UpdateLine(_ context.Context, line domain.OrderLine) error {
	current, ok := t.st.lines[line.ID]
	if !ok || current.OrderID != line.OrderID {
		return domain.ErrLineNotFound
	}
	t.st.lines[line.ID] = line
	return nil
}

func (t *cartTx) DeleteLine(_ context.Context, orderID, lineID int64) error {
	line, ok := t.st.lines[lineID]
	if !ok || line.OrderID != orderID {
		return domain.ErrLineNotFound
	}
	delete(t.st.lines, lineID)
	return nil
}

func (t *cartTx) LinesTotal(_ context.Context, orderID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, line := range t.st.lines {
		if line.OrderID == orderID {
			total = total.Add(line.Subtotal)
		}
	}
	return total, nil
}

func (t *cartTx) SetOrderTotal(_ context.Context, orderID int64, total decimal.Decimal) error {
	order, ok := t.st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Total = total
	t.st.orders[orderID] = order
	return nil
}

func (t *cartTx) SetOrderStatus(_ context.Context, orderID int64, status domain.OrderStatus) error {
	order, ok := t.st.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	order.Status = status
	t.st.orders[orderID] = order
	return nil
}

func (t *cartTx) EnqueueOutbox(_ context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	t.st.outbox[msg.ID] = outboxRecord{
		msg:       msg,
		status:    "pending",
		createdAt: time.Now().UTC(),
	}
	return nil
}

var _ domain.CartStore = (*Store)(nil)
var _ domain.CartTx = (*cartTx)(nil)
