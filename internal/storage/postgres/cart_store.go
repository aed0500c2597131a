package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

// CartStore исполняет мутации корзины в одной транзакции PostgreSQL.
type CartStore struct {
	db *sql.DB
}

var _ domain.CartStore = (*CartStore)(nil)

// NewCartStore создаёт транзакционное хранилище корзины.
func NewCartStore(store *Store) *CartStore {
	return &CartStore{db: store.DB()}
}

// WithinCart открывает транзакцию, исполняет fn и коммитит.
// Конфликты сериализации и дедлоки на коммите переводятся в
// ErrCartConflict, чтобы сервис мог повторить попытку.
func (s *CartStore) WithinCart(ctx context.Context, fn func(tx domain.CartTx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cart tx: %w", err)
	}

	if err := fn(&pgCartTx{tx: tx}); err != nil {
		_ = tx.Rollback()
		if isTxConflict(err) {
			return domain.ErrCartConflict
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		if isTxConflict(err) {
			return domain.ErrCartConflict
		}
		return fmt.Errorf("commit cart tx: %w", err)
	}

	return nil
}

type pgCartTx struct {
	tx *sql.Tx
}

var _ domain.CartTx = (*pgCartTx)(nil)

func (t *pgCartTx) LockCustomerCart(ctx context.Context, customerID int64) error {
	// Лок держится до конца транзакции и сериализует все мутации
	// корзины одного покупателя.
	_, err := t.tx.ExecContext(ctx,
		`SELECT pg_advisory_xact_lock(hashtextextended('cart:' || $1::text, 0))`,
		customerID,
	)
	if err != nil {
		return fmt.Errorf("lock customer cart %d: %w", customerID, err)
	}
	return nil
}

func (t *pgCartTx) CustomerExists(ctx context.Context, customerID int64) (bool, error) {
	var exists bool
	err := t.tx.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, customerID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check customer %d: %w", customerID, err)
	}
	return exists, nil
}

func (t *pgCartTx) PendingOrder(ctx context.Context, customerID int64) (domain.Order, error) {
	var order domain.Order
	var status string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total, created_at
		FROM orders
		WHERE customer_id = $1 AND status = 'pending'
	`, customerID).Scan(&order.ID, &order.CustomerID, &status, &order.Total, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrNoActiveCart
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query pending order for customer %d: %w", customerID, err)
	}
	order.Status = domain.OrderStatus(status)

	order.Lines, err = t.orderLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (t *pgCartTx) InsertPendingOrder(ctx context.Context, customerID int64, createdAt time.Time) (domain.Order, error) {
	order := domain.Order{
		CustomerID: customerID,
		Status:     domain.OrderStatusPending,
		Total:      decimal.Zero,
		Lines:      []domain.OrderLine{},
	}
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO orders (customer_id, status, total, created_at)
		VALUES ($1, 'pending', 0, $2)
		RETURNING id, created_at
	`, customerID, createdAt.UTC()).Scan(&order.ID, &order.CreatedAt)
	if isUniqueViolation(err) {
		// Конкурент успел создать pending-заказ первым.
		return domain.Order{}, domain.ErrCartConflict
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert pending order for customer %d: %w", customerID, err)
	}
	return order, nil
}

func (t *pgCartTx) OrderByID(ctx context.Context, orderID int64) (domain.Order, error) {
	var order domain.Order
	var status string
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total, created_at
		FROM orders
		WHERE id = $1
	`, orderID).Scan(&order.ID, &order.CustomerID, &status, &order.Total, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("query order %d: %w", orderID, err)
	}
	order.Status = domain.OrderStatus(status)

	order.Lines, err = t.orderLines(ctx, order.ID)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (t *pgCartTx) ProductForUpdate(ctx context.Context, productID int64) (domain.Product, error) {
	var product domain.Product
	err := t.tx.QueryRowContext(ctx, `
		SELECT id, name, category_id, price, stock, active
		FROM products
		WHERE id = $1
		FOR UPDATE
	`, productID).Scan(
		&product.ID, &product.Name, &product.CategoryID,
		&product.Price, &product.Stock, &product.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("lock product %d: %w", productID, err)
	}
	return product, nil
}

func (t *pgCartTx) SetProductStock(ctx context.Context, productID int64, stock int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products SET stock = $2 WHERE id = $1`, productID, stock,
	)
	if isCheckViolation(err) {
		return domain.ErrInsufficientStock
	}
	if err != nil {
		return fmt.Errorf("set stock of product %d: %w", productID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set stock of product %d: rows affected: %w", productID, err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}
	return nil
}

func (t *pgCartTx) LineByID(ctx context.Context, orderID, lineID int64) (domain.OrderLine, error) {
	return t.scanLine(ctx, `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1 AND l.id = $2
	`, orderID, lineID)
}

func (t *pgCartTx) LineByProduct(ctx context.Context, orderID, productID int64) (domain.OrderLine, error) {
	return t.scanLine(ctx, `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1 AND l.product_id = $2
	`, orderID, productID)
}

func (t *pgCartTx) scanLine(ctx context.Context, query string, args ...any) (domain.OrderLine, error) {
	var line domain.OrderLine
	err := t.tx.QueryRowContext(ctx, query, args...).Scan(
		&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
		&line.Quantity, &line.UnitPrice, &line.Subtotal,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderLine{}, domain.ErrLineNotFound
	}
	if err != nil {
		return domain.OrderLine{}, fmt.Errorf("query order line: %w", err)
	}
	return line, nil
}

func (t *pgCartTx) InsertLine(ctx context.Context, line domain.OrderLine) (domain.OrderLine, error) {
	err := t.tx.QueryRowContext(ctx, `
		INSERT INTO order_lines (order_id, product_id, quantity, unit_price, subtotal)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, line.OrderID, line.ProductID, line.Quantity, line.UnitPrice, line.Subtotal).Scan(&line.ID)
	if isUniqueViolation(err) {
		// Товар уже есть в заказе: конкурентная вставка проиграла гонку,
		// повтор в сервисе пойдёт по ветке слияния строк.
		return domain.OrderLine{}, domain.ErrCartConflict
	}
	if err != nil {
		return domain.OrderLine{}, fmt.Errorf("insert order line: %w", err)
	}
	return line, nil
}

func (t *pgCartTx) UpdateLine(ctx context.Context, line domain.OrderLine) error {
	res, err := t.tx.ExecContext(ctx, `
		UPDATE order_lines
		SET quantity = $3, unit_price = $4, subtotal = $5
		WHERE order_id = $1 AND id = $2
	`, line.OrderID, line.ID, line.Quantity, line.UnitPrice, line.Subtotal)
	if err != nil {
		return fmt.Errorf("update order line %d: %w", line.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order line %d: rows affected: %w", line.ID, err)
	}
	if affected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (t *pgCartTx) DeleteLine(ctx context.Context, orderID, lineID int64) error {
	res, err := t.tx.ExecContext(ctx,
		`DELETE FROM order_lines WHERE order_id = $1 AND id = $2`, orderID, lineID,
	)
	if err != nil {
		return fmt.Errorf("delete order line %d: %w", lineID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete order line %d: rows affected: %w", lineID, err)
	}
	if affected == 0 {
		return domain.ErrLineNotFound
	}
	return nil
}

func (t *pgCartTx) LinesTotal(ctx context.Context, orderID int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := t.tx.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(subtotal), 0)
		FROM order_lines
		WHERE order_id = $1
	`, orderID).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum lines of order %d: %w", orderID, err)
	}
	return total, nil
}

func (t *pgCartTx) SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error {
	return t.updateOrder(ctx,
		`UPDATE orders SET total = $2 WHERE id = $1`, orderID, total)
}

func (t *pgCartTx) SetOrderStatus(ctx context.Context, orderID int64, status domain.OrderStatus) error {
	return t.updateOrder(ctx,
		`UPDATE orders SET status = $2 WHERE id = $1`, orderID, string(status))
}

func (t *pgCartTx) updateOrder(ctx context.Context, query string, orderID int64, arg any) error {
	res, err := t.tx.ExecContext(ctx, query, orderID, arg)
	if err != nil {
		return fmt.Errorf("update order %d: %w", orderID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update order %d: rows affected: %w", orderID, err)
	}
	if affected == 0 {
		return domain.ErrOrderNotFound
	}
	return nil
}

func (t *pgCartTx) EnqueueOutbox(ctx context.Context, msg domain.OutboxMessage) error {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	_, err := t.tx.ExecContext(ctx, `
		INSERT INTO outbox_messages (
			id, aggregate_type, aggregate_id, event_type, payload,
			status, attempt_count, created_at, updated_at
		) VALUES ($1,$2,$3,$4,$5,'pending',0,$6,$7)
	`, msg.ID, msg.AggregateType, msg.AggregateID, msg.EventType, msg.Payload, now, now)
	if err != nil {
		return fmt.Errorf("enqueue outbox message: %w", err)
	}
	return nil
}

func (t *pgCartTx) orderLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := t.tx.QueryContext(ctx, `
		SELECT l.id, l.order_id, l.product_id, p.name, l.quantity, l.unit_price, l.subtotal
		FROM order_lines l
		JOIN products p ON p.id = l.product_id
		WHERE l.order_id = $1
		ORDER BY l.id
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query lines of order %d: %w", orderID, err)
	}
	defer rows.Close()

	lines := make([]domain.OrderLine, 0, 8)
	for rows.Next() {
		var line domain.OrderLine
		if err := rows.Scan(
			&line.ID, &line.OrderID, &line.ProductID, &line.ProductName,
			&line.Quantity, &line.UnitPrice, &line.Subtotal,
		); err != nil {
			return nil, fmt.Errorf("scan line of order %d: %w", orderID, err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lines of order %d: %w", orderID, err)
	}

	return lines, nil
}
