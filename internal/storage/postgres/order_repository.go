package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type orderRepository struct {
	db *sql.DB
}

var _ domain.OrderRepository = (*orderRepository)(nil)

// NewOrderRepository создаёт PostgreSQL-реализацию OrderRepository
// для административных операций вне потока корзины.
func NewOrderRepository(store *Store) domain.OrderRepository {
	return &orderRepository{db: store.DB()}
}

func (r *orderRepository) Create(ctx context.Context, order domain.Order) (domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO orders (customer_id, status, total, created_at)
		VALUES ($1, $2, 0, $3)
		RETURNING id
	`, order.CustomerID, string(order.Status), order.CreatedAt).Scan(&order.ID)
	if isForeignKeyViolation(err) {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	if isUniqueViolation(err) {
		// У покупателя уже есть pending-заказ.
		return domain.Order{}, domain.ErrCartConflict
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("insert order: %w", err)
	}

	order.Total = decimal.Zero
	order.Lines = []domain.OrderLine{}
	return order, nil
}

func (r *orderRepository) Get(ctx context.Context, id int64) (domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	order, err := r.queryOrder(opCtx, id)
	if err != nil {
		return domain.Order{}, err
	}

	order.Lines, err = r.queryLines(opCtx, id)
	if err != nil {
		return domain.Order{}, err
	}
	return order, nil
}

func (r *orderRepository) List(ctx context.Context) ([]domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(opCtx, `
		SELECT id, customer_id, status, total, created_at
		FROM orders
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query orders: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Order, 0, 32)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, order)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}

	if err := r.attachLines(opCtx, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *orderRepository) Update(ctx context.Context, order domain.Order) (domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Сумма всегда пересчитывается по строкам; значение от клиента игнорируется.
	res, err := r.db.ExecContext(opCtx, `
		UPDATE orders
		SET customer_id = $2,
		    status = $3,
		    created_at = $4,
		    total = (SELECT COALESCE(SUM(subtotal), 0) FROM order_lines WHERE order_id = $1)
		WHERE id = $1
	`, order.ID, order.CustomerID, string(order.Status), order.CreatedAt)
	if isForeignKeyViolation(err) {
		return domain.Order{}, domain.ErrCustomerNotFound
	}
	if isUniqueViolation(err) {
		return domain.Order{}, domain.ErrCartConflict
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %d: %w", order.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("update order %d: rows affected: %w", order.ID, err)
	}
	if affected == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	return r.Get(ctx, order.ID)
}

// Delete удаляет заказ со строками, вернув сток строк товарам
// в той же транзакции.
func (r *orderRepository) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(opCtx, nil)
	if err != nil {
		return fmt.Errorf("begin delete order tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var exists bool
	if err := tx.QueryRowContext(opCtx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE id = $1)`, id,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check order %d: %w", id, err)
	}
	if !exists {
		return domain.ErrOrderNotFound
	}

	if _, err := tx.ExecContext(opCtx, `
		UPDATE products p
		SET stock = p.stock + l.quantity
		FROM order_lines l
		WHERE l.order_id = $1 AND l.product_id = p.id
	`, id); err != nil {
		return fmt.Errorf("restore stock of order %d: %w", id, err)
	}

	if _, err := tx.ExecContext(opCtx, `DELETE FROM orders WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete order %d: %w", id, err)
	}
	return nil
}

func (r *orderRepository) SetStatus(ctx context.Context, id int64, status domain.OrderStatus) (domain.Order, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	// Прямая запись статуса: стока не касаемся.
	res, err := r.db.ExecContext(opCtx,
		`UPDATE orders SET status = $2 WHERE id = $1`, id, string(status),
	)
	if isUniqueViolation(err) {
		return domain.Order{}, domain.ErrCartConflict
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("set status of order %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Order{}, fmt.Errorf("set status of order %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return domain.Order{}, domain.ErrOrderNotFound
	}

	return r.Get(ctx, id)
}

func (r *orderRepository) Report(ctx context.Context, filter domain.ReportFilter) ([]domain.OrderReport, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	conditions := make([]string, 0, 3)
	args := make([]any, 0, 3)
	if filter.CustomerID != 0 {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("o.customer_id = $%d", len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("o.created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("o.created_at <= $%d", len(args)))
	}

	query := `
		SELECT o.id, o.customer_id,
		       TRIM(c.first_name || ' ' || c.last_name), c.email,
		       o.created_at, o.status, o.total
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
	`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY o.id DESC"

	rows, err := r.db.QueryContext(opCtx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query order report: %w", err)
	}
	defer rows.Close()

	result := make([]domain.OrderReport, 0, 32)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order report: %w", err)
	}

	for i := range result {
		result[i].Lines, err = r.queryLines(opCtx, result[i].OrderID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func (r *orderRepository) ReportByID(ctx context.Context, id int64) (domain.OrderReport, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	row := r.db.QueryRowContext(opCtx, `
		SELECT o.id, o.customer_id,
		       TRIM(c.first_name || ' ' || c.last_name), c.email,
		       o.created_at, o.status, o.total
		FROM orders o
		JOIN customers c ON c.id = o.customer_id
		WHERE o.id = $1
	`, id)

	report, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderReport{}, domain.ErrOrderNotFound
	}
	if err != nil {
		return domain.OrderReport{}, err
	}

	report.Lines, err = r.queryLines(opCtx, id)
	if err != nil {
		return domain.OrderReport{}, err
	}
	return report, nil
}

func (r *orderRepository) HasPendingOrder(ctx context.Context, customerID int64) (bool, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var exists bool
	err := r.db.QueryRowContext(opCtx, `
		SELECT EXISTS (
			SELECT 1 FROM orders WHERE customer_id = $1 AND status = 'pending'
		)
	`, customerID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check pending order for customer %d: %w", customerID, err)
	}
	return exists, nil
}

func (r *orderRepository) CompletedStats(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var (
		count   int
		revenue decimal.Decimal
	)
	err := r.db.QueryRowContext(opCtx, `
		SELECT COUNT(*), COALESCE(SUM(total), 0)
		FROM orders
		WHERE status = 'completed' AND created_at >= $1 AND created_at < $2
	`, from, to).Scan(&count, &revenue)
	if err != nil {
		return 0, decimal.Zero, fmt.Errorf("query completed stats: %w", err)
	}
	return count, revenue, nil
}

func (r *orderRepository) queryOrder(ctx context.Context, id int64) (domain.Order, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, customer_id, status, total, created_at
		FROM orders
		WHERE id = $1
	`, id)

	order, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, err
}

func (r *orderRepository) queryLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	rows, err := r.db.QueryContext(ctx, `
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

func (r *orderRepository) attachLines(ctx context.Context, orders []domain.Order) error {
	for i := range orders {
		lines, err := r.queryLines(ctx, orders[i].ID)
		if err != nil {
			return err
		}
		orders[i].Lines = lines
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (domain.Order, error) {
	var order domain.Order
	var status string
	err := row.Scan(&order.ID, &order.CustomerID, &status, &order.Total, &order.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Order{}, err
	}
	if err != nil {
		return domain.Order{}, fmt.Errorf("scan order: %w", err)
	}
	order.Status = domain.OrderStatus(status)
	return order, nil
}

func scanReport(row rowScanner) (domain.OrderReport, error) {
	var report domain.OrderReport
	var status string
	err := row.Scan(
		&report.OrderID, &report.CustomerID,
		&report.CustomerName, &report.CustomerEmail,
		&report.CreatedAt, &status, &report.Total,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.OrderReport{}, err
	}
	if err != nil {
		return domain.OrderReport{}, fmt.Errorf("scan order report: %w", err)
	}
	report.Status = domain.OrderStatus(status)
	return report, nil
}
