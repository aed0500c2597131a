package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type customerRepository struct {
	db *sql.DB
}

var _ domain.CustomerRepository = (*customerRepository)(nil)

// NewCustomerRepository создаёт PostgreSQL-реализацию CustomerRepository.
func NewCustomerRepository(store *Store) domain.CustomerRepository {
	return &customerRepository{db: store.DB()}
}

func (r *customerRepository) Create(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if customer.CreatedAt.IsZero() {
		customer.CreatedAt = time.Now().UTC()
	}

	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO customers (first_name, last_name, email, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, customer.FirstName, customer.LastName, customer.Email, customer.CreatedAt).Scan(&customer.ID)
	if isUniqueViolation(err) {
		return domain.Customer{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("insert customer: %w", err)
	}

	return customer, nil
}

func (r *customerRepository) Get(ctx context.Context, id int64) (domain.Customer, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var customer domain.Customer
	err := r.db.QueryRowContext(opCtx, `
		SELECT id, first_name, last_name, email, created_at
		FROM customers
		WHERE id = $1
	`, id).Scan(
		&customer.ID, &customer.FirstName, &customer.LastName,
		&customer.Email, &customer.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("query customer %d: %w", id, err)
	}

	return customer, nil
}

func (r *customerRepository) List(ctx context.Context) ([]domain.Customer, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(opCtx, `
		SELECT id, first_name, last_name, email, created_at
		FROM customers
		ORDER BY id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Customer, 0, 32)
	for rows.Next() {
		var customer domain.Customer
		if err := rows.Scan(
			&customer.ID, &customer.FirstName, &customer.LastName,
			&customer.Email, &customer.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		result = append(result, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	return result, nil
}

func (r *customerRepository) Update(ctx context.Context, customer domain.Customer) (domain.Customer, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE customers
		SET first_name = $2, last_name = $3, email = $4
		WHERE id = $1
	`, customer.ID, customer.FirstName, customer.LastName, customer.Email)
	if isUniqueViolation(err) {
		return domain.Customer{}, domain.ErrEmailTaken
	}
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer %d: %w", customer.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Customer{}, fmt.Errorf("update customer %d: rows affected: %w", customer.ID, err)
	}
	if affected == 0 {
		return domain.Customer{}, domain.ErrCustomerNotFound
	}

	return customer, nil
}

func (r *customerRepository) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `DELETE FROM customers WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrCustomerHasOrders
	}
	if err != nil {
		return fmt.Errorf("delete customer %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete customer %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrCustomerNotFound
	}

	return nil
}
