package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type productRepository struct {
	db *sql.DB
}

var _ domain.ProductRepository = (*productRepository)(nil)

// NewProductRepository создаёт PostgreSQL-реализацию ProductRepository.
func NewProductRepository(store *Store) domain.ProductRepository {
	return &productRepository{db: store.DB()}
}

func (r *productRepository) Create(ctx context.Context, product domain.Product) (domain.Product, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO products (name, category_id, price, stock, active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`, product.Name, product.CategoryID, product.Price, product.Stock, product.Active).Scan(&product.ID)
	if isForeignKeyViolation(err) {
		return domain.Product{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("insert product: %w", err)
	}

	return product, nil
}

func (r *productRepository) Get(ctx context.Context, id int64) (domain.Product, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var product domain.Product
	err := r.db.QueryRowContext(opCtx, `
		SELECT id, name, category_id, price, stock, active
		FROM products
		WHERE id = $1
	`, id).Scan(
		&product.ID, &product.Name, &product.CategoryID,
		&product.Price, &product.Stock, &product.Active,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Product{}, domain.ErrProductNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("query product %d: %w", id, err)
	}

	return product, nil
}

func (r *productRepository) List(ctx context.Context) ([]domain.Product, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(opCtx, `
		SELECT id, name, category_id, price, stock, active
		FROM products
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Product, 0, 32)
	for rows.Next() {
		var product domain.Product
		if err := rows.Scan(
			&product.ID, &product.Name, &product.CategoryID,
			&product.Price, &product.Stock, &product.Active,
		); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		result = append(result, product)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return result, nil
}

func (r *productRepository) Update(ctx context.Context, product domain.Product) (domain.Product, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE products
		SET name = $2, category_id = $3, price = $4, stock = $5, active = $6
		WHERE id = $1
	`, product.ID, product.Name, product.CategoryID, product.Price, product.Stock, product.Active)
	if isForeignKeyViolation(err) {
		return domain.Product{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: %w", product.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product %d: rows affected: %w", product.ID, err)
	}
	if affected == 0 {
		return domain.Product{}, domain.ErrProductNotFound
	}

	return product, nil
}

func (r *productRepository) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `DELETE FROM products WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		// На товар ссылаются строки заказов; история заказов важнее
		// удаления, вместо него товар деактивируют.
		return domain.ErrProductInUse
	}
	if err != nil {
		return fmt.Errorf("delete product %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrProductNotFound
	}

	return nil
}

func (r *productRepository) CountLowStock(ctx context.Context, threshold int) (int, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var count int
	err := r.db.QueryRowContext(opCtx, `
		SELECT COUNT(*)
		FROM products
		WHERE active AND stock < $1
	`, threshold).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count low stock products: %w", err)
	}

	return count, nil
}
