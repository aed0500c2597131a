package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type categoryRepository struct {
	db *sql.DB
}

var _ domain.CategoryRepository = (*categoryRepository)(nil)

// NewCategoryRepository создаёт PostgreSQL-реализацию CategoryRepository.
func NewCategoryRepository(store *Store) domain.CategoryRepository {
	return &categoryRepository{db: store.DB()}
}

func (r *categoryRepository) Create(ctx context.Context, category domain.Category) (domain.Category, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	err := r.db.QueryRowContext(opCtx, `
		INSERT INTO categories (name, description)
		VALUES ($1, $2)
		RETURNING id
	`, category.Name, category.Description).Scan(&category.ID)
	if err != nil {
		return domain.Category{}, fmt.Errorf("insert category: %w", err)
	}

	return category, nil
}

func (r *categoryRepository) Get(ctx context.Context, id int64) (domain.Category, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var category domain.Category
	err := r.db.QueryRowContext(opCtx, `
		SELECT id, name, description
		FROM categories
		WHERE id = $1
	`, id).Scan(&category.ID, &category.Name, &category.Description)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Category{}, domain.ErrCategoryNotFound
	}
	if err != nil {
		return domain.Category{}, fmt.Errorf("query category %d: %w", id, err)
	}

	return category, nil
}

func (r *categoryRepository) List(ctx context.Context) ([]domain.Category, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.db.QueryContext(opCtx, `
		SELECT id, name, description
		FROM categories
		ORDER BY name, id
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	result := make([]domain.Category, 0, 16)
	for rows.Next() {
		var category domain.Category
		if err := rows.Scan(&category.ID, &category.Name, &category.Description); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		result = append(result, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return result, nil
}

func (r *categoryRepository) Update(ctx context.Context, category domain.Category) (domain.Category, error) {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `
		UPDATE categories
		SET name = $2, description = $3
		WHERE id = $1
	`, category.ID, category.Name, category.Description)
	if err != nil {
		return domain.Category{}, fmt.Errorf("update category %d: %w", category.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return domain.Category{}, fmt.Errorf("update category %d: rows affected: %w", category.ID, err)
	}
	if affected == 0 {
		return domain.Category{}, domain.ErrCategoryNotFound
	}

	return category, nil
}

func (r *categoryRepository) Delete(ctx context.Context, id int64) error {
	opCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	res, err := r.db.ExecContext(opCtx, `DELETE FROM categories WHERE id = $1`, id)
	if isForeignKeyViolation(err) {
		return domain.ErrCategoryInUse
	}
	if err != nil {
		return fmt.Errorf("delete category %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete category %d: rows affected: %w", id, err)
	}
	if affected == 0 {
		return domain.ErrCategoryNotFound
	}

	return nil
}
