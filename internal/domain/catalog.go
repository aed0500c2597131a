package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Category группирует товары каталога.
type Category struct {
	ID          int64
	Name        string
	Description string
}

// Validate проверяет поля категории перед записью.
func (c *Category) Validate() []error {
	var errs []error
	if strings.TrimSpace(c.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	return errs
}

// Product — товар каталога. Сток мутируется только движком строк заказа;
// остальные поля принадлежат CRUD каталога.
type Product struct {
	ID         int64
	Name       string
	CategoryID int64
	// Price — цена за единицу, неотрицательная, с двумя знаками после запятой.
	Price decimal.Decimal
	// Stock — доступный остаток; никогда не уходит в минус.
	Stock  int
	Active bool
}

// Validate проверяет поля товара перед записью.
func (p *Product) Validate() []error {
	var errs []error

	if strings.TrimSpace(p.Name) == "" {
		errs = append(errs, ErrNameRequired)
	}
	if p.CategoryID <= 0 {
		errs = append(errs, ErrCategoryRequired)
	}
	if p.Price.IsNegative() {
		errs = append(errs, ErrPriceNegative)
	}
	if p.Stock < 0 {
		errs = append(errs, ErrStockNegative)
	}

	return errs
}
