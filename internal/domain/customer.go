package domain

import (
	"strings"
	"time"
)

// Customer — покупатель. Мутируется только внешним CRUD;
// движок корзины лишь ссылается на него.
type Customer struct {
	ID        int64
	FirstName string
	LastName  string
	// Email уникален без учёта регистра.
	Email     string
	CreatedAt time.Time
}

// FullName возвращает имя для отчётов.
func (c *Customer) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

// Normalize обрезает пробелы в полях перед валидацией и записью.
func (c *Customer) Normalize() {
	c.FirstName = strings.TrimSpace(c.FirstName)
	c.LastName = strings.TrimSpace(c.LastName)
	c.Email = strings.TrimSpace(c.Email)
}

// Validate проверяет поля покупателя перед записью.
func (c *Customer) Validate() []error {
	var errs []error

	if c.FirstName == "" || c.LastName == "" {
		errs = append(errs, ErrNameRequired)
	}
	switch {
	case c.Email == "":
		errs = append(errs, ErrEmailRequired)
	case !strings.Contains(c.Email, "@") || strings.ContainsAny(c.Email, " \t"):
		errs = append(errs, ErrEmailInvalid)
	}

	return errs
}

// NormalizedEmail возвращает email в нижнем регистре для проверки уникальности.
func (c *Customer) NormalizedEmail() string {
	return strings.ToLower(strings.TrimSpace(c.Email))
}
