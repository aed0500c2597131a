package domain

import "errors"

var (
	// Ошибки валидации: отклоняются до любой мутации.

	// ErrInvalidQuantity — количество меньше либо равно нулю.
	ErrInvalidQuantity = errors.New("quantity must be greater than zero")
	// ErrInvalidStatus — значение вне перечисления статусов заказа.
	ErrInvalidStatus = errors.New("unknown order status")
	// ErrNameRequired — пустое обязательное имя/название.
	ErrNameRequired = errors.New("name is required")
	// ErrEmailRequired — пустой email покупателя.
	ErrEmailRequired = errors.New("email is required")
	// ErrEmailInvalid — email не похож на адрес.
	ErrEmailInvalid = errors.New("email is not a valid address")
	// ErrPriceNegative — отрицательная цена.
	ErrPriceNegative = errors.New("price must be non-negative")
	// ErrStockNegative — отрицательный остаток.
	ErrStockNegative = errors.New("stock must be non-negative")
	// ErrCustomerRequired — отсутствует ссылка на покупателя.
	ErrCustomerRequired = errors.New("customer_id is required")
	// ErrCategoryRequired — отсутствует ссылка на категорию.
	ErrCategoryRequired = errors.New("category_id is required")
	// ErrTotalNegative — отрицательная сумма заказа.
	ErrTotalNegative = errors.New("order total must be non-negative")
	// ErrTotalMismatch — сумма заказа не сходится с суммой строк.
	ErrTotalMismatch = errors.New("order total does not match lines sum")

	// Ошибки отсутствия записей.

	// ErrCustomerNotFound — покупатель не найден.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrCategoryNotFound — категория не найдена.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrProductNotFound — товар не найден.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound — заказ не найден.
	ErrOrderNotFound = errors.New("order not found")
	// ErrLineNotFound — строка заказа не найдена или принадлежит другому заказу.
	ErrLineNotFound = errors.New("order line not found")
	// ErrNoActiveCart — у покупателя нет pending-заказа.
	ErrNoActiveCart = errors.New("no active cart for customer")

	// Бизнес-ошибки: запись есть, но правило нарушено.

	// ErrProductInactive — товар снят с продажи.
	ErrProductInactive = errors.New("product is inactive")
	// ErrInsufficientStock — запрошено больше, чем доступно на остатке.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart — попытка checkout корзины без строк.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrEmailTaken — email уже занят другим покупателем.
	ErrEmailTaken = errors.New("email already registered")
	// ErrProductInUse — товар нельзя удалить, пока на него ссылаются строки заказов.
	ErrProductInUse = errors.New("product is referenced by order lines")
	// ErrCategoryInUse — категорию нельзя удалить, пока в ней есть товары.
	ErrCategoryInUse = errors.New("category has products")
	// ErrCustomerHasOrders — покупателя нельзя удалить, пока есть его заказы.
	ErrCustomerHasOrders = errors.New("customer has orders")

	// ErrOutboxMessageNotFound — сообщение outbox не найдено.
	ErrOutboxMessageNotFound = errors.New("outbox message not found")

	// ErrCartConflict — конфликт конкурентных транзакций корзины;
	// единственная ошибка, которую имеет смысл повторить.
	ErrCartConflict = errors.New("concurrent cart modification")
)

// IsCartConflict проверяет, является ли ошибка конфликтом конкурентных транзакций.
func IsCartConflict(err error) bool {
	return errors.Is(err, ErrCartConflict)
}
