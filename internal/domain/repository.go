package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// CategoryRepository описывает требования к хранилищу категорий.
type CategoryRepository interface {
	Create(ctx context.Context, category Category) (Category, error)
	// Get возвращает категорию или ErrCategoryNotFound.
	Get(ctx context.Context, id int64) (Category, error)
	List(ctx context.Context) ([]Category, error)
	Update(ctx context.Context, category Category) (Category, error)
	// Delete возвращает ErrCategoryInUse, пока в категории есть товары.
	Delete(ctx context.Context, id int64) error
}

// ProductRepository описывает требования к хранилищу товаров.
// Сток здесь только читается и задаётся CRUD-ом; резервирование под заказы
// идёт исключительно через CartTx.
type ProductRepository interface {
	Create(ctx context.Context, product Product) (Product, error)
	// Get возвращает товар или ErrProductNotFound.
	Get(ctx context.Context, id int64) (Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, product Product) (Product, error)
	// Delete возвращает ErrProductInUse, пока на товар ссылаются строки заказов.
	Delete(ctx context.Context, id int64) error
	// CountLowStock считает активные товары с остатком ниже порога.
	CountLowStock(ctx context.Context, threshold int) (int, error)
}

// CustomerRepository описывает требования к хранилищу покупателей.
type CustomerRepository interface {
	// Create возвращает ErrEmailTaken, если email уже занят (без учёта регистра).
	Create(ctx context.Context, customer Customer) (Customer, error)
	// Get возвращает покупателя или ErrCustomerNotFound.
	Get(ctx context.Context, id int64) (Customer, error)
	List(ctx context.Context) ([]Customer, error)
	Update(ctx context.Context, customer Customer) (Customer, error)
	// Delete возвращает ErrCustomerHasOrders, пока у покупателя есть заказы.
	Delete(ctx context.Context, id int64) error
}

// ReportFilter ограничивает выборку отчёта по заказам.
type ReportFilter struct {
	// From/To задают включительный интервал по дате создания; nil — без границы.
	From *time.Time
	To   *time.Time
	// CustomerID фильтрует по покупателю; 0 — все покупатели.
	CustomerID int64
}

// OrderReport — строка отчёта: заказ с данными покупателя и названиями товаров.
type OrderReport struct {
	OrderID       int64
	CustomerID    int64
	CustomerName  string
	CustomerEmail string
	CreatedAt     time.Time
	Status        OrderStatus
	Total         decimal.Decimal
	Lines         []OrderLine
}

// DashboardSummary — сводка для главного экрана back-office.
type DashboardSummary struct {
	// HasActiveCart — есть ли pending-заказ у выбранного покупателя.
	HasActiveCart bool
	// TodayOrders и TodayRevenue считаются по заказам со статусом completed за сегодня (UTC).
	TodayOrders  int
	TodayRevenue decimal.Decimal
	// LowStockCount — активные товары с остатком ниже LowStockThreshold.
	LowStockCount     int
	LowStockThreshold int
}

// OrderRepository описывает административный доступ к заказам вне потока корзины.
type OrderRepository interface {
	Create(ctx context.Context, order Order) (Order, error)
	// Get возвращает заказ со строками или ErrOrderNotFound.
	Get(ctx context.Context, id int64) (Order, error)
	List(ctx context.Context) ([]Order, error)
	// Update меняет покупателя, дату и статус; сумма пересчитывается по строкам,
	// значение от клиента игнорируется.
	Update(ctx context.Context, order Order) (Order, error)
	// Delete удаляет заказ каскадно со строками, вернув сток каждой строки товару.
	Delete(ctx context.Context, id int64) error
	// SetStatus пишет статус напрямую, без стоковых эффектов.
	// Административный обход state machine корзины: принудительный перевод
	// в cancelled этим путём НЕ возвращает сток, в отличие от Cancel.
	SetStatus(ctx context.Context, id int64, status OrderStatus) (Order, error)
	Report(ctx context.Context, filter ReportFilter) ([]OrderReport, error)
	ReportByID(ctx context.Context, id int64) (OrderReport, error)
	// HasPendingOrder нужен для сводки dashboard.
	HasPendingOrder(ctx context.Context, customerID int64) (bool, error)
	// CompletedStats считает количество и выручку completed-заказов в интервале [from, to).
	CompletedStats(ctx context.Context, from, to time.Time) (int, decimal.Decimal, error)
}

// CartTx — набор примитивов, доступных внутри одной транзакции корзины.
// Каждый метод соответствует одному запросу к хранилищу; вся арифметика
// стока и сумм остаётся в сервисах.
type CartTx interface {
	// LockCustomerCart сериализует мутации корзины одного покупателя
	// до конца транзакции.
	LockCustomerCart(ctx context.Context, customerID int64) error
	CustomerExists(ctx context.Context, customerID int64) (bool, error)
	// PendingOrder возвращает pending-заказ покупателя со строками
	// или ErrNoActiveCart.
	PendingOrder(ctx context.Context, customerID int64) (Order, error)
	// InsertPendingOrder создаёт pending-заказ с нулевой суммой; конкурентная
	// вставка для того же покупателя даёт ErrCartConflict.
	InsertPendingOrder(ctx context.Context, customerID int64, createdAt time.Time) (Order, error)
	// OrderByID возвращает заказ со строками или ErrOrderNotFound.
	OrderByID(ctx context.Context, orderID int64) (Order, error)
	// ProductForUpdate читает товар под блокировкой строки до конца транзакции.
	ProductForUpdate(ctx context.Context, productID int64) (Product, error)
	SetProductStock(ctx context.Context, productID int64, stock int) error
	// LineByID возвращает строку заказа или ErrLineNotFound.
	LineByID(ctx context.Context, orderID, lineID int64) (OrderLine, error)
	// LineByProduct возвращает строку заказа для товара или ErrLineNotFound.
	LineByProduct(ctx context.Context, orderID, productID int64) (OrderLine, error)
	InsertLine(ctx context.Context, line OrderLine) (OrderLine, error)
	UpdateLine(ctx context.Context, line OrderLine) error
	DeleteLine(ctx context.Context, orderID, lineID int64) error
	// LinesTotal суммирует subtotal строк заказа на стороне хранилища.
	LinesTotal(ctx context.Context, orderID int64) (decimal.Decimal, error)
	SetOrderTotal(ctx context.Context, orderID int64, total decimal.Decimal) error
	SetOrderStatus(ctx context.Context, orderID int64, status OrderStatus) error
	// EnqueueOutbox ставит событие в transactional outbox той же транзакцией.
	EnqueueOutbox(ctx context.Context, msg OutboxMessage) error
}

// CartStore исполняет fn в одной транзакции: все мутации fn либо
// фиксируются вместе, либо вместе откатываются.
type CartStore interface {
	WithinCart(ctx context.Context, fn func(tx CartTx) error) error
}
