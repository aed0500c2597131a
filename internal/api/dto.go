package api

import (
	"time"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

// Money в ответах отдаётся строкой, чтобы не терять точность decimal.

type lineDTO struct {
	ID          int64  `json:"id"`
	OrderID     int64  `json:"order_id"`
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

type cartDTO struct {
	OrderID    int64     `json:"order_id"`
	CustomerID int64     `json:"customer_id"`
	Total      string    `json:"total"`
	Lines      []lineDTO `json:"lines"`
}

type orderDTO struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Status     string    `json:"status"`
	Total      string    `json:"total"`
	CreatedAt  time.Time `json:"created_at"`
	Lines      []lineDTO `json:"lines"`
}

type orderReportDTO struct {
	OrderID       int64     `json:"order_id"`
	CustomerID    int64     `json:"customer_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
	Status        string    `json:"status"`
	Total         string    `json:"total"`
	Lines         []lineDTO `json:"lines"`
}

type customerDTO struct {
	ID        int64     `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type categoryDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type productDTO struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	CategoryID int64  `json:"category_id"`
	Price      string `json:"price"`
	Stock      int    `json:"stock"`
	Active     bool   `json:"active"`
}

type dashboardDTO struct {
	HasActiveCart     bool   `json:"has_active_cart"`
	TodayOrders       int    `json:"today_orders"`
	TodayRevenue      string `json:"today_revenue"`
	LowStockCount     int    `json:"low_stock_count"`
	LowStockThreshold int    `json:"low_stock_threshold"`
}

func toLineDTO(line domain.OrderLine) lineDTO {
	return lineDTO{
		ID:          line.ID,
		OrderID:     line.OrderID,
		ProductID:   line.ProductID,
		ProductName: line.ProductName,
		Quantity:    line.Quantity,
		UnitPrice:   line.UnitPrice.String(),
		Subtotal:    line.Subtotal.String(),
	}
}

func toLineDTOs(lines []domain.OrderLine) []lineDTO {
	result := make([]lineDTO, 0, len(lines))
	for _, line := range lines {
		result = append(result, toLineDTO(line))
	}
	return result
}

func toCartDTO(cart domain.Cart) cartDTO {
	return cartDTO{
		OrderID:    cart.OrderID,
		CustomerID: cart.CustomerID,
		Total:      cart.Total.String(),
		Lines:      toLineDTOs(cart.Lines),
	}
}

func toOrderDTO(order domain.Order) orderDTO {
	return orderDTO{
		ID:         order.ID,
		CustomerID: order.CustomerID,
		Status:     string(order.Status),
		Total:      order.Total.String(),
		CreatedAt:  order.CreatedAt,
		Lines:      toLineDTOs(order.Lines),
	}
}

func toOrderDTOs(orders []domain.Order) []orderDTO {
	result := make([]orderDTO, 0, len(orders))
	for _, order := range orders {
		result = append(result, toOrderDTO(order))
	}
	return result
}

func toOrderReportDTO(report domain.OrderReport) orderReportDTO {
	return orderReportDTO{
		OrderID:       report.OrderID,
		CustomerID:    report.CustomerID,
		CustomerName:  report.CustomerName,
		CustomerEmail: report.CustomerEmail,
		CreatedAt:     report.CreatedAt,
		Status:        string(report.Status),
		Total:         report.Total.String(),
		Lines:         toLineDTOs(report.Lines),
	}
}

func toCustomerDTO(customer domain.Customer) customerDTO {
	return customerDTO{
		ID:        customer.ID,
		FirstName: customer.FirstName,
		LastName:  customer.LastName,
		Email:     customer.Email,
		CreatedAt: customer.CreatedAt,
	}
}

func toCategoryDTO(category domain.Category) categoryDTO {
	return categoryDTO{
		ID:          category.ID,
		Name:        category.Name,
		Description: category.Description,
	}
}

func toProductDTO(product domain.Product) productDTO {
	return productDTO{
		ID:         product.ID,
		Name:       product.Name,
		CategoryID: product.CategoryID,
		Price:      product.Price.String(),
		Stock:      product.Stock,
		Active:     product.Active,
	}
}

func toDashboardDTO(summary domain.DashboardSummary) dashboardDTO {
	return dashboardDTO{
		HasActiveCart:     summary.HasActiveCart,
		TodayOrders:       summary.TodayOrders,
		TodayRevenue:      summary.TodayRevenue.String(),
		LowStockCount:     summary.LowStockCount,
		LowStockThreshold: summary.LowStockThreshold,
	}
}
