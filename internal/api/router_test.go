package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/minimarket/internal/api"
	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
	"github.com/vladislavdragonenkov/minimarket/internal/service/catalog"
	"github.com/vladislavdragonenkov/minimarket/internal/service/customer"
	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
	"github.com/vladislavdragonenkov/minimarket/internal/storage/memory"
)

type env struct {
	server     *httptest.Server
	customerID int64
	productID  int64
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	entry := logger.WithField("test", true)

	store := memory.NewStore()
	customers := memory.NewCustomerRepository(store)
	products := memory.NewProductRepository(store)
	lines := orderline.NewService(store, entry)

	services := api.Services{
		Carts:     cart.NewService(store, lines, nil, entry),
		Customers: customer.NewService(customers, entry),
		Catalog:   catalog.NewService(memory.NewCategoryRepository(store), products, entry),
		Orders:    order.NewService(memory.NewOrderRepository(store), customers, products, entry),
		Lines:     lines,
	}

	category, err := memory.NewCategoryRepository(store).Create(ctx, domain.Category{Name: "drinks"})
	require.NoError(t, err)
	product, err := products.Create(ctx, domain.Product{
		Name:       "water",
		CategoryID: category.ID,
		Price:      decimal.NewFromFloat(1.50),
		Stock:      10,
		Active:     true,
	})
	require.NoError(t, err)
	cust, err := customers.Create(ctx, domain.Customer{
		FirstName: "Ivan",
		LastName:  "Petrov",
		Email:     "ivan@example.com",
	})
	require.NoError(t, err)

	server := httptest.NewServer(api.NewRouter(services, entry))
	t.Cleanup(server.Close)

	return &env{server: server, customerID: cust.ID, productID: product.ID}
}

func (e *env) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, e.server.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	payload, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	return resp, payload
}

type cartResponse struct {
	OrderID    int64  `json:"order_id"`
	CustomerID int64  `json:"customer_id"`
	Total      string `json:"total"`
	Lines      []struct {
		ID          int64  `json:"id"`
		ProductID   int64  `json:"product_id"`
		ProductName string `json:"product_name"`
		Quantity    int    `json:"quantity"`
		Subtotal    string `json:"subtotal"`
	} `json:"lines"`
}

func TestCartFlowOverHTTP(t *testing.T) {
	e := newEnv(t)
	base := fmt.Sprintf("/api/customers/%d/cart", e.customerID)

	// Пустая корзина до первого добавления: order_id ещё не назначен.
	resp, payload := e.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view cartResponse
	require.NoError(t, json.Unmarshal(payload, &view))
	require.Zero(t, view.OrderID)
	require.Empty(t, view.Lines)

	resp, payload = e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &view))
	require.NotZero(t, view.OrderID)
	require.Len(t, view.Lines, 1)
	require.Equal(t, 2, view.Lines[0].Quantity)
	require.Equal(t, "3", view.Total)

	// Повторное добавление того же товара сливается в одну строку.
	resp, payload = e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &view))
	require.Len(t, view.Lines, 1)
	require.Equal(t, 3, view.Lines[0].Quantity)

	lineID := view.Lines[0].ID
	resp, payload = e.do(t, http.MethodPut, fmt.Sprintf("%s/items/%d", base, lineID), map[string]any{
		"quantity": 5,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &view))
	require.Equal(t, 5, view.Lines[0].Quantity)
	require.Equal(t, "7.5", view.Total)

	resp, payload = e.do(t, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var completed struct {
		Status string `json:"status"`
		Total  string `json:"total"`
	}
	require.NoError(t, json.Unmarshal(payload, &completed))
	require.Equal(t, "completed", completed.Status)
	require.Equal(t, "7.5", completed.Total)
}

func TestCartErrorStatuses(t *testing.T) {
	e := newEnv(t)
	base := fmt.Sprintf("/api/customers/%d/cart", e.customerID)

	// Превышение остатка.
	resp, _ := e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   11,
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Нулевое количество.
	resp, _ = e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   0,
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Несуществующий товар.
	resp, _ = e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID + 100,
		"quantity":   1,
	})
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Checkout без открытой корзины.
	resp, _ = e.do(t, http.MethodPost, base+"/checkout", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	// Несуществующий покупатель.
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%d/cart", e.customerID+100), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCustomerEndpoints(t *testing.T) {
	e := newEnv(t)

	resp, payload := e.do(t, http.MethodPost, "/api/customers", map[string]any{
		"first_name": "Petr",
		"last_name":  "Ivanov",
		"email":      "petr@example.com",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created struct {
		ID    int64  `json:"id"`
		Email string `json:"email"`
	}
	require.NoError(t, json.Unmarshal(payload, &created))
	require.NotZero(t, created.ID)

	// Повтор email даёт конфликт.
	resp, _ = e.do(t, http.MethodPost, "/api/customers", map[string]any{
		"first_name": "Petr",
		"last_name":  "Ivanov",
		"email":      "PETR@example.com",
	})
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	// Пустое имя — ошибка валидации.
	resp, _ = e.do(t, http.MethodPost, "/api/customers", map[string]any{
		"email": "new@example.com",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("/api/customers/%d", created.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/customers/%d", created.ID), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestOrderStatusOverrideEndpoint(t *testing.T) {
	e := newEnv(t)
	base := fmt.Sprintf("/api/customers/%d/cart", e.customerID)

	resp, payload := e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view cartResponse
	require.NoError(t, json.Unmarshal(payload, &view))

	resp, payload = e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", view.OrderID), map[string]any{
		"status": "completed",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(payload, &updated))
	require.Equal(t, "completed", updated.Status)

	resp, _ = e.do(t, http.MethodPatch, fmt.Sprintf("/api/orders/%d/status", view.OrderID), map[string]any{
		"status": "shipped",
	})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestOrderLineEndpoints(t *testing.T) {
	e := newEnv(t)
	base := fmt.Sprintf("/api/customers/%d/cart", e.customerID)

	resp, payload := e.do(t, http.MethodPost, base+"/items", map[string]any{
		"product_id": e.productID,
		"quantity":   2,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var view cartResponse
	require.NoError(t, json.Unmarshal(payload, &view))
	linesBase := fmt.Sprintf("/api/orders/%d/lines", view.OrderID)

	// Прямое добавление того же товара сливается в существующую строку.
	resp, payload = e.do(t, http.MethodPost, linesBase, map[string]any{
		"product_id": e.productID,
		"quantity":   3,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var line struct {
		ID       int64  `json:"id"`
		Quantity int    `json:"quantity"`
		Subtotal string `json:"subtotal"`
	}
	require.NoError(t, json.Unmarshal(payload, &line))
	require.Equal(t, view.Lines[0].ID, line.ID)
	require.Equal(t, 5, line.Quantity)

	resp, payload = e.do(t, http.MethodGet, linesBase, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var listed []struct {
		ID       int64 `json:"id"`
		Quantity int   `json:"quantity"`
	}
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Len(t, listed, 1)
	require.Equal(t, 5, listed[0].Quantity)

	resp, payload = e.do(t, http.MethodPut, fmt.Sprintf("%s/%d", linesBase, line.ID), map[string]any{
		"quantity": 1,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &line))
	require.Equal(t, 1, line.Quantity)

	resp, _ = e.do(t, http.MethodDelete, fmt.Sprintf("%s/%d", linesBase, line.ID), nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, payload = e.do(t, http.MethodGet, linesBase, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(payload, &listed))
	require.Empty(t, listed)

	// Несуществующий заказ.
	resp, _ = e.do(t, http.MethodGet, fmt.Sprintf("/api/orders/%d/lines", view.OrderID+100), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDashboardEndpoint(t *testing.T) {
	e := newEnv(t)

	resp, payload := e.do(t, http.MethodGet, fmt.Sprintf("/api/dashboard?customer_id=%d", e.customerID), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		HasActiveCart     bool `json:"has_active_cart"`
		LowStockThreshold int  `json:"low_stock_threshold"`
	}
	require.NoError(t, json.Unmarshal(payload, &summary))
	require.False(t, summary.HasActiveCart)
	require.Equal(t, 5, summary.LowStockThreshold)

	resp, _ = e.do(t, http.MethodGet, "/api/dashboard?customer_id=abc", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
