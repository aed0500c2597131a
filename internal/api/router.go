// Package api — REST-поверхность back-office поверх chi.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
	"github.com/vladislavdragonenkov/minimarket/internal/service/catalog"
	"github.com/vladislavdragonenkov/minimarket/internal/service/customer"
	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
)

// Services собирает зависимости HTTP-слоя.
type Services struct {
	Carts     *cart.Service
	Customers *customer.Service
	Catalog   *catalog.Service
	Orders    *order.Service
	Lines     *orderline.Service
}

// NewRouter строит chi-роутер со всеми маршрутами back-office.
func NewRouter(services Services, logger *log.Entry) http.Handler {
	if logger == nil {
		logger = log.WithField("component", "api")
	}

	carts := &cartHandler{carts: services.Carts}
	customers := &customerHandler{customers: services.Customers}
	catalogH := &catalogHandler{catalog: services.Catalog}
	orders := &orderHandler{orders: services.Orders}
	lines := &orderLineHandler{lines: services.Lines}
	dashboard := &dashboardHandler{orders: services.Orders}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(requestLogger(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Route("/customers", func(r chi.Router) {
			r.Get("/", customers.list)
			r.Post("/", customers.create)
			r.Get("/{id}", customers.get)
			r.Put("/{id}", customers.update)
			r.Delete("/{id}", customers.delete)

			r.Route("/{customerID}/cart", func(r chi.Router) {
				r.Get("/", carts.get)
				r.Post("/items", carts.addItem)
				r.Put("/items/{lineID}", carts.updateItem)
				r.Delete("/items/{lineID}", carts.removeItem)
				r.Post("/checkout", carts.checkout)
				r.Post("/cancel", carts.cancel)
			})
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", catalogH.listCategories)
			r.Post("/", catalogH.createCategory)
			r.Get("/{id}", catalogH.getCategory)
			r.Put("/{id}", catalogH.updateCategory)
			r.Delete("/{id}", catalogH.deleteCategory)
		})

		r.Route("/products", func(r chi.Router) {
			r.Get("/", catalogH.listProducts)
			r.Post("/", catalogH.createProduct)
			r.Get("/{id}", catalogH.getProduct)
			r.Put("/{id}", catalogH.updateProduct)
			r.Delete("/{id}", catalogH.deleteProduct)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orders.list)
			r.Post("/", orders.create)
			r.Get("/report", orders.report)
			r.Get("/{id}", orders.get)
			r.Put("/{id}", orders.update)
			r.Delete("/{id}", orders.delete)
			r.Patch("/{id}/status", orders.setStatus)
			r.Get("/{id}/report", orders.reportByID)

			r.Route("/{id}/lines", func(r chi.Router) {
				r.Get("/", lines.list)
				r.Post("/", lines.add)
				r.Put("/{lineID}", lines.update)
				r.Delete("/{lineID}", lines.remove)
			})
		})

		r.Get("/dashboard", dashboard.summary)
	})

	return r
}
