package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/vladislavdragonenkov/minimarket/internal/service/cart"
)

type cartHandler struct {
	carts *cart.Service
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GET /api/customers/{customerID}/cart
func (h *cartHandler) get(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	view, err := h.carts.GetOrCreate(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

// POST /api/customers/{customerID}/cart/items
func (h *cartHandler) addItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	view, err := h.carts.AddItem(r.Context(), customerID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

// PUT /api/customers/{customerID}/cart/items/{lineID}
func (h *cartHandler) updateItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	view, err := h.carts.UpdateItem(r.Context(), customerID, lineID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

// DELETE /api/customers/{customerID}/cart/items/{lineID}
func (h *cartHandler) removeItem(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	view, err := h.carts.RemoveItem(r.Context(), customerID, lineID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCartDTO(view))
}

// POST /api/customers/{customerID}/cart/checkout
func (h *cartHandler) checkout(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	order, err := h.carts.Checkout(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}

// POST /api/customers/{customerID}/cart/cancel
func (h *cartHandler) cancel(w http.ResponseWriter, r *http.Request) {
	customerID, ok := pathID(r, "customerID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid customer id")
		return
	}

	order, err := h.carts.Cancel(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(order))
}
