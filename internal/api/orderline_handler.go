package api

import (
	"encoding/json"
	"net/http"

	"github.com/vladislavdragonenkov/minimarket/internal/service/orderline"
)

type orderLineHandler struct {
	lines *orderline.Service
}

type addLineRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateLineRequest struct {
	Quantity int `json:"quantity"`
}

// GET /api/orders/{id}/lines
func (h *orderLineHandler) list(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	lines, err := h.lines.ListByOrder(r.Context(), orderID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTOs(lines))
}

// POST /api/orders/{id}/lines
func (h *orderLineHandler) add(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req addLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	line, err := h.lines.Add(r.Context(), orderID, req.ProductID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toLineDTO(line))
}

// PUT /api/orders/{id}/lines/{lineID}
func (h *orderLineHandler) update(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	var req updateLineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	line, err := h.lines.UpdateQuantity(r.Context(), orderID, lineID, req.Quantity)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toLineDTO(line))
}

// DELETE /api/orders/{id}/lines/{lineID}
func (h *orderLineHandler) remove(w http.ResponseWriter, r *http.Request) {
	orderID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}
	lineID, ok := pathID(r, "lineID")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid line id")
		return
	}

	if err := h.lines.Remove(r.Context(), orderID, lineID); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
