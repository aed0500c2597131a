package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
)

type orderHandler struct {
	orders *order.Service
}

type orderRequest struct {
	CustomerID int64  `json:"customer_id"`
	Status     string `json:"status"`
	// CreatedAt опционален; пустое значение означает "сейчас".
	CreatedAt *time.Time `json:"created_at"`
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *orderHandler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orders.List(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTOs(orders))
}

func (h *orderHandler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, err := h.orders.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

func (h *orderHandler) create(w http.ResponseWriter, r *http.Request) {
	o, ok := h.decodeOrder(w, r, 0)
	if !ok {
		return
	}

	created, err := h.orders.Create(r.Context(), o)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderDTO(created))
}

func (h *orderHandler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	o, ok := h.decodeOrder(w, r, id)
	if !ok {
		return
	}

	updated, err := h.orders.Update(r.Context(), o)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(updated))
}

func (h *orderHandler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.orders.Delete(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// PATCH /api/orders/{id}/status — административная смена статуса
// без стоковых эффектов.
func (h *orderHandler) setStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var req setStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}

	o, err := h.orders.SetStatus(r.Context(), id, req.Status)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderDTO(o))
}

// GET /api/orders/report?from=2026-01-01&to=2026-01-31&customer_id=7
func (h *orderHandler) report(w http.ResponseWriter, r *http.Request) {
	filter, err := parseReportFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	reports, err := h.orders.Report(r.Context(), filter)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result := make([]orderReportDTO, 0, len(reports))
	for _, report := range reports {
		result = append(result, toOrderReportDTO(report))
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *orderHandler) reportByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	report, err := h.orders.ReportByID(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderReportDTO(report))
}

func (h *orderHandler) decodeOrder(w http.ResponseWriter, r *http.Request, id int64) (domain.Order, bool) {
	var req orderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid json body")
		return domain.Order{}, false
	}

	o := domain.Order{
		ID:         id,
		CustomerID: req.CustomerID,
		Status:     domain.OrderStatus(req.Status),
	}
	if req.CreatedAt != nil {
		o.CreatedAt = req.CreatedAt.UTC()
	}
	return o, true
}

func parseReportFilter(r *http.Request) (domain.ReportFilter, error) {
	var filter domain.ReportFilter
	query := r.URL.Query()

	if raw := query.Get("from"); raw != "" {
		from, err := parseDateParam(raw)
		if err != nil {
			return domain.ReportFilter{}, err
		}
		filter.From = &from
	}
	if raw := query.Get("to"); raw != "" {
		to, err := parseDateParam(raw)
		if err != nil {
			return domain.ReportFilter{}, err
		}
		filter.To = &to
	}
	if raw := query.Get("customer_id"); raw != "" {
		customerID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || customerID <= 0 {
			return domain.ReportFilter{}, errInvalidCustomerID
		}
		filter.CustomerID = customerID
	}

	return filter, nil
}

func parseDateParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, errInvalidDate
	}
	return t.UTC(), nil
}
