package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vladislavdragonenkov/minimarket/internal/service/order"
)

var (
	errInvalidCustomerID = errors.New("invalid customer_id")
	errInvalidDate       = errors.New("invalid date, expected RFC3339 or YYYY-MM-DD")
)

type dashboardHandler struct {
	orders *order.Service
}

// GET /api/dashboard?customer_id=7&low_stock_threshold=5
func (h *dashboardHandler) summary(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	var customerID int64
	if raw := query.Get("customer_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeError(w, http.StatusBadRequest, errInvalidCustomerID.Error())
			return
		}
		customerID = id
	}

	threshold := 0
	if raw := query.Get("low_stock_threshold"); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			writeError(w, http.StatusBadRequest, "invalid low_stock_threshold")
			return
		}
		threshold = value
	}

	summary, err := h.orders.Dashboard(r.Context(), customerID, threshold)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDashboardDTO(summary))
}
