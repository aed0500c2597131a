package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/vladislavdragonenkov/minimarket/internal/domain"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError транслирует доменную ошибку в HTTP-статус.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

var (
	validationErrors = []error{
		domain.ErrInvalidQuantity,
		domain.ErrInvalidStatus,
		domain.ErrNameRequired,
		domain.ErrEmailRequired,
		domain.ErrEmailInvalid,
		domain.ErrPriceNegative,
		domain.ErrStockNegative,
		domain.ErrCustomerRequired,
		domain.ErrCategoryRequired,
		domain.ErrTotalNegative,
	}
	notFoundErrors = []error{
		domain.ErrCustomerNotFound,
		domain.ErrCategoryNotFound,
		domain.ErrProductNotFound,
		domain.ErrOrderNotFound,
		domain.ErrLineNotFound,
		domain.ErrNoActiveCart,
	}
	conflictErrors = []error{
		domain.ErrProductInactive,
		domain.ErrInsufficientStock,
		domain.ErrEmptyCart,
		domain.ErrEmailTaken,
		domain.ErrProductInUse,
		domain.ErrCategoryInUse,
		domain.ErrCustomerHasOrders,
		domain.ErrCartConflict,
	}
)

func statusForError(err error) int {
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusBadRequest
		}
	}
	for _, target := range notFoundErrors {
		if errors.Is(err, target) {
			return http.StatusNotFound
		}
	}
	for _, target := range conflictErrors {
		if errors.Is(err, target) {
			return http.StatusConflict
		}
	}
	return http.StatusInternalServerError
}
