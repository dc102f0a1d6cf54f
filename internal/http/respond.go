package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fjod/go_cart/cartstore/internal/checkout"
	"github.com/fjod/go_cart/cartstore/internal/domain"
	"go.uber.org/zap"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Warn("failed to encode response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleError converts cart and checkout errors to HTTP status codes.
func handleError(w http.ResponseWriter, err error) {
	var httpStatus int
	var code string

	switch {
	case errors.Is(err, domain.ErrInvalidQuantity), errors.Is(err, domain.ErrQuantityLimit):
		httpStatus, code = http.StatusBadRequest, "invalid_quantity"
	case errors.Is(err, domain.ErrPersistenceRead):
		httpStatus, code = http.StatusServiceUnavailable, "storage_unavailable"
	case errors.Is(err, domain.ErrInvalidProduct):
		httpStatus, code = http.StatusBadRequest, "invalid_product_id"
	case errors.Is(err, domain.ErrUnknownProduct):
		httpStatus, code = http.StatusNotFound, "product_not_found"
	case errors.Is(err, domain.ErrItemNotFound):
		httpStatus, code = http.StatusNotFound, "not_found"
	case errors.Is(err, checkout.ErrEmptyCart):
		httpStatus, code = http.StatusConflict, "empty_cart"
	case errors.Is(err, checkout.ErrCheckoutInProgress):
		httpStatus, code = http.StatusConflict, "checkout_in_progress"
	case errors.Is(err, checkout.ErrInvalidPaymentMethod):
		httpStatus, code = http.StatusBadRequest, "invalid_payment_method"
	case errors.Is(err, context.DeadlineExceeded):
		httpStatus, code = http.StatusGatewayTimeout, "timeout"
	case errors.Is(err, context.Canceled):
		httpStatus, code = http.StatusServiceUnavailable, "cancelled"
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondError(w, httpStatus, code, err.Error())
}
