package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/checkout"
	"github.com/fjod/go_cart/cartstore/internal/domain"
)

type Checkout interface {
	PlaceOrder(ctx context.Context, req checkout.Request) (*checkout.Order, error)
}

type CheckoutHandler struct {
	checkout Checkout
	timeout  time.Duration
}

func NewCheckoutHandler(c Checkout, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: c,
		timeout:  timeout,
	}
}

type PlaceOrderRequestDTO struct {
	PaymentMethod string `json:"payment_method"`
}

type OrderResponseDTO struct {
	OrderID       string    `json:"order_id"`
	PaymentMethod string    `json:"payment_method"`
	ItemCount     int       `json:"item_count"`
	Total         string    `json:"total"`
	PlacedAt      time.Time `json:"placed_at"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	var req PlaceOrderRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	order, err := h.checkout.PlaceOrder(ctx, checkout.Request{PaymentMethod: req.PaymentMethod})
	if err != nil {
		handleError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, OrderResponseDTO{
		OrderID:       order.ID,
		PaymentMethod: order.PaymentMethod,
		ItemCount:     order.Totals.ItemCount,
		Total:         domain.Display(order.Totals.Total),
		PlacedAt:      order.PlacedAt,
	})
}
