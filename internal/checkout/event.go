package checkout

import (
	"time"

	"github.com/fjod/go_cart/cartstore/internal/domain"
)

const (
	Topic          = "checkout-outbox"
	EventCompleted = "checkout.completed"
)

// Event is the payload published on Topic once an order is placed. CartKey
// and Origin let other instances sharing the cart clear their copy while the
// placing instance ignores its own event.
type Event struct {
	OrderID       string            `json:"order_id"`
	CartKey       string            `json:"cart_key"`
	Origin        string            `json:"origin"`
	Items         []domain.LineItem `json:"items"`
	Subtotal      string            `json:"subtotal"`
	Tax           string            `json:"tax"`
	TotalAmount   string            `json:"total_amount"`
	PaymentMethod string            `json:"payment_method"`
	CompletedAt   time.Time         `json:"completed_at"`
}
