// Package checkout places mocked orders: no payment is taken, the cart is
// snapshotted, a processing delay is simulated and the cart is cleared.
package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const DefaultDelay = 2 * time.Second

const (
	PaymentCard        = "card"
	PaymentCOD         = "cod"
	PaymentBankAccount = "bankAccount"
)

func ValidPaymentMethod(m string) bool {
	switch m {
	case PaymentCard, PaymentCOD, PaymentBankAccount:
		return true
	}
	return false
}

// Cart is the part of the cart service checkout needs.
type Cart interface {
	Snapshot(ctx context.Context) domain.Snapshot
	Clear(ctx context.Context) error
}

type Request struct {
	PaymentMethod string `json:"payment_method"`
}

type Order struct {
	ID            string            `json:"order_id"`
	Items         []domain.LineItem `json:"items"`
	Totals        domain.Totals     `json:"totals"`
	PaymentMethod string            `json:"payment_method"`
	PlacedAt      time.Time         `json:"placed_at"`
}

type Service struct {
	cart      Cart
	publisher Publisher
	logger    *zap.Logger
	delay     time.Duration
	cartKey   string
	origin    string
	now       func() time.Time

	mu      sync.Mutex
	placing bool
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithDelay(d time.Duration) Option {
	return func(s *Service) { s.delay = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithIdentity names the cart and the instance in published events.
func WithIdentity(cartKey, origin string) Option {
	return func(s *Service) {
		s.cartKey = cartKey
		s.origin = origin
	}
}

func NewService(cart Cart, opts ...Option) *Service {
	s := &Service{
		cart:   cart,
		logger: zap.NewNop(),
		delay:  DefaultDelay,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PlaceOrder checks out the current cart. The cart is cleared exactly once
// per placed order; a cancelled ctx during processing leaves it untouched.
func (s *Service) PlaceOrder(ctx context.Context, req Request) (*Order, error) {
	if !ValidPaymentMethod(req.PaymentMethod) {
		return nil, ErrInvalidPaymentMethod
	}

	s.mu.Lock()
	if s.placing {
		s.mu.Unlock()
		return nil, ErrCheckoutInProgress
	}
	s.placing = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.placing = false
		s.mu.Unlock()
	}()

	snapshot := s.cart.Snapshot(ctx)
	if len(snapshot.Items) == 0 {
		return nil, ErrEmptyCart
	}

	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		}
	}

	order := &Order{
		ID:            uuid.NewString(),
		Items:         snapshot.Items,
		Totals:        snapshot.Totals,
		PaymentMethod: req.PaymentMethod,
		PlacedAt:      s.now(),
	}

	if err := s.cart.Clear(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("order placed",
		zap.String("order_id", order.ID),
		zap.Int("items", order.Totals.ItemCount),
		zap.String("total", domain.Display(order.Totals.Total)))

	if s.publisher != nil {
		if err := s.publisher.Publish(context.WithoutCancel(ctx), s.event(order)); err != nil {
			s.logger.Warn("failed to publish checkout event",
				zap.String("order_id", order.ID), zap.Error(err))
		}
	}
	return order, nil
}

func (s *Service) event(o *Order) Event {
	return Event{
		OrderID:       o.ID,
		CartKey:       s.cartKey,
		Origin:        s.origin,
		Items:         o.Items,
		Subtotal:      domain.Display(o.Totals.Subtotal),
		Tax:           domain.Display(o.Totals.Tax),
		TotalAmount:   domain.Display(o.Totals.Total),
		PaymentMethod: o.PaymentMethod,
		CompletedAt:   o.PlacedAt,
	}
}
