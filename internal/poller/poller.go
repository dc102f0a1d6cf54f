package poller

import (
	"context"
	"encoding/json"
	"errors"
	"io"

	"github.com/fjod/go_cart/cartstore/internal/checkout"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Reader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Clearer interface {
	Clear(ctx context.Context) error
}

// Poller clears the local cart when another instance sharing the same cart
// key completes a checkout.
type Poller struct {
	cart    Clearer
	reader  Reader
	cartKey string
	origin  string
	logger  *zap.Logger
}

// NewPoller reads checkout events from the brokers. Every instance needs
// every event, so the consumer group is derived from the instance origin.
func NewPoller(cart Clearer, cartKey, origin string, logger *zap.Logger, brokers ...string) *Poller {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    checkout.Topic,
		GroupID:  "cartstore-" + origin,
		MaxBytes: 10e6, // 10MB
	})
	return New(cart, reader, cartKey, origin, logger)
}

func New(cart Clearer, reader Reader, cartKey, origin string, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{cart: cart, reader: reader, cartKey: cartKey, origin: origin, logger: logger}
}

func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := p.handleNext(ctx); errors.Is(err, io.EOF) {
			return
		}
	}
}

func (p *Poller) Close() {
	if err := p.reader.Close(); err != nil {
		p.logger.Warn("error closing reader", zap.Error(err))
	}
}

func (p *Poller) handleNext(ctx context.Context) error {
	m, err := p.reader.ReadMessage(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, io.EOF) {
			p.logger.Warn("error reading message", zap.Error(err))
		}
		return err
	}

	if t := eventType(m); t != "" && t != checkout.EventCompleted {
		return nil
	}

	var event checkout.Event
	if err := json.Unmarshal(m.Value, &event); err != nil {
		p.logger.Warn("error parsing message", zap.Error(err), zap.Int64("offset", m.Offset))
		return nil
	}
	if event.CartKey != p.cartKey || event.Origin == p.origin {
		return nil
	}

	if err := p.cart.Clear(ctx); err != nil {
		p.logger.Error("failed to clear cart", zap.String("order_id", event.OrderID), zap.Error(err))
		return nil
	}
	p.logger.Info("cart cleared after checkout elsewhere",
		zap.String("order_id", event.OrderID), zap.String("origin", event.Origin))
	return nil
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}
