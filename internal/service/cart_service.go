package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/fjod/go_cart/cartstore/internal/logger"
	"github.com/fjod/go_cart/cartstore/internal/notify"
	"github.com/fjod/go_cart/cartstore/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

const (
	warnUnsaved    = "your cart could not be saved on this device; changes are kept until you leave"
	warnUnreadable = "your saved cart could not be read"
)

// Persister is the durable side of the cart.
type Persister interface {
	Key() string
	Load(ctx context.Context) ([]domain.LineItem, error)
	Save(ctx context.Context, items []domain.LineItem) error
	Clear(ctx context.Context) error
}

// CartService owns the one cart of this device. The in-memory list is the
// source of truth; every mutation writes the whole list through and then
// signals subscribers.
type CartService struct {
	store    Persister
	notifier *notify.Broadcaster
	logger   *zap.Logger
	timeout  time.Duration
	maxQty   int
	sfg      singleflight.Group // one backend read for concurrent cold loads

	mu       sync.Mutex
	items    []domain.LineItem
	warm     bool
	degraded bool
	warning  string
}

type Option func(*CartService)

// WithStorageTimeout bounds every storage call. Zero means no bound.
func WithStorageTimeout(d time.Duration) Option {
	return func(s *CartService) { s.timeout = d }
}

// WithMaxQuantity caps the quantity of a single line. Zero means no cap.
func WithMaxQuantity(n int) Option {
	return func(s *CartService) { s.maxQty = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(s *CartService) { s.logger = l }
}

func NewCartService(store Persister, notifier *notify.Broadcaster, opts ...Option) *CartService {
	s := &CartService{
		store:    store,
		notifier: notifier,
		logger:   zap.NewNop(),
		timeout:  time.Second,
		items:    []domain.LineItem{},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = notify.NewBroadcaster()
	}
	return s
}

// Subscribe registers a view for change signals.
func (s *CartService) Subscribe() *notify.Subscription {
	return s.notifier.Subscribe()
}

func (s *CartService) AddItem(ctx context.Context, product domain.Product, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if product.ID <= 0 {
		return domain.ErrInvalidProduct
	}

	return s.mutate(ctx, "add item", func(items []domain.LineItem) ([]domain.LineItem, bool, error) {
		for i := range items {
			if items[i].Product.ID == product.ID {
				if s.overLimit(items[i].Quantity + quantity) {
					return nil, false, domain.ErrQuantityLimit
				}
				items[i].Quantity += quantity
				return items, true, nil
			}
		}
		if s.overLimit(quantity) {
			return nil, false, domain.ErrQuantityLimit
		}
		return append(items, domain.LineItem{Product: product, Quantity: quantity}), true, nil
	})
}

// SetQuantity changes the quantity of an existing line. Quantities below 1 are
// rejected; dropping a line goes through RemoveItem.
func (s *CartService) SetQuantity(ctx context.Context, productID int64, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	if s.overLimit(quantity) {
		return domain.ErrQuantityLimit
	}

	return s.mutate(ctx, "set quantity", func(items []domain.LineItem) ([]domain.LineItem, bool, error) {
		for i := range items {
			if items[i].Product.ID != productID {
				continue
			}
			if items[i].Quantity == quantity {
				return items, false, nil
			}
			items[i].Quantity = quantity
			return items, true, nil
		}
		return nil, false, domain.ErrItemNotFound
	})
}

// RemoveItem drops a line. Removing an absent product does nothing.
func (s *CartService) RemoveItem(ctx context.Context, productID int64) error {
	return s.mutate(ctx, "remove item", func(items []domain.LineItem) ([]domain.LineItem, bool, error) {
		for i := range items {
			if items[i].Product.ID == productID {
				return append(items[:i], items[i+1:]...), true, nil
			}
		}
		return items, false, nil
	})
}

// Clear empties the cart and deletes the persisted entry.
func (s *CartService) Clear(ctx context.Context) error {
	s.mu.Lock()
	s.items = []domain.LineItem{}
	s.warm = true
	s.persistLocked(ctx, "clear", s.store.Clear)
	s.mu.Unlock()

	s.notifier.Notify()
	return nil
}

func (s *CartService) GetItems(ctx context.Context) []domain.LineItem {
	s.ensureWarm(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	return domain.CloneItems(s.items)
}

func (s *CartService) GetTotals(ctx context.Context) domain.Totals {
	return domain.ComputeTotals(s.GetItems(ctx))
}

// Snapshot returns items, totals and the degraded-mode flag read together.
func (s *CartService) Snapshot(ctx context.Context) domain.Snapshot {
	s.ensureWarm(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	items := domain.CloneItems(s.items)
	return domain.Snapshot{
		Items:    items,
		Totals:   domain.ComputeTotals(items),
		Degraded: s.degraded,
		Warning:  s.warning,
	}
}

// HandleExternalChange applies a write another context made to the persisted
// cart. value is the new persisted value, nil when it was removed. When it
// matches what this service already holds nothing is reloaded or signalled.
func (s *CartService) HandleExternalChange(value []byte) {
	items := []domain.LineItem{}
	if value != nil {
		decoded, err := repository.Decode(value)
		if err != nil {
			s.logger.Warn("corrupt cart state from another context, starting empty",
				zap.String("key", s.store.Key()), zap.Error(err))
		} else {
			items = decoded
		}
	}

	s.mu.Lock()
	if s.warm && domain.EqualItems(s.items, items) {
		s.mu.Unlock()
		return
	}
	s.items = items
	s.warm = true
	s.degraded = false
	s.warning = ""
	s.mu.Unlock()

	s.logger.Debug("cart changed in another context", zap.Int("lines", len(items)))
	s.notifier.Notify()
}

// WatchExternal feeds storage events from other contexts into the service
// until ctx is done.
func (s *CartService) WatchExternal(ctx context.Context, w repository.Watcher) error {
	return w.Watch(ctx, s.store.Key(), func(ev repository.StorageEvent) {
		s.HandleExternalChange(ev.Value)
	})
}

func (s *CartService) overLimit(quantity int) bool {
	return s.maxQty > 0 && quantity > s.maxQty
}

type mutation func(items []domain.LineItem) ([]domain.LineItem, bool, error)

// mutate applies fn to the loaded cart. While the persisted cart cannot be
// read, mutations are refused so a write never replaces data that was not
// seen.
func (s *CartService) mutate(ctx context.Context, op string, fn mutation) error {
	if err := s.ensureWarm(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	next, changed, err := fn(domain.CloneItems(s.items))
	if err != nil || !changed {
		s.mu.Unlock()
		return err
	}
	s.items = next
	s.warm = true
	s.persistLocked(ctx, op, func(ctx context.Context) error {
		return s.store.Save(ctx, next)
	})
	s.mu.Unlock()

	s.notifier.Notify()
	return nil
}

// persistLocked runs one write. A failure keeps the in-memory cart and flags
// degraded mode; the next mutation writes the full list again.
func (s *CartService) persistLocked(ctx context.Context, op string, write func(context.Context) error) {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	if err := write(ctx); err != nil {
		logger.WithContext(ctx, s.logger).Warn("cart persistence failed",
			zap.String("op", op),
			zap.String("key", s.store.Key()),
			zap.Error(err))
		s.degraded = true
		s.warning = warnUnsaved
		return
	}
	if s.degraded {
		logger.WithContext(ctx, s.logger).Info("cart persistence recovered", zap.String("key", s.store.Key()))
	}
	s.degraded = false
	s.warning = ""
}

func (s *CartService) ensureWarm(ctx context.Context) error {
	s.mu.Lock()
	warm := s.warm
	s.mu.Unlock()
	if warm {
		return nil
	}

	_, err, _ := s.sfg.Do(s.store.Key(), func() (interface{}, error) {
		s.mu.Lock()
		warm := s.warm
		s.mu.Unlock()
		if warm {
			return nil, nil
		}

		ctx, cancel := s.storageContext(ctx)
		defer cancel()

		items, err := s.store.Load(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.warm {
			// an external change or a mutation got here first
			return nil, nil
		}
		if err != nil {
			logger.WithContext(ctx, s.logger).Warn("cart load failed, retrying on next read",
				zap.String("key", s.store.Key()), zap.Error(err))
			s.degraded = true
			s.warning = warnUnreadable
			return nil, fmt.Errorf("%w: %v", domain.ErrPersistenceRead, err)
		}
		s.items = items
		s.warm = true
		if s.warning == warnUnreadable {
			s.degraded = false
			s.warning = ""
		}
		return nil, nil
	})
	return err
}

// storageContext detaches storage calls from caller cancellation so a
// mutation the user already saw is not half-written.
func (s *CartService) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
