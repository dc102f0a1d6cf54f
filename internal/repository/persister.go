package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"go.uber.org/zap"
)

// DefaultKey is the storage key the storefront has always used.
const DefaultKey = "shooseCart"

// Persister reads and writes the serialized line-item list under one key.
type Persister struct {
	store  Store
	key    string
	logger *zap.Logger
}

func NewPersister(store Store, key string, logger *zap.Logger) *Persister {
	if key == "" {
		key = DefaultKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persister{store: store, key: key, logger: logger}
}

func (p *Persister) Key() string {
	return p.key
}

// Load returns the persisted cart. A missing entry is an empty cart. A corrupt
// entry is logged and also yields an empty cart with a nil error; it heals on
// the next successful Save. Only backend read failures are returned.
func (p *Persister) Load(ctx context.Context) ([]domain.LineItem, error) {
	data, err := p.store.Get(ctx, p.key)
	if errors.Is(err, ErrNotFound) {
		return []domain.LineItem{}, nil
	}
	if err != nil {
		return []domain.LineItem{}, fmt.Errorf("load cart %q: %w", p.key, err)
	}

	items, err := Decode(data)
	if err != nil {
		p.logger.Warn("corrupt cart state, starting empty",
			zap.String("key", p.key),
			zap.Int("bytes", len(data)),
			zap.Error(err))
		return []domain.LineItem{}, nil
	}
	return items, nil
}

func (p *Persister) Save(ctx context.Context, items []domain.LineItem) error {
	data, err := Encode(items)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	if err := p.store.Set(ctx, p.key, data); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	return nil
}

// Clear removes the persisted entry entirely.
func (p *Persister) Clear(ctx context.Context) error {
	if err := p.store.Delete(ctx, p.key); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrPersistenceWrite, err)
	}
	return nil
}

func Encode(items []domain.LineItem) ([]byte, error) {
	if items == nil {
		items = []domain.LineItem{}
	}
	return json.Marshal(items)
}

// Decode parses a persisted cart. Lines with a quantity below 1 or without a
// product id make the whole value corrupt. Repeated product ids, which only a
// foreign writer can produce, are merged so each id appears once.
func Decode(data []byte) ([]domain.LineItem, error) {
	var raw []domain.LineItem
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCorruptState, err)
	}

	items := make([]domain.LineItem, 0, len(raw))
	index := make(map[int64]int, len(raw))
	for _, item := range raw {
		if item.Product.ID == 0 {
			return nil, fmt.Errorf("%w: line without product id", domain.ErrCorruptState)
		}
		if item.Quantity < 1 {
			return nil, fmt.Errorf("%w: product %d has quantity %d", domain.ErrCorruptState, item.Product.ID, item.Quantity)
		}
		if i, ok := index[item.Product.ID]; ok {
			items[i].Quantity += item.Quantity
			continue
		}
		index[item.Product.ID] = len(items)
		items = append(items, item)
	}
	return items, nil
}
