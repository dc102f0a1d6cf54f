package repository

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryHub is device-local storage shared by several MemoryStores, one per
// browsing context. A write through one store is announced to the watchers
// of every other store.
type MemoryHub struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[string]map[int]*watcher
	nextID   int
}

// watcher keeps only the newest pending event: every event carries the full
// value, so an overwritten one is never needed.
type watcher struct {
	origin string

	mu      sync.Mutex
	pending *StorageEvent
	signal  chan struct{}
}

func (w *watcher) offer(ev StorageEvent) {
	w.mu.Lock()
	w.pending = &ev
	w.mu.Unlock()
	select {
	case w.signal <- struct{}{}:
	default:
	}
}

func (w *watcher) take() (StorageEvent, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		return StorageEvent{}, false
	}
	ev := *w.pending
	w.pending = nil
	return ev, true
}

func NewMemoryHub() *MemoryHub {
	return &MemoryHub{
		data:     make(map[string][]byte),
		watchers: make(map[string]map[int]*watcher),
	}
}

// NewStore opens a new context on the hub.
func (h *MemoryHub) NewStore() *MemoryStore {
	return &MemoryStore{hub: h, origin: uuid.NewString()}
}

// broadcastLocked runs under the same h.mu hold as the write it announces,
// so watchers receive events in storage order. h.mu must be held.
func (h *MemoryHub) broadcastLocked(ev StorageEvent) {
	for _, w := range h.watchers[ev.Key] {
		if w.origin != ev.Origin {
			w.offer(ev)
		}
	}
}

type MemoryStore struct {
	hub    *MemoryHub
	origin string

	mu      sync.Mutex
	failSet error
}

// NewMemoryStore returns a store on a private hub.
func NewMemoryStore() *MemoryStore {
	return NewMemoryHub().NewStore()
}

func (m *MemoryStore) Origin() string {
	return m.origin
}

// FailWrites makes every following Set and Delete return err; nil restores
// normal behaviour. It stands in for quota or disabled-storage errors.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSet = err
}

func (m *MemoryStore) writeErr() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.failSet
}

func (m *MemoryStore) Get(_ context.Context, key string) ([]byte, error) {
	m.hub.mu.RLock()
	defer m.hub.mu.RUnlock()
	v, ok := m.hub.data[key]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (m *MemoryStore) Set(_ context.Context, key string, value []byte) error {
	if err := m.writeErr(); err != nil {
		return err
	}
	v := make([]byte, len(value))
	copy(v, value)

	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	m.hub.data[key] = v
	m.hub.broadcastLocked(StorageEvent{Key: key, Value: v, Origin: m.origin})
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	if err := m.writeErr(); err != nil {
		return err
	}
	m.hub.mu.Lock()
	defer m.hub.mu.Unlock()
	delete(m.hub.data, key)
	m.hub.broadcastLocked(StorageEvent{Key: key, Origin: m.origin})
	return nil
}

func (m *MemoryStore) Watch(ctx context.Context, key string, fn func(StorageEvent)) error {
	w := &watcher{origin: m.origin, signal: make(chan struct{}, 1)}

	m.hub.mu.Lock()
	id := m.hub.nextID
	m.hub.nextID++
	if m.hub.watchers[key] == nil {
		m.hub.watchers[key] = make(map[int]*watcher)
	}
	m.hub.watchers[key][id] = w
	m.hub.mu.Unlock()

	defer func() {
		m.hub.mu.Lock()
		delete(m.hub.watchers[key], id)
		m.hub.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.signal:
			if ev, ok := w.take(); ok {
				fn(ev)
			}
		}
	}
}

// Watching reports how many watchers are registered for key.
func (h *MemoryHub) Watching(key string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.watchers[key])
}
