// Package notify broadcasts payload-less "cart changed" signals to every
// mounted view. Receivers re-pull state; signals carry nothing to go stale.
package notify

import "sync"

type Broadcaster struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{subs: make(map[uint64]*Subscription)}
}

// Subscription delivers signals on C. The channel holds at most one pending
// signal, so bursts of changes collapse into a single re-pull.
type Subscription struct {
	C <-chan struct{}

	c    chan struct{}
	id   uint64
	b    *Broadcaster
	once sync.Once
}

func (b *Broadcaster) Subscribe() *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	c := make(chan struct{}, 1)
	s := &Subscription{C: c, c: c, id: b.nextID, b: b}
	b.subs[s.id] = s
	b.nextID++
	return s
}

// Unsubscribe stops delivery and closes C. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.b.mu.Lock()
		delete(s.b.subs, s.id)
		close(s.c)
		s.b.mu.Unlock()
	})
}

// Notify signals every current subscriber without blocking. Subscribers that
// join later get nothing and must pull on their own.
func (b *Broadcaster) Notify() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, s := range b.subs {
		select {
		case s.c <- struct{}{}:
		default:
		}
	}
}

func (b *Broadcaster) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
