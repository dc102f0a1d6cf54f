// Package binding mirrors cart state into a view's local snapshot.
//
// A binding moves through Unmounted -> Mounted -> Synced and back to
// Unmounted. It subscribes before its first pull, so a change that lands
// between the two still triggers a re-pull, and it renders from a single
// goroutine, so renders never interleave.
package binding

import (
	"context"
	"errors"
	"sync"

	"github.com/fjod/go_cart/cartstore/internal/domain"
	"github.com/fjod/go_cart/cartstore/internal/notify"
)

var ErrAlreadyMounted = errors.New("binding already mounted")

type State int

const (
	Unmounted State = iota
	Mounted
	Synced
)

func (s State) String() string {
	switch s {
	case Unmounted:
		return "unmounted"
	case Mounted:
		return "mounted"
	case Synced:
		return "synced"
	}
	return "unknown"
}

// Source is the cart as seen by a view.
type Source interface {
	Subscribe() *notify.Subscription
	Snapshot(ctx context.Context) domain.Snapshot
}

type Binding[T any] struct {
	src     Source
	project func(domain.Snapshot) T
	render  func(T)

	mu      sync.RWMutex
	state   State
	view    T
	renders int
	// rendering counts render callbacks in flight.
	rendering int
	sub       *notify.Subscription
	stop      chan struct{}
	done      chan struct{}
}

// New creates an unmounted binding. project turns a cart snapshot into the
// view's local state; render, if not nil, is called with every new state.
func New[T any](src Source, project func(domain.Snapshot) T, render func(T)) *Binding[T] {
	return &Binding[T]{src: src, project: project, render: render}
}

// Mount subscribes, pulls the current state and keeps it fresh until Unmount
// is called or ctx is done.
func (b *Binding[T]) Mount(ctx context.Context) error {
	b.mu.Lock()
	if b.state != Unmounted {
		b.mu.Unlock()
		return ErrAlreadyMounted
	}
	b.state = Mounted
	b.sub = b.src.Subscribe()
	b.stop = make(chan struct{})
	b.done = make(chan struct{})
	sub, stop, done := b.sub, b.stop, b.done
	b.mu.Unlock()

	b.pull(ctx)
	go b.loop(ctx, sub, stop, done)
	return nil
}

// Unmount unsubscribes and waits for the render goroutine to exit. Called
// while a render is in progress, for example from the render callback itself,
// it does not wait: the current render finishes and no further one starts.
func (b *Binding[T]) Unmount() {
	b.mu.Lock()
	if b.state == Unmounted {
		b.mu.Unlock()
		return
	}
	stop, done := b.stop, b.done
	b.stop = nil
	wait := b.rendering == 0
	b.mu.Unlock()

	if stop != nil {
		close(stop)
	}
	if wait {
		<-done
	}
}

func (b *Binding[T]) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// View returns the last rendered state.
func (b *Binding[T]) View() T {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.view
}

// Renders counts pulls since construction.
func (b *Binding[T]) Renders() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.renders
}

func (b *Binding[T]) loop(ctx context.Context, sub *notify.Subscription, stop, done chan struct{}) {
	defer func() {
		sub.Unsubscribe()
		b.mu.Lock()
		b.state = Unmounted
		b.sub = nil
		b.stop = nil
		b.mu.Unlock()
		close(done)
	}()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			select {
			case <-stop:
				return
			default:
			}
			b.pull(ctx)
		}
	}
}

func (b *Binding[T]) pull(ctx context.Context) {
	v := b.project(b.src.Snapshot(ctx))

	b.mu.Lock()
	b.view = v
	b.renders++
	b.state = Synced
	if b.render == nil {
		b.mu.Unlock()
		return
	}
	b.rendering++
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		b.rendering--
		b.mu.Unlock()
	}()
	b.render(v)
}
