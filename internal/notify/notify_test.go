package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pending(s *Subscription) int {
	n := 0
	for {
		select {
		case _, ok := <-s.C:
			if !ok {
				return n
			}
			n++
		default:
			return n
		}
	}
}

func TestNotify_ReachesAllSubscribers(t *testing.T) {
	b := NewBroadcaster()
	badge, page := b.Subscribe(), b.Subscribe()

	b.Notify()

	assert.Equal(t, 1, pending(badge))
	assert.Equal(t, 1, pending(page))
}

func TestNotify_Coalesces(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe()

	b.Notify()
	b.Notify()
	b.Notify()

	assert.Equal(t, 1, pending(s))
	assert.Equal(t, 0, pending(s))
}

func TestNotify_NoReplay(t *testing.T) {
	b := NewBroadcaster()
	b.Notify()

	late := b.Subscribe()
	assert.Equal(t, 0, pending(late))
}

func TestUnsubscribe(t *testing.T) {
	b := NewBroadcaster()
	s := b.Subscribe()
	require.Equal(t, 1, b.Len())

	s.Unsubscribe()
	s.Unsubscribe()

	assert.Equal(t, 0, b.Len())
	_, ok := <-s.C
	assert.False(t, ok)

	// notifying after unsubscribe must not panic on the closed channel
	assert.NotPanics(t, b.Notify)
}
