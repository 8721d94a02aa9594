package buffer

import (
	"context"
	"sync"
	"time"
)

// notifier wakes every waiter on broadcast by closing the current channel
// and replacing it.
type notifier struct {
	mu sync.Mutex
	ch chan struct{}
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan struct{})}
}

func (n *notifier) channel() <-chan struct{} {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.ch
}

func (n *notifier) broadcast() {
	n.mu.Lock()
	close(n.ch)
	n.ch = make(chan struct{})
	n.mu.Unlock()
}

// wait implements Store.Wait for a backend whose published length is
// reported by length. The channel is taken before the length check so an
// append landing in between still wakes us.
func (n *notifier) wait(ctx context.Context, length func() int, after int, timeout time.Duration) bool {
	ch := n.channel()
	if length() > after {
		return true
	}
	var deadline <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		deadline = t.C
	}
	select {
	case <-ch:
	case <-deadline:
	case <-ctx.Done():
	}
	return length() > after
}
