package actor

import (
	"context"
	"sync"
)

// Latch is a one-shot countdown barrier. Await returns once CountDown has
// been called as many times as the initial count.
type Latch struct {
	mu    sync.Mutex
	count int
	open  chan struct{}
}

// NewLatch creates a latch; a count of zero or less starts open.
func NewLatch(count int) *Latch {
	l := &Latch{count: count, open: make(chan struct{})}
	if count <= 0 {
		l.count = 0
		close(l.open)
	}
	return l
}

// CountDown decrements the count, opening the latch when it reaches zero.
// Extra calls are ignored.
func (l *Latch) CountDown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.count == 0 {
		return
	}
	l.count--
	if l.count == 0 {
		close(l.open)
	}
}

// Count returns the remaining count.
func (l *Latch) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Await blocks until the latch opens or ctx ends.
func (l *Latch) Await(ctx context.Context) error {
	select {
	case <-l.open:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
