// Package async joins a dynamically sized set of concurrent operations into a single continuation.
package async

import (
	"context"
	"sync"
)

// Handle marks one registered operation as complete. Only the first invocation counts.
type Handle func()

// Barrier fires its continuation exactly once, after Close has been called and
// every registered Handle has been invoked. The zero value is not usable, use NewBarrier.
type Barrier struct {
	mu          sync.Mutex
	outstanding int
	closed      bool
	fired       bool
	onComplete  func()
	done        chan struct{}
}

func NewBarrier() *Barrier {
	return &Barrier{
		done: make(chan struct{}),
	}
}

// Register adds an operation to wait for. It panics if the barrier is already closed.
func (b *Barrier) Register() Handle {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		panic("async: Register called on a closed barrier")
	}

	b.outstanding++

	var once sync.Once
	return func() {
		once.Do(b.complete)
	}
}

// Close ends registration. A barrier with nothing outstanding fires immediately.
func (b *Barrier) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	fn, fire := b.tryFire()
	b.mu.Unlock()

	if fire {
		b.finish(fn)
	}
}

// OnAllComplete sets the continuation. If the barrier has already fired, fn is run right away.
func (b *Barrier) OnAllComplete(fn func()) {
	b.mu.Lock()
	if !b.fired {
		b.onComplete = fn
		b.mu.Unlock()
		return
	}
	b.mu.Unlock()

	if fn != nil {
		fn()
	}
}

// Done is closed after the barrier has fired and its continuation has returned
func (b *Barrier) Done() <-chan struct{} {
	return b.done
}

// Wait blocks until the barrier has fired or ctx is done. Giving up on the wait
// does not affect the barrier, the continuation still runs once when the last
// operation completes.
func (b *Barrier) Wait(ctx context.Context) error {
	select {
	case <-b.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Barrier) complete() {
	b.mu.Lock()
	b.outstanding--
	fn, fire := b.tryFire()
	b.mu.Unlock()

	if fire {
		b.finish(fn)
	}
}

// tryFire must be called with b.mu held
func (b *Barrier) tryFire() (func(), bool) {
	if b.fired || !b.closed || b.outstanding > 0 {
		return nil, false
	}

	b.fired = true
	fn := b.onComplete
	b.onComplete = nil

	return fn, true
}

func (b *Barrier) finish(fn func()) {
	defer close(b.done)

	if fn != nil {
		fn()
	}
}
