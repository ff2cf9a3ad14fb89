package lock

import (
	"context"
	"sync"
)

// Locker serializes read-modify-write cycles on a shared remote file.
type Locker interface {
	// Lock blocks until the named lock is held or ctx is done. The returned func releases it.
	Lock(ctx context.Context, name string) (func(), error)
}

// Local is an in-process Locker keyed by name.
type Local struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func NewLocal() *Local {
	return &Local{locks: make(map[string]chan struct{})}
}

func (l *Local) Lock(ctx context.Context, name string) (func(), error) {
	l.mu.Lock()
	ch, ok := l.locks[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.locks[name] = ch
	}
	l.mu.Unlock()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
