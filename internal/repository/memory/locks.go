package memory

import (
	"context"
	"sync"
	"time"

	"github.com/baharkarakas/custodial-ledger/internal/models"
)

type lockEntry struct {
	ch   chan struct{}
	refs int // holder plus waiters
}

// keyLocks hands out one mutex per key. A waiter gives up after timeout with ErrConflict.
// An entry lives only while someone holds or waits for it.
type keyLocks struct {
	mu sync.Mutex
	m  map[string]*lockEntry
}

func newKeyLocks() *keyLocks {
	return &keyLocks{m: make(map[string]*lockEntry)}
}

func (k *keyLocks) acquire(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	k.mu.Lock()
	e, ok := k.m[key]
	if !ok {
		e = &lockEntry{ch: make(chan struct{}, 1)}
		k.m[key] = e
	}
	e.refs++
	k.mu.Unlock()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case e.ch <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.ch
				k.unref(key, e)
			})
		}, nil
	case <-timer.C:
		k.unref(key, e)
		return nil, models.ErrConflict
	case <-ctx.Done():
		k.unref(key, e)
		return nil, ctx.Err()
	}
}

func (k *keyLocks) unref(key string, e *lockEntry) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(k.m, key)
	}
}

func (k *keyLocks) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.m)
}
