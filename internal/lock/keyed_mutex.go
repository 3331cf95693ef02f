// Package lock provides exclusive locks keyed by name, in process or across
// replicas through Redis.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrTimeout is returned when a lock is not acquired within the allowed wait.
var ErrTimeout = errors.New("lock wait timed out")

// KeyedMutex is an in-process lock table. Different keys never contend.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*entry
}

type entry struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*entry)}
}

// Acquire blocks until key is free, wait elapses or ctx is done.
func (k *KeyedMutex) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	e := k.ref(key)

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case e.sem <- struct{}{}:
		var once sync.Once
		return func() {
			once.Do(func() {
				<-e.sem
				k.unref(key)
			})
		}, nil
	case <-timer.C:
		k.unref(key)
		return nil, ErrTimeout
	case <-ctx.Done():
		k.unref(key)
		return nil, ctx.Err()
	}
}

func (k *KeyedMutex) ref(key string) *entry {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		e = &entry{sem: make(chan struct{}, 1)}
		k.locks[key] = e
	}
	e.refs++
	return e
}

func (k *KeyedMutex) unref(key string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	e, ok := k.locks[key]
	if !ok {
		return
	}
	e.refs--
	if e.refs == 0 {
		delete(k.locks, key)
	}
}

// size reports how many keys are tracked.
func (k *KeyedMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
