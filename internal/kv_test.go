package internal

import (
	"context"
	"errors"
	"sync"
)

// flakyKV wraps a store and fails Get or Apply on demand
type flakyKV struct {
	KVStore

	mu        sync.Mutex
	failGet   bool
	failApply bool
	applies   int
}

var errFlaky = errors.New("storage unavailable")

func (f *flakyKV) Get(ctx context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	fail := f.failGet
	f.mu.Unlock()
	if fail {
		return "", false, errFlaky
	}
	return f.KVStore.Get(ctx, key)
}

func (f *flakyKV) Apply(ctx context.Context, ops ...KVOp) error {
	f.mu.Lock()
	fail := f.failApply
	f.applies++
	f.mu.Unlock()
	if fail {
		return errFlaky
	}
	return f.KVStore.Apply(ctx, ops...)
}

func (f *flakyKV) setFailApply(v bool) {
	f.mu.Lock()
	f.failApply = v
	f.mu.Unlock()
}

func (f *flakyKV) applyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.applies
}
