package infra

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// Deduplicator coalesces identical in-flight lookups. When several callers
// ask for the same key at once, fn runs once and every caller gets its result.
type Deduplicator struct {
	group    singleflight.Group
	inflight atomic.Int64
}

// NewDeduplicator creates a new request deduplicator
func NewDeduplicator() *Deduplicator {
	return &Deduplicator{}
}

// Do runs fn unless a call with the same key is already running, in which
// case it waits for that call. shared reports whether the result came from
// another caller's execution. A cancelled ctx only ends this caller's wait:
// fn keeps running for the others, so fn must not use a context that any
// single caller can cancel.
func (d *Deduplicator) Do(ctx context.Context, key string, fn func() (any, error)) (any, bool, error) {
	executed := false
	ch := d.group.DoChan(key, func() (any, error) {
		executed = true
		d.inflight.Add(1)
		defer d.inflight.Add(-1)
		return fn()
	})

	select {
	case res := <-ch:
		return res.Val, !executed, res.Err
	case <-ctx.Done():
		return nil, false, ctx.Err()
	}
}

// Forget drops key so the next caller starts a fresh call
func (d *Deduplicator) Forget(key string) {
	d.group.Forget(key)
}

// Stats returns the current number of in-flight keys
func (d *Deduplicator) Stats() int {
	return int(d.inflight.Load())
}
