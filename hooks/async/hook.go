// Package asynchook moves stockpile hook calls off the request path.
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{ContendedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	sp, _ := stockpile.New(reg, stockpile.Options{Hooks: hooks})
//
// Events are dropped, not queued without bound, when the workers fall
// behind; Dropped reports how many.
package asynchook

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/stockpile"
)

type Hooks struct {
	inner   stockpile.Hooks
	q       chan func()
	wg      sync.WaitGroup
	once    sync.Once
	closed  atomic.Bool
	dropped atomic.Uint64
}

var _ stockpile.Hooks = (*Hooks)(nil)

func New(inner stockpile.Hooks, workers, qlen int) *Hooks {
	if inner == nil {
		inner = stockpile.NopHooks{}
	}
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

// Close drains queued events and stops the workers. Events reported after
// Close are dropped.
func (h *Hooks) Close() {
	h.once.Do(func() {
		h.closed.Store(true)
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) Dropped() uint64 { return h.dropped.Load() }

func (h *Hooks) try(f func()) {
	if h.closed.Load() {
		h.dropped.Add(1)
		return
	}
	defer func() {
		// lost the race with Close
		if recover() != nil {
			h.dropped.Add(1)
		}
	}()
	select {
	case h.q <- f:
	default:
		h.dropped.Add(1)
	}
}

func (h *Hooks) Computed(db, k string, took time.Duration) {
	h.try(func() { h.inner.Computed(db, k, took) })
}
func (h *Hooks) LockContended(db, k string) { h.try(func() { h.inner.LockContended(db, k) }) }
func (h *Hooks) WaitTimedOut(db, k string, waited time.Duration) {
	h.try(func() { h.inner.WaitTimedOut(db, k, waited) })
}
func (h *Hooks) ProducerFailed(db, k string, err error) {
	h.try(func() { h.inner.ProducerFailed(db, k, err) })
}
func (h *Hooks) LockReleaseFailed(db, k string, err error) {
	h.try(func() { h.inner.LockReleaseFailed(db, k, err) })
}
func (h *Hooks) CorruptEntry(db, k string, err error) {
	h.try(func() { h.inner.CorruptEntry(db, k, err) })
}
