package stockpile

import (
	"context"
	"errors"
	"time"

	"github.com/unkn0wn-root/stockpile/internal/util"
)

// cleanupTimeout bounds the write and lock release that follow a producer run.
const cleanupTimeout = 3 * time.Second

// PerformCached returns the cached value for key or, on miss, computes it
// under stampede protection (see Execute). ttl <= 0 uses DefaultTTL.
func (cc *Cache[V]) PerformCached(ctx context.Context, key string, ttl time.Duration, producer Producer[V]) (V, error) {
	v, ok, err := cc.Get(ctx, key)
	switch {
	case err == nil && ok:
		return v, nil
	case errors.Is(err, ErrCorruptEntry):
		cc.corrupt(key, err)
	case err != nil:
		return v, err
	}
	return cc.Execute(ctx, key, ttl, producer)
}

// Execute skips the initial read and goes straight to the lock:
//
//   - lock won: run producer, write the result with ttl, release the lock,
//     return the result;
//   - lock held elsewhere: poll the cache for up to the slumber and return
//     what appears; if nothing does, run producer directly and return its
//     result without caching it.
//
// Producer and store errors are returned unchanged.
func (cc *Cache[V]) Execute(ctx context.Context, key string, ttl time.Duration, producer Producer[V]) (V, error) {
	if producer == nil {
		var zero V
		return zero, ErrNilProducer
	}
	ttl = cc.sp.ttlOrDefault(ttl)
	if !cc.sp.coalesce {
		return cc.execute(ctx, key, ttl, producer)
	}

	ch := cc.flights.DoChan(key, func() (any, error) {
		return cc.execute(ctx, key, ttl, producer)
	})
	select {
	case <-ctx.Done():
		// the flight keeps running for the callers still waiting on it
		var zero V
		return zero, ctx.Err()
	case r := <-ch:
		v, _ := r.Val.(V)
		return v, r.Err
	}
}

func (cc *Cache[V]) execute(ctx context.Context, key string, ttl time.Duration, producer Producer[V]) (V, error) {
	var zero V
	lock := &Lock{
		db:         cc.db,
		key:        util.LockKey(key),
		expiration: cc.sp.lockExpirationFor(cc.db),
	}

	start := time.Now()
	res, err := RunLocked(ctx, lock, producer)
	if err != nil {
		if res.Succeeded() {
			cc.sp.hooks.ProducerFailed(cc.db.Name, key, err)
			if cc.sp.releaseOnError {
				rctx, cancel := cleanupContext(ctx)
				cc.release(rctx, res)
				cancel()
			}
		}
		return zero, err
	}

	if res.Succeeded() {
		return cc.persist(ctx, key, ttl, res, time.Since(start))
	}
	return cc.await(ctx, key, producer)
}

// persist writes the winner's value, then releases the lock. Both run
// detached from ctx: once computed, the value is published even if the
// caller has given up.
func (cc *Cache[V]) persist(ctx context.Context, key string, ttl time.Duration, res ExecutionResult[V], took time.Duration) (V, error) {
	var zero V
	wctx, cancel := cleanupContext(ctx)
	defer cancel()

	err := cc.Set(wctx, key, res.Value(), ttl)
	// release even on failure: nothing will be written, waiting is pointless
	cc.release(wctx, res)

	var se *StoreError
	switch {
	case errors.As(err, &se):
		return zero, err
	case err != nil:
		// value can't be encoded (or exceeds a codec limit); still valid for us
		cc.sp.log.Warn("computed value not cached", Fields{"db": cc.db.Name, "key": key, "err": err})
		return res.Value(), nil
	}

	cc.sp.hooks.Computed(cc.db.Name, key, took)
	cc.sp.log.Debug("computed and cached", Fields{"db": cc.db.Name, "key": key, "ttl": ttl, "took": took})
	return res.Value(), nil
}

// await is the losing branch: wait for the winner, or compute uncached.
func (cc *Cache[V]) await(ctx context.Context, key string, producer Producer[V]) (V, error) {
	slumber := cc.sp.slumberFor(cc.db)
	cc.sp.hooks.LockContended(cc.db.Name, key)
	cc.sp.log.Debug("lock held elsewhere; waiting", Fields{"db": cc.db.Name, "key": key, "slumber": slumber})

	v, err := cc.GetBlocking(ctx, key, slumber)
	switch {
	case err == nil:
		return v, nil
	case errors.Is(err, ErrWaitTimeout):
		cc.sp.hooks.WaitTimedOut(cc.db.Name, key, slumber)
		cc.sp.log.Debug("wait timed out; computing uncached", Fields{"db": cc.db.Name, "key": key})
	case errors.Is(err, ErrCorruptEntry):
		cc.corrupt(key, err)
	default:
		return v, err
	}
	return producer(ctx)
}

// cleanupContext keeps ctx's values but not its cancellation, bounded by
// cleanupTimeout.
func cleanupContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
}

func (cc *Cache[V]) release(ctx context.Context, res ExecutionResult[V]) {
	if err := res.Release(ctx); err != nil {
		cc.sp.hooks.LockReleaseFailed(cc.db.Name, res.LockKey(), err)
		cc.sp.log.Warn("lock release failed; relying on expiration", Fields{"db": cc.db.Name, "lock": res.LockKey(), "err": err})
	}
}

func (cc *Cache[V]) corrupt(key string, err error) {
	cc.sp.hooks.CorruptEntry(cc.db.Name, key, err)
	cc.sp.log.Warn("corrupt cache entry treated as miss", Fields{"db": cc.db.Name, "key": key, "err": err})
}
