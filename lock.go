package stockpile

import (
	"context"
	"time"
)

// lockMarker is the value stored under a lock key; only its presence matters.
var lockMarker = []byte("1")

// Lock is a self-expiring mutual-exclusion marker in one database.
// Ownership is established solely by the store's atomic set-if-absent; the
// expiration releases it if the owner never does.
type Lock struct {
	db         Database
	key        string
	expiration time.Duration
}

// NewLock builds a lock on lockKey in database db. expiration <= 0 uses the
// database's (or Options') lock expiration.
func NewLock(sp *Stockpile, db, lockKey string, expiration time.Duration) (*Lock, error) {
	d, err := sp.reg.database(db)
	if err != nil {
		return nil, err
	}
	if expiration <= 0 {
		expiration = sp.lockExpirationFor(d)
	}
	return &Lock{db: d, key: lockKey, expiration: expiration}, nil
}

func (l *Lock) Key() string { return l.key }

func (l *Lock) Expiration() time.Duration { return l.expiration }

// TryAcquire reports whether this call took ownership. It never blocks on
// another owner.
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	ok, err := l.db.Store.SetNX(ctx, l.key, lockMarker, l.expiration)
	if err != nil {
		return false, storeErr("lock", l.db.Name, l.key, err)
	}
	return ok, nil
}

// Release expires the lock key immediately. Only the owner may call it, and
// only once the computed value is persisted.
func (l *Lock) Release(ctx context.Context) error {
	_, err := l.db.Store.Expire(ctx, l.key, 0)
	return storeErr("unlock", l.db.Name, l.key, err)
}

// ExecutionResult is the outcome of RunLocked: either a value computed while
// owning the lock, or "lock not acquired". The tag is explicit, so zero or
// nil producer results are never mistaken for a lost lock.
type ExecutionResult[V any] struct {
	lock  *Lock
	owned bool
	value V
}

// Succeeded reports whether the lock was acquired (and the function ran).
func (r ExecutionResult[V]) Succeeded() bool { return r.owned }

// Value is the function's result; zero when !Succeeded().
func (r ExecutionResult[V]) Value() V { return r.value }

func (r ExecutionResult[V]) LockKey() string { return r.lock.key }

// Release gives up ownership. No-op for a result that does not own the lock.
func (r ExecutionResult[V]) Release(ctx context.Context) error {
	if !r.owned {
		return nil
	}
	return r.lock.Release(ctx)
}

// RunLocked runs fn only if l can be acquired. The lock is NOT released
// afterwards: the caller releases it via the result once the outcome is
// durable. When fn fails the result still owns the lock and fn's error is
// returned as-is.
func RunLocked[V any](ctx context.Context, l *Lock, fn Producer[V]) (ExecutionResult[V], error) {
	res := ExecutionResult[V]{lock: l}
	if fn == nil {
		return res, ErrNilProducer
	}
	owned, err := l.TryAcquire(ctx)
	if err != nil || !owned {
		return res, err
	}
	res.owned = true
	v, err := fn(ctx)
	if err != nil {
		return res, err
	}
	res.value = v
	return res, nil
}
