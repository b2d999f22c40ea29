package stockpile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	c "github.com/unkn0wn-root/stockpile/codec"
	"github.com/unkn0wn-root/stockpile/internal/wire"
)

// CacheOptions select the database and codec of a Cache.
type CacheOptions[V any] struct {
	Database string     // "" => registry default
	Codec    c.Codec[V] // nil => codec.JSON[V]
}

// Cache is a typed view of one database. Safe for concurrent use.
type Cache[V any] struct {
	sp    *Stockpile
	db    Database
	codec c.Codec[V]

	flights singleflight.Group
}

// NewCache resolves the database through the registry once, up front, and
// fails with ErrDatabaseNotFound if it is unknown. The registry is immutable,
// so later reads, writes and lock calls use the resolved store directly.
func NewCache[V any](sp *Stockpile, opts CacheOptions[V]) (*Cache[V], error) {
	if sp == nil {
		return nil, errors.New("stockpile: nil Stockpile")
	}
	db, err := sp.reg.database(opts.Database)
	if err != nil {
		return nil, err
	}
	cc := &Cache[V]{sp: sp, db: db, codec: opts.Codec}
	if cc.codec == nil {
		cc.codec = c.JSON[V]{}
	}
	return cc, nil
}

// Database returns the resolved database name.
func (cc *Cache[V]) Database() string { return cc.db.Name }

// Get returns (v, true, nil) on hit and (zero, false, nil) on miss.
// Undecodable payloads yield an error wrapping ErrCorruptEntry.
func (cc *Cache[V]) Get(ctx context.Context, key string) (V, bool, error) {
	var zero V
	raw, ok, err := cc.db.Store.Get(ctx, key)
	if err != nil {
		return zero, false, storeErr("get", cc.db.Name, key, err)
	}
	if !ok {
		return zero, false, nil
	}
	v, err := cc.decode(raw)
	if err != nil {
		return zero, false, fmt.Errorf("%w: %q: %w", ErrCorruptEntry, key, err)
	}
	return v, true, nil
}

// Set writes value and its TTL in one round trip. ttl <= 0 uses DefaultTTL.
func (cc *Cache[V]) Set(ctx context.Context, key string, value V, ttl time.Duration) error {
	raw, err := cc.encode(value)
	if err != nil {
		return fmt.Errorf("stockpile: encode %q: %w", key, err)
	}
	return storeErr("set", cc.db.Name, key, cc.db.Store.SetEX(ctx, key, raw, cc.sp.ttlOrDefault(ttl)))
}

// GetBlocking polls Get every PollInterval until key holds a value or timeout
// elapses (ErrWaitTimeout). No connection is held between polls.
func (cc *Cache[V]) GetBlocking(ctx context.Context, key string, timeout time.Duration) (V, error) {
	var zero V
	deadline := time.Now().Add(timeout)
	for {
		v, ok, err := cc.Get(ctx, key)
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return zero, ErrWaitTimeout
		}
		t := time.NewTimer(min(cc.sp.pollInterval, remaining))
		select {
		case <-ctx.Done():
			t.Stop()
			return zero, ctx.Err()
		case <-t.C:
		}
	}
}

// Expire expires key now. Reports whether it existed.
func (cc *Cache[V]) Expire(ctx context.Context, key string) (bool, error) {
	return cc.sp.expire(ctx, cc.db, key)
}

// Renew resets the TTL of key without touching its value. ttl <= 0 uses
// DefaultTTL. Reports whether the key existed.
func (cc *Cache[V]) Renew(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	return cc.sp.renew(ctx, cc.db, key, ttl)
}

func (cc *Cache[V]) encode(v V) ([]byte, error) {
	b, err := cc.codec.Encode(v)
	if err != nil {
		return nil, err
	}
	return wire.Pack(b, cc.db.Compression)
}

func (cc *Cache[V]) decode(raw []byte) (V, error) {
	var zero V
	b, err := wire.Unpack(raw, cc.db.Compression)
	if err != nil {
		return zero, err
	}
	return cc.codec.Decode(b)
}
