// Package stockpile implements a read-through cache over a key/value store
// with cache-stampede protection.
//
// When many callers miss on the same key at once, at most one of them computes
// the value: the one that wins an atomic set-if-absent on the key's lock marker.
// The others poll the cache for a bounded time (the "slumber") and, if the
// value does not show up, compute it themselves without caching it. Bounded
// latency is preferred over exactly-once computation.
//
// Components:
//   - Registry: logical database name -> store.Store, compression policy,
//     lock expiration and slumber. Immutable after NewRegistry.
//   - Cache[V]: typed get/set/blocking-get over one database, using a
//     codec.Codec[V] and the database's compression policy.
//   - Lock / RunLocked: self-expiring exclusive ownership of a lock key.
//   - Cache.PerformCached: the read-through entry point.
//   - Stockpile.ExpireCached / RenewCached: invalidation helpers.
//
// Keys:
//
//	<key>                   - cached value (caller-chosen)
//	stockpile_lock::<key>   - lock marker guarding <key>
//
// Usage:
//
//	reg, _ := stockpile.NewRegistry("", stockpile.Database{Name: "default", Store: rs})
//	sp, _ := stockpile.New(reg, stockpile.Options{})
//	users, _ := stockpile.NewCache[User](sp, stockpile.CacheOptions[User]{})
//	u, err := users.PerformCached(ctx, "user:42", time.Minute, loadUser)
//
// A producer that fails while holding the lock leaves the lock to expire on
// its own (LockExpiration), during which other callers wait out their slumber
// and compute independently. Set Options.ReleaseOnError to release it instead.
package stockpile
