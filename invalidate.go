package stockpile

import (
	"context"
	"time"

	"github.com/unkn0wn-root/stockpile/store"
)

// ExpireCached expires key in database db immediately. Reports whether the
// key existed. Does not touch the key's lock.
func (s *Stockpile) ExpireCached(ctx context.Context, db, key string) (bool, error) {
	d, err := s.reg.database(db)
	if err != nil {
		return false, err
	}
	return s.expire(ctx, d, key)
}

// RenewCached resets the TTL of key without changing its value. ttl <= 0
// uses DefaultTTL. Reports whether the key existed.
func (s *Stockpile) RenewCached(ctx context.Context, db, key string, ttl time.Duration) (bool, error) {
	d, err := s.reg.database(db)
	if err != nil {
		return false, err
	}
	return s.renew(ctx, d, key, ttl)
}

func (s *Stockpile) expire(ctx context.Context, db Database, key string) (bool, error) {
	return s.setTTL(ctx, "expire", db, key, 0)
}

func (s *Stockpile) renew(ctx context.Context, db Database, key string, ttl time.Duration) (bool, error) {
	return s.setTTL(ctx, "renew", db, key, s.ttlOrDefault(ttl))
}

// setTTL relies on the store's Expire reply as the existence signal, so
// there is no window between an EXISTS check and the expiry.
func (s *Stockpile) setTTL(ctx context.Context, op string, db Database, key string, ttl time.Duration) (bool, error) {
	var existed bool
	err := s.reg.WithStore(db.Name, func(st store.Store) error {
		var err error
		existed, err = st.Expire(ctx, key, ttl)
		return storeErr(op, db.Name, key, err)
	})
	if err == nil {
		s.log.Debug("ttl updated", Fields{"op": op, "db": db.Name, "key": key, "existed": existed})
	}
	return existed, err
}
