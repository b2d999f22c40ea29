package ristretto

import (
	"context"
	"errors"
	"sync"
	"time"

	rc "github.com/dgraph-io/ristretto"

	"github.com/unkn0wn-root/stockpile/store"
)

// ErrRejected is returned when ristretto drops a write (admission policy or
// buffer pressure). Callers see it as a store failure rather than a silent miss.
var ErrRejected = errors.New("ristretto store: write rejected")

// Store is an in-process store.Store for single-process deployments and
// local development. Lock markers only exclude goroutines of this process.
//
// Mutations are serialized by mu so that SetNX and Expire are atomic
// read-modify-write sequences; Wait() after each write makes it visible
// to the next Get.
type Store struct {
	mu sync.Mutex
	c  *rc.Cache
}

var _ store.Store = (*Store)(nil)

type Config struct {
	NumCounters int64 // 0 => 1e6
	MaxCost     int64 // bytes; 0 => 64MiB
	BufferItems int64 // 0 => 64
	Metrics     bool
}

func New(cfg Config) (*Store, error) {
	if cfg.NumCounters < 0 || cfg.MaxCost < 0 || cfg.BufferItems < 0 {
		return nil, errors.New("ristretto store: invalid config")
	}
	if cfg.NumCounters == 0 {
		cfg.NumCounters = 1e6
	}
	if cfg.MaxCost == 0 {
		cfg.MaxCost = 64 << 20
	}
	if cfg.BufferItems == 0 {
		cfg.BufferItems = 64
	}
	c, err := rc.NewCache(&rc.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     cfg.Metrics,
	})
	if err != nil {
		return nil, err
	}
	return &Store{c: c}, nil
}

func (s *Store) Get(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := s.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	b, _ := v.([]byte)
	if b == nil {
		// self-heal: drop unexpected entry shape
		s.c.Del(key)
		return nil, false, nil
	}
	return b, true, nil
}

func (s *Store) SetEX(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set(key, value, ttl)
}

func (s *Store) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.c.Get(key); ok {
		return false, nil
	}
	if err := s.set(key, value, ttl); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.c.Get(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		s.c.Del(key)
		s.c.Wait()
		return true, nil
	}
	b, _ := v.([]byte)
	return true, s.set(key, b, ttl)
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	_, ok := s.c.Get(key)
	return ok, nil
}

func (s *Store) TTL(_ context.Context, key string) (time.Duration, bool, error) {
	ttl, ok := s.c.GetTTL(key)
	if !ok {
		return 0, false, nil
	}
	if ttl == 0 {
		return store.NoExpiry, true, nil
	}
	return ttl, true, nil
}

func (s *Store) Close(_ context.Context) error {
	s.c.Wait()
	s.c.Close()
	return nil
}

// Metrics exposes ristretto counters when Config.Metrics is set.
func (s *Store) Metrics() *rc.Metrics { return s.c.Metrics }

// set must be called with mu held.
func (s *Store) set(key string, value []byte, ttl time.Duration) error {
	if ttl < 0 {
		ttl = 0
	}
	if !s.c.SetWithTTL(key, value, int64(len(value))+1, ttl) {
		return ErrRejected
	}
	s.c.Wait()
	return nil
}
