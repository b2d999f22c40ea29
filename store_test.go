package stockpile

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/unkn0wn-root/stockpile/store"
)

var errInjected = errors.New("injected store failure")

type memEntry struct {
	v   []byte
	exp time.Time // zero => no expiry
}

// memStore is an in-memory store.Store with real expirations and per-op
// failure injection. Like a network client it fails fast on a done context.
type memStore struct {
	mu   sync.Mutex
	m    map[string]memEntry
	fail map[string]error

	gets, sets, setnxs atomic.Int64
	closed             atomic.Int32
}

var _ store.Store = (*memStore)(nil)

func newMemStore() *memStore {
	return &memStore{m: map[string]memEntry{}, fail: map[string]error{}}
}

func (s *memStore) failOn(op string, err error) {
	s.mu.Lock()
	s.fail[op] = err
	s.mu.Unlock()
}

// live must be called with mu held.
func (s *memStore) live(key string) (memEntry, bool) {
	e, ok := s.m[key]
	if !ok {
		return e, false
	}
	if !e.exp.IsZero() && !time.Now().Before(e.exp) {
		delete(s.m, key)
		return e, false
	}
	return e, true
}

func expiryAt(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(ttl)
}

func (s *memStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.gets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	if err := s.fail["get"]; err != nil {
		return nil, false, err
	}
	e, ok := s.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), e.v...), true, nil
}

func (s *memStore) SetEX(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	s.sets.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.fail["set"]; err != nil {
		return err
	}
	s.m[key] = memEntry{v: append([]byte(nil), value...), exp: expiryAt(ttl)}
	return nil
}

func (s *memStore) SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.setnxs.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.fail["setnx"]; err != nil {
		return false, err
	}
	if _, ok := s.live(key); ok {
		return false, nil
	}
	s.m[key] = memEntry{v: append([]byte(nil), value...), exp: expiryAt(ttl)}
	return true, nil
}

func (s *memStore) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.fail["expire"]; err != nil {
		return false, err
	}
	e, ok := s.live(key)
	if !ok {
		return false, nil
	}
	if ttl <= 0 {
		delete(s.m, key)
		return true, nil
	}
	e.exp = time.Now().Add(ttl)
	s.m[key] = e
	return true, nil
}

func (s *memStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return false, err
	}
	if err := s.fail["exists"]; err != nil {
		return false, err
	}
	_, ok := s.live(key)
	return ok, nil
}

func (s *memStore) TTL(ctx context.Context, key string) (time.Duration, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	if err := s.fail["ttl"]; err != nil {
		return 0, false, err
	}
	e, ok := s.live(key)
	if !ok {
		return 0, false, nil
	}
	if e.exp.IsZero() {
		return store.NoExpiry, true, nil
	}
	return time.Until(e.exp), true, nil
}

func (s *memStore) Close(context.Context) error {
	s.closed.Add(1)
	return nil
}

// raw reads a stored payload bypassing expiry accounting.
func (s *memStore) raw(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.live(key)
	return e.v, ok
}

func (s *memStore) put(key string, v []byte, ttl time.Duration) {
	s.mu.Lock()
	s.m[key] = memEntry{v: v, exp: expiryAt(ttl)}
	s.mu.Unlock()
}

type recHooks struct {
	NopHooks
	computed, contended, timedOut, producerFailed, releaseFailed, corrupt atomic.Int64
}

func (h *recHooks) Computed(string, string, time.Duration)     { h.computed.Add(1) }
func (h *recHooks) LockContended(string, string)               { h.contended.Add(1) }
func (h *recHooks) WaitTimedOut(string, string, time.Duration) { h.timedOut.Add(1) }
func (h *recHooks) ProducerFailed(string, string, error)       { h.producerFailed.Add(1) }
func (h *recHooks) LockReleaseFailed(string, string, error)    { h.releaseFailed.Add(1) }
func (h *recHooks) CorruptEntry(string, string, error)         { h.corrupt.Add(1) }

// newTestStockpile registers one memStore as the default database.
func newTestStockpile(t testing.TB, opts Options, db Database) (*Stockpile, *memStore) {
	t.Helper()
	ms := newMemStore()
	if db.Name == "" {
		db.Name = DefaultDatabase
	}
	db.Store = ms
	reg, err := NewRegistry(db.Name, db)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	sp, err := New(reg, opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return sp, ms
}
