package stockpile

import (
	"context"
	"errors"
	"time"
)

const (
	DefaultTTL            = 5 * time.Minute
	DefaultLockExpiration = 10 * time.Second
	DefaultSlumber        = 2 * time.Second
	DefaultPollInterval   = 50 * time.Millisecond
)

// Producer computes a value on cache miss. Its errors are returned to the
// caller unchanged.
type Producer[V any] func(ctx context.Context) (V, error)

// Options tune stampede protection. Only the registry passed to New is
// required; zero values pick the defaults above.
type Options struct {
	// LockExpiration bounds how long a crashed or slow producer can keep other
	// callers waiting. Distinct from the cached value's TTL.
	// Database.LockExpiration overrides it per database.
	LockExpiration time.Duration

	// Slumber is how long a caller that lost the lock polls for the winner's
	// result before computing on its own. Database.Slumber overrides it.
	Slumber time.Duration

	PollInterval time.Duration // GetBlocking poll period
	DefaultTTL   time.Duration // used when a ttl of 0 is passed

	// ReleaseOnError releases the lock as soon as the producer fails.
	// When false the lock is left to expire, so for up to LockExpiration
	// contending callers wait their full slumber and then compute on their own.
	ReleaseOnError bool

	// Coalesce shares one in-flight computation between goroutines of this
	// process that ask a Cache for the same key, before the distributed lock
	// is even tried. The computation runs on the first caller's context; the
	// others stop waiting when their own context is done.
	Coalesce bool

	Logger Logger // if nil, NopLogger is used
	Hooks  Hooks  // if nil, NopHooks is used
}

// Stockpile binds a Registry to stampede-protection settings. Typed access
// goes through Cache[V]; invalidation helpers are untyped and live here.
type Stockpile struct {
	reg   *Registry
	log   Logger
	hooks Hooks

	lockExpiration time.Duration
	slumber        time.Duration
	pollInterval   time.Duration
	defaultTTL     time.Duration
	releaseOnError bool
	coalesce       bool
}

func New(reg *Registry, opts Options) (*Stockpile, error) {
	if reg == nil {
		return nil, errors.New("stockpile: registry is required")
	}
	if opts.LockExpiration < 0 || opts.Slumber < 0 || opts.PollInterval < 0 || opts.DefaultTTL < 0 {
		return nil, errors.New("stockpile: negative durations in options")
	}

	s := &Stockpile{
		reg:            reg,
		releaseOnError: opts.ReleaseOnError,
		coalesce:       opts.Coalesce,
	}
	s.log = coalesce[Logger](opts.Logger, NopLogger{})
	s.hooks = coalesce[Hooks](opts.Hooks, NopHooks{})
	s.lockExpiration = coalesce(opts.LockExpiration, DefaultLockExpiration)
	s.slumber = coalesce(opts.Slumber, DefaultSlumber)
	s.pollInterval = coalesce(opts.PollInterval, DefaultPollInterval)
	s.defaultTTL = coalesce(opts.DefaultTTL, DefaultTTL)
	return s, nil
}

func (s *Stockpile) Registry() *Registry { return s.reg }

// Close closes all stores of the registry.
func (s *Stockpile) Close(ctx context.Context) error { return s.reg.Close(ctx) }

func (s *Stockpile) lockExpirationFor(db Database) time.Duration {
	return coalesce(db.LockExpiration, s.lockExpiration)
}

func (s *Stockpile) slumberFor(db Database) time.Duration {
	return coalesce(db.Slumber, s.slumber)
}

func (s *Stockpile) ttlOrDefault(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return s.defaultTTL
	}
	return ttl
}
