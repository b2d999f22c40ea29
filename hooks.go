package stockpile

import "time"

// Hooks lightweight callbacks for high-signal events.
// Implementations MUST be cheap and non-blocking.
// The cache calls them on hot paths.
type Hooks interface {
	// This caller won the lock, ran the producer and persisted the result.
	Computed(db, key string, took time.Duration)

	// Another caller holds the lock; this caller waits for its result.
	LockContended(db, key string)

	// No value appeared within the slumber window; the caller computes
	// on its own and does not cache the result.
	WaitTimedOut(db, key string, waited time.Duration)

	// The producer returned an error while this caller held the lock.
	ProducerFailed(db, key string, err error)

	// Explicit lock release failed; the lock expires on its own.
	LockReleaseFailed(db, lockKey string, err error)

	// A cached entry could not be decoded and was treated as a miss.
	CorruptEntry(db, key string, err error)
}

// NopHooks is the default no-op
type NopHooks struct{}

var _ Hooks = NopHooks{}

func (NopHooks) Computed(string, string, time.Duration)     {}
func (NopHooks) LockContended(string, string)               {}
func (NopHooks) WaitTimedOut(string, string, time.Duration) {}
func (NopHooks) ProducerFailed(string, string, error)       {}
func (NopHooks) LockReleaseFailed(string, string, error)    {}
func (NopHooks) CorruptEntry(string, string, error)         {}
