package stockpile

import (
	"errors"
	"fmt"
)

var (
	// ErrDatabaseNotFound is a configuration error: the database name was
	// never registered. It is never retried.
	ErrDatabaseNotFound = errors.New("stockpile: database not found")

	// ErrWaitTimeout is returned by GetBlocking when no value appears in time.
	// PerformCached never surfaces it; it falls back to the producer instead.
	ErrWaitTimeout = errors.New("stockpile: timed out waiting for cached value")

	// ErrCorruptEntry wraps decode failures of stored payloads.
	ErrCorruptEntry = errors.New("stockpile: corrupt cache entry")

	ErrNilProducer = errors.New("stockpile: nil producer")
)

type DatabaseNotFoundError struct {
	Name string
}

func (e *DatabaseNotFoundError) Error() string {
	return fmt.Sprintf("stockpile: database %q not found", e.Name)
}

func (e *DatabaseNotFoundError) Is(target error) bool {
	return target == ErrDatabaseNotFound
}

// StoreError is a failure reported by the underlying store (network,
// protocol, closed client). The cache never retries it.
type StoreError struct {
	Op       string
	Database string
	Key      string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("stockpile: %s %q on database %q: %v", e.Op, e.Key, e.Database, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func storeErr(op, db, key string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Database: db, Key: key, Err: err}
}
