// Package sloghooks reports stockpile events to a log/slog logger.
package sloghooks

import (
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/unkn0wn-root/stockpile"
)

type Options struct {
	// Sampling to avoid floods on hot keys; 0/1 = log all.
	ContendedEvery uint64
	ComputedEvery  uint64
	// Optional key redactor. Defaults to SHA-256 prefix.
	Redact func(string) string
}

type Hooks struct {
	l    *slog.Logger
	opts Options

	contendedCtr atomic.Uint64
	computedCtr  atomic.Uint64
}

var _ stockpile.Hooks = (*Hooks)(nil)

func New(l *slog.Logger, opts Options) *Hooks {
	return &Hooks{l: l, opts: opts}
}

func (h *Hooks) redact(k string) string {
	if h.opts.Redact != nil {
		return h.opts.Redact(k)
	}
	sum := sha256.Sum256([]byte(k))
	return hex.EncodeToString(sum[:8])
}

func sample(n uint64, ctr *atomic.Uint64) bool {
	if n == 0 || n == 1 {
		return true
	}
	return ctr.Add(1)%n == 0
}

func (h *Hooks) Computed(db, key string, took time.Duration) {
	if h.l == nil || !sample(h.opts.ComputedEvery, &h.computedCtr) {
		return
	}
	h.l.Debug("stockpile.computed",
		"db", db,
		"key", h.redact(key),
		"took", took)
}

func (h *Hooks) LockContended(db, key string) {
	if h.l == nil || !sample(h.opts.ContendedEvery, &h.contendedCtr) {
		return
	}
	h.l.Debug("stockpile.lock_contended",
		"db", db,
		"key", h.redact(key))
}

func (h *Hooks) WaitTimedOut(db, key string, waited time.Duration) {
	if h.l == nil {
		return
	}
	h.l.Info("stockpile.wait_timed_out",
		"db", db,
		"key", h.redact(key),
		"waited", waited)
}

func (h *Hooks) ProducerFailed(db, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stockpile.producer_failed",
		"db", db,
		"key", h.redact(key),
		"err", err)
}

func (h *Hooks) LockReleaseFailed(db, lockKey string, err error) {
	if h.l == nil {
		return
	}
	h.l.Warn("stockpile.lock_release_failed",
		"db", db,
		"key", h.redact(lockKey),
		"err", err)
}

func (h *Hooks) CorruptEntry(db, key string, err error) {
	if h.l == nil {
		return
	}
	h.l.Error("stockpile.corrupt_entry",
		"db", db,
		"key", h.redact(key),
		"err", err)
}
