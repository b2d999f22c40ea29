// Package promhook exports stockpile events as Prometheus metrics, labelled
// by database name. Keys are never used as labels.
package promhook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/unkn0wn-root/stockpile"
)

type Config struct {
	Registerer prometheus.Registerer // nil => prometheus.DefaultRegisterer
	Namespace  string                // "" => "stockpile"
	Buckets    []float64             // compute duration buckets (seconds); nil => prometheus.DefBuckets
}

type Hooks struct {
	computed      *prometheus.CounterVec
	computeTime   *prometheus.HistogramVec
	contended     *prometheus.CounterVec
	waitTimeouts  *prometheus.CounterVec
	producerFails *prometheus.CounterVec
	releaseFails  *prometheus.CounterVec
	corrupt       *prometheus.CounterVec
}

var _ stockpile.Hooks = (*Hooks)(nil)

// New creates and registers the collectors. It fails if any of them is
// already registered on cfg.Registerer.
func New(cfg Config) (*Hooks, error) {
	reg := cfg.Registerer
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := cfg.Namespace
	if ns == "" {
		ns = "stockpile"
	}
	buckets := cfg.Buckets
	if buckets == nil {
		buckets = prometheus.DefBuckets
	}

	counter := func(name, help string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns, Name: name, Help: help,
		}, []string{"db"})
	}
	h := &Hooks{
		computed: counter("computed_total", "Values computed under the lock and cached."),
		computeTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "compute_duration_seconds",
			Help:      "Producer run time for values computed under the lock.",
			Buckets:   buckets,
		}, []string{"db"}),
		contended:     counter("lock_contended_total", "Calls that found the lock held and waited."),
		waitTimeouts:  counter("wait_timeouts_total", "Waits that timed out and computed uncached."),
		producerFails: counter("producer_failures_total", "Producer errors while holding the lock."),
		releaseFails:  counter("lock_release_failures_total", "Failed explicit lock releases."),
		corrupt:       counter("corrupt_entries_total", "Cached entries that failed to decode."),
	}

	for _, c := range []prometheus.Collector{
		h.computed, h.computeTime, h.contended, h.waitTimeouts,
		h.producerFails, h.releaseFails, h.corrupt,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return h, nil
}

func (h *Hooks) Computed(db, _ string, took time.Duration) {
	h.computed.WithLabelValues(db).Inc()
	h.computeTime.WithLabelValues(db).Observe(took.Seconds())
}

func (h *Hooks) LockContended(db, _ string) { h.contended.WithLabelValues(db).Inc() }

func (h *Hooks) WaitTimedOut(db, _ string, _ time.Duration) {
	h.waitTimeouts.WithLabelValues(db).Inc()
}

func (h *Hooks) ProducerFailed(db, _ string, _ error) { h.producerFails.WithLabelValues(db).Inc() }

func (h *Hooks) LockReleaseFailed(db, _ string, _ error) { h.releaseFails.WithLabelValues(db).Inc() }

func (h *Hooks) CorruptEntry(db, _ string, _ error) { h.corrupt.WithLabelValues(db).Inc() }
