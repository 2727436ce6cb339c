package ratelimit

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dtroode/sessionguard/internal/model"
)

// Defaults applied by New.
const (
	DefaultMaxAttempts = 5
	DefaultWindow      = 300 * time.Second
)

type record struct {
	count       atomic.Int64
	windowStart atomic.Int64 // unix nanoseconds
}

func newRecord(now time.Time) *record {
	r := &record{}
	r.count.Store(1)
	r.windowStart.Store(now.UnixNano())
	return r
}

// Option configures Limiter.
type Option func(*Limiter)

// WithLimits overrides the attempt cap and the window length.
func WithLimits(maxAttempts int, window time.Duration) Option {
	return func(l *Limiter) {
		l.maxAttempts = int64(maxAttempts)
		l.window = window
	}
}

// WithClock sets the clock used for window bookkeeping.
func WithClock(clock model.Clock) Option {
	return func(l *Limiter) { l.clock = clock }
}

// Limiter counts attempts per key within a rolling window. It is safe for
// concurrent use; keys never contend on a shared lock.
type Limiter struct {
	records     sync.Map // string -> *record
	maxAttempts int64
	window      time.Duration
	clock       model.Clock
}

// New creates a Limiter with DefaultMaxAttempts per DefaultWindow.
func New(opts ...Option) *Limiter {
	l := &Limiter{
		maxAttempts: DefaultMaxAttempts,
		window:      DefaultWindow,
		clock:       model.SystemClock{},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsAllowed counts an attempt for key and reports whether it is within the limit.
// A denied attempt is not counted. An allowed attempt restarts the window.
func (l *Limiter) IsAllowed(key string) bool {
	now := l.clock.Now()
	for {
		v, loaded := l.records.LoadOrStore(key, newRecord(now))
		if !loaded {
			return true
		}

		rec := v.(*record)
		if l.elapsed(rec, now) {
			if l.records.CompareAndSwap(key, rec, newRecord(now)) {
				return true
			}
			continue
		}

		for {
			count := rec.count.Load()
			if count >= l.maxAttempts {
				return false
			}
			if rec.count.CompareAndSwap(count, count+1) {
				rec.windowStart.Store(now.UnixNano())
				return true
			}
		}
	}
}

// RecordSuccess forgets every attempt counted for key.
func (l *Limiter) RecordSuccess(key string) {
	l.records.Delete(key)
}

// RecordFailure counts an attempt for key without restarting its window.
func (l *Limiter) RecordFailure(key string) {
	now := l.clock.Now()
	for {
		v, loaded := l.records.LoadOrStore(key, newRecord(now))
		if !loaded {
			return
		}

		rec := v.(*record)
		if l.elapsed(rec, now) {
			if l.records.CompareAndSwap(key, rec, newRecord(now)) {
				return
			}
			continue
		}

		rec.count.Add(1)
		return
	}
}

// RemainingAttempts returns how many attempts key has left in its window.
func (l *Limiter) RemainingAttempts(key string) int {
	v, ok := l.records.Load(key)
	if !ok {
		return int(l.maxAttempts)
	}

	rec := v.(*record)
	if l.elapsed(rec, l.clock.Now()) {
		return int(l.maxAttempts)
	}

	return int(max(0, l.maxAttempts-rec.count.Load()))
}

// Sweep drops records whose window has elapsed and returns how many were dropped.
func (l *Limiter) Sweep() int {
	now := l.clock.Now()
	dropped := 0
	l.records.Range(func(key, v any) bool {
		if l.elapsed(v.(*record), now) && l.records.CompareAndDelete(key, v) {
			dropped++
		}
		return true
	})
	return dropped
}

func (l *Limiter) elapsed(rec *record, now time.Time) bool {
	return now.Sub(time.Unix(0, rec.windowStart.Load())) > l.window
}
