package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// DefaultFetchTimeout bounds a shared refresh once it no longer follows any caller's context.
const DefaultFetchTimeout = 30 * time.Second

// Clock returns the current time. Tests substitute a fake.
type Clock func() time.Time

// Entry is a cached value and the instant it was acquired.
type Entry[T any] struct {
	Data      T
	Timestamp time.Time
}

// Fresh reports whether the entry is younger than ttl at now.
func (e Entry[T]) Fresh(now time.Time, ttl time.Duration) bool {
	return now.Sub(e.Timestamp) < ttl
}

// Kind tags how a [Result] was produced.
type Kind int

const (
	Empty Kind = iota
	Fresh
	Stale
)

func (k Kind) String() string {
	switch k {
	case Fresh:
		return "fresh"
	case Stale:
		return "stale"
	default:
		return "empty"
	}
}

// Result is the outcome of [Slot.Load].
type Result[T any] struct {
	Kind Kind
	Data T
	Err  error         // refresh error behind a Stale or Empty result
	Age  time.Duration // age of the served entry; zero for Empty
}

// Slot caches a single value with a fixed TTL.
type Slot[T any] struct {
	name    string
	ttl     time.Duration
	clock   Clock
	timeout time.Duration

	mu    sync.RWMutex
	entry *Entry[T]

	sf singleflight.Group
}

// NewSlot creates an empty slot. A nil clock defaults to [time.Now].
func NewSlot[T any](name string, ttl time.Duration, clock Clock) *Slot[T] {
	if clock == nil {
		clock = time.Now
	}
	return &Slot[T]{name: name, ttl: ttl, clock: clock, timeout: DefaultFetchTimeout}
}

// SetFetchTimeout changes how long a shared refresh may run. Non-positive values are ignored.
func (s *Slot[T]) SetFetchTimeout(d time.Duration) {
	if d > 0 {
		s.timeout = d
	}
}

// Name returns the slot's label, used in logs.
func (s *Slot[T]) Name() string { return s.name }

// TTL returns the slot's time-to-live.
func (s *Slot[T]) TTL() time.Duration { return s.ttl }

// Peek returns the current entry regardless of freshness.
func (s *Slot[T]) Peek() (Entry[T], bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.entry == nil {
		return Entry[T]{}, false
	}
	return *s.entry, true
}

// Fresh returns the cached data if it is within TTL.
func (s *Slot[T]) Fresh() (T, bool) {
	entry, ok := s.Peek()
	if !ok || !entry.Fresh(s.clock(), s.ttl) {
		var zero T
		return zero, false
	}
	return entry.Data, true
}

// Store replaces the entry with data stamped at the current time.
func (s *Slot[T]) Store(data T) Entry[T] {
	entry := Entry[T]{Data: data, Timestamp: s.clock()}

	s.mu.Lock()
	s.entry = &entry
	s.mu.Unlock()

	return entry
}

// Load returns fresh data without calling fetch, or refreshes the slot.
//
// Concurrent loads share one fetch. The fetch runs detached from the caller that started it,
// so a cancelled caller does not fail the others; each caller stops waiting when its own ctx ends.
//
// On fetch failure the existing entry is left untouched and returned as [Stale],
// or [Empty] with the zero value when nothing was cached.
func (s *Slot[T]) Load(ctx context.Context, fetch func(context.Context) (T, error)) Result[T] {
	if entry, ok := s.Peek(); ok && entry.Fresh(s.clock(), s.ttl) {
		return Result[T]{Kind: Fresh, Data: entry.Data, Age: s.clock().Sub(entry.Timestamp)}
	}

	ch := s.sf.DoChan(s.name, func() (v any, err error) {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("%s: fetch panicked: %v", s.name, p)
			}
		}()

		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		data, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		return s.Store(data), nil
	})

	var err error
	select {
	case res := <-ch:
		if res.Err == nil {
			return Result[T]{Kind: Fresh, Data: res.Val.(Entry[T]).Data}
		}
		err = res.Err
	case <-ctx.Done():
		err = ctx.Err()
	}

	if prev, ok := s.Peek(); ok {
		return Result[T]{Kind: Stale, Data: prev.Data, Err: err, Age: s.clock().Sub(prev.Timestamp)}
	}

	var zero T
	return Result[T]{Kind: Empty, Data: zero, Err: err}
}
