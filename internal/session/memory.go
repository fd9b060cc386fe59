package session

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

type entry struct {
	upload   *Upload
	lastSeen time.Time
}

// MemoryStore keeps uploads in process memory. A janitor goroutine evicts
// idle sessions until Close is called.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]*entry
	ttl     time.Duration
	now     func() time.Time
	gauge   prometheus.Gauge

	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

type MemoryOption func(*MemoryStore)

// WithGauge reports the number of live sessions to g.
func WithGauge(g prometheus.Gauge) MemoryOption {
	return func(s *MemoryStore) { s.gauge = g }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemoryStore starts a store whose janitor sweeps every sweep interval.
// A non-positive sweep disables the janitor; expired entries are then only
// dropped on access.
func NewMemoryStore(ttl, sweep time.Duration, opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		entries: make(map[string]*entry),
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if sweep > 0 {
		go s.janitor(sweep)
	} else {
		close(s.done)
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, id string) (*Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	now := s.now()
	if now.Sub(e.lastSeen) > s.ttl {
		delete(s.entries, id)
		s.report()
		return nil, ErrNotFound
	}
	e.lastSeen = now
	return e.upload, nil
}

func (s *MemoryStore) Put(_ context.Context, id string, u *Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = &entry{upload: u, lastSeen: s.now()}
	s.report()
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, id)
	s.report()
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Sweep evicts every idle session and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	for id, e := range s.entries {
		if now.Sub(e.lastSeen) > s.ttl {
			delete(s.entries, id)
			removed++
		}
	}
	if removed > 0 {
		s.report()
	}
	return removed
}

// Close stops the janitor and drops all sessions.
func (s *MemoryStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stop)
		<-s.done
		s.mu.Lock()
		s.entries = make(map[string]*entry)
		s.report()
		s.mu.Unlock()
	})
	return nil
}

func (s *MemoryStore) janitor(every time.Duration) {
	defer close(s.done)
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

// report must be called with mu held.
func (s *MemoryStore) report() {
	if s.gauge != nil {
		s.gauge.Set(float64(len(s.entries)))
	}
}
