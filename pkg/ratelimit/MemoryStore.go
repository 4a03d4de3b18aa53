package ratelimit

import (
	"log/slog"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int
	resetAt time.Time
}

/*
MemoryStore is the default counter store: a process-global map with lazy
expiry on read plus a periodic sweep. State is lost on restart and is not
shared across instances.
*/
type MemoryStore struct {
	mutex       sync.Mutex
	entries     map[string]*memoryEntry
	sweepTicker *time.Ticker
	stopSweep   chan struct{}
	wg          *sync.WaitGroup
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries:   map[string]*memoryEntry{},
		stopSweep: make(chan struct{}),
		wg:        &sync.WaitGroup{},
	}
}

func (s *MemoryStore) Check(key string, max int, window time.Duration) (Result, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	entry, ok := s.entries[key]

	if !ok || entry.resetAt.Before(now) {
		entry = &memoryEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = entry

		return Result{Allowed: true, Remaining: max - 1, ResetAt: entry.resetAt}, nil
	}

	if entry.count >= max {
		return Result{Allowed: false, Remaining: 0, ResetAt: entry.resetAt}, nil
	}

	entry.count++
	return Result{Allowed: true, Remaining: max - entry.count, ResetAt: entry.resetAt}, nil
}

func (s *MemoryStore) Peek(key string) (int, time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	entry, ok := s.entries[key]

	if !ok {
		return 0, time.Time{}, nil
	}

	if entry.resetAt.Before(time.Now()) {
		delete(s.entries, key)
		return 0, time.Time{}, nil
	}

	return entry.count, entry.resetAt, nil
}

func (s *MemoryStore) Increment(key string, window time.Duration) (int, time.Time, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	entry, ok := s.entries[key]

	if !ok || entry.resetAt.Before(now) {
		entry = &memoryEntry{count: 1, resetAt: now.Add(window)}
		s.entries[key] = entry

		return 1, entry.resetAt, nil
	}

	entry.count++
	return entry.count, entry.resetAt, nil
}

func (s *MemoryStore) Clear(key string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.entries, key)
	return nil
}

/*
StartSweeper starts a periodic routine that drops expired counters so the
map does not grow without bound.
*/
func (s *MemoryStore) StartSweeper(interval time.Duration) {
	s.sweepTicker = time.NewTicker(interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		for {
			select {
			case <-s.sweepTicker.C:
				s.sweep()
			case <-s.stopSweep:
				s.sweepTicker.Stop()
				return
			}
		}
	}()

	slog.Info("rate limit sweeper started", "interval", interval)
}

func (s *MemoryStore) StopSweeper() {
	if s.sweepTicker != nil {
		close(s.stopSweep)
		s.wg.Wait()
		slog.Info("rate limit sweeper stopped")
	}
}

func (s *MemoryStore) sweep() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()

	for key, entry := range s.entries {
		if entry.resetAt.Before(now) {
			delete(s.entries, key)
		}
	}
}
