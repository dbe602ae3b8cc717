package throttle

import (
	"context"
	"sync"
	"time"
)

// Record is the attempt history kept for one identifier
type Record struct {
	Attempts    int       `json:"attempts"`
	LastAttempt time.Time `json:"lastAttempt"`
	LockedUntil time.Time `json:"lockedUntil"`
}

func (r *Record) empty() bool {
	return r.Attempts == 0 && r.LastAttempt.IsZero() && r.LockedUntil.IsZero()
}

// Store holds records by key. Update runs fn on the current record (zero
// when absent) with no other update to the same key interleaving, saves
// the result and returns fn's error. An empty record is removed.
type Store interface {
	Update(ctx context.Context, key string, fn func(r *Record) error) error
	Delete(ctx context.Context, key string) error
}

// MemoryStore keeps records in process memory. Everything is lost on
// restart and isn't shared between replicas.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Update(_ context.Context, key string, fn func(r *Record) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := s.records[key]
	err := fn(&r)

	if r.empty() {
		delete(s.records, key)
	} else {
		s.records[key] = r
	}

	return err
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()

	return nil
}

// Len returns the number of identifiers with a history
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}
