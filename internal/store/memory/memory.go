package memory

import (
	"context"
	"sync"

	"github.com/vovakirdan/wirestream/internal/store"
)

// MemoryStore implements store.Store in process memory.
// It is only shared between goroutines of one process.
type MemoryStore struct {
	mu       sync.Mutex
	values   map[string]string
	sets     map[string]map[string]struct{}
	maps     map[string]map[string]string
	counters map[string]int64
	lists    map[string][]string
}

// New creates an empty in-memory store.
func New() *MemoryStore {
	return &MemoryStore{
		values:   make(map[string]string),
		sets:     make(map[string]map[string]struct{}),
		maps:     make(map[string]map[string]string),
		counters: make(map[string]int64),
		lists:    make(map[string][]string),
	}
}

// Get returns the value stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	if !ok {
		return "", store.ErrNotFound
	}
	return v, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return nil
}

// SetAdd inserts member into the set at key.
func (s *MemoryStore) SetAdd(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.sets[key]
	if !ok {
		set = make(map[string]struct{})
		s.sets[key] = set
	}
	set[member] = struct{}{}
	return nil
}

// SetMembers returns all members of the set at key.
func (s *MemoryStore) SetMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	members := make([]string, 0, len(s.sets[key]))
	for m := range s.sets[key] {
		members = append(members, m)
	}
	return members, nil
}

// MapPutIfAbsent sets field only if it is not present yet.
func (s *MemoryStore) MapPutIfAbsent(_ context.Context, key, field, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[key]
	if !ok {
		m = make(map[string]string)
		s.maps[key] = m
	}
	if _, exists := m[field]; exists {
		return false, nil
	}
	m[field] = value
	return true, nil
}

// MapDelete removes field from the map at key.
func (s *MemoryStore) MapDelete(_ context.Context, key, field string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.maps[key]
	if !ok {
		return false, nil
	}
	if _, exists := m[field]; !exists {
		return false, nil
	}
	delete(m, field)
	if len(m) == 0 {
		delete(s.maps, key)
	}
	return true, nil
}

// MapGetAll returns a copy of the map at key.
func (s *MemoryStore) MapGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]string, len(s.maps[key]))
	for f, v := range s.maps[key] {
		out[f] = v
	}
	return out, nil
}

// CounterIncr increments the counter at key.
func (s *MemoryStore) CounterIncr(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key]++
	return s.counters[key], nil
}

// CounterDecrFloor decrements the counter at key, never below zero.
func (s *MemoryStore) CounterDecrFloor(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.counters[key] > 0 {
		s.counters[key]--
	}
	return s.counters[key], nil
}

// CounterGet returns the counter at key.
func (s *MemoryStore) CounterGet(_ context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters[key], nil
}

// ListAppendUnlessLast appends value unless it repeats the last element.
func (s *MemoryStore) ListAppendUnlessLast(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.lists[key]
	if n := len(list); n > 0 && list[n-1] == value {
		return false, nil
	}
	s.lists[key] = append(list, value)
	return true, nil
}

// ListRange returns a copy of the list at key.
func (s *MemoryStore) ListRange(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.lists[key]))
	copy(out, s.lists[key])
	return out, nil
}

// Ping always succeeds.
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

// Close is a no-op.
func (s *MemoryStore) Close() error {
	return nil
}

var _ store.Store = (*MemoryStore)(nil)
