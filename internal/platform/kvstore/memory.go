package kvstore

import (
	"context"
	"sort"
	"sync"
	"time"
)

type scalarEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore is an in-process Store used by tests and dev mode. All
// operations are safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	scalars map[string]scalarEntry
	hashes  map[string]map[string]string
	zsets   map[string]map[string]float64
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scalars: make(map[string]scalarEntry),
		hashes:  make(map[string]map[string]string),
		zsets:   make(map[string]map[string]float64),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	e, ok := s.scalars[key]
	s.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !e.expiresAt.IsZero() && !e.expiresAt.After(s.now()) {
		s.mu.Lock()
		delete(s.scalars, key)
		s.mu.Unlock()
		return "", false, nil
	}
	return e.value, true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.scalars[key] = scalarEntry{value: value}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.scalars[key]; ok {
		if e.expiresAt.IsZero() || e.expiresAt.After(now) {
			return false, nil
		}
	}

	entry := scalarEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = now.Add(ttl)
	}
	s.scalars[key] = entry
	return true, nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	for _, key := range keys {
		delete(s.scalars, key)
		delete(s.hashes, key)
		delete(s.zsets, key)
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	if _, ok, err := s.Get(ctx, key); err != nil || ok {
		return ok, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if h, ok := s.hashes[key]; ok && len(h) > 0 {
		return true, nil
	}
	if z, ok := s.zsets[key]; ok && len(z) > 0 {
		return true, nil
	}
	return false, nil
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.hashes[key][field]
	return value, ok, nil
}

func (s *MemoryStore) HSet(_ context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}

	s.mu.Lock()
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string, len(fields))
		s.hashes[key] = h
	}
	for field, value := range fields {
		h[field] = value
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	h := s.hashes[key]
	out := make(map[string]string, len(h))
	for field, value := range h {
		out[field] = value
	}
	return out, nil
}

func (s *MemoryStore) HDel(_ context.Context, key string, fields ...string) error {
	s.mu.Lock()
	if h, ok := s.hashes[key]; ok {
		for _, field := range fields {
			delete(h, field)
		}
		if len(h) == 0 {
			delete(s.hashes, key)
		}
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) HLen(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.hashes[key])), nil
}

func (s *MemoryStore) ZAdd(_ context.Context, key string, members ...ZMember) error {
	if len(members) == 0 {
		return nil
	}

	s.mu.Lock()
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64, len(members))
		s.zsets[key] = z
	}
	for _, m := range members {
		z[m.Member] = m.Score
	}
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ZIncrBy(_ context.Context, key, member string, delta float64) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64, 1)
		s.zsets[key] = z
	}
	z[member] += delta
	return z[member], nil
}

func (s *MemoryStore) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return int64(len(s.zsets[key])), nil
}

func (s *MemoryStore) ZRangeByRank(_ context.Context, key string, start, stop int64, reverse bool) ([]ZMember, error) {
	s.mu.RLock()
	sorted := s.sortedMembers(key)
	s.mu.RUnlock()

	if reverse {
		for i, j := 0, len(sorted)-1; i < j; i, j = i+1, j-1 {
			sorted[i], sorted[j] = sorted[j], sorted[i]
		}
	}

	from, to, ok := resolveRankRange(start, stop, int64(len(sorted)))
	if !ok {
		return nil, nil
	}
	return sorted[from : to+1], nil
}

func (s *MemoryStore) ZRemRangeByRank(_ context.Context, key string, start, stop int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sorted := s.sortedMembers(key)
	from, to, ok := resolveRankRange(start, stop, int64(len(sorted)))
	if !ok {
		return nil
	}
	z := s.zsets[key]
	for _, m := range sorted[from : to+1] {
		delete(z, m.Member)
	}
	if len(z) == 0 {
		delete(s.zsets, key)
	}
	return nil
}

func (s *MemoryStore) ZRemRangeByScore(_ context.Context, key string, min, max float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z := s.zsets[key]
	for member, score := range z {
		if score >= min && score <= max {
			delete(z, member)
		}
	}
	if len(z) == 0 {
		delete(s.zsets, key)
	}
	return nil
}

// sortedMembers returns members ordered by score ascending, ties broken by
// member so ranks are deterministic. Callers must hold the lock.
func (s *MemoryStore) sortedMembers(key string) []ZMember {
	z := s.zsets[key]
	out := make([]ZMember, 0, len(z))
	for member, score := range z {
		out = append(out, ZMember{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score < out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	return out
}

func resolveRankRange(start, stop, size int64) (int64, int64, bool) {
	if size == 0 {
		return 0, 0, false
	}
	if start < 0 {
		start += size
	}
	if stop < 0 {
		stop += size
	}
	if start < 0 {
		start = 0
	}
	if stop >= size {
		stop = size - 1
	}
	if start > stop || start >= size {
		return 0, 0, false
	}
	return start, stop, true
}
