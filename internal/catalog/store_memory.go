package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemStore keeps sweets in a mutex-guarded map. Purchase and Restock perform
// the availability check and the mutation under one lock hold, so the
// non-negative stock invariant holds under concurrent callers.
type MemStore struct {
	mu sync.RWMutex
	m  map[string]Sweet
}

func NewMemStore() *MemStore {
	return &MemStore{m: map[string]Sweet{}}
}

func (s *MemStore) Ping(ctx context.Context) error { return nil }

func (s *MemStore) Create(ctx context.Context, sw Sweet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[sw.ID] = sw
	return nil
}

func (s *MemStore) Get(ctx context.Context, id string) (Sweet, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sw, ok := s.m[id]
	return sw, ok, nil
}

func (s *MemStore) Search(ctx context.Context, f Filter) ([]Sweet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sweet, 0, len(s.m))
	for _, sw := range s.m {
		if matches(sw, f) {
			out = append(out, sw)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })

	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func matches(sw Sweet, f Filter) bool {
	if f.Query != "" {
		q := strings.ToLower(f.Query)
		if !strings.Contains(strings.ToLower(sw.Name), q) &&
			!strings.Contains(strings.ToLower(sw.Description), q) {
			return false
		}
	}
	if f.Category != "" && sw.Category != f.Category {
		return false
	}
	if f.MinPriceCents != nil && sw.PriceCents < *f.MinPriceCents {
		return false
	}
	if f.MaxPriceCents != nil && sw.PriceCents > *f.MaxPriceCents {
		return false
	}
	return true
}

func (s *MemStore) Update(ctx context.Context, id string, p Patch) (Sweet, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sw, ok := s.m[id]
	if !ok {
		return Sweet{}, false, nil
	}

	if p.Name != nil {
		sw.Name = *p.Name
	}
	if p.Description != nil {
		sw.Description = *p.Description
	}
	if p.Category != nil {
		sw.Category = *p.Category
	}
	if p.PriceCents != nil {
		sw.PriceCents = *p.PriceCents
	}
	if p.Quantity != nil {
		sw.Quantity = *p.Quantity
	}
	if p.Image != nil {
		sw.Image = *p.Image
	}
	if !p.Empty() {
		sw.UpdatedAt = time.Now().UTC()
	}

	s.m[id] = sw
	return sw, true, nil
}

func (s *MemStore) Delete(ctx context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[id]; !ok {
		return false, nil
	}
	delete(s.m, id)
	return true, nil
}

func (s *MemStore) Purchase(ctx context.Context, id string, qty int64) (Sweet, error) {
	if qty <= 0 {
		return Sweet{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sw, ok := s.m[id]
	if !ok {
		return Sweet{}, ErrNotFound
	}
	if sw.Quantity < qty {
		return Sweet{}, ErrInsufficientStock
	}

	sw.Quantity -= qty
	sw.UpdatedAt = time.Now().UTC()
	s.m[id] = sw
	return sw, nil
}

func (s *MemStore) Restock(ctx context.Context, id string, qty int64) (Sweet, error) {
	if qty <= 0 {
		return Sweet{}, ErrInvalidQuantity
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sw, ok := s.m[id]
	if !ok {
		return Sweet{}, ErrNotFound
	}

	sw.Quantity += qty
	sw.UpdatedAt = time.Now().UTC()
	s.m[id] = sw
	return sw, nil
}
