package cart

import "sync"

// Storage is the serialize-on-change / hydrate-on-start boundary. Load
// returns nil items for a cart that has never been saved.
type Storage interface {
	Load() ([]Item, error)
	Save(items []Item) error
}

// MemStorage holds items in memory. Used in tests and as a fallback when no
// cart database is configured.
type MemStorage struct {
	mu    sync.Mutex
	items []Item
}

func NewMemStorage() *MemStorage { return &MemStorage{} }

func (s *MemStorage) Load() ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out, nil
}

func (s *MemStorage) Save(items []Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = make([]Item, len(items))
	copy(s.items, items)
	return nil
}
