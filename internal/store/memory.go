package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/itemstore/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
// Items are kept in insertion order and IDs come from a counter that is
// never rewound, so an ID is not reused after deletion.
type MemoryStore struct {
	mu     sync.RWMutex
	items  []model.Item
	nextID int64
}

// NewMemoryStore creates a new empty MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items:  make([]model.Item, 0),
		nextID: 1,
	}
}

// List returns a copy of all items in insertion order.
func (s *MemoryStore) List(ctx context.Context) ([]model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.Item, len(s.items))
	copy(items, s.items)

	return items, nil
}

// Get retrieves an item by its ID.
func (s *MemoryStore) Get(ctx context.Context, id int64) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	item := s.items[idx]
	return &item, nil
}

// Create appends a new item to the store and returns it with the next ID.
func (s *MemoryStore) Create(ctx context.Context, item *model.Item) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create item: %w", err)
	}

	if item == nil {
		return nil, fmt.Errorf("create item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	newItem := model.Item{
		ID:    s.nextID,
		Name:  item.Name,
		Price: item.Price,
	}
	s.nextID++

	s.items = append(s.items, newItem)

	return &newItem, nil
}

// Update replaces the name and price of an existing item in place.
func (s *MemoryStore) Update(ctx context.Context, id int64, item *model.Item) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("update item: %w", err)
	}

	if item == nil {
		return nil, fmt.Errorf("update item: %w", ErrNilItem)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	updatedItem := model.Item{
		ID:    id,
		Name:  item.Name,
		Price: item.Price,
	}
	s.items[idx] = updatedItem

	return &updatedItem, nil
}

// Delete removes an item from the store by its ID, preserving the order
// of the remaining items.
func (s *MemoryStore) Delete(ctx context.Context, id int64) (*model.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("delete item: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return nil, ErrNotFound
	}

	removed := s.items[idx]
	s.items = append(s.items[:idx], s.items[idx+1:]...)

	return &removed, nil
}

// indexOf returns the slice position of id, or -1. Callers must hold mu.
func (s *MemoryStore) indexOf(id int64) int {
	for i := range s.items {
		if s.items[i].ID == id {
			return i
		}
	}
	return -1
}
