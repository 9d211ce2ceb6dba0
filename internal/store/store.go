// Package store provides data storage interfaces and implementations.
package store

import (
	"context"
	"errors"

	"github.com/vyrodovalexey/itemstore/internal/model"
)

// Store errors.
var (
	ErrNotFound = errors.New("item not found")
	ErrNilItem  = errors.New("item cannot be nil")
)

// Store defines the interface for item storage operations.
type Store interface {
	// List returns all items in insertion order.
	List(ctx context.Context) ([]model.Item, error)

	// Get retrieves an item by its ID.
	Get(ctx context.Context, id int64) (*model.Item, error)

	// Create appends a new item to the store and returns it with its assigned ID.
	Create(ctx context.Context, item *model.Item) (*model.Item, error)

	// Update replaces the name and price of an existing item, keeping its ID.
	Update(ctx context.Context, id int64, item *model.Item) (*model.Item, error)

	// Delete removes an item from the store by its ID and returns the removed item.
	Delete(ctx context.Context, id int64) (*model.Item, error)
}
