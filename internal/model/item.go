// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"time"
)

// ErrInvalidItem is returned when a request body does not carry a
// non-empty string name and a numeric price.
var ErrInvalidItem = errors.New("name (string) and price (number) required")

// HealthMessage is reported by the health endpoint.
const HealthMessage = "Item store is running"

// Item represents a priced record kept by the store.
type Item struct {
	ID    int64   `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// ItemInput is the request body of create and replace operations.
// Fields are decoded as arbitrary JSON values so that a field of the wrong
// type is reported as a validation failure rather than a malformed body.
type ItemInput struct {
	Name  any `json:"name"`
	Price any `json:"price"`
}

// Validate checks that name is a non-empty string and price is a number.
func (in *ItemInput) Validate() error {
	name, ok := in.Name.(string)
	if !ok || name == "" {
		return ErrInvalidItem
	}

	if _, ok := in.Price.(float64); !ok {
		return ErrInvalidItem
	}

	return nil
}

// Item converts a validated input into an Item without an ID.
// Callers must run Validate first.
func (in *ItemInput) Item() Item {
	name, _ := in.Name.(string)
	price, _ := in.Price.(float64)

	return Item{
		Name:  name,
		Price: price,
	}
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the body of the health endpoint.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// NewHealthResponse creates a healthy response.
func NewHealthResponse() HealthResponse {
	return HealthResponse{
		OK:      true,
		Message: HealthMessage,
	}
}

// Item event types.
const (
	EventItemCreated = "item.created"
	EventItemUpdated = "item.updated"
	EventItemDeleted = "item.deleted"
)

// ItemEvent is pushed to event feed subscribers after a successful mutation.
type ItemEvent struct {
	Type      string    `json:"type"`
	Item      Item      `json:"item"`
	Timestamp time.Time `json:"timestamp"`
}

// NewItemEvent creates an event of the given type stamped with the current time.
func NewItemEvent(eventType string, item Item) ItemEvent {
	return ItemEvent{
		Type:      eventType,
		Item:      item,
		Timestamp: time.Now().UTC(),
	}
}
