package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemstore/internal/model"
	"github.com/vyrodovalexey/itemstore/internal/store"
)

// DefaultMaxBodyBytes bounds request bodies when no limit is configured.
const DefaultMaxBodyBytes int64 = 1 << 20

var itemMutationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "item_mutations_total",
		Help: "Total number of successful item mutations",
	},
	[]string{"operation"},
)

// EventPublisher receives an event after every successful mutation.
type EventPublisher interface {
	Publish(event model.ItemEvent)
}

// RESTHandler handles REST API requests for items.
type RESTHandler struct {
	store        store.Store
	logger       *zap.Logger
	events       EventPublisher
	maxBodyBytes int64
}

// Option configures a RESTHandler.
type Option func(*RESTHandler)

// WithEventPublisher makes the handler publish item events to p.
func WithEventPublisher(p EventPublisher) Option {
	return func(h *RESTHandler) {
		h.events = p
	}
}

// WithMaxBodyBytes limits the size of request bodies.
func WithMaxBodyBytes(n int64) Option {
	return func(h *RESTHandler) {
		if n > 0 {
			h.maxBodyBytes = n
		}
	}
}

// NewRESTHandler creates a new RESTHandler instance.
func NewRESTHandler(s store.Store, logger *zap.Logger, opts ...Option) *RESTHandler {
	h := &RESTHandler{
		store:        s,
		logger:       logger,
		maxBodyBytes: DefaultMaxBodyBytes,
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// RegisterRoutes registers the REST API routes with the router.
func (h *RESTHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/", h.HealthCheck).Methods(http.MethodGet)
	router.HandleFunc("/items", h.ListItems).Methods(http.MethodGet)
	router.HandleFunc("/items", h.CreateItem).Methods(http.MethodPost)
	router.HandleFunc("/items/{id}", h.GetItem).Methods(http.MethodGet)
	router.HandleFunc("/items/{id}", h.UpdateItem).Methods(http.MethodPut)
	router.HandleFunc("/items/{id}", h.DeleteItem).Methods(http.MethodDelete)
}

// HealthCheck handles GET / requests.
func (h *RESTHandler) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, model.NewHealthResponse())
}

// ListItems handles GET /items requests.
func (h *RESTHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items, err := h.store.List(r.Context())
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("list items: %w", err))
		return
	}

	h.writeJSON(w, http.StatusOK, items)
}

// GetItem handles GET /items/{id} requests.
func (h *RESTHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	item, err := h.store.Get(r.Context(), id)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("get item %d: %w", id, err))
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

// CreateItem handles POST /items requests.
func (h *RESTHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	input, err := h.decodeItemInput(w, r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	newItem := input.Item()
	item, err := h.store.Create(r.Context(), &newItem)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("create item: %w", err))
		return
	}

	h.publish(model.EventItemCreated, item)
	h.writeJSON(w, http.StatusCreated, item)
}

// UpdateItem handles PUT /items/{id} requests. The item must exist before
// the body is examined, so an unknown ID is reported as 404 even when the
// body is invalid.
func (h *RESTHandler) UpdateItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	if _, err := h.store.Get(r.Context(), id); err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("update item %d: %w", id, err))
		return
	}

	input, err := h.decodeItemInput(w, r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	replacement := input.Item()
	item, err := h.store.Update(r.Context(), id, &replacement)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("update item %d: %w", id, err))
		return
	}

	h.publish(model.EventItemUpdated, item)
	h.writeJSON(w, http.StatusOK, item)
}

// DeleteItem handles DELETE /items/{id} requests.
func (h *RESTHandler) DeleteItem(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		WriteError(w, r, h.logger, err)
		return
	}

	item, err := h.store.Delete(r.Context(), id)
	if err != nil {
		WriteError(w, r, h.logger, fmt.Errorf("delete item %d: %w", id, err))
		return
	}

	h.publish(model.EventItemDeleted, item)
	h.writeJSON(w, http.StatusNoContent, nil)
}

// decodeItemInput reads the whole body and validates it. An empty body
// is treated as an empty object and therefore fails validation, as does
// any JSON value that is not an object.
func (h *RESTHandler) decodeItemInput(w http.ResponseWriter, r *http.Request) (*model.ItemInput, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, maxErr.Limit)
		}
		return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
	}

	var input model.ItemInput
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &input); err != nil {
			// Well-formed JSON that is not an object carries no fields
			// and fails validation below.
			var typeErr *json.UnmarshalTypeError
			if !errors.As(err, &typeErr) {
				return nil, fmt.Errorf("%w: %w", ErrMalformedBody, err)
			}
			input = model.ItemInput{}
		}
	}

	if err := input.Validate(); err != nil {
		return nil, err
	}

	return &input, nil
}

// publish forwards a mutation to the event publisher, if any, and counts it.
func (h *RESTHandler) publish(eventType string, item *model.Item) {
	itemMutationsTotal.WithLabelValues(eventType).Inc()

	if h.events == nil {
		return
	}
	h.events.Publish(model.NewItemEvent(eventType, *item))
}

// writeJSON writes a JSON response and logs encoding failures.
func (h *RESTHandler) writeJSON(w http.ResponseWriter, status int, data any) {
	if err := WriteJSON(w, status, data); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

// itemID parses the {id} route variable. Only the canonical decimal form
// names a stored item, so "abc", "01" and "+1" are all reported as not
// found.
func itemID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse item id %q: %w", raw, store.ErrNotFound)
	}
	if strconv.FormatInt(id, 10) != raw {
		return 0, fmt.Errorf("non-canonical item id %q: %w", raw, store.ErrNotFound)
	}

	return id, nil
}
