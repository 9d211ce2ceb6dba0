// Package handler provides HTTP request handlers for the item store API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemstore/internal/model"
	"github.com/vyrodovalexey/itemstore/internal/store"
)

// Request errors raised by the handlers themselves.
var (
	ErrMalformedBody = errors.New("malformed request body")
	ErrBodyTooLarge  = errors.New("request body too large")
	ErrRouteNotFound = errors.New("route not found")
)

// Client-facing error messages.
const (
	MsgNotFound      = "Not found"
	MsgRouteNotFound = "Route not found"
	MsgMalformedBody = "Invalid JSON body"
	MsgBodyTooLarge  = "Request body too large"
	MsgInternalError = "Internal Server Error"
)

// ContentTypeJSON is the content type of every JSON response.
const ContentTypeJSON = "application/json; charset=utf-8"

const (
	headerContentType   = "Content-Type"
	headerContentLength = "Content-Length"
)

// ErrorStatus translates an error into its HTTP status code and the
// message returned to the client. Unknown errors map to 500.
func ErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, model.ErrInvalidItem):
		return http.StatusBadRequest, model.ErrInvalidItem.Error()
	case errors.Is(err, ErrMalformedBody):
		return http.StatusBadRequest, MsgMalformedBody
	case errors.Is(err, ErrBodyTooLarge):
		return http.StatusRequestEntityTooLarge, MsgBodyTooLarge
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, MsgNotFound
	case errors.Is(err, ErrRouteNotFound):
		return http.StatusNotFound, MsgRouteNotFound
	default:
		return http.StatusInternalServerError, MsgInternalError
	}
}

// WriteJSON encodes data and writes it with the given status code.
// A nil data writes the status only, which is how 204 responses are sent.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	if data == nil {
		w.WriteHeader(status)
		return nil
	}

	body, err := json.Marshal(data)
	if err != nil {
		status = http.StatusInternalServerError
		body, _ = json.Marshal(model.ErrorResponse{Error: MsgInternalError})
	}

	w.Header().Set(headerContentType, ContentTypeJSON)
	w.Header().Set(headerContentLength, strconv.Itoa(len(body)))
	w.WriteHeader(status)

	if _, writeErr := w.Write(body); writeErr != nil {
		return writeErr
	}

	return err
}

// WriteError translates err and writes the matching error body.
// Server-side failures are logged with their cause; client errors are
// logged at lower levels.
func WriteError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, message := ErrorStatus(err)

	fields := []zap.Field{
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.Error(err),
	}
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", fields...)
	case status == http.StatusNotFound:
		logger.Debug("resource not found", fields...)
	default:
		logger.Warn("invalid request", fields...)
	}

	if writeErr := WriteJSON(w, status, model.ErrorResponse{Error: message}); writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}
}

// RouteNotFound answers any request no route matched, including a known
// path with an unregistered method.
func RouteNotFound(logger *zap.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		WriteError(w, r, logger, ErrRouteNotFound)
	})
}
