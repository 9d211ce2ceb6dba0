package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/itemstore/internal/model"
)

// WebSocket configuration constants.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBufferSize = 64
	closeGrace     = 100 * time.Millisecond
)

var eventSubscribers = promauto.NewGauge(
	prometheus.GaugeOpts{
		Name: "item_event_subscribers",
		Help: "Number of connected item event feed subscribers",
	},
)

// subscriber is one connected feed client.
type subscriber struct {
	send   chan model.ItemEvent
	cancel context.CancelFunc
}

// WebSocketHandler streams item events to connected WebSocket clients.
// It implements EventPublisher.
type WebSocketHandler struct {
	upgrader websocket.Upgrader
	logger   *zap.Logger
	mu       sync.RWMutex
	clients  map[*websocket.Conn]*subscriber
}

// NewWebSocketHandler creates a new WebSocketHandler instance.
func NewWebSocketHandler(logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(_ *http.Request) bool {
				return true
			},
		},
		logger:  logger,
		clients: make(map[*websocket.Conn]*subscriber),
	}
}

// RegisterRoutes registers the WebSocket routes with the router.
func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleWebSocket).Methods(http.MethodGet)
}

// HandleWebSocket upgrades the connection and subscribes it to item events.
//
//nolint:contextcheck // WebSocket connections outlive the HTTP request context
func (h *WebSocketHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("failed to upgrade connection", zap.Error(err))
		return
	}

	// The request context ends when this handler returns.
	ctx, cancel := context.WithCancel(context.Background())
	sub := &subscriber{
		send:   make(chan model.ItemEvent, sendBufferSize),
		cancel: cancel,
	}

	h.mu.Lock()
	h.clients[conn] = sub
	h.mu.Unlock()
	eventSubscribers.Inc()

	h.logger.Info("event subscriber connected", zap.String("remote_addr", conn.RemoteAddr().String()))

	go h.writePump(ctx, conn, sub)
	go h.readPump(ctx, conn, cancel)
}

// Publish delivers event to every subscriber without blocking. A
// subscriber whose buffer is full is disconnected.
func (h *WebSocketHandler) Publish(event model.ItemEvent) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for conn, sub := range h.clients {
		select {
		case sub.send <- event:
		default:
			h.logger.Warn("event subscriber too slow, disconnecting",
				zap.String("remote_addr", conn.RemoteAddr().String()),
			)
			sub.cancel()
		}
	}
}

// SubscriberCount returns the number of connected subscribers.
func (h *WebSocketHandler) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// readPump drains client frames so control messages are processed and a
// closed peer is noticed. Data frames from clients are ignored.
func (h *WebSocketHandler) readPump(ctx context.Context, conn *websocket.Conn, cancel context.CancelFunc) {
	defer func() {
		cancel()
		h.removeClient(conn)
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
	}()

	conn.SetReadLimit(maxMessageSize)
	if err := conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		h.logger.Error("failed to set read deadline", zap.Error(err))
		return
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Warn("websocket read error", zap.Error(err))
				}
				return
			}
			h.logger.Debug("received message", zap.ByteString("message", message))
		}
	}
}

// writePump forwards queued events and keeps the connection alive with pings.
func (h *WebSocketHandler) writePump(ctx context.Context, conn *websocket.Conn, sub *subscriber) {
	pingTicker := time.NewTicker(pingPeriod)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			h.sendCloseMessage(conn)
			return
		case event := <-sub.send:
			if err := h.sendEvent(conn, event); err != nil {
				h.logger.Debug("failed to send item event", zap.Error(err))
				sub.cancel()
				return
			}
		case <-pingTicker.C:
			if err := h.sendPing(conn); err != nil {
				h.logger.Debug("failed to send ping", zap.Error(err))
				sub.cancel()
				return
			}
		}
	}
}

// sendEvent writes one event as a JSON text frame.
func (h *WebSocketHandler) sendEvent(conn *websocket.Conn, event model.ItemEvent) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteJSON(event)
}

// sendPing sends a ping message to the connection.
func (h *WebSocketHandler) sendPing(conn *websocket.Conn) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.PingMessage, nil)
}

// sendCloseMessage sends a close message to the connection.
func (h *WebSocketHandler) sendCloseMessage(conn *websocket.Conn) {
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		h.logger.Debug("failed to set write deadline for close", zap.Error(err))
		return
	}

	closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "server shutting down")
	if err := conn.WriteMessage(websocket.CloseMessage, closeMsg); err != nil {
		h.logger.Debug("failed to send close message", zap.Error(err))
	}
}

// removeClient removes a client from the clients map.
func (h *WebSocketHandler) removeClient(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if sub, exists := h.clients[conn]; exists {
		sub.cancel()
		delete(h.clients, conn)
		eventSubscribers.Dec()
		h.logger.Info("event subscriber disconnected", zap.String("remote_addr", conn.RemoteAddr().String()))
	}
}

// CloseAllConnections closes all active WebSocket connections.
func (h *WebSocketHandler) CloseAllConnections() {
	h.mu.RLock()
	for _, sub := range h.clients {
		sub.cancel()
	}
	h.mu.RUnlock()

	// Let writePump goroutines send their close frames.
	time.Sleep(closeGrace)

	h.mu.Lock()
	for conn := range h.clients {
		if err := conn.Close(); err != nil {
			h.logger.Debug("error closing connection", zap.Error(err))
		}
		delete(h.clients, conn)
		eventSubscribers.Dec()
	}
	h.mu.Unlock()

	h.logger.Info("all event subscribers closed")
}
