package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"kbweb/pkg/observability"
)

// Message is the envelope of everything pushed to viewers
type Message struct {
	Type      EventType       `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// EventType names a pushed message
type EventType string

const (
	EventConnectionEstablished EventType = "CONNECTION_ESTABLISHED"
	EventResultGraph           EventType = "RESULT_GRAPH"
	EventTemplatesUpdated      EventType = "TEMPLATES_UPDATED"
)

// encodeMessage builds the wire form of one message
func encodeMessage(eventType EventType, data interface{}) ([]byte, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", eventType, err)
	}
	return json.Marshal(Message{Type: eventType, Data: payload, Timestamp: time.Now().Unix()})
}

// delivery is an encoded message for one user, or for everyone when userID is empty
type delivery struct {
	userID string
	data   []byte
}

// Hub maintains viewer connections; one user may have several
type Hub struct {
	connections map[string]map[*Client]bool
	mu          sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan delivery
	done       chan struct{}

	onRegister []func(*Client)

	metrics *observability.Collector
	logger  *zap.Logger
}

// NewHub creates a new WebSocket hub
func NewHub(metrics *observability.Collector, logger *zap.Logger) *Hub {
	return &Hub{
		connections: make(map[string]map[*Client]bool),
		register:    make(chan *Client, 100),
		unregister:  make(chan *Client, 100),
		broadcast:   make(chan delivery, 1000),
		done:        make(chan struct{}),
		metrics:     metrics,
		logger:      logger,
	}
}

// OnRegister adds a hook run on the hub goroutine for every new client.
// Must be called before Run.
func (h *Hub) OnRegister(fn func(*Client)) {
	h.onRegister = append(h.onRegister, fn)
}

// Run is the hub's event loop. It closes every connection when ctx ends.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info("Hub shutting down")
			h.closeAllConnections()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case d := <-h.broadcast:
			h.deliver(d)
		}
	}
}

// SendToUser queues a message for every connection of userID
func (h *Hub) SendToUser(ctx context.Context, userID string, eventType EventType, data interface{}) error {
	encoded, err := encodeMessage(eventType, data)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, delivery{userID: userID, data: encoded})
}

// SendToAll queues a message for every connection
func (h *Hub) SendToAll(ctx context.Context, eventType EventType, data interface{}) error {
	encoded, err := encodeMessage(eventType, data)
	if err != nil {
		return err
	}
	return h.enqueue(ctx, delivery{data: encoded})
}

func (h *Hub) enqueue(ctx context.Context, d delivery) error {
	timer := time.NewTimer(5 * time.Second)
	defer timer.Stop()

	select {
	case h.broadcast <- d:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped, message dropped")
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("broadcast channel full, message dropped")
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	if h.connections[client.userID] == nil {
		h.connections[client.userID] = make(map[*Client]bool)
	}
	h.connections[client.userID][client] = true
	count := len(h.connections[client.userID])
	h.mu.Unlock()

	h.metrics.ViewerConnected(1)
	h.logger.Info("Client registered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
		zap.Int("userConnections", count),
	)

	for _, fn := range h.onRegister {
		fn(client)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.connections[client.userID]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.connections, client.userID)
	}

	h.metrics.ViewerConnected(-1)
	h.logger.Info("Client unregistered",
		zap.String("userID", client.userID),
		zap.String("connectionID", client.id),
		zap.Int("remainingConnections", len(clients)),
	)
}

// deliver sends d to its targets; a client whose buffer is full is dropped
func (h *Hub) deliver(d delivery) {
	h.mu.RLock()
	var targets []*Client
	if d.userID == "" {
		for _, clients := range h.connections {
			for client := range clients {
				targets = append(targets, client)
			}
		}
	} else {
		for client := range h.connections[d.userID] {
			targets = append(targets, client)
		}
	}
	h.mu.RUnlock()

	if len(targets) == 0 {
		h.logger.Debug("No active connections", zap.String("userID", d.userID))
		return
	}

	for _, client := range targets {
		if client.trySend(d.data) {
			continue
		}
		h.logger.Warn("Closing slow client",
			zap.String("userID", client.userID),
			zap.String("connectionID", client.id),
		)
		h.unregisterClient(client)
		client.conn.Close()
	}
}

func (h *Hub) closeAllConnections() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clients := range h.connections {
		for client := range clients {
			close(client.send)
			client.conn.Close()
			h.metrics.ViewerConnected(-1)
		}
		delete(h.connections, userID)
	}
	h.logger.Info("All connections closed")
}

// ConnectionCount returns the number of active connections for a user
func (h *Hub) ConnectionCount(userID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections[userID])
}
