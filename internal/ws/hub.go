// Package ws implements the push protocol of spec.md §6: a persistent
// bidirectional channel over which clients subscribe to a scenario
// execution id and receive its lifecycle events. It is the concrete
// Subscriber registry spec.md §9's Design Notes calls for — a typed
// registry keyed by execution id, with subscribers exposing only
// Send/IsOpen.
package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/scenarioflow/control-plane/domain/execution"
	"github.com/scenarioflow/control-plane/internal/ratelimit"
	"github.com/scenarioflow/control-plane/internal/scenarioexec"
	"github.com/scenarioflow/control-plane/pkg/logging"
)

// clientMessage is the shape a client sends: {"type": "subscribe"|
// "unsubscribe", "executionId": "..."}.
type clientMessage struct {
	Type        string `json:"type"`
	ExecutionID string `json:"executionId"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Hub upgrades HTTP connections to websockets and wires each one into the
// scenario execution service's Subscribe/Unsubscribe registry.
type Hub struct {
	execSvc    *scenarioexec.Service
	logger     *logging.Logger
	limiterCfg ratelimit.Config
}

// NewHub constructs a Hub bound to a scenario execution service. limiterCfg
// sizes the per-connection subscribe/unsubscribe token bucket; the zero
// value falls back to ratelimit.DefaultConfig.
func NewHub(execSvc *scenarioexec.Service, logger *logging.Logger, limiterCfg ratelimit.Config) *Hub {
	return &Hub{execSvc: execSvc, logger: logger, limiterCfg: limiterCfg}
}

// ServeHTTP upgrades the request and runs the connection's read loop until
// the client disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.WithContext(r.Context()).WithError(err).Warn("websocket upgrade failed")
		}
		return
	}
	c := newConnection(conn, ratelimit.New(h.limiterCfg))
	go c.writePump()
	defer c.close()

	c.send(mustMarshal(execution.Event{
		Type:      execution.EventConnected,
		Message:   "connected",
		Timestamp: time.Now(),
	}))

	h.readLoop(c)
}

func (h *Hub) readLoop(c *connection) {
	var subscribed []string
	defer func() {
		for _, execID := range subscribed {
			h.execSvc.Unsubscribe(execID, c)
		}
	}()

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.send(mustMarshal(execution.Event{Type: execution.EventError, Error: "Invalid message format", Timestamp: time.Now()}))
			continue
		}

		if msg.Type == "subscribe" || msg.Type == "unsubscribe" {
			if !c.limiter.Allow() {
				c.send(mustMarshal(execution.Event{Type: execution.EventError, ExecutionID: msg.ExecutionID, Error: "rate limit exceeded", Timestamp: time.Now()}))
				continue
			}
		}

		switch msg.Type {
		case "subscribe":
			if h.execSvc.Subscribe(msg.ExecutionID, c) {
				subscribed = append(subscribed, msg.ExecutionID)
				c.send(mustMarshal(execution.Event{Type: execution.EventSubscribed, ExecutionID: msg.ExecutionID, Timestamp: time.Now()}))
			} else {
				c.send(mustMarshal(execution.Event{Type: execution.EventError, ExecutionID: msg.ExecutionID, Error: "no such active execution", Timestamp: time.Now()}))
			}
		case "unsubscribe":
			h.execSvc.Unsubscribe(msg.ExecutionID, c)
			c.send(mustMarshal(execution.Event{Type: execution.EventUnsubscribed, ExecutionID: msg.ExecutionID, Timestamp: time.Now()}))
		default:
			c.send(mustMarshal(execution.Event{Type: execution.EventError, Error: "Invalid message format", Timestamp: time.Now()}))
		}
	}
}

func mustMarshal(e execution.Event) []byte {
	b, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"error","error":"event marshal failed"}`)
	}
	return b
}

// connection adapts a *websocket.Conn to the scenarioexec.Subscriber
// interface, serializing writes through a buffered channel so concurrent
// broadcasts from multiple executions never race on the same socket.
type connection struct {
	ws      *websocket.Conn
	limiter *ratelimit.Limiter

	mu     sync.Mutex
	outbox chan []byte
	closed bool
}

func newConnection(ws *websocket.Conn, limiter *ratelimit.Limiter) *connection {
	return &connection{ws: ws, limiter: limiter, outbox: make(chan []byte, 64)}
}

// Send satisfies scenarioexec.Subscriber.
func (c *connection) Send(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.outbox <- payload:
		return nil
	default:
		// Slow consumer: drop rather than block the broadcaster.
		return nil
	}
}

// IsOpen satisfies scenarioexec.Subscriber.
func (c *connection) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed
}

func (c *connection) send(payload []byte) {
	_ = c.Send(payload)
}

func (c *connection) writePump() {
	for payload := range c.outbox {
		if err := c.ws.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

func (c *connection) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.outbox)
	c.mu.Unlock()
	_ = c.ws.Close()
}
