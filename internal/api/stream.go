package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"course-planner/internal/metrics"
	"course-planner/internal/recommend"
)

const (
	clientBuffer = 16
	writeTimeout = 2 * time.Second
)

// wsClient owns a websocket connection and the queue feeding its writer.
type wsClient struct {
	conn *websocket.Conn
	send chan recommend.StateEvent
	once sync.Once
}

func newWSClient(conn *websocket.Conn) *wsClient {
	return &wsClient{conn: conn, send: make(chan recommend.StateEvent, clientBuffer)}
}

// StateNotifier keeps track of websocket clients and broadcasts pipeline state events.
// Broadcast never waits on a socket; each client drains its own queue.
type StateNotifier struct {
	mu        sync.Mutex
	clients   map[*wsClient]struct{}
	lastEvent *recommend.StateEvent
}

func NewStateNotifier() *StateNotifier {
	return &StateNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection, queues the last event for it,
// and starts its writer.
func (n *StateNotifier) Register(conn *websocket.Conn) *wsClient {
	client := newWSClient(conn)
	n.attach(client)
	go client.writePump()
	return client
}

func (n *StateNotifier) attach(client *wsClient) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.clients[client] = struct{}{}
	metrics.StreamClients.Inc()
	if n.lastEvent != nil {
		client.send <- *n.lastEvent
	}
}

// Unregister removes the client and closes the socket.
func (n *StateNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	n.detach(client)
	n.mu.Unlock()
	client.close()
}

// detach must be called with n.mu held.
func (n *StateNotifier) detach(client *wsClient) {
	if _, ok := n.clients[client]; !ok {
		return
	}
	delete(n.clients, client)
	metrics.StreamClients.Dec()
	close(client.send)
}

// Broadcast queues event for every client. A client whose queue is full is
// dropped instead of stalling the pipeline.
func (n *StateNotifier) Broadcast(event recommend.StateEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	snapshot := event
	n.lastEvent = &snapshot

	for client := range n.clients {
		select {
		case client.send <- event:
		default:
			logrus.WithField("state", event.State).Warn("state stream client too slow; dropping")
			n.detach(client)
			client.close()
		}
	}
}

// LastEvent returns a copy of the most recent event, if any.
func (n *StateNotifier) LastEvent() *recommend.StateEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastEvent == nil {
		return nil
	}
	copy := *n.lastEvent
	return &copy
}

func (n *StateNotifier) clientCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.clients)
}

// writePump sends queued events until the queue is closed or a write fails.
// A failed write closes the socket, which ends the read loop and unregisters.
func (c *wsClient) writePump() {
	for event := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
		if err := c.conn.WriteJSON(event); err != nil {
			c.close()
			for range c.send {
			}
			return
		}
	}
}

func (c *wsClient) close() {
	c.once.Do(func() {
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}
