package notifiers

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/daniacca/cellchem/internal/achem"
	"github.com/gorilla/websocket"
)

// subscription is one client connection, optionally filtered to a single
// environment. An empty env receives every environment's steps.
type subscription struct {
	conn *websocket.Conn
	env  achem.EnvironmentID
}

// WebSocketNotifier streams step events to WebSocket clients
type WebSocketNotifier struct {
	id         string
	mu         sync.RWMutex
	clients    map[*websocket.Conn]achem.EnvironmentID
	upgrader   websocket.Upgrader
	broadcast  chan achem.NotificationEvent
	register   chan subscription
	unregister chan *websocket.Conn
	done       chan struct{}
	closeOnce  sync.Once
	wg         sync.WaitGroup
}

// NewWebSocketNotifier creates a new WebSocket notifier
func NewWebSocketNotifier(id string) *WebSocketNotifier {
	notifier := &WebSocketNotifier{
		id:         id,
		clients:    make(map[*websocket.Conn]achem.EnvironmentID),
		broadcast:  make(chan achem.NotificationEvent, 256),
		register:   make(chan subscription),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}

	// Start the broadcaster goroutine
	notifier.wg.Add(1)
	go notifier.run()

	return notifier
}

func (wsn *WebSocketNotifier) ID() string {
	return wsn.id
}

func (wsn *WebSocketNotifier) Type() string {
	return "websocket"
}

// RegisterClient subscribes conn to the steps of env, or of every
// environment when env is empty.
func (wsn *WebSocketNotifier) RegisterClient(conn *websocket.Conn, env achem.EnvironmentID) {
	select {
	case wsn.register <- subscription{conn: conn, env: env}:
	case <-wsn.done:
		conn.Close()
	}
}

// UnregisterClient unregisters and closes a WebSocket client connection
func (wsn *WebSocketNotifier) UnregisterClient(conn *websocket.Conn) {
	select {
	case wsn.unregister <- conn:
	case <-wsn.done:
	}
}

// ClientCount returns the number of connected clients
func (wsn *WebSocketNotifier) ClientCount() int {
	wsn.mu.RLock()
	defer wsn.mu.RUnlock()
	return len(wsn.clients)
}

// ServeHTTP upgrades the request and streams step events to the client
// until it disconnects. The optional "env" query parameter restricts the
// stream to one environment.
func (wsn *WebSocketNotifier) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := wsn.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		return
	}
	wsn.RegisterClient(conn, achem.EnvironmentID(r.URL.Query().Get("env")))

	// Clients only listen; reading detects the close frame.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			wsn.UnregisterClient(conn)
			return
		}
	}
}

// Notify queues the event for every subscribed client
func (wsn *WebSocketNotifier) Notify(ctx context.Context, event achem.NotificationEvent) error {
	select {
	case wsn.broadcast <- event:
		return nil
	case <-wsn.done:
		return fmt.Errorf("websocket notifier %s is closed", wsn.id)
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(1 * time.Second):
		return fmt.Errorf("notification queue full")
	}
}

// run handles client registration/unregistration and message broadcasting
func (wsn *WebSocketNotifier) run() {
	defer wsn.wg.Done()
	for {
		select {
		case <-wsn.done:
			return

		case sub := <-wsn.register:
			if sub.conn == nil {
				continue
			}
			wsn.mu.Lock()
			wsn.clients[sub.conn] = sub.env
			wsn.mu.Unlock()

		case conn := <-wsn.unregister:
			if conn == nil {
				continue
			}
			wsn.mu.Lock()
			if _, ok := wsn.clients[conn]; ok {
				delete(wsn.clients, conn)
				conn.Close()
			}
			wsn.mu.Unlock()

		case event := <-wsn.broadcast:
			wsn.deliver(event)
		}
	}
}

func (wsn *WebSocketNotifier) deliver(event achem.NotificationEvent) {
	jsonData, err := event.JSON()
	if err != nil {
		return
	}

	// Collect connections to write to (to avoid holding lock during write)
	wsn.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(wsn.clients))
	for conn, env := range wsn.clients {
		if env == "" || env == event.EnvironmentID {
			conns = append(conns, conn)
		}
	}
	wsn.mu.RUnlock()

	var toRemove []*websocket.Conn
	for _, conn := range conns {
		conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, jsonData); err != nil {
			toRemove = append(toRemove, conn)
			conn.Close()
		}
	}

	if len(toRemove) > 0 {
		wsn.mu.Lock()
		for _, conn := range toRemove {
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
	}
}

// Close closes all WebSocket connections and stops the goroutine. It is
// safe to call more than once.
func (wsn *WebSocketNotifier) Close() error {
	wsn.closeOnce.Do(func() {
		close(wsn.done)
		wsn.wg.Wait()

		wsn.mu.Lock()
		for conn := range wsn.clients {
			conn.Close()
			delete(wsn.clients, conn)
		}
		wsn.mu.Unlock()
	})
	return nil
}

// GetUpgrader returns the WebSocket upgrader for HTTP handlers
func (wsn *WebSocketNotifier) GetUpgrader() websocket.Upgrader {
	return wsn.upgrader
}
