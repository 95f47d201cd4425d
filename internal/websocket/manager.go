// Package websocket implements the live-reload hub: browsers connect to it
// and are told to reload after a rebuild.
package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/atomic"

	"github.com/landingkit/lander/internal/logging"
)

const (
	sendBuffer   = 16
	pingInterval = 30 * time.Second
	writeTimeout = 10 * time.Second
)

// WebSocketManager keeps the connected live-reload clients and broadcasts
// reload messages to them.
//
// Invariants:
//   - clients map access always protected by clientsMutex
//   - a client's send channel is closed exactly once, by removeClient
//   - isShutdown transitions from false to true exactly once
type WebSocketManager struct {
	clients      map[*Client]struct{}
	clientsMutex sync.RWMutex

	originValidator OriginValidator
	logger          logging.Logger

	ctx          context.Context
	cancel       context.CancelFunc
	shutdownOnce sync.Once
	isShutdown   atomic.Bool
	broadcasts   atomic.Int64
}

// NewWebSocketManager creates a manager. A nil validator accepts every origin.
func NewWebSocketManager(originValidator OriginValidator, logger logging.Logger) *WebSocketManager {
	ctx, cancel := context.WithCancel(context.Background())
	return &WebSocketManager{
		clients:         make(map[*Client]struct{}),
		originValidator: originValidator,
		logger:          logging.OrNop(logger).WithComponent("livereload"),
		ctx:             ctx,
		cancel:          cancel,
	}
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects or the manager shuts down.
func (wm *WebSocketManager) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if wm.isShutdown.Load() {
		http.Error(w, "Service Unavailable", http.StatusServiceUnavailable)
		return
	}

	origin := r.Header.Get("Origin")
	if origin != "" && wm.originValidator != nil && !wm.originValidator.IsAllowedOrigin(origin) {
		wm.logger.Warn(r.Context(), nil, "WebSocket connection rejected", "origin", origin, "remote", r.RemoteAddr)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		// Origins were validated above.
		InsecureSkipVerify: true,
		CompressionMode:    websocket.CompressionDisabled,
	})
	if err != nil {
		wm.logger.Warn(r.Context(), err, "WebSocket upgrade failed", "remote", r.RemoteAddr)
		return
	}

	client := &Client{
		conn:        conn,
		send:        make(chan []byte, sendBuffer),
		remoteAddr:  r.RemoteAddr,
		connectedAt: time.Now(),
	}
	wm.addClient(client)
	defer wm.removeClient(client)

	wm.writeLoop(client)
}

func (wm *WebSocketManager) addClient(client *Client) {
	wm.clientsMutex.Lock()
	wm.clients[client] = struct{}{}
	total := len(wm.clients)
	wm.clientsMutex.Unlock()

	wm.logger.Debug(wm.ctx, "WebSocket client connected", "remote", client.remoteAddr, "clients", total)
}

func (wm *WebSocketManager) removeClient(client *Client) {
	wm.clientsMutex.Lock()
	_, exists := wm.clients[client]
	if exists {
		delete(wm.clients, client)
		close(client.send)
	}
	total := len(wm.clients)
	wm.clientsMutex.Unlock()

	if exists {
		_ = client.conn.Close(websocket.StatusNormalClosure, "")
		wm.logger.Debug(wm.ctx, "WebSocket client disconnected", "remote", client.remoteAddr, "clients", total)
	}
}

// writeLoop forwards queued messages and pings until the peer goes away.
// Incoming messages are discarded.
func (wm *WebSocketManager) writeLoop(client *Client) {
	readCtx := client.conn.CloseRead(wm.ctx)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := client.conn.Write(ctx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}

		case <-ticker.C:
			ctx, cancel := context.WithTimeout(readCtx, writeTimeout)
			err := client.conn.Ping(ctx)
			cancel()
			if err != nil {
				return
			}

		case <-readCtx.Done():
			return
		}
	}
}

// BroadcastMessage queues message for every connected client and returns
// how many clients received it. Clients whose queue is full are dropped.
func (wm *WebSocketManager) BroadcastMessage(message UpdateMessage) int {
	if wm.isShutdown.Load() {
		return 0
	}
	if message.Timestamp.IsZero() {
		message.Timestamp = time.Now()
	}
	data, err := json.Marshal(message)
	if err != nil {
		wm.logger.Error(wm.ctx, err, "Failed to marshal broadcast message")
		return 0
	}

	var slow []*Client
	sent := 0

	wm.clientsMutex.RLock()
	for client := range wm.clients {
		select {
		case client.send <- data:
			sent++
		default:
			slow = append(slow, client)
		}
	}
	wm.clientsMutex.RUnlock()

	for _, client := range slow {
		wm.removeClient(client)
	}

	wm.broadcasts.Inc()
	wm.logger.Debug(wm.ctx, "Broadcast live-reload message", "type", message.Type, "task", message.Task, "clients", sent)
	return sent
}

// Reload tells every client that task finished. Style rebuilds refresh the
// stylesheets in place, anything else reloads the page.
func (wm *WebSocketManager) Reload(_ context.Context, task string) {
	msgType := MessageReload
	if task == "styles" || strings.HasPrefix(task, "styles:") {
		msgType = MessageCSS
	}
	wm.BroadcastMessage(UpdateMessage{Type: msgType, Task: task})
}

// GetConnectedClients returns the number of connected clients
func (wm *WebSocketManager) GetConnectedClients() int {
	wm.clientsMutex.RLock()
	defer wm.clientsMutex.RUnlock()
	return len(wm.clients)
}

// Broadcasts returns the number of broadcasts sent so far.
func (wm *WebSocketManager) Broadcasts() int64 {
	return wm.broadcasts.Load()
}

// Shutdown closes every connection and rejects new ones.
func (wm *WebSocketManager) Shutdown(_ context.Context) error {
	wm.shutdownOnce.Do(func() {
		wm.isShutdown.Store(true)
		wm.cancel()

		wm.clientsMutex.Lock()
		clients := make([]*Client, 0, len(wm.clients))
		for client := range wm.clients {
			clients = append(clients, client)
		}
		wm.clientsMutex.Unlock()

		for _, client := range clients {
			_ = client.conn.Close(websocket.StatusGoingAway, "Server shutdown")
			wm.removeClient(client)
		}
		wm.logger.Debug(context.Background(), "WebSocket manager shut down")
	})
	return nil
}

// IsShutdown returns whether the WebSocket manager has been shut down
func (wm *WebSocketManager) IsShutdown() bool {
	return wm.isShutdown.Load()
}

// LocalOriginValidator accepts pages served from the dev server itself and
// from loopback hosts on the same port.
type LocalOriginValidator struct {
	Host string
	Port int
}

// IsAllowedOrigin checks if the origin is allowed for WebSocket connections
func (v LocalOriginValidator) IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	host, port, err := net.SplitHostPort(u.Host)
	if err != nil {
		return false
	}
	if port != fmt.Sprint(v.Port) {
		return false
	}
	switch host {
	case v.Host, "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}
