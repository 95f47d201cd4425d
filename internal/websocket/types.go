package websocket

import (
	"time"

	"github.com/coder/websocket"
)

// Message types understood by the live-reload client.
const (
	// MessageReload asks the page to reload.
	MessageReload = "reload"
	// MessageCSS asks the page to refresh its stylesheets only.
	MessageCSS = "css"
)

// Client represents a WebSocket client connection
type Client struct {
	conn        *websocket.Conn
	send        chan []byte
	remoteAddr  string
	connectedAt time.Time
}

// UpdateMessage represents a message sent to the browser
type UpdateMessage struct {
	Type      string    `json:"type"`
	Task      string    `json:"task,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OriginValidator decides which page origins may open a live-reload socket.
type OriginValidator interface {
	IsAllowedOrigin(origin string) bool
}
