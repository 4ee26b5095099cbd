package activity

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
)

// Hub fans store activity (logins, catalog changes, cart mutations) out to
// connected admin dashboard clients.
type Hub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan []byte
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.RWMutex
}

var feed *Hub

func init() {
	feed = &Hub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}
	go feed.run()
}

func (h *Hub) run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("activity dashboard connected, clients: %d", n)

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Printf("activity dashboard disconnected, clients: %d", n)

		case message := <-h.broadcast:
			h.mu.Lock()
			for client := range h.clients {
				if err := client.WriteMessage(websocket.TextMessage, message); err != nil {
					client.Close()
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Event is a single entry in the admin activity feed.
type Event struct {
	Type     string                 `json:"type"`
	Actor    string                 `json:"actor,omitempty"`
	Message  string                 `json:"message"`
	At       time.Time              `json:"at"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Publish broadcasts an event to connected dashboards. It never blocks the
// request path: with no clients, or a saturated feed, the event is dropped.
func Publish(eventType, actor, message string, metadata map[string]interface{}) {
	if feed == nil || feed.clientCount() == 0 {
		return
	}

	data, err := json.Marshal(Event{
		Type:     eventType,
		Actor:    actor,
		Message:  message,
		At:       time.Now(),
		Metadata: metadata,
	})
	if err != nil {
		log.Printf("activity: failed to serialize event: %v", err)
		return
	}

	select {
	case feed.broadcast <- data:
	default:
	}
}

// HandleConn registers a dashboard websocket connection and blocks until the
// client goes away. Incoming messages are discarded.
func HandleConn(conn *websocket.Conn) {
	feed.register <- conn
	defer func() {
		feed.unregister <- conn
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
