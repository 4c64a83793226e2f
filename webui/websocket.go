package webui

import (
	"net/http"
	"sync"

	"github.com/birabittoh/relaybot/telegram"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// EventHub manages WebSocket connections and broadcasts relay events
type EventHub struct {
	clients    map[*websocket.Conn]bool
	broadcast  chan telegram.RelayEvent
	register   chan *websocket.Conn
	unregister chan *websocket.Conn
	mu         sync.Mutex
}

// NewEventHub creates a hub and starts its loop
func NewEventHub() *EventHub {
	h := &EventHub{
		clients:    make(map[*websocket.Conn]bool),
		broadcast:  make(chan telegram.RelayEvent, 100),
		register:   make(chan *websocket.Conn),
		unregister: make(chan *websocket.Conn),
	}

	go h.run()
	return h
}

func (h *EventHub) run() {
	for {
		select {
		case conn := <-h.register:
			h.mu.Lock()
			h.clients[conn] = true
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("websocket client connected")

		case conn := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}
			n := len(h.clients)
			h.mu.Unlock()
			log.Debug().Int("clients", n).Msg("websocket client disconnected")

		case event := <-h.broadcast:
			h.mu.Lock()
			for conn := range h.clients {
				err := conn.WriteJSON(event)
				if err != nil {
					log.Warn().Err(err).Msg("error broadcasting relay event")
					conn.Close()
					delete(h.clients, conn)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends an event to all connected clients
func (h *EventHub) Broadcast(event telegram.RelayEvent) {
	select {
	case h.broadcast <- event:
	default:
		log.Warn().Msg("broadcast channel full, dropping relay event")
	}
}

func (h *EventHub) wsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Msg("error upgrading to websocket")
		return
	}

	h.register <- conn

	// Keep connection alive and handle disconnection
	go func() {
		defer func() {
			h.unregister <- conn
		}()

		for {
			_, _, err := conn.ReadMessage()
			if err != nil {
				break
			}
		}
	}()
}
