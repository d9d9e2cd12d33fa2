package handlers

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"example.com/backstage/dashboard/internal/notify"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const writeWait = 10 * time.Second

// NotificationSource is what the hub relays to browsers
type NotificationSource interface {
	Subscribe() (<-chan notify.Notification, func())
}

// Hub fans notifications out to every connected websocket client. Only Run
// writes to the connections.
type Hub struct {
	clients map[*websocket.Conn]bool
	mutex   sync.RWMutex

	updates <-chan notify.Notification
	stop    func()
}

// NewHub subscribes to source right away so nothing is missed before Run starts
func NewHub(source NotificationSource) *Hub {
	updates, stop := source.Subscribe()
	return &Hub{
		clients: make(map[*websocket.Conn]bool),
		updates: updates,
		stop:    stop,
	}
}

// Run relays notifications until ctx is done, then disconnects every client
func (h *Hub) Run(ctx context.Context) {
	defer h.closeAll()
	defer h.stop()

	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-h.updates:
			if !ok {
				return
			}
			msg, err := json.Marshal(n)
			if err != nil {
				log.Error().Err(err).Msg("failed to encode notification")
				continue
			}
			h.broadcast(msg)
		}
	}
}

func (h *Hub) broadcast(msg []byte) {
	var failed []*websocket.Conn

	h.mutex.RLock()
	for client := range h.clients {
		_ = client.SetWriteDeadline(time.Now().Add(writeWait))
		if err := client.WriteMessage(websocket.TextMessage, msg); err != nil {
			failed = append(failed, client)
		}
	}
	h.mutex.RUnlock()

	for _, client := range failed {
		log.Debug().Str("remote", client.RemoteAddr().String()).Msg("dropping websocket client after write failure")
		h.RemoveClient(client)
	}
}

// AddClient registers a connection
func (h *Hub) AddClient(conn *websocket.Conn) {
	h.mutex.Lock()
	h.clients[conn] = true
	h.mutex.Unlock()
}

// RemoveClient unregisters and closes a connection
func (h *Hub) RemoveClient(conn *websocket.Conn) {
	h.mutex.Lock()
	if _, ok := h.clients[conn]; ok {
		delete(h.clients, conn)
		conn.Close()
	}
	h.mutex.Unlock()
}

// ClientsCount returns the number of connected clients
func (h *Hub) ClientsCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

func (h *Hub) closeAll() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	for client := range h.clients {
		_ = client.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(time.Second))
		client.Close()
		delete(h.clients, client)
	}
}
