package websocket

import (
	"sync"

	"github.com/rs/zerolog/log"

	"tubedeck/types"
)

// Hub interface defines the methods for managing WebSocket connections
type Hub interface {
	Run()
	Stop()
	Broadcast(snap types.Snapshot)
	Forward(updates <-chan types.Snapshot)
	RegisterClient(client *Client)
	UnregisterClient(client *Client)
	ClientCount() int
}

// hub maintains the set of active clients and pushes snapshots to them
type hub struct {
	clients map[*Client]bool

	// Broadcast channel for snapshots going to every client
	broadcast chan types.Snapshot

	register   chan *Client
	unregister chan *Client

	quit     chan struct{}
	stopOnce sync.Once
	stopped  chan struct{}

	mu sync.RWMutex
}

// NewHub creates a new WebSocket hub
func NewHub() Hub {
	return &hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan types.Snapshot, broadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		quit:       make(chan struct{}),
		stopped:    make(chan struct{}),
	}
}

// Run starts the hub's main event loop. It returns after Stop.
func (h *hub) Run() {
	logger := log.With().Str("component", "websocket").Logger()
	defer close(h.stopped)

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Debug().Str("remote", client.remoteAddr()).Msg("client connected")

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			logger.Debug().Str("remote", client.remoteAddr()).Msg("client disconnected")

		case snap := <-h.broadcast:
			msg := types.SnapshotMessage{Type: "snapshot", Snapshot: snap}
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client.send <- msg:
				default:
					// too slow to keep up; it reconnects and gets a fresh snapshot
					close(client.send)
					delete(h.clients, client)
					logger.Warn().Str("remote", client.remoteAddr()).Msg("dropping slow client")
				}
			}
			h.mu.Unlock()

		case <-h.quit:
			h.mu.Lock()
			for client := range h.clients {
				close(client.send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop closes every client connection and ends Run
func (h *hub) Stop() {
	h.stopOnce.Do(func() { close(h.quit) })
}

// Broadcast queues a snapshot for every connected client
func (h *hub) Broadcast(snap types.Snapshot) {
	select {
	case h.broadcast <- snap:
	case <-h.quit:
	default:
		log.Warn().Str("component", "websocket").Uint64("version", snap.Version).
			Msg("broadcast channel full, dropping snapshot")
	}
}

// Forward broadcasts every snapshot received on updates until the channel
// closes or the hub stops
func (h *hub) Forward(updates <-chan types.Snapshot) {
	for {
		select {
		case snap, ok := <-updates:
			if !ok {
				return
			}
			h.Broadcast(snap)
		case <-h.quit:
			return
		}
	}
}

// RegisterClient registers a new client with the hub
func (h *hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	case <-h.quit:
		close(client.send)
	}
}

// UnregisterClient unregisters a client from the hub
func (h *hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stopped:
	}
}

// ClientCount returns the number of connected clients
func (h *hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
