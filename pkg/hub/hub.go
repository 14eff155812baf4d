package hub

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/go-cockpit/internal/log"
	"github.com/teslashibe/go-cockpit/pkg/protocol"
)

// DefaultSendBuffer is the per-client outbound queue length
const DefaultSendBuffer = 256

// Hub maintains the set of active clients and broadcasts messages to them
type Hub struct {
	log    *slog.Logger
	buffer int

	// Registered clients, owned by Run
	clients map[*Client]struct{}

	broadcast  chan Message
	register   chan *Client
	unregister chan *Client
	done       chan struct{}

	// Mirrors len(clients) for readers outside Run
	mu    sync.RWMutex
	count int

	running atomic.Bool
	dropped atomic.Uint64
}

// Option configures a Hub
type Option func(*Hub)

// WithSendBuffer sets the per-client outbound queue length
func WithSendBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

// New creates a new Hub
func New(name string, opts ...Option) *Hub {
	h := &Hub{
		log:        log.With("hub", name),
		buffer:     DefaultSendBuffer,
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan Message, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Run starts the hub's main loop and blocks until ctx is cancelled.
// All client queues are closed on return.
func (h *Hub) Run(ctx context.Context) {
	h.running.Store(true)
	defer func() {
		for client := range h.clients {
			client.close()
			delete(h.clients, client)
		}
		h.setCount(0)
		h.running.Store(false)
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client] = struct{}{}
			h.setCount(len(h.clients))
			h.log.Info("client connected", "clients", len(h.clients))

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				client.close()
			}
			h.setCount(len(h.clients))
			h.log.Info("client disconnected", "clients", len(h.clients))

		case message := <-h.broadcast:
			for client := range h.clients {
				if !client.Send(message) {
					// Client's buffer is full - they're too slow
					client.close()
					delete(h.clients, client)
					h.dropped.Add(1)
					h.log.Warn("dropped slow client")
				}
			}
			h.setCount(len(h.clients))
		}
	}
}

func (h *Hub) setCount(n int) {
	h.mu.Lock()
	h.count = n
	h.mu.Unlock()
}

// Broadcast queues a message for all connected clients. It returns false
// when the broadcast queue is full or the hub has stopped.
func (h *Hub) Broadcast(msg Message) bool {
	select {
	case <-h.done:
		return false
	default:
	}
	select {
	case h.broadcast <- msg:
		return true
	default:
		h.log.Warn("broadcast channel full, dropping message")
		return false
	}
}

// BroadcastProtocol encodes and broadcasts a protocol message
func (h *Hub) BroadcastProtocol(msg *protocol.Message) error {
	m, err := FromProtocol(msg)
	if err != nil {
		return err
	}
	h.Broadcast(m)
	return nil
}

// ClientCount returns the number of connected clients
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// Dropped returns how many slow clients have been disconnected
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// IsRunning returns whether the hub is running
func (h *Hub) IsRunning() bool {
	return h.running.Load()
}

func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
