package ws

import (
	"errors"
	"log"
	"sort"
	"sync"
)

var (
	ErrTooManyConnections = errors.New("too many connections")
	ErrSendBufferFull     = errors.New("client send buffer full")
	ErrClientClosed       = errors.New("client closed")
)

// ClientID identifies one connection for the life of the process. IDs start
// at 1 and are never reused.
type ClientID uint64

// client is the hub's handle on a session: a buffered outbound queue with
// many producers and the session's control loop as its only consumer. send is
// never closed; done signals that nobody will read it any more.
type client struct {
	id   ClientID
	send chan []byte

	done      chan struct{}
	closeOnce sync.Once
}

func newClient(id ClientID, buffer int) *client {
	return &client{
		id:   id,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// deliver queues data without blocking.
func (c *client) deliver(data []byte) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Hub is the registry of connected clients. Every insert, removal and
// snapshot goes through mu, and mu is never held while delivering.
type Hub struct {
	mu         sync.Mutex
	clients    map[ClientID]*client
	lastID     ClientID
	maxConns   int
	sendBuffer int
}

// NewHub creates an empty registry. maxConns <= 0 means unlimited.
func NewHub(maxConns, sendBuffer int) *Hub {
	if sendBuffer <= 0 {
		sendBuffer = 256
	}
	return &Hub{
		clients:    make(map[ClientID]*client),
		maxConns:   maxConns,
		sendBuffer: sendBuffer,
	}
}

// Register allocates the next ClientID and inserts its outbound queue.
func (h *Hub) Register() (*client, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.maxConns > 0 && len(h.clients) >= h.maxConns {
		return nil, ErrTooManyConnections
	}
	h.lastID++
	c := newClient(h.lastID, h.sendBuffer)
	h.clients[c.id] = c
	return c, nil
}

// Unregister removes id and marks its client closed. Safe to call more than once.
func (h *Hub) Unregister(id ClientID) {
	h.mu.Lock()
	c, ok := h.clients[id]
	delete(h.clients, id)
	h.mu.Unlock()

	if ok {
		c.close()
	}
}

// snapshot copies the registered clients, skipping except (0 skips nobody).
func (h *Hub) snapshot(except ClientID) []*client {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*client, 0, len(h.clients))
	for id, c := range h.clients {
		if id == except {
			continue
		}
		clients = append(clients, c)
	}
	return clients
}

// Broadcast queues data for every registered client and returns how many
// accepted it. Failures are logged per client and never stop the fan-out.
func (h *Hub) Broadcast(data []byte) int {
	return h.fanOut(h.snapshot(0), data)
}

// Relay queues data for every registered client except the sender.
func (h *Hub) Relay(from ClientID, data []byte) int {
	return h.fanOut(h.snapshot(from), data)
}

func (h *Hub) fanOut(clients []*client, data []byte) int {
	delivered := 0
	for _, c := range clients {
		if err := c.deliver(data); err != nil {
			log.Printf("ws client %d: dropping message: %v", c.id, err)
			continue
		}
		delivered++
	}
	return delivered
}

// CloseAll signals every session to shut down. Sessions unregister themselves
// as they exit.
func (h *Hub) CloseAll() {
	for _, c := range h.snapshot(0) {
		c.close()
	}
}

func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// ClientIDs returns the registered IDs in ascending order.
func (h *Hub) ClientIDs() []ClientID {
	h.mu.Lock()
	ids := make([]ClientID, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.Unlock()

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
