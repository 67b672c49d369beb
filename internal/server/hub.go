package server

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Tyrowin/roomchat/internal/chat"
	"github.com/Tyrowin/roomchat/internal/domain"
	"github.com/Tyrowin/roomchat/internal/events"
	"github.com/samber/lo"
)

// Dispatcher is the chat core as seen by the transport.
type Dispatcher interface {
	Admit(ctx context.Context, credential string) (domain.UserID, error)
	Connected(ctx context.Context, c chat.Conn)
	Disconnected(ctx context.Context, c chat.Conn)
	Dispatch(ctx context.Context, c chat.Conn, raw []byte)
}

// Hub owns every live connection and the rooms they are in. It is the
// chat.Rooms of the core: fanout writes straight into each client's send
// buffer, and a client whose buffer is full is dropped.
type Hub struct {
	clients    map[*Client]bool
	rooms      map[string]map[*Client]struct{}
	register   chan *Client
	mutex      sync.RWMutex
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
	opts       Options
	dispatcher Dispatcher
	log        *slog.Logger
}

var _ chat.Rooms = (*Hub)(nil)

// NewHub creates a hub. Bind must be called before Run.
func NewHub(opts Options, log *slog.Logger) *Hub {
	ctx, cancel := context.WithCancel(context.Background())
	return &Hub{
		clients:  make(map[*Client]bool),
		rooms:    make(map[string]map[*Client]struct{}),
		register: make(chan *Client),
		ctx:      ctx,
		cancel:   cancel,
		done:     make(chan struct{}),
		opts:     opts.sanitize(),
		log:      log.With("component", "hub"),
	}
}

// Bind attaches the core that admits connections and handles their frames.
func (h *Hub) Bind(d Dispatcher) {
	h.dispatcher = d
}

// Run starts the hub's main loop. It returns after Shutdown.
func (h *Hub) Run() {
	defer close(h.done)

	for {
		select {
		case <-h.ctx.Done():
			h.shutdownClients()
			return

		case client := <-h.register:
			if client == nil {
				h.log.Warn("received nil client registration; skipping")
				continue
			}

			h.mutex.Lock()
			h.clients[client] = true
			clientCount := len(h.clients)
			h.mutex.Unlock()
			h.log.Info("client registered", "addr", client.addr, "user", client.user, "conn", client.id, "clients", clientCount)

			h.wg.Add(2)
			go func() {
				defer h.wg.Done()
				client.writePump()
			}()
			go func() {
				defer h.wg.Done()
				client.readPump()
			}()
		}
	}
}

// removeClient drops client from the registry and every room, then closes
// its send buffer. It is safe to call more than once.
func (h *Hub) removeClient(client *Client, reason string) {
	h.mutex.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mutex.Unlock()
		return
	}
	delete(h.clients, client)
	for name, members := range h.rooms {
		delete(members, client)
		if len(members) == 0 {
			delete(h.rooms, name)
		}
	}
	client.closed = true
	clientCount := len(h.clients)
	h.mutex.Unlock()

	// Close the channel after releasing the lock
	close(client.send)
	h.log.Info("client removed", "addr", client.addr, "user", client.user, "conn", client.id, "reason", reason, "clients", clientCount)
}

func (h *Hub) safeSend(client *Client, message []byte) bool {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("recovered from panic in safeSend", "panic", r)
		}
	}()

	h.mutex.RLock()
	defer h.mutex.RUnlock()

	_, exists := h.clients[client]
	if !exists || client.closed {
		return false
	}

	select {
	case client.send <- message:
		return true
	default:
		return false
	}
}

// deliver sends one encoded frame to each target and drops those whose
// buffer is full.
func (h *Hub) deliver(targets []*Client, ev events.Outbound) {
	if len(targets) == 0 {
		return
	}
	payload, err := ev.Encode()
	if err != nil {
		h.log.Error("outbound event not encodable", "event", ev.Event, "error", err)
		return
	}

	var failed []*Client
	for _, client := range targets {
		if !h.safeSend(client, payload) {
			failed = append(failed, client)
		}
	}
	for _, client := range failed {
		h.removeClient(client, "send buffer full")
	}
}

func (h *Hub) Join(c chat.Conn, room string) {
	client, ok := c.(*Client)
	if !ok {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.clients[client] {
		return
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[client] = struct{}{}
}

func (h *Hub) Leave(c chat.Conn, room string) {
	client, ok := c.(*Client)
	if !ok {
		return
	}
	h.mutex.Lock()
	defer h.mutex.Unlock()
	members := h.rooms[room]
	delete(members, client)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) InRoom(c chat.Conn, room string) bool {
	client, ok := c.(*Client)
	if !ok {
		return false
	}
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	_, in := h.rooms[room][client]
	return in
}

func (h *Hub) Emit(c chat.Conn, ev events.Outbound) {
	if client, ok := c.(*Client); ok {
		h.deliver([]*Client{client}, ev)
	}
}

func (h *Hub) Broadcast(room string, except chat.Conn, ev events.Outbound) {
	h.mutex.RLock()
	targets := make([]*Client, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		if except != nil && client.ID() == except.ID() {
			continue
		}
		targets = append(targets, client)
	}
	h.mutex.RUnlock()

	h.deliver(targets, ev)
}

func (h *Hub) BroadcastAll(ev events.Outbound) {
	h.deliver(h.getClientSnapshot(), ev)
}

// RoomMembers returns the distinct users with a connection in room, sorted.
func (h *Hub) RoomMembers(room string) []domain.UserID {
	h.mutex.RLock()
	users := make([]domain.UserID, 0, len(h.rooms[room]))
	for client := range h.rooms[room] {
		users = append(users, client.user)
	}
	h.mutex.RUnlock()

	users = lo.Uniq(users)
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

func (h *Hub) Connections(user domain.UserID) []chat.Conn {
	return lo.FilterMap(h.getClientSnapshot(), func(c *Client, _ int) (chat.Conn, bool) {
		return c, c.user == user
	})
}

// ClientCount returns the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// getClientSnapshot returns a thread-safe snapshot of all current clients
func (h *Hub) getClientSnapshot() []*Client {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	return clients
}

// shutdownClients closes every connection; the read pumps then clean up.
func (h *Hub) shutdownClients() {
	h.log.Info("shutting down all client connections")

	clients := h.getClientSnapshot()
	for _, client := range clients {
		if client.conn != nil {
			if err := client.conn.Close(); err != nil && !isExpectedCloseError(err) {
				h.log.Warn("error closing client connection", "addr", client.addr, "error", err)
			}
		}
	}

	h.log.Info("closed client connections", "count", len(clients))
}

// Shutdown stops the hub and waits for every client goroutine to finish, or
// for timeout.
func (h *Hub) Shutdown(timeout time.Duration) error {
	h.log.Info("initiating hub shutdown")

	h.cancel()
	<-h.done

	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		h.log.Info("hub shutdown completed")
		return nil
	case <-time.After(timeout):
		h.log.Warn("hub shutdown timeout reached, some goroutines may still be running")
		return context.DeadlineExceeded
	}
}
