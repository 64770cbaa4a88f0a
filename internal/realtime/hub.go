package realtime

import (
	"log"
	"net/http"
	"sync"
	"time"

	"gestion-backend/internal/metrics"

	"github.com/gorilla/websocket"
)

// Event is pushed to every connection of one user.
type Event struct {
	UserID int         `json:"-"`
	Kind   string      `json:"kind"`
	Data   interface{} `json:"data"`
}

const writeWait = 5 * time.Second

// Hub keeps the open notification sockets of each user and fans events out
// to them. Clients still poll; the socket only shortens the delay.
type Hub struct {
	upgrader websocket.Upgrader

	clientsMux sync.Mutex
	clients    map[int]map[*websocket.Conn]bool

	events chan Event
	done   chan struct{}
	once   sync.Once
}

// NewHub creates a hub accepting upgrades from allowedOrigins (any origin
// when the list is empty).
func NewHub(allowedOrigins []string) *Hub {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &Hub{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return len(allowed) == 0 || origin == "" || allowed[origin]
			},
		},
		clients: make(map[int]map[*websocket.Conn]bool),
		events:  make(chan Event, 256),
		done:    make(chan struct{}),
	}
}

// Run delivers queued events until Stop is called.
func (h *Hub) Run() {
	for {
		select {
		case ev := <-h.events:
			h.deliver(ev)
		case <-h.done:
			h.closeAll()
			return
		}
	}
}

// Stop ends Run and closes every connection.
func (h *Hub) Stop() {
	h.once.Do(func() { close(h.done) })
}

// Publish queues an event without blocking; events are dropped when the
// queue is full since clients catch up on their next poll.
func (h *Hub) Publish(ev Event) {
	select {
	case h.events <- ev:
	default:
		log.Printf("[Realtime] Event queue full, dropping %s for user %d", ev.Kind, ev.UserID)
	}
}

// Serve upgrades the request and keeps the connection registered for userID
// until the client goes away.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID int) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("[Realtime] WebSocket upgrade error:", err)
		return
	}
	defer conn.Close()

	h.register(userID, conn)
	defer h.unregister(userID, conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// ClientCount returns how many sockets userID has open.
func (h *Hub) ClientCount(userID int) int {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	return len(h.clients[userID])
}

func (h *Hub) register(userID int, conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[*websocket.Conn]bool)
	}
	h.clients[userID][conn] = true
	metrics.WebsocketClients.Inc()
}

func (h *Hub) unregister(userID int, conn *websocket.Conn) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	if conns, ok := h.clients[userID]; ok && conns[conn] {
		delete(conns, conn)
		metrics.WebsocketClients.Dec()
		if len(conns) == 0 {
			delete(h.clients, userID)
		}
	}
}

func (h *Hub) deliver(ev Event) {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for conn := range h.clients[ev.UserID] {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(ev); err != nil {
			conn.Close()
			delete(h.clients[ev.UserID], conn)
			metrics.WebsocketClients.Dec()
		}
	}
	if len(h.clients[ev.UserID]) == 0 {
		delete(h.clients, ev.UserID)
	}
}

func (h *Hub) closeAll() {
	h.clientsMux.Lock()
	defer h.clientsMux.Unlock()
	for userID, conns := range h.clients {
		for conn := range conns {
			conn.Close()
			metrics.WebsocketClients.Dec()
		}
		delete(h.clients, userID)
	}
}
