package ws

import (
	"log/slog"
	"sync"

	"github.com/gofiber/websocket/v2"
	"github.com/plateful/plateful-server/database/models"
)

// Event is one record change delivered to subscribers. Exactly one of Note
// and Recipe is set, matching the Type prefix.
type Event struct {
	Type   string         `json:"type"`
	Note   *models.Note   `json:"note,omitempty"`
	Recipe *models.Recipe `json:"recipe,omitempty"`
}

const (
	EventNoteCreated   = "note_created"
	EventNoteUpdated   = "note_updated"
	EventNoteDeleted   = "note_deleted"
	EventRecipeCreated = "recipe_created"
	EventRecipeUpdated = "recipe_updated"
	EventRecipeDeleted = "recipe_deleted"
)

type envelope struct {
	owner string
	event Event
}

// Hub fans record change events out to authenticated websocket clients.
// Every write path (mutations and background patches) publishes here, and a
// client only receives events for records owned by its subject. The single
// run goroutine owns the client map and guarantees per-record commit-order
// delivery.
type Hub struct {
	clients    map[*websocket.Conn]string
	broadcast  chan envelope
	register   chan registration
	unregister chan *websocket.Conn
	done       chan struct{}
	stopOnce   sync.Once
}

type registration struct {
	conn    *websocket.Conn
	subject string
}

func NewHub() *Hub {
	return &Hub{
		clients:    make(map[*websocket.Conn]string),
		broadcast:  make(chan envelope, 256),
		register:   make(chan registration),
		unregister: make(chan *websocket.Conn),
		done:       make(chan struct{}),
	}
}

// Run services the hub channels until Stop is called, then closes every
// remaining connection and returns.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			for conn := range h.clients {
				conn.Close()
			}
			h.clients = make(map[*websocket.Conn]string)
			return

		case reg := <-h.register:
			h.clients[reg.conn] = reg.subject

		case conn := <-h.unregister:
			if _, ok := h.clients[conn]; ok {
				delete(h.clients, conn)
				conn.Close()
			}

		case env := <-h.broadcast:
			for conn, subject := range h.clients {
				if subject != env.owner {
					continue
				}
				if err := conn.WriteJSON(env.event); err != nil {
					slog.Warn("Websocket write failed, dropping client",
						slog.String("type", "sys"),
						slog.Any("error", err))
					delete(h.clients, conn)
					conn.Close()
				}
			}
		}
	}
}

// Stop ends the run goroutine. Hub calls made after Stop return without
// blocking; safe to call more than once.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

// NotifyNote publishes a note change to its owner's subscriptions.
func (h *Hub) NotifyNote(eventType string, note *models.Note) {
	select {
	case h.broadcast <- envelope{owner: note.UserID, event: Event{Type: eventType, Note: note}}:
	case <-h.done:
	}
}

// NotifyRecipe publishes a recipe change to its owner's subscriptions.
func (h *Hub) NotifyRecipe(eventType string, recipe *models.Recipe) {
	select {
	case h.broadcast <- envelope{owner: recipe.UserID, event: Event{Type: eventType, Recipe: recipe}}:
	case <-h.done:
	}
}

func (h *Hub) Register(conn *websocket.Conn, subject string) {
	select {
	case h.register <- registration{conn: conn, subject: subject}:
	case <-h.done:
		conn.Close()
	}
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	select {
	case h.unregister <- conn:
	case <-h.done:
	}
}

// HandleConnection blocks reading the socket until the client goes away.
// Inbound frames are ignored; the channel is delivery-only.
func (h *Hub) HandleConnection(conn *websocket.Conn) {
	defer h.Unregister(conn)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
