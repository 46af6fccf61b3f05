package websocket

import (
	"context"
	"log"
	"sync"

	"github.com/anjiri1684/skillazon/models"
	"github.com/google/uuid"
)

const clientSendBuffer = 64

// Conn is the part of a websocket connection the hub writes to.
type Conn interface {
	WriteJSON(v interface{}) error
	Close() error
}

// Client is one authenticated connection. Every frame bound for it goes
// through Send; WritePump is the only goroutine that writes to conn.
type Client struct {
	UserID uuid.UUID

	conn      Conn
	send      chan interface{}
	done      chan struct{}
	closeOnce sync.Once
}

func NewClient(userID uuid.UUID, conn Conn) *Client {
	return &Client{
		UserID: userID,
		conn:   conn,
		send:   make(chan interface{}, clientSendBuffer),
		done:   make(chan struct{}),
	}
}

// Send queues a frame without blocking. It reports false when the client is
// closed or too far behind.
func (c *Client) Send(v interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

// WritePump drains the send queue until the client is closed or a write fails.
func (c *Client) WritePump() {
	defer c.conn.Close()
	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			if err := c.conn.WriteJSON(v); err != nil {
				log.Printf("Error sending frame to client %s: %v", c.UserID, err)
				c.Close()
				return
			}
		}
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() { close(c.done) })
}

// Relay fans messages out to every instance, this one included.
type Relay interface {
	Publish(ctx context.Context, msg *models.Message) error
	Subscribe(ctx context.Context, deliver func(*models.Message)) error
}

type joinRequest struct {
	client *Client
	room   string
}

// Hub tracks connected clients and their rooms. All state is owned by the
// Run goroutine; other goroutines talk to it over channels.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan joinRequest
	deliver    chan *models.Message
	done       chan struct{}
	relay      Relay

	clients map[uuid.UUID]*Client
	rooms   map[string]map[uuid.UUID]bool
}

func NewHub(relay Relay) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan joinRequest),
		deliver:    make(chan *models.Message, 256),
		done:       make(chan struct{}),
		relay:      relay,
		clients:    make(map[uuid.UUID]*Client),
		rooms:      make(map[string]map[uuid.UUID]bool),
	}
}

// Register, Unregister and Join are no-ops once Run has returned.
func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) Join(c *Client, room string) {
	select {
	case h.join <- joinRequest{client: c, room: room}:
	case <-h.done:
	}
}

// Broadcast hands a message to the relay, or straight to local delivery when
// running without one. Delivery is best-effort: a full queue drops the message.
func (h *Hub) Broadcast(ctx context.Context, msg *models.Message) {
	if h.relay != nil {
		if err := h.relay.Publish(ctx, msg); err != nil {
			log.Printf("⚠️ Failed to publish chat message %s: %v", msg.ID, err)
		}
		return
	}
	h.enqueue(msg)
}

func (h *Hub) enqueue(msg *models.Message) {
	select {
	case h.deliver <- msg:
	default:
		log.Printf("⚠️ Chat delivery queue full, dropping message %s", msg.ID)
	}
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	if h.relay != nil {
		go func() {
			if err := h.relay.Subscribe(ctx, h.enqueue); err != nil && ctx.Err() == nil {
				log.Printf("🔥 Chat relay subscription ended: %v", err)
			}
		}()
	}

	for {
		select {
		case <-ctx.Done():
			for _, c := range h.clients {
				c.Close()
			}
			return
		case client := <-h.register:
			log.Printf("Client registered: %s", client.UserID)
			if old, ok := h.clients[client.UserID]; ok && old != client {
				old.Close()
			}
			h.clients[client.UserID] = client
		case client := <-h.unregister:
			log.Printf("Client unregistered: %s", client.UserID)
			if current, ok := h.clients[client.UserID]; ok && current == client {
				h.drop(client.UserID)
			}
		case req := <-h.join:
			members, ok := h.rooms[req.room]
			if !ok {
				members = make(map[uuid.UUID]bool)
				h.rooms[req.room] = members
			}
			members[req.client.UserID] = true
		case msg := <-h.deliver:
			for _, id := range h.recipients(msg) {
				client, ok := h.clients[id]
				if !ok {
					continue
				}
				if !client.Send(msg) {
					log.Printf("⚠️ Client %s is gone or too slow, disconnecting", id)
					client.Close()
					h.drop(id)
				}
			}
		}
	}
}

func (h *Hub) recipients(msg *models.Message) []uuid.UUID {
	if msg.RecipientID != nil {
		return []uuid.UUID{*msg.RecipientID}
	}
	var ids []uuid.UUID
	for id := range h.rooms[msg.Room] {
		if id != msg.SenderID {
			ids = append(ids, id)
		}
	}
	return ids
}

func (h *Hub) drop(userID uuid.UUID) {
	delete(h.clients, userID)
	for room, members := range h.rooms {
		delete(members, userID)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}
