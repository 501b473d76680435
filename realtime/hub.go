package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/utils"
)

// Frame event names.
const (
	EventNotification = "notification"
	EventJoined       = "joined"
	EventLeft         = "left"
	EventError        = "error"

	EventJoinStore   = "join-store"
	EventJoinKitchen = "join-kitchen"
	EventJoinOrder   = "join-order"
	EventLeave       = "leave"
)

// Message is one JSON frame on the wire.
type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

func StoreRoom(storeID uint) string   { return fmt.Sprintf("store-%d", storeID) }
func KitchenRoom(storeID uint) string { return fmt.Sprintf("kitchen-%d", storeID) }
func OrderRoom(orderID uint) string   { return fmt.Sprintf("order-%d", orderID) }
func UserRoom(userID uint) string     { return fmt.Sprintf("user-%d", userID) }

type membership struct {
	client *Client
	room   string
	done   chan struct{}
}

type roomMessage struct {
	room    string
	payload []byte
}

type clientMessage struct {
	client  *Client
	payload []byte
}

type sizeQuery struct {
	room  string
	reply chan int
}

// Hub owns every room. All membership changes and broadcasts go through its
// goroutine, so the room map needs no locking.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan membership
	leave      chan membership
	broadcast  chan roomMessage
	direct     chan clientMessage
	sizes      chan sizeQuery
	done       chan struct{}

	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		join:       make(chan membership),
		leave:      make(chan membership),
		broadcast:  make(chan roomMessage, 256),
		direct:     make(chan clientMessage),
		sizes:      make(chan sizeQuery),
		done:       make(chan struct{}),
		clients:    make(map[*Client]struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
	}
}

// Run serves the hub until ctx is cancelled, then closes every connection.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for c := range h.clients {
				h.drop(c)
			}
			return nil

		case c := <-h.register:
			h.clients[c] = struct{}{}

		case c := <-h.unregister:
			if _, ok := h.clients[c]; ok {
				h.drop(c)
			}

		case m := <-h.join:
			if _, ok := h.clients[m.client]; ok {
				members, exists := h.rooms[m.room]
				if !exists {
					members = make(map[*Client]struct{})
					h.rooms[m.room] = members
				}
				members[m.client] = struct{}{}
				m.client.rooms[m.room] = struct{}{}
			}
			close(m.done)

		case m := <-h.leave:
			h.removeFromRoom(m.client, m.room)
			close(m.done)

		case msg := <-h.broadcast:
			for c := range h.rooms[msg.room] {
				h.deliver(c, msg.payload, msg.room)
			}

		case m := <-h.direct:
			if _, ok := h.clients[m.client]; ok {
				h.deliver(m.client, m.payload, "")
			}

		case q := <-h.sizes:
			q.reply <- len(h.rooms[q.room])
		}
	}
}

// deliver never blocks; a client whose buffer is full is disconnected.
func (h *Hub) deliver(c *Client, payload []byte, room string) {
	select {
	case c.send <- payload:
	default:
		utils.InfoLogger.WithFields(logrus.Fields{
			"room": room,
			"user": c.userID,
		}).Warn("dropping slow websocket client")
		h.drop(c)
	}
}

func (h *Hub) removeFromRoom(c *Client, room string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, c)
	delete(c.rooms, room)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

func (h *Hub) drop(c *Client) {
	for room := range c.rooms {
		h.removeFromRoom(c, room)
	}
	delete(h.clients, c)
	close(c.send)
}

// Publish queues msg for every member of room.
func (h *Hub) Publish(ctx context.Context, room string, msg Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- roomMessage{room: room, payload: payload}:
		return nil
	case <-h.done:
		return fmt.Errorf("hub stopped")
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RoomSize reports how many connections are in room.
func (h *Hub) RoomSize(room string) int {
	q := sizeQuery{room: room, reply: make(chan int, 1)}
	select {
	case h.sizes <- q:
		return <-q.reply
	case <-h.done:
		return 0
	}
}

// Join adds c to room and returns once the hub applied it.
func (h *Hub) Join(c *Client, room string) {
	h.apply(h.join, c, room)
}

func (h *Hub) Leave(c *Client, room string) {
	h.apply(h.leave, c, room)
}

func (h *Hub) apply(ch chan membership, c *Client, room string) {
	m := membership{client: c, room: room, done: make(chan struct{})}
	select {
	case ch <- m:
		<-m.done
	case <-h.done:
	}
}
