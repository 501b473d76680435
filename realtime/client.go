package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/wemarket/qr-order/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
	sendBuffer     = 64
)

// RoleResolver tells whether a user holds any role in a store.
type RoleResolver interface {
	ResolveRole(ctx context.Context, userID, storeID uint) (string, error)
}

// Client is one websocket connection. userID is zero for anonymous
// connections, which may only follow orders.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
	roles  RoleResolver

	// rooms is owned by the hub goroutine.
	rooms map[string]struct{}
}

// Serve registers the connection, joins the user room for authenticated
// users and blocks until the connection closes.
func Serve(hub *Hub, conn *websocket.Conn, userID uint, roles RoleResolver) {
	c := &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
		roles:  roles,
		rooms:  make(map[string]struct{}),
	}

	select {
	case hub.register <- c:
	case <-hub.done:
		conn.Close()
		return
	}
	go c.writePump()

	if userID != 0 {
		hub.Join(c, UserRoom(userID))
	}
	c.readPump()
}

type joinRequest struct {
	StoreID flexibleID `json:"storeId"`
	OrderID flexibleID `json:"orderId"`
	Room    string     `json:"room"`
}

// flexibleID accepts both 12 and "12".
type flexibleID uint

func (f *flexibleID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid id %s", string(b))
	}
	*f = flexibleID(n)
	return nil
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				utils.InfoLogger.WithError(err).Debug("websocket closed unexpectedly")
			}
			return
		}

		var in inbound
		if err := json.Unmarshal(raw, &in); err != nil {
			c.reply(EventError, map[string]string{"message": "invalid frame"})
			continue
		}
		c.handle(in)
	}
}

func (c *Client) handle(in inbound) {
	var req joinRequest
	if len(in.Data) > 0 {
		if err := json.Unmarshal(in.Data, &req); err != nil {
			c.reply(EventError, map[string]string{"message": err.Error()})
			return
		}
	}

	switch in.Event {
	case EventJoinOrder:
		if req.OrderID == 0 {
			c.reply(EventError, map[string]string{"message": "orderId is required"})
			return
		}
		c.joinRoom(OrderRoom(uint(req.OrderID)))

	case EventJoinStore, EventJoinKitchen:
		if err := c.authorizeStore(uint(req.StoreID)); err != nil {
			c.reply(EventError, map[string]string{"message": err.Error()})
			return
		}
		room := StoreRoom(uint(req.StoreID))
		if in.Event == EventJoinKitchen {
			room = KitchenRoom(uint(req.StoreID))
		}
		c.joinRoom(room)

	case EventLeave:
		if req.Room == "" {
			c.reply(EventError, map[string]string{"message": "room is required"})
			return
		}
		c.hub.Leave(c, req.Room)
		c.reply(EventLeft, map[string]string{"room": req.Room})

	default:
		c.reply(EventError, map[string]string{"message": "unknown event " + in.Event})
	}
}

func (c *Client) authorizeStore(storeID uint) error {
	if storeID == 0 {
		return fmt.Errorf("storeId is required")
	}
	if c.userID == 0 {
		return fmt.Errorf("authentication required")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	role, err := c.roles.ResolveRole(ctx, c.userID, storeID)
	if err != nil {
		utils.ErrorLogger.WithError(err).Error("resolve role for websocket join")
		return fmt.Errorf("could not verify store access")
	}
	if role == "" {
		return fmt.Errorf("no access to this store")
	}
	return nil
}

func (c *Client) joinRoom(room string) {
	c.hub.Join(c, room)
	utils.InfoLogger.WithFields(logrus.Fields{
		"room": room,
		"user": c.userID,
	}).Debug("websocket joined room")
	c.reply(EventJoined, map[string]string{"room": room})
}

// reply sends a frame to this connection only.
func (c *Client) reply(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		return
	}
	select {
	case c.hub.direct <- clientMessage{client: c, payload: payload}:
	case <-c.hub.done:
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
