package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/models"
)

// staticRoles grants roles by "user/store" key.
type staticRoles map[string]string

func (s staticRoles) ResolveRole(ctx context.Context, userID, storeID uint) (string, error) {
	return s[strconv.Itoa(int(userID))+"/"+strconv.Itoa(int(storeID))], nil
}

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
	return hub
}

func TestHubRooms(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 4), rooms: map[string]struct{}{}}
	hub.register <- c

	hub.Join(c, OrderRoom(1))
	assert.Equal(t, 1, hub.RoomSize("order-1"))

	require.NoError(t, hub.Publish(context.Background(), "order-1", Message{Event: EventNotification, Data: "hi"}))
	select {
	case frame := <-c.send:
		assert.JSONEq(t, `{"event":"notification","data":"hi"}`, string(frame))
	case <-time.After(time.Second):
		t.Fatal("no frame delivered")
	}

	hub.Leave(c, OrderRoom(1))
	assert.Zero(t, hub.RoomSize("order-1"))
}

func TestHubDropsSlowClients(t *testing.T) {
	hub := startHub(t)
	c := &Client{hub: hub, send: make(chan []byte, 1), rooms: map[string]struct{}{}}
	hub.register <- c
	hub.Join(c, StoreRoom(1))

	ctx := context.Background()
	require.NoError(t, hub.Publish(ctx, "store-1", Message{Event: EventNotification}))
	require.NoError(t, hub.Publish(ctx, "store-1", Message{Event: EventNotification}))

	require.Eventually(t, func() bool { return hub.RoomSize("store-1") == 0 }, time.Second, 10*time.Millisecond)
	<-c.send
	_, open := <-c.send
	assert.False(t, open, "the send channel of a dropped client is closed")
}

type frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func dial(t *testing.T, srv *httptest.Server, uid uint) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?uid=" + strconv.Itoa(int(uid))
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, event string, data interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]interface{}{"event": event, "data": data}))
}

func next(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestWebsocketNotifications(t *testing.T) {
	hub := startHub(t)
	roles := staticRoles{"7/1": models.RoleStaff}
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.Atoi(r.URL.Query().Get("uid"))
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, uint(uid), roles)
	}))
	defer srv.Close()

	customer := dial(t, srv, 0)
	send(t, customer, EventJoinOrder, map[string]string{"orderId": "5"})
	ack := next(t, customer)
	assert.Equal(t, EventJoined, ack.Event)
	assert.JSONEq(t, `{"room":"order-5"}`, string(ack.Data))

	other := dial(t, srv, 0)
	send(t, other, EventJoinOrder, map[string]int{"orderId": 6})
	assert.Equal(t, EventJoined, next(t, other).Event)

	send(t, other, EventJoinStore, map[string]int{"storeId": 1})
	denied := next(t, other)
	assert.Equal(t, EventError, denied.Event)
	assert.Contains(t, string(denied.Data), "authentication required")

	staff := dial(t, srv, 7)
	send(t, staff, EventJoinStore, map[string]int{"storeId": 1})
	assert.Equal(t, EventJoined, next(t, staff).Event)

	stranger := dial(t, srv, 8)
	send(t, stranger, EventJoinKitchen, map[string]int{"storeId": 1})
	assert.Contains(t, string(next(t, stranger).Data), "no access")

	staffID := uint(7)
	raw, err := json.Marshal(readyEvent(&staffID))
	require.NoError(t, err)
	require.NoError(t, NewNotifier(hub).Deliver(context.Background(), []models.OrderEvent{{EventID: "evt-1", Payload: raw}}))

	var got models.OrderEventPayload
	f := next(t, customer)
	assert.Equal(t, EventNotification, f.Event)
	require.NoError(t, json.Unmarshal(f.Data, &got))
	assert.Equal(t, models.TargetCustomer, got.Target)
	assert.Equal(t, uint(5), got.OrderID)
	assert.Nil(t, got.StaffUserID)

	for _, want := range []string{models.TargetStaff, models.TargetManager} {
		f := next(t, staff)
		require.NoError(t, json.Unmarshal(f.Data, &got))
		assert.Equal(t, want, got.Target)
	}

	require.NoError(t, other.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err = other.ReadMessage()
	assert.Error(t, err, "followers of another order hear nothing")
}

func TestWebsocketLeaveAndBadFrames(t *testing.T) {
	hub := startHub(t)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		Serve(hub, conn, 0, staticRoles{})
	}))
	defer srv.Close()

	conn := dial(t, srv, 0)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("hello")))
	assert.Equal(t, EventError, next(t, conn).Event)

	send(t, conn, EventJoinOrder, map[string]int{})
	assert.Contains(t, string(next(t, conn).Data), "orderId is required")

	send(t, conn, "dance", nil)
	assert.Contains(t, string(next(t, conn).Data), "unknown event dance")

	send(t, conn, EventJoinOrder, map[string]int{"orderId": 9})
	assert.Equal(t, EventJoined, next(t, conn).Event)
	assert.Equal(t, 1, hub.RoomSize("order-9"))

	send(t, conn, EventLeave, map[string]string{"room": "order-9"})
	left := next(t, conn)
	assert.Equal(t, EventLeft, left.Event)
	assert.Zero(t, hub.RoomSize("order-9"))
}
