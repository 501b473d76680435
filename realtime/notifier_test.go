package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/models"
)

func readyEvent(staff *uint) models.OrderEventPayload {
	table := "A1"
	return models.OrderEventPayload{
		EventID:     "evt-1",
		Type:        models.EventOrderReady,
		OrderID:     5,
		OrderNumber: "20260314-0001",
		StoreID:     1,
		TableName:   &table,
		StaffUserID: staff,
		StaffName:   "Jisoo",
		Message:     "Order #20260314-0001 is ready!",
	}
}

func rooms(ds []Delivery) []string {
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = d.Room
	}
	return out
}

func TestRoute(t *testing.T) {
	staff := uint(7)

	t.Run("new order", func(t *testing.T) {
		p := readyEvent(&staff)
		p.Type = models.EventNewOrder
		ds := Route(p)
		assert.Equal(t, []string{"store-1", "kitchen-1", "user-7"}, rooms(ds))
		assert.Equal(t, models.TargetStore, ds[0].Payload.Target)
		assert.Nil(t, ds[0].Payload.StaffUserID)
		assert.Empty(t, ds[1].Payload.StaffName)
		assert.Equal(t, models.TargetTableStaff, ds[2].Payload.Target)
		assert.Equal(t, "Jisoo", ds[2].Payload.StaffName)

		p.StaffUserID = nil
		assert.Equal(t, []string{"store-1", "kitchen-1"}, rooms(Route(p)))
	})

	t.Run("status changes reach the customer only", func(t *testing.T) {
		for _, typ := range []string{models.EventOrderStatusChanged, models.EventOrderConfirmed} {
			p := readyEvent(&staff)
			p.Type = typ
			ds := Route(p)
			require.Len(t, ds, 1)
			assert.Equal(t, "order-5", ds[0].Room)
			assert.Equal(t, models.TargetCustomer, ds[0].Payload.Target)
			assert.Nil(t, ds[0].Payload.StaffUserID)
		}
	})

	t.Run("ready", func(t *testing.T) {
		ds := Route(readyEvent(&staff))
		assert.Equal(t, []string{"order-5", "user-7", "store-1"}, rooms(ds))
		assert.Equal(t, models.TargetStaff, ds[1].Payload.Target)
		assert.Equal(t, models.TargetManager, ds[2].Payload.Target)
		assert.Equal(t, []string{"order-5", "store-1"}, rooms(Route(readyEvent(nil))))
	})

	t.Run("unknown type", func(t *testing.T) {
		p := readyEvent(nil)
		p.Type = "ORDER_EATEN"
		assert.Empty(t, Route(p))
	})
}

type published struct {
	room string
	msg  Message
}

type fakePublisher struct {
	got  []published
	fail error
}

func (f *fakePublisher) Publish(ctx context.Context, room string, msg Message) error {
	if f.fail != nil {
		return f.fail
	}
	f.got = append(f.got, published{room: room, msg: msg})
	return nil
}

func TestNotifierDeliver(t *testing.T) {
	pub := &fakePublisher{}
	n := NewNotifier(pub)
	staff := uint(7)
	raw, err := json.Marshal(readyEvent(&staff))
	require.NoError(t, err)

	err = n.Deliver(context.Background(), []models.OrderEvent{
		{EventID: "broken", Payload: []byte("{not json")},
		{EventID: "evt-1", Type: models.EventOrderReady, Payload: raw},
	})
	require.NoError(t, err)
	require.Len(t, pub.got, 3, "undecodable payloads are skipped")
	assert.Equal(t, EventNotification, pub.got[0].msg.Event)
	first, ok := pub.got[0].msg.Data.(models.OrderEventPayload)
	require.True(t, ok)
	assert.Equal(t, models.TargetCustomer, first.Target)

	pub.fail = errors.New("hub stopped")
	err = n.Deliver(context.Background(), []models.OrderEvent{{EventID: "evt-1", Payload: raw}})
	assert.ErrorContains(t, err, "hub stopped")
	assert.Equal(t, "realtime", n.Name())
}

func TestEnvelopeRoundTrip(t *testing.T) {
	raw, err := encodeEnvelope("order-5", Message{Event: EventNotification, Data: map[string]int{"orderId": 5}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"room":"order-5","event":"notification","data":{"orderId":5}}`, string(raw))

	room, msg, err := decodeEnvelope(raw)
	require.NoError(t, err)
	assert.Equal(t, "order-5", room)
	assert.Equal(t, EventNotification, msg.Event)

	// Data is forwarded unchanged when the hub re-encodes the frame.
	frame, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"notification","data":{"orderId":5}}`, string(frame))

	_, _, err = decodeEnvelope([]byte("nope"))
	assert.Error(t, err)
}
