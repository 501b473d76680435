package services

import (
	"context"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wemarket/qr-order/models"
)

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (f *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafkaSinkDeliver(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{w: w}
	at := time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

	err := sink.Deliver(context.Background(), []models.OrderEvent{
		{EventID: "e-1", OrderID: 42, StoreID: 7, Type: models.EventNewOrder, Payload: []byte(`{"type":"NEW_ORDER"}`), CreatedAt: at},
		{EventID: "e-2", OrderID: 42, StoreID: 7, Type: models.EventOrderReady, Payload: []byte(`{"type":"ORDER_READY"}`), CreatedAt: at},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 2)

	m := w.msgs[0]
	assert.Equal(t, "42", string(m.Key))
	assert.JSONEq(t, `{"type":"NEW_ORDER"}`, string(m.Value))
	assert.Equal(t, at, m.Time)
	assert.Equal(t, []kafka.Header{
		{Key: "event-id", Value: []byte("e-1")},
		{Key: "event-type", Value: []byte(models.EventNewOrder)},
		{Key: "store-id", Value: []byte("7")},
	}, m.Headers)
	assert.Equal(t, "42", string(w.msgs[1].Key))

	assert.Equal(t, "kafka", sink.Name())
	require.NoError(t, sink.Close())
	assert.True(t, w.closed)
}
