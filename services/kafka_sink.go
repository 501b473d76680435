package services

import (
	"context"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/wemarket/qr-order/models"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSink publishes order events to a topic keyed by order id, so every
// event of one order lands on the same partition in outbox order.
type KafkaSink struct {
	w messageWriter
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  5,
			WriteTimeout: 5 * time.Second,
			ReadTimeout:  5 * time.Second,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

func (k *KafkaSink) Name() string { return "kafka" }

func (k *KafkaSink) Close() error { return k.w.Close() }

func (k *KafkaSink) Deliver(ctx context.Context, events []models.OrderEvent) error {
	msgs := make([]kafka.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strconv.FormatUint(uint64(e.OrderID), 10)),
			Value: e.Payload,
			Time:  e.CreatedAt,
			Headers: []kafka.Header{
				{Key: "event-id", Value: []byte(e.EventID)},
				{Key: "event-type", Value: []byte(e.Type)},
				{Key: "store-id", Value: []byte(strconv.FormatUint(uint64(e.StoreID), 10))},
			},
		})
	}
	return k.w.WriteMessages(ctx, msgs...)
}
