package realtime

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"github.com/wemarket/qr-order/utils"
)

type envelope struct {
	Room  string `json:"room"`
	Event string `json:"event"`
	// Data stays raw so it is forwarded byte for byte.
	Data json.RawMessage `json:"data"`
}

// RedisBridge relays frames between processes. Publish sends to the shared
// channel; Run delivers everything on the channel, including this process's
// own messages, to the local hub.
type RedisBridge struct {
	client  *redis.Client
	channel string
	hub     *Hub
}

func NewRedisBridge(client *redis.Client, channel string, hub *Hub) *RedisBridge {
	return &RedisBridge{client: client, channel: channel, hub: hub}
}

func encodeEnvelope(room string, msg Message) ([]byte, error) {
	data, err := json.Marshal(msg.Data)
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Room: room, Event: msg.Event, Data: data})
}

func decodeEnvelope(raw []byte) (string, Message, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return "", Message{}, err
	}
	return env.Room, Message{Event: env.Event, Data: env.Data}, nil
}

func (b *RedisBridge) Publish(ctx context.Context, room string, msg Message) error {
	payload, err := encodeEnvelope(room, msg)
	if err != nil {
		return err
	}
	return b.client.Publish(ctx, b.channel, payload).Err()
}

// Run subscribes until ctx is cancelled.
func (b *RedisBridge) Run(ctx context.Context) error {
	sub := b.client.Subscribe(ctx, b.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	utils.InfoLogger.WithField("channel", b.channel).Info("redis bridge subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			room, msg, err := decodeEnvelope([]byte(m.Payload))
			if err != nil {
				utils.ErrorLogger.WithError(err).Error("bad redis bridge message")
				continue
			}
			if err := b.hub.Publish(ctx, room, msg); err != nil {
				return err
			}
		}
	}
}
