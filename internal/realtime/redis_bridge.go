package realtime

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	channelPrefix    = "event:"
	publishTimeout   = 5 * time.Second
	subscribeTimeout = 5 * time.Second
)

// RedisBridge relays change events across instances via Redis pub/sub.
type RedisBridge struct {
	client *redis.Client
	logger *zap.Logger
}

// NewRedisBridge creates a Redis pub/sub bridge for event fan-out.
func NewRedisBridge(client *redis.Client, logger *zap.Logger) *RedisBridge {
	return &RedisBridge{client: client, logger: logger}
}

// Publish sends payload to the event's Redis channel.
func (r *RedisBridge) Publish(eventID uuid.UUID, payload []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	return r.client.Publish(ctx, channelPrefix+eventID.String(), payload).Err()
}

// Subscribe listens on the event's Redis channel and calls handler for each
// message. Returns a cancel function that stops the subscription. The
// confirmation handshake is bounded by subscribeTimeout so a dead broker
// surfaces as an error instead of a hang.
func (r *RedisBridge) Subscribe(eventID uuid.UUID, handler func(payload []byte)) (cancel func(), err error) {
	channel := channelPrefix + eventID.String()
	ctx, cancelCtx := context.WithCancel(context.Background())
	pubsub := r.client.Subscribe(ctx, channel)

	readyCtx, readyCancel := context.WithTimeout(ctx, subscribeTimeout)
	_, err = pubsub.Receive(readyCtx)
	readyCancel()
	if err != nil {
		pubsub.Close()
		cancelCtx()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := pubsub.Channel()
	go func() {
		defer pubsub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(msg.Payload))
			}
		}
	}()
	return cancelCtx, nil
}
