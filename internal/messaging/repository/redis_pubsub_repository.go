package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"rental_messaging_service/pkg/logger"

	"github.com/go-redis/redis/v8"
)

// BroadcastBus relays room broadcasts between gateway instances. The local
// room map stays authoritative; the bus only carries what another instance
// already persisted.
type BroadcastBus interface {
	Publish(channel string, message interface{}) error
	Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error
}

// RedisPubSub definition redis pub/sub
type RedisPubSub struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisPubSub create RedisPubSub
func NewRedisPubSub(client *redis.Client) *RedisPubSub {
	return &RedisPubSub{
		client: client,
		ctx:    context.Background(),
	}
}

// Publish serializes message and publishes it to channel
func (r *RedisPubSub) Publish(channel string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return r.client.Publish(r.ctx, channel, data).Err()
}

// Subscribe listens on channel until ctx is cancelled, handing each raw
// payload to handler
func (r *RedisPubSub) Subscribe(ctx context.Context, channel string, handler func(payload []byte)) error {
	sub := r.client.Subscribe(r.ctx, channel)
	go func() {
		ch := sub.Channel()

		for {
			select {
			case m, ok := <-ch:
				if !ok {
					return
				}
				handler([]byte(m.Payload))
			case <-ctx.Done():
				logger.Log.Info(fmt.Sprintf("%s , sub close", channel))
				sub.Close()
				return
			}
		}
	}()
	return nil
}
