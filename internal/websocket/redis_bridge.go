package websocket

import (
	"context"

	"xupload/internal/redis"
)

type Subscriber interface {
	Subscribe(ctx context.Context, patterns []string, handler func(channel string, payload []byte)) error
}

// RedisBridge relays events published by any instance to the connections
// held by this one.
type RedisBridge struct {
	subscriber Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, []string{redis.UserChannelPattern()}, b.forward)
}

func (b *RedisBridge) forward(channel string, payload []byte) {
	userID, ok := redis.UserIDFromChannel(channel)
	if !ok {
		return
	}
	b.hub.BroadcastToUser(userID, payload)
}
