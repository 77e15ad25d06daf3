package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

const userChannelPrefix = "xupload:user:"

// UserChannel is the pub/sub channel that carries one user's file events.
func UserChannel(userID int64) string {
	return fmt.Sprintf("%s%d", userChannelPrefix, userID)
}

// UserChannelPattern matches every user channel.
func UserChannelPattern() string {
	return userChannelPrefix + "*"
}

// UserIDFromChannel reverses UserChannel.
func UserIDFromChannel(channel string) (int64, bool) {
	rest, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type Publisher struct {
	client *redis.Client
}

func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client}
}

func (p *Publisher) Publish(ctx context.Context, channel string, payload []byte) error {
	return p.client.Publish(ctx, channel, payload).Err()
}

// PublishToUser JSON-encodes v and publishes it on the user's channel.
func (p *Publisher) PublishToUser(ctx context.Context, userID int64, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return p.Publish(ctx, UserChannel(userID), payload)
}
