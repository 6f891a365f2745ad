package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Message is the structured payload posted to the counterparty's chat channel
// when a booking changes.
type Message struct {
	AppointmentID string `json:"app_id"`
	Label         string `json:"label"`
	Status        string `json:"status"`
}

// Channel delivers booking notifications over the chat side-channel. Posting
// is best-effort: a failed post must never roll back a confirmed store write.
type Channel interface {
	Post(ctx context.Context, channelRef string, msg Message) error
	Close() error
}

// RedisChannel publishes messages to the chat relay via redis pub/sub. The
// channel ref is the conversation id shared with the counterparty.
type RedisChannel struct {
	client *redis.Client
}

func NewRedisChannel(redisAddr string) (*RedisChannel, error) {
	const op = "notify.NewRedisChannel"

	client := redis.NewClient(&redis.Options{
		Addr: redisAddr,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &RedisChannel{client: client}, nil
}

func (c *RedisChannel) Post(ctx context.Context, channelRef string, msg Message) error {
	const op = "notify.RedisChannel.Post"

	if channelRef == "" {
		return fmt.Errorf("%s: empty channel ref", op)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := c.client.Publish(ctx, fmt.Sprintf("chat:%s", channelRef), payload).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (c *RedisChannel) Close() error {
	return c.client.Close()
}
