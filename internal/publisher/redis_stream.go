package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// BlurbStream is the Redis stream blurb events are appended to.
const BlurbStream = "blurbs.basketball_nba"

// RedisStreamPublisher publishes events to Redis streams
type RedisStreamPublisher struct {
	client *redis.Client
	stream string
	maxLen int64
}

// NewRedisStreamPublisher creates a new Redis stream publisher from existing client
func NewRedisStreamPublisher(client *redis.Client) *RedisStreamPublisher {
	return &RedisStreamPublisher{
		client: client,
		stream: BlurbStream,
		maxLen: 10000,
	}
}

// PublishBlurbs appends the event to the blurb stream.
func (rsp *RedisStreamPublisher) PublishBlurbs(ctx context.Context, event BlurbEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding blurb event: %w", err)
	}

	err = rsp.client.XAdd(ctx, &redis.XAddArgs{
		Stream: rsp.stream,
		MaxLen: rsp.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"data":      string(data),
			"date":      event.Date,
			"game_id":   event.GameID,
			"timestamp": time.Now().Unix(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd %s: %w", rsp.stream, err)
	}
	return nil
}
