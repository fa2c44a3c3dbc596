package relay

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"claimscope/models"

	"github.com/redis/go-redis/v9"
)

var (
	rdb *redis.Client
	ctx = context.Background()
)

// InitRedis initializes the Redis client used for debate event fan-out.
func InitRedis(addr string) error {
	opt := &redis.Options{
		Addr: addr,
	}
	rdb = redis.NewClient(opt)

	// Test connection
	_, err := rdb.Ping(ctx).Result()
	if err != nil {
		rdb = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return nil
}

// Available reports whether the relay is usable. Without Redis the
// server still streams to the requesting client; only spectator fan-out
// is disabled.
func Available() bool {
	return rdb != nil
}

// GetContext returns the default context
func GetContext() context.Context {
	return ctx
}

func streamKey(debateID string) string {
	return fmt.Sprintf("debate:%s:events", debateID)
}

func groupName(debateID string) string {
	return fmt.Sprintf("debate:%s:group", debateID)
}

// PublishEvent appends a debate event to the debate's Redis stream so
// spectator consumers can follow the run. History is bounded.
func PublishEvent(debateID string, event *models.StreamEvent) error {
	if rdb == nil {
		return fmt.Errorf("redis client not available")
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: streamKey(debateID),
		Values: map[string]interface{}{
			"data": string(data),
		},
		MaxLen: 10000,
		Approx: true,
	}).Result()
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	// Terminal events let the stream expire once consumers catch up.
	if event.Type == "complete" || event.Type == "error" {
		rdb.Expire(ctx, streamKey(debateID), time.Hour)
	}
	return nil
}
