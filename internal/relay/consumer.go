package relay

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"claimscope/models"

	"github.com/redis/go-redis/v9"
)

// Hub receives events consumed from a debate's Redis stream.
type Hub interface {
	BroadcastToDebate(debateID string, event *models.StreamEvent)
}

// Consumer reads a debate's event stream through a consumer group and
// forwards each event to the hub.
type Consumer struct {
	rdb          *redis.Client
	consumerName string
	hub          Hub
	stop         chan struct{}
}

// NewConsumer creates a consumer, or nil when Redis is unavailable.
func NewConsumer(hub Hub) *Consumer {
	if rdb == nil {
		return nil
	}

	hostname, _ := os.Hostname()
	consumerName := fmt.Sprintf("consumer-%s-%d", hostname, os.Getpid())

	return &Consumer{
		rdb:          rdb,
		consumerName: consumerName,
		hub:          hub,
		stop:         make(chan struct{}),
	}
}

// Start creates the consumer group for the debate if needed and begins
// consuming in the background.
func (c *Consumer) Start(debateID string) error {
	if c == nil || c.rdb == nil {
		return fmt.Errorf("redis client not available")
	}

	key := streamKey(debateID)
	group := groupName(debateID)

	err := c.rdb.XGroupCreateMkStream(ctx, key, group, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	go c.consumeLoop(debateID, key, group)
	return nil
}

// Stop terminates the consume loop.
func (c *Consumer) Stop() {
	if c == nil {
		return
	}
	select {
	case <-c.stop:
	default:
		close(c.stop)
	}
}

func (c *Consumer) consumeLoop(debateID, key, group string) {
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		streams, err := c.rdb.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    group,
			Consumer: c.consumerName,
			Streams:  []string{key, ">"},
			Count:    100,
			Block:    time.Second,
		}).Result()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, message := range stream.Messages {
				if err := c.processMessage(debateID, message); err != nil {
					log.Printf("relay: dropping stream message %s: %v", message.ID, err)
					continue
				}
				if err := c.rdb.XAck(ctx, key, group, message.ID).Err(); err != nil {
					log.Printf("relay: failed to ack %s: %v", message.ID, err)
				}
			}
		}
	}
}

func (c *Consumer) processMessage(debateID string, message redis.XMessage) error {
	data, ok := message.Values["data"].(string)
	if !ok {
		return fmt.Errorf("invalid message format: missing data field")
	}

	var event models.StreamEvent
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return fmt.Errorf("failed to unmarshal event: %w", err)
	}

	c.hub.BroadcastToDebate(debateID, &event)
	return nil
}
