package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"dom360.app/sdrbot/common/logger"
)

type ConsumerConfig struct {
	Stream    string        // Redis stream name
	Group     string        // consumer group name
	Consumer  string        // consumer name within the group
	BatchSize int64         // messages per read
	Block     time.Duration // how long to block waiting for new messages
}

// Message is one stream entry plus its parsed activity.
type Message struct {
	ID       string
	Activity LeadActivity
	Raw      redis.XMessage
}

type RedisConsumer struct {
	client *redis.Client
	cfg    ConsumerConfig
}

func NewRedisConsumer(client *redis.Client, cfg ConsumerConfig) (*RedisConsumer, error) {
	consumer := &RedisConsumer{
		client: client,
		cfg:    cfg,
	}

	if err := consumer.ensureGroup(context.Background()); err != nil { //nolint:contextcheck
		return nil, err
	}

	return consumer, nil
}

func (c *RedisConsumer) ensureGroup(ctx context.Context) error {
	// Start the group at "0" rather than "$" so entries published while the
	// worker was down are still seen after a restart.
	if err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err(); err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func (c *RedisConsumer) Read(ctx context.Context) ([]Message, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "sdrbot.queue.consumer",
	})

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.cfg.Group,
		Consumer: c.cfg.Consumer,
		Streams:  []string{c.cfg.Stream, ">"},
		Count:    c.cfg.BatchSize,
		Block:    c.cfg.Block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Message{}, nil
		}
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var messages []Message
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			parsed, parseErr := parseMessage(msg)
			if parseErr != nil {
				// A malformed entry would otherwise be redelivered forever.
				slog.ErrorContext(ctx, "failed to parse stream message, acking and skipping",
					"error", parseErr,
					"raw_message_id", msg.ID,
					"stream", c.cfg.Stream)
				_ = c.Ack(ctx, Message{ID: msg.ID, Raw: msg})
				continue
			}
			messages = append(messages, parsed)
		}
	}

	return messages, nil
}

func (c *RedisConsumer) Ack(ctx context.Context, msg Message) error {
	if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
		return fmt.Errorf("acking message %s: %w", msg.ID, err)
	}
	return nil
}

func (c *RedisConsumer) Close() error {
	return c.client.Close()
}

func parseMessage(msg redis.XMessage) (Message, error) {
	accountID, err := parseInt64(msg.Values, "account_id")
	if err != nil {
		return Message{}, err
	}
	conversationID, err := parseInt64(msg.Values, "conversation_id")
	if err != nil {
		return Message{}, err
	}
	eventType, _ := msg.Values["event_type"].(string)
	if eventType == "" {
		return Message{}, fmt.Errorf("message %s missing event_type", msg.ID)
	}

	activity := LeadActivity{
		AccountID:      accountID,
		ConversationID: conversationID,
		EventType:      eventType,
	}
	if action, ok := msg.Values["action"].(string); ok {
		activity.Action = action
	}
	if key, ok := msg.Values["dedupe_key"].(string); ok {
		activity.DedupeKey = key
	}
	if fields, ok := msg.Values["fields"].(string); ok && fields != "" {
		activity.Fields = json.RawMessage(fields)
	}

	return Message{ID: msg.ID, Activity: activity, Raw: msg}, nil
}

func parseInt64(values map[string]any, key string) (int64, error) {
	s, ok := values[key].(string)
	if !ok {
		return 0, fmt.Errorf("missing %s", key)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing %s: %w", key, err)
	}
	return n, nil
}
