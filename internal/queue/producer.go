// Package queue carries lead-activity audit messages over a Redis stream
// from the webhook ingress to the persistence worker.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// LeadActivity is one audit message: what happened on which conversation.
type LeadActivity struct {
	AccountID      int64
	ConversationID int64
	EventType      string
	Action         string
	DedupeKey      string
	Fields         json.RawMessage
}

type Producer interface {
	Publish(ctx context.Context, msg LeadActivity) error
	Close() error
}

type redisProducer struct {
	client *redis.Client
	stream string
	logger *slog.Logger
}

func NewRedisProducer(client *redis.Client, stream string, logger *slog.Logger) Producer {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisProducer{
		client: client,
		stream: stream,
		logger: logger,
	}
}

func (p *redisProducer) Publish(ctx context.Context, msg LeadActivity) error {
	fields := map[string]any{
		"account_id":      msg.AccountID,
		"conversation_id": msg.ConversationID,
		"event_type":      msg.EventType,
		"dedupe_key":      msg.DedupeKey,
	}
	if msg.Action != "" {
		fields["action"] = msg.Action
	}
	if len(msg.Fields) > 0 {
		fields["fields"] = string(msg.Fields)
	}

	if err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: fields,
	}).Err(); err != nil {
		return fmt.Errorf("publishing lead activity: %w", err)
	}

	p.logger.DebugContext(ctx, "published lead activity",
		"conversation_id", msg.ConversationID,
		"event_type", msg.EventType,
		"action", msg.Action)
	return nil
}

func (p *redisProducer) Close() error {
	return p.client.Close()
}
