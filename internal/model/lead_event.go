package model

import (
	"encoding/json"
	"time"
)

// LeadEvent is one row of the lead-activity audit trail. Produced by the
// ingress after an event is fully processed, carried over the Redis stream,
// and persisted to Postgres by the worker. Purely observational: losing one
// never affects the conversation.
type LeadEvent struct {
	ID             int64
	AccountID      int64
	ConversationID int64
	EventType      string
	Action         string
	DedupeKey      string
	Fields         json.RawMessage // snapshot of the qualification fields after the transition
	CreatedAt      time.Time
}
