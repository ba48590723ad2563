package model

import "fmt"

// Action is a side effect requested by the qualification flow.
type Action string

const (
	ActionNone       Action = ""
	ActionHandoff    Action = "handoff"
	ActionCreateLead Action = "create_lead"
	ActionSchedule   Action = "schedule"
)

// EventType is the Chatwoot webhook event discriminator.
type EventType string

const (
	EventMessageCreated  EventType = "message_created"
	EventMessageUpdated  EventType = "message_updated"
	EventWidgetTriggered EventType = "widget_triggered"
)

// Accepted reports whether this event type enters the qualification flow.
// Everything else is acknowledged and dropped.
func (t EventType) Accepted() bool {
	switch t {
	case EventMessageCreated, EventMessageUpdated, EventWidgetTriggered:
		return true
	}
	return false
}

const directionOutgoing = "outgoing"

// WebhookEvent is one inbound delivery, already shape-validated. It exists
// only for the duration of a request; nothing beyond its dedupe key is ever
// persisted.
type WebhookEvent struct {
	Type           EventType
	AccountID      int64
	ConversationID int64
	MessageID      int64
	Content        string
	Direction      string // Chatwoot message_type: "incoming"/"outgoing"
	CreatedAt      string // platform timestamp, verbatim; only used in the dedupe key
	ExternalID     string // explicit event id header, when the sender provided one
}

// Outgoing reports whether the message is one of our own replies. Processing
// those would loop the bot against itself.
func (e WebhookEvent) Outgoing() bool {
	return e.Direction == directionOutgoing
}

// DeliveryID identifies one logical delivery for deduplication: the explicit
// event id when present, else a deterministic composite of the payload
// identifiers.
func (e WebhookEvent) DeliveryID() string {
	if e.ExternalID != "" {
		return e.ExternalID
	}
	return fmt.Sprintf("%d:%d:%d:%s", e.AccountID, e.ConversationID, e.MessageID, e.CreatedAt)
}
