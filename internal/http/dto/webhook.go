package dto

import (
	"fmt"

	"dom360.app/sdrbot/internal/model"
)

// ChatwootWebhookPayload mirrors the subset of the Chatwoot webhook body the
// bot cares about. Everything else in the payload is ignored.
type ChatwootWebhookPayload struct {
	Event   string `json:"event"`
	Account struct {
		ID int64 `json:"id"`
	} `json:"account"`
	Conversation struct {
		ID int64 `json:"id"`
	} `json:"conversation"`
	Message struct {
		ID          int64  `json:"id"`
		Content     string `json:"content"`
		MessageType string `json:"message_type"`
		CreatedAt   string `json:"created_at"`
	} `json:"message"`

	// Some Chatwoot versions put these at the top level instead of under
	// "message".
	ID          int64  `json:"id"`
	Content     string `json:"content"`
	MessageType string `json:"message_type"`
	CreatedAt   string `json:"created_at"`
}

// ToEvent shape-validates the payload into a WebhookEvent. An error means
// the body is structurally unusable, not that the event is unsupported.
func (p ChatwootWebhookPayload) ToEvent(externalID string) (model.WebhookEvent, error) {
	if p.Event == "" {
		return model.WebhookEvent{}, fmt.Errorf("missing event type")
	}
	if p.Account.ID == 0 {
		return model.WebhookEvent{}, fmt.Errorf("missing account id")
	}
	if p.Conversation.ID == 0 {
		return model.WebhookEvent{}, fmt.Errorf("missing conversation id")
	}

	ev := model.WebhookEvent{
		Type:           model.EventType(p.Event),
		AccountID:      p.Account.ID,
		ConversationID: p.Conversation.ID,
		MessageID:      p.Message.ID,
		Content:        p.Message.Content,
		Direction:      p.Message.MessageType,
		CreatedAt:      p.Message.CreatedAt,
		ExternalID:     externalID,
	}
	if ev.MessageID == 0 {
		ev.MessageID = p.ID
	}
	if ev.Content == "" {
		ev.Content = p.Content
	}
	if ev.Direction == "" {
		ev.Direction = p.MessageType
	}
	if ev.CreatedAt == "" {
		ev.CreatedAt = p.CreatedAt
	}
	return ev, nil
}

// WebhookAck is the body of every 200 the webhook endpoint returns.
type WebhookAck struct {
	OK        bool   `json:"ok"`
	Duplicate bool   `json:"duplicate,omitempty"`
	Ignored   bool   `json:"ignored,omitempty"`
	Reason    string `json:"reason,omitempty"`
}
