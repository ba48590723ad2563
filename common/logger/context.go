package logger

import "context"

type contextKey string

const logFieldsKey contextKey = "log_fields"

// LogFields contains structured fields automatically added to all logs within
// a context. Fields flow through context enrichment so that conversation
// context (account_id, conversation_id, etc.) shows up in every log statement
// without being threaded through call sites.
type LogFields struct {
	AccountID      *int64  // Chatwoot account ID
	ConversationID *int64  // Chatwoot conversation ID
	MessageID      *int64  // Chatwoot message ID
	EventType      *string // Webhook event type (e.g. "message_created")
	DedupeKey      *string // Delivery identifier used for idempotency
	Component      string  // Component name (e.g. "sdrbot.webhook.ingress")
}

// WithLogFields enriches context with structured log fields.
// Multiple calls merge fields, with newer non-nil/non-empty values taking
// precedence. Context timeouts and cancellation are preserved.
func WithLogFields(ctx context.Context, fields LogFields) context.Context {
	existing := GetLogFields(ctx)
	merged := mergeFields(existing, fields)
	return context.WithValue(ctx, logFieldsKey, merged)
}

// GetLogFields retrieves log fields from context.
// Returns empty LogFields if none are set.
func GetLogFields(ctx context.Context) LogFields {
	if fields, ok := ctx.Value(logFieldsKey).(LogFields); ok {
		return fields
	}
	return LogFields{}
}

func mergeFields(existing, next LogFields) LogFields {
	result := existing

	if next.AccountID != nil {
		result.AccountID = next.AccountID
	}
	if next.ConversationID != nil {
		result.ConversationID = next.ConversationID
	}
	if next.MessageID != nil {
		result.MessageID = next.MessageID
	}
	if next.EventType != nil {
		result.EventType = next.EventType
	}
	if next.DedupeKey != nil {
		result.DedupeKey = next.DedupeKey
	}
	if next.Component != "" {
		result.Component = next.Component
	}

	return result
}

// Ptr is a helper to create a pointer from a value, for inline LogFields:
// logger.WithLogFields(ctx, logger.LogFields{AccountID: logger.Ptr(id)})
func Ptr[T any](v T) *T {
	return &v
}
