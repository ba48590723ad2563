package store

import (
	"context"
	"errors"

	"dom360.app/sdrbot/internal/model"
)

var ErrNotFound = errors.New("not found")

// LeadEventStore persists the audit trail of lead activity consumed from
// the stream.
type LeadEventStore interface {
	Insert(ctx context.Context, ev model.LeadEvent) (model.LeadEvent, error)
	GetByID(ctx context.Context, id int64) (model.LeadEvent, error)
	ListByConversation(ctx context.Context, accountID, conversationID int64, limit int32) ([]model.LeadEvent, error)
}
