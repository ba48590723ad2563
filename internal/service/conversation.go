package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"dom360.app/sdrbot/common/logger"
	"dom360.app/sdrbot/internal/flow"
	"dom360.app/sdrbot/internal/model"
	"dom360.app/sdrbot/internal/queue"
)

// ProcessResult reports what one admitted event did.
type ProcessResult struct {
	Fields model.Fields
	Reply  string
	Action model.Action
}

// ConversationService runs the full per-event sequence: load attributes,
// advance the flow, persist, dispatch, reply, audit.
type ConversationService interface {
	Process(ctx context.Context, ev model.WebhookEvent, dedupeKey string) (*ProcessResult, error)
}

type conversationService struct {
	messaging  MessagingClient
	dispatcher *Dispatcher
	producer   queue.Producer
	logger     *slog.Logger
}

func NewConversationService(messaging MessagingClient, dispatcher *Dispatcher, producer queue.Producer, logger *slog.Logger) ConversationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &conversationService{
		messaging:  messaging,
		dispatcher: dispatcher,
		producer:   producer,
		logger:     logger,
	}
}

// Process advances one conversation by one message.
//
// The attribute write is last-writer-wins: there is no version stamp on the
// platform's attribute store, so redelivered-out-of-order events for the
// same conversation can interleave. The idempotency gate upstream only
// suppresses exact duplicates. Known limitation, kept as-is.
//
// Everything after the attribute write degrades on failure: a dead
// collaborator costs the prospect an enrichment, never a reply or a 5xx to
// the webhook sender.
func (s *conversationService) Process(ctx context.Context, ev model.WebhookEvent, dedupeKey string) (*ProcessResult, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AccountID:      logger.Ptr(ev.AccountID),
		ConversationID: logger.Ptr(ev.ConversationID),
		EventType:      logger.Ptr(string(ev.Type)),
		DedupeKey:      &dedupeKey,
		Component:      "sdrbot.conversation",
	})

	conv, err := s.messaging.GetConversation(ctx, ev.AccountID, ev.ConversationID)
	if err != nil {
		// Without the stored attributes we cannot transition safely; writing
		// from a blank slate would clobber collected fields.
		return nil, fmt.Errorf("loading conversation state: %w", err)
	}

	fields := model.FieldsFromAttributes(conv.CustomAttributes)
	updated, reply, action := flow.Transition(fields, ev.Content)

	if err := s.messaging.SetAttributes(ctx, ev.AccountID, ev.ConversationID, updated.ToAttributes()); err != nil {
		slog.WarnContext(ctx, "persisting conversation attributes failed, continuing degraded", "error", err)
	}

	reply = s.dispatcher.Dispatch(ctx, ev.AccountID, ev.ConversationID, action, updated, reply)

	if reply != "" {
		if err := s.messaging.Reply(ctx, ev.AccountID, ev.ConversationID, reply); err != nil {
			slog.WarnContext(ctx, "sending reply failed", "error", err)
		}
	}

	s.publishAudit(ctx, ev, dedupeKey, updated, action)

	s.logger.InfoContext(ctx, "conversation advanced", "action", string(action))

	return &ProcessResult{Fields: updated, Reply: reply, Action: action}, nil
}

// publishAudit is fire-and-forget: the audit trail is observational.
func (s *conversationService) publishAudit(ctx context.Context, ev model.WebhookEvent, dedupeKey string, fields model.Fields, action model.Action) {
	if s.producer == nil {
		return
	}

	snapshot, err := json.Marshal(fields)
	if err != nil {
		slog.WarnContext(ctx, "encoding audit snapshot failed", "error", err)
		return
	}

	if err := s.producer.Publish(ctx, queue.LeadActivity{
		AccountID:      ev.AccountID,
		ConversationID: ev.ConversationID,
		EventType:      string(ev.Type),
		Action:         string(action),
		DedupeKey:      dedupeKey,
		Fields:         snapshot,
	}); err != nil {
		slog.WarnContext(ctx, "publishing lead activity failed", "error", err)
	}
}
