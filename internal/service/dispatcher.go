package service

import (
	"context"
	"fmt"
	"log/slog"

	"dom360.app/sdrbot/common/logger"
	"dom360.app/sdrbot/internal/chatwoot"
	"dom360.app/sdrbot/internal/model"
	"dom360.app/sdrbot/internal/n8n"
)

// MessagingClient is the conversation-side collaborator (Chatwoot).
// Implemented by *chatwoot.Client in production and by fakes in tests.
type MessagingClient interface {
	GetConversation(ctx context.Context, accountID, conversationID int64) (*chatwoot.Conversation, error)
	SetAttributes(ctx context.Context, accountID, conversationID int64, attrs map[string]any) error
	SetStatus(ctx context.Context, accountID, conversationID int64, status chatwoot.Status) error
	Reply(ctx context.Context, accountID, conversationID int64, text string) error
}

// WorkflowClient is the automation-side collaborator (n8n).
type WorkflowClient interface {
	Trigger(ctx context.Context, slugOrURL string, payload map[string]any) (map[string]any, error)
}

// Dispatcher performs the side effect behind a flow action. Every
// collaborator call here may fail; failures are logged and swallowed so the
// user-visible reply still goes out — degraded (no meeting link) rather
// than absent. The webhook response never depends on a dispatch outcome.
type Dispatcher struct {
	messaging MessagingClient
	workflows WorkflowClient
}

func NewDispatcher(messaging MessagingClient, workflows WorkflowClient) *Dispatcher {
	return &Dispatcher{messaging: messaging, workflows: workflows}
}

// Dispatch executes action and returns the reply text, possibly enriched
// with data the collaborator sent back (the meeting link on schedule).
func (d *Dispatcher) Dispatch(ctx context.Context, accountID, conversationID int64, action model.Action, f model.Fields, reply string) string {
	ctx = logger.WithLogFields(ctx, logger.LogFields{Component: "sdrbot.dispatcher"})

	switch action {
	case model.ActionHandoff:
		if err := d.messaging.SetStatus(ctx, accountID, conversationID, chatwoot.StatusOpen); err != nil {
			slog.WarnContext(ctx, "handoff status change failed", "error", err)
		}

	case model.ActionCreateLead:
		if _, err := d.workflows.Trigger(ctx, n8n.FlowCreateLead, f.ToAttributes()); err != nil {
			slog.WarnContext(ctx, "create_lead workflow failed", "error", err)
		}

	case model.ActionSchedule:
		payload := map[string]any{
			"nome":        f.FullName(),
			"email":       f.Email,
			"celular":     f.Phone,
			"horario1":    f.Slot1,
			"horario2":    f.Slot2,
			"observacoes": fmt.Sprintf("empresa=%s; ferramentas=%s; dor=%s", f.Company, f.Tools, f.MainPain),
		}
		res, err := d.workflows.Trigger(ctx, n8n.FlowScheduleMeeting, payload)
		if err != nil {
			slog.WarnContext(ctx, "schedule workflow failed, reply goes out without meeting link", "error", err)
			break
		}
		if link, ok := res["link_meet"].(string); ok && link != "" {
			reply += "\n\nLink da reunião: " + link
		}
	}

	return reply
}
