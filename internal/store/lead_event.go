package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"dom360.app/sdrbot/common/id"
	"dom360.app/sdrbot/internal/model"
)

type leadEventStore struct {
	pool *pgxpool.Pool
}

func NewLeadEventStore(pool *pgxpool.Pool) LeadEventStore {
	return &leadEventStore{pool: pool}
}

func (s *leadEventStore) Insert(ctx context.Context, ev model.LeadEvent) (model.LeadEvent, error) {
	if ev.ID == 0 {
		ev.ID = id.New()
	}

	row := s.pool.QueryRow(ctx, `
		INSERT INTO lead_events (id, account_id, conversation_id, event_type, action, dedupe_key, fields)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, account_id, conversation_id, event_type, action, dedupe_key, fields, created_at
	`, ev.ID, ev.AccountID, ev.ConversationID, ev.EventType, ev.Action, ev.DedupeKey, ev.Fields)

	inserted, err := scanLeadEvent(row)
	if err != nil {
		return model.LeadEvent{}, fmt.Errorf("inserting lead event: %w", err)
	}
	return inserted, nil
}

func (s *leadEventStore) GetByID(ctx context.Context, id int64) (model.LeadEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, account_id, conversation_id, event_type, action, dedupe_key, fields, created_at
		FROM lead_events
		WHERE id = $1
	`, id)

	ev, err := scanLeadEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.LeadEvent{}, ErrNotFound
		}
		return model.LeadEvent{}, fmt.Errorf("getting lead event: %w", err)
	}
	return ev, nil
}

func (s *leadEventStore) ListByConversation(ctx context.Context, accountID, conversationID int64, limit int32) ([]model.LeadEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, conversation_id, event_type, action, dedupe_key, fields, created_at
		FROM lead_events
		WHERE account_id = $1 AND conversation_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, accountID, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing lead events: %w", err)
	}
	defer rows.Close()

	var events []model.LeadEvent
	for rows.Next() {
		ev, err := scanLeadEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning lead event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating lead events: %w", err)
	}
	return events, nil
}

func scanLeadEvent(row pgx.Row) (model.LeadEvent, error) {
	var ev model.LeadEvent
	err := row.Scan(
		&ev.ID,
		&ev.AccountID,
		&ev.ConversationID,
		&ev.EventType,
		&ev.Action,
		&ev.DedupeKey,
		&ev.Fields,
		&ev.CreatedAt,
	)
	return ev, err
}
