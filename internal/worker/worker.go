package worker

import (
	"context"
	"log/slog"
	"time"

	"dom360.app/sdrbot/common/logger"
	"dom360.app/sdrbot/internal/model"
	"dom360.app/sdrbot/internal/queue"
	"dom360.app/sdrbot/internal/store"
)

// Consumer is the stream side of the worker, implemented by
// *queue.RedisConsumer.
type Consumer interface {
	Read(ctx context.Context) ([]queue.Message, error)
	Ack(ctx context.Context, msg queue.Message) error
}

// Worker drains lead activity off the stream into Postgres. Messages are
// acked only after a successful insert, so a crashed worker redelivers via
// the consumer group's pending list.
type Worker struct {
	consumer Consumer
	events   store.LeadEventStore
	logger   *slog.Logger

	stopCh    chan struct{}
	stoppedCh chan struct{}
}

func New(consumer Consumer, events store.LeadEventStore, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{
		consumer:  consumer,
		events:    events,
		logger:    logger,
		stopCh:    make(chan struct{}),
		stoppedCh: make(chan struct{}),
	}
}

// Run blocks until Stop is called.
func (w *Worker) Run(ctx context.Context) {
	defer close(w.stoppedCh)

	ctx = logger.WithLogFields(ctx, logger.LogFields{
		Component: "sdrbot.worker",
	})

	w.logger.InfoContext(ctx, "audit worker started")

	for {
		select {
		case <-w.stopCh:
			w.logger.InfoContext(ctx, "audit worker stopping")
			return
		case <-ctx.Done():
			return
		default:
		}

		w.runOnce(ctx)
	}
}

// Stop signals Run to exit and waits for the in-flight batch to finish.
func (w *Worker) Stop() {
	close(w.stopCh)
	<-w.stoppedCh
}

func (w *Worker) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.ErrorContext(ctx, "panic in worker loop, recovering", "panic", r)
			time.Sleep(time.Second)
		}
	}()

	messages, err := w.consumer.Read(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.ErrorContext(ctx, "reading lead activity failed", "error", err)
		time.Sleep(time.Second)
		return
	}

	for _, msg := range messages {
		w.handle(ctx, msg)
	}
}

func (w *Worker) handle(ctx context.Context, msg queue.Message) {
	a := msg.Activity
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		AccountID:      logger.Ptr(a.AccountID),
		ConversationID: logger.Ptr(a.ConversationID),
		EventType:      logger.Ptr(a.EventType),
		DedupeKey:      &a.DedupeKey,
	})

	_, err := w.events.Insert(ctx, model.LeadEvent{
		AccountID:      a.AccountID,
		ConversationID: a.ConversationID,
		EventType:      a.EventType,
		Action:         a.Action,
		DedupeKey:      a.DedupeKey,
		Fields:         a.Fields,
	})
	if err != nil {
		// Left unacked: the pending list redelivers after the claim window.
		w.logger.ErrorContext(ctx, "persisting lead event failed", "error", err, "message_id", msg.ID)
		return
	}

	if err := w.consumer.Ack(ctx, msg); err != nil {
		w.logger.WarnContext(ctx, "acking lead event failed", "error", err, "message_id", msg.ID)
	}
}
