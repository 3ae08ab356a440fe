package audit

import (
	"context"
	"log/slog"
	"time"
)

// Worker consumes audit events from the publisher's inbox and persists
// them. A sink failure is logged as a warning and the event is abandoned:
// audit durability here is best-effort, not transactional.
type Worker struct {
	sink   Sink
	inbox  <-chan Event
	logger *slog.Logger
}

func NewWorker(sink Sink, inbox <-chan Event, logger *slog.Logger) *Worker {
	return &Worker{sink: sink, inbox: inbox, logger: logger}
}

// Run processes events until ctx is cancelled, then drains whatever is
// already buffered with a short grace period.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			w.drain()
			return ctx.Err()
		case event := <-w.inbox:
			w.append(ctx, event)
		}
	}
}

func (w *Worker) drain() {
	drainCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for {
		select {
		case event := <-w.inbox:
			w.append(drainCtx, event)
		default:
			return
		}
	}
}

func (w *Worker) append(ctx context.Context, event Event) {
	if err := w.sink.Append(ctx, event); err != nil {
		w.logger.WarnContext(ctx, "audit sink append failed",
			"error", err,
			"action", event.Action,
			"entity", event.Entity,
			"request_id", event.RequestID,
		)
	}
}
