package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
)

type deadLetterStore interface {
	List(ctx context.Context, filter outbox.DLQFilter) ([]models.OutboxDLQ, error)
	Replay(ctx context.Context, eventID uuid.UUID) error
}

// runDLQ serves the operator commands: list prints one log line per dead letter,
// replay requeues a single event.
func runDLQ(ctx context.Context, logg *logger.Logger, store deadLetterStore, cmd, eventID, eventType string, limit int) error {
	switch cmd {
	case "list":
		rows, err := store.List(ctx, outbox.DLQFilter{EventType: enums.OutboxEventType(strings.TrimSpace(eventType)), Limit: limit})
		if err != nil {
			return fmt.Errorf("list dead letters: %w", err)
		}
		for _, row := range rows {
			fields := map[string]any{
				"event_id":      row.EventID.String(),
				"event_type":    row.EventType,
				"aggregate_id":  row.AggregateID.String(),
				"error_reason":  row.ErrorReason,
				"attempt_count": row.AttemptCount,
				"failed_at":     row.FailedAt,
			}
			if row.ErrorMessage != nil {
				fields["error_message"] = *row.ErrorMessage
			}
			logg.Info(logg.WithFields(ctx, fields), "dlq.entry")
		}
		logg.Info(logg.WithField(ctx, "count", len(rows)), "dlq.listed")
		return nil
	case "replay":
		id, err := uuid.Parse(strings.TrimSpace(eventID))
		if err != nil {
			return fmt.Errorf("-event must be a uuid: %w", err)
		}
		if err := store.Replay(ctx, id); err != nil {
			if errors.Is(err, outbox.ErrNotDeadLettered) {
				return fmt.Errorf("event %s: %w", id, err)
			}
			return fmt.Errorf("replay %s: %w", id, err)
		}
		logg.Info(logg.WithField(ctx, "event_id", id.String()), "dlq.replayed")
		return nil
	default:
		return fmt.Errorf("unknown -dlq command %q", cmd)
	}
}
