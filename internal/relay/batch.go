package relay

import (
	"context"
	"errors"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

// inflight is one row between Publish and its acknowledgement.
type inflight struct {
	event  models.OutboxEvent
	topic  string
	result Result
	span   trace.Span
	// err is set when the row failed before reaching the publisher.
	err error
}

// processBatch relays one batch and returns how many rows it handled.
// Only bookkeeping failures are returned; publish failures are recorded per row.
func (r *Relay) processBatch(ctx context.Context) (int, error) {
	var handled int
	err := r.tx.WithTx(ctx, func(tx *gorm.DB) error {
		events, err := r.store.FetchUnpublishedForPublish(tx, r.batchSize, r.maxAttempts)
		if err != nil {
			return fmt.Errorf("fetch pending: %w", err)
		}
		handled = len(events)
		if handled == 0 {
			return nil
		}

		waitCtx, cancel := context.WithTimeout(ctx, r.publishTimeout)
		defer cancel()

		pending := make([]*inflight, 0, len(events))
		for _, event := range events {
			pending = append(pending, r.send(waitCtx, event))
		}
		for _, p := range pending {
			if err := r.settle(waitCtx, tx, p); err != nil {
				return err
			}
		}
		return nil
	})
	return handled, err
}

// send resolves the row and hands it to the publisher without waiting for the ack.
func (r *Relay) send(ctx context.Context, event models.OutboxEvent) *inflight {
	ctx, span := tracing.Start(ctx, "outbox.publish",
		attribute.String("event_type", string(event.EventType)),
		attribute.String("aggregate_id", event.AggregateID.String()))
	p := &inflight{event: event, span: span}

	resolved, err := r.resolver.Resolve(event)
	if err != nil {
		p.err = registry.NewNonRetryableError(err)
		return p
	}
	p.topic = resolved.Descriptor.Topic
	pub := r.publishers(p.topic)
	if pub == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("no publisher for topic %q", p.topic))
		return p
	}

	msg := &gcppubsub.Message{
		Data:       event.Payload,
		Attributes: attributes(event, resolved),
	}
	tracing.InjectAttributes(ctx, msg.Attributes)
	if p.result = pub.Publish(ctx, msg); p.result == nil {
		p.err = registry.NewNonRetryableError(fmt.Errorf("publisher for %q returned no result", p.topic))
	}
	return p
}

func attributes(event models.OutboxEvent, resolved *registry.ResolvedEvent) map[string]string {
	eventID := resolved.Envelope.EventID
	if eventID == "" {
		eventID = event.ID.String()
	}
	return map[string]string{
		"event_id":       eventID,
		"event_type":     string(event.EventType),
		"aggregate_type": string(event.AggregateType),
		"aggregate_id":   event.AggregateID.String(),
		"created_at":     event.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// settle waits for the ack and records the outcome on the row.
func (r *Relay) settle(ctx context.Context, tx *gorm.DB, p *inflight) error {
	defer p.span.End()

	err := p.err
	if err == nil {
		_, err = p.result.Get(ctx)
	}
	tracing.RecordError(p.span, err)

	logCtx := r.logg.WithFields(ctx, map[string]any{
		"outbox_id":     p.event.ID.String(),
		"event_type":    p.event.EventType,
		"aggregate_id":  p.event.AggregateID.String(),
		"topic":         p.topic,
		"attempt_count": p.event.AttemptCount + 1,
	})
	eventType := string(p.event.EventType)

	if err == nil {
		if markErr := r.store.MarkPublishedTx(tx, p.event.ID); markErr != nil {
			return fmt.Errorf("mark published %s: %w", p.event.ID, markErr)
		}
		r.metrics.Inc(eventType, metrics.OutboxPublished)
		r.logg.Debug(logCtx, "outbox.published")
		return nil
	}

	reason, terminal := r.classify(p.event, err)
	logCtx = r.logg.WithField(logCtx, "error", err.Error())
	if !terminal {
		if markErr := r.store.MarkFailedTx(tx, p.event.ID, err); markErr != nil {
			return fmt.Errorf("mark failed %s: %w", p.event.ID, markErr)
		}
		r.metrics.Inc(eventType, metrics.OutboxRetried)
		r.logg.Warn(logCtx, "outbox.retry_scheduled")
		return nil
	}

	if reason == enums.OutboxDLQReasonMaxAttempts {
		err = fmt.Errorf("gave up after %d attempts: %w", r.maxAttempts, err)
	}
	if dlqErr := r.dead.DeadLetterTx(tx, p.event, reason, err); dlqErr != nil {
		return fmt.Errorf("dead-letter %s: %w", p.event.ID, dlqErr)
	}
	if markErr := r.store.MarkTerminalTx(tx, p.event.ID, err, r.maxAttempts); markErr != nil {
		return fmt.Errorf("mark terminal %s: %w", p.event.ID, markErr)
	}
	r.metrics.Inc(eventType, metrics.OutboxDeadLettered)
	r.logg.Warn(r.logg.WithField(logCtx, "error_reason", reason), "outbox.dead_lettered")
	return nil
}

// classify decides whether a failed row is dead-lettered and why.
func (r *Relay) classify(event models.OutboxEvent, err error) (enums.OutboxDLQErrorReason, bool) {
	var nonRetry registry.NonRetryableError
	if errors.As(err, &nonRetry) {
		return enums.OutboxDLQReasonNonRetryable, true
	}
	if event.AttemptCount+1 >= r.maxAttempts {
		return enums.OutboxDLQReasonMaxAttempts, true
	}
	return "", false
}
