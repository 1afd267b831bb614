package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// Delivery is one notification handed to an outbound channel.
type Delivery struct {
	NotificationID uuid.UUID              `json:"notificationId"`
	UserID         uuid.UUID              `json:"userId"`
	Role           enums.Role             `json:"role"`
	Type           enums.NotificationType `json:"type"`
	OrderRequestID *uuid.UUID             `json:"orderRequestId,omitempty"`
	OfferID        *uuid.UUID             `json:"offerId,omitempty"`
	DisputeID      *uuid.UUID             `json:"disputeId,omitempty"`
	CreatedAt      time.Time              `json:"createdAt"`
}

// Transport pushes a delivery to SMS, email or push gateways.
type Transport interface {
	Deliver(ctx context.Context, delivery Delivery) error
}

// LogTransport only records deliveries; used when no push topic is configured.
type LogTransport struct {
	logg *logger.Logger
}

func NewLogTransport(logg *logger.Logger) *LogTransport {
	return &LogTransport{logg: logg}
}

func (t *LogTransport) Deliver(ctx context.Context, d Delivery) error {
	logCtx := t.logg.WithUserID(ctx, d.UserID.String())
	logCtx = t.logg.WithFields(logCtx, map[string]any{
		"notification_id": d.NotificationID.String(),
		"role":            d.Role,
		"type":            d.Type,
	})
	t.logg.Info(logCtx, "notification delivered")
	return nil
}

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

// PubSubTransport publishes deliveries to the push topic consumed by the gateway fleet.
type PubSubTransport struct {
	publisher publisher
	timeout   time.Duration
}

func NewPubSubTransport(p *gcppubsub.Publisher) (*PubSubTransport, error) {
	if p == nil {
		return nil, fmt.Errorf("push publisher required")
	}
	return newPubSubTransport(&gcpPublisher{Publisher: p}), nil
}

func newPubSubTransport(p publisher) *PubSubTransport {
	return &PubSubTransport{publisher: p, timeout: 10 * time.Second}
}

func (t *PubSubTransport) Deliver(ctx context.Context, d Delivery) error {
	data, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("marshal delivery: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	result := t.publisher.Publish(ctx, &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"notification_id": d.NotificationID.String(),
			"user_id":         d.UserID.String(),
			"role":            string(d.Role),
			"type":            string(d.Type),
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publish delivery: %w", err)
	}
	return nil
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}
