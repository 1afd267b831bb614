package notifications

import (
	"context"
	"errors"
	"fmt"
	"time"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/idempotency"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
)

const fanoutConsumer = "notification-fanout"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventResolver interface {
	Resolve(event models.OutboxEvent) (*registry.ResolvedEvent, error)
}

type rewardCalculator interface {
	Calculate(ctx context.Context, offerID uuid.UUID) (*models.Reward, error)
}

// ConsumerParams wires the fan-out consumer. Subscription is only needed by Run.
type ConsumerParams struct {
	Repo         Repository
	Tx           txRunner
	Subscription *pubsub.Subscriber
	Idempotency  *idempotency.Guard
	Resolver     eventResolver
	Transport    Transport
	Rewards      rewardCalculator
	Logger       *logger.Logger
}

// Consumer turns domain events into notification rows, transport deliveries and rewards.
type Consumer struct {
	repo         Repository
	tx           txRunner
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Guard
	resolver     eventResolver
	transport    Transport
	rewards      rewardCalculator
	logg         *logger.Logger
	now          func() time.Time
}

// NewConsumer builds the fan-out consumer.
func NewConsumer(params ConsumerParams) (*Consumer, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Idempotency == nil {
		return nil, fmt.Errorf("idempotency guard required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("event resolver required")
	}
	if params.Transport == nil {
		return nil, fmt.Errorf("notification transport required")
	}
	if params.Rewards == nil {
		return nil, fmt.Errorf("reward calculator required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		repo:         params.Repo,
		tx:           params.Tx,
		subscription: params.Subscription,
		idempotency:  params.Idempotency,
		resolver:     params.Resolver,
		transport:    params.Transport,
		rewards:      params.Rewards,
		logg:         params.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	if c.subscription == nil {
		return fmt.Errorf("domain subscription required")
	}
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	ctx = tracing.ExtractAttributes(ctx, msg.Attributes)
	eventType := msg.Attributes["event_type"]
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"message_id": msg.ID,
		"event_type": eventType,
	})

	aggregateID, err := uuid.Parse(msg.Attributes["aggregate_id"])
	if err != nil {
		c.logg.Error(logCtx, "invalid aggregate id", err)
		return processResult{ack: true}
	}
	resolved, err := c.resolver.Resolve(models.OutboxEvent{
		EventType:     enums.OutboxEventType(eventType),
		AggregateType: enums.OutboxAggregateType(msg.Attributes["aggregate_type"]),
		AggregateID:   aggregateID,
		Payload:       msg.Data,
	})
	if err != nil {
		var terminal registry.NonRetryableError
		if errors.As(err, &terminal) {
			c.logg.Error(logCtx, "dropping undecodable event", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "resolve event", err)
		return processResult{nack: true}
	}

	eventID := uuid.MustParse(resolved.Envelope.EventID)
	logCtx = c.logg.WithField(logCtx, "event_id", eventID.String())

	claim, err := c.idempotency.Claim(ctx, fanoutConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency claim failed", err)
		return processResult{nack: true}
	}
	if claim == nil {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	if err := c.handle(logCtx, eventID, resolved); err != nil {
		if !pkgerrors.Retryable(err) {
			// the referenced rows are gone or invalid; redelivery cannot help
			c.logg.Error(logCtx, "dropping event after permanent fan-out failure", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification fan-out failed", err)
		if relErr := claim.Release(ctx); relErr != nil {
			c.logg.Error(logCtx, "release idempotency claim", relErr)
		}
		return processResult{nack: true}
	}
	return processResult{ack: true}
}

type recipient struct {
	userID uuid.UUID
	role   enums.Role
}

// plan describes the rows one event produces.
type plan struct {
	kind           enums.NotificationType
	recipients     []recipient
	orderRequestID *uuid.UUID
	offerID        *uuid.UUID
	organizationID *uuid.UUID
	disputeID      *uuid.UUID
	rewardOfferID  *uuid.UUID
}

func (c *Consumer) handle(ctx context.Context, eventID uuid.UUID, ev *registry.ResolvedEvent) error {
	ctx, span := tracing.Start(ctx, "notifications.fanout",
		attribute.String("event_type", string(ev.Descriptor.EventType)))
	defer span.End()

	p, err := c.plan(ctx, ev)
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	if actor := ev.Envelope.Actor; actor != nil {
		p.recipients = without(p.recipients, recipient{userID: actor.UserID, role: actor.Role})
	}

	now := c.now()
	var created []models.Notification
	err = c.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := c.repo.WithTx(tx)
		touchBuyer, touchStaff := false, false
		for _, r := range p.recipients {
			row := models.Notification{
				UserID:         r.userID,
				Role:           r.role,
				Type:           p.kind,
				EventID:        &eventID,
				OrderRequestID: p.orderRequestID,
				OfferID:        p.offerID,
				OrganizationID: p.organizationID,
				DisputeID:      p.disputeID,
			}
			inserted, err := repo.Create(ctx, &row)
			if err != nil {
				return fmt.Errorf("create notification: %w", err)
			}
			if inserted {
				created = append(created, row)
			}
			touchBuyer = touchBuyer || r.role == enums.RoleBuyer
			touchStaff = touchStaff || r.role == enums.RoleStaff
		}
		if p.orderRequestID == nil {
			return nil
		}
		if touchBuyer {
			if err := repo.TouchRequest(ctx, *p.orderRequestID, "buyer_last_notified_at", now); err != nil {
				return fmt.Errorf("touch buyer notification time: %w", err)
			}
		}
		if touchStaff {
			if err := repo.TouchRequest(ctx, *p.orderRequestID, "staff_last_notified_at", now); err != nil {
				return fmt.Errorf("touch staff notification time: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	if p.rewardOfferID != nil {
		if _, err := c.rewards.Calculate(ctx, *p.rewardOfferID); err != nil {
			tracing.RecordError(span, err)
			return fmt.Errorf("calculate reward: %w", err)
		}
	}

	for _, n := range created {
		d := Delivery{
			NotificationID: n.ID,
			UserID:         n.UserID,
			Role:           n.Role,
			Type:           n.Type,
			OrderRequestID: n.OrderRequestID,
			OfferID:        n.OfferID,
			DisputeID:      n.DisputeID,
			CreatedAt:      n.CreatedAt,
		}
		if err := c.transport.Deliver(ctx, d); err != nil {
			c.logg.Warn(c.logg.WithField(ctx, "notification_id", n.ID.String()), "notification delivery failed: "+err.Error())
		}
	}

	logCtx := c.logg.WithFields(ctx, map[string]any{
		"recipients": len(p.recipients),
		"created":    len(created),
	})
	c.logg.Info(logCtx, "notifications fanned out")
	return nil
}

func (c *Consumer) plan(ctx context.Context, ev *registry.ResolvedEvent) (plan, error) {
	switch data := ev.Payload.(type) {
	case *payloads.OrderRequestCreatedEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		sellers := data.SelectedSellerIDs
		if len(sellers) == 0 {
			sellers, err = c.repo.SellersTrading(ctx, data.CategoryIDs)
			if err != nil {
				return plan{}, fmt.Errorf("load sellers for categories: %w", err)
			}
		}
		return plan{
			kind:           enums.NotificationTypeRequestCreated,
			recipients:     append(staff, as(enums.RoleSeller, sellers...)...),
			orderRequestID: &data.OrderRequestID,
		}, nil

	case *payloads.OrderRequestDeclinedEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		recipients := append(as(enums.RoleBuyer, data.BuyerID), as(enums.RoleSeller, data.SellerIDs...)...)
		return plan{
			kind:           enums.NotificationTypeRequestDeclined,
			recipients:     append(recipients, staff...),
			orderRequestID: &data.OrderRequestID,
		}, nil

	case *payloads.OfferSubmittedEvent:
		return plan{
			kind:           enums.NotificationTypeOfferSubmitted,
			recipients:     as(enums.RoleBuyer, data.BuyerID),
			orderRequestID: &data.OrderRequestID,
			offerID:        &data.OfferID,
			organizationID: &data.OrganizationID,
		}, nil

	case *payloads.OfferAcceptedEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		return plan{
			kind:           enums.NotificationTypeOfferAccepted,
			recipients:     append(as(enums.RoleSeller, data.SellerID), staff...),
			orderRequestID: &data.OrderRequestID,
			offerID:        &data.OfferID,
			organizationID: &data.OrganizationID,
		}, nil

	case *payloads.PaymentConfirmedEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		return plan{
			kind:           enums.NotificationTypePaymentConfirmed,
			recipients:     append(as(enums.RoleSeller, data.SellerID), staff...),
			orderRequestID: &data.OrderRequestID,
			offerID:        &data.OfferID,
			organizationID: &data.OrganizationID,
		}, nil

	case *payloads.OfferCompletedEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		recipients := append(as(enums.RoleBuyer, data.BuyerID), as(enums.RoleSeller, data.SellerID)...)
		return plan{
			kind:           enums.NotificationTypeOrderCompleted,
			recipients:     append(recipients, staff...),
			orderRequestID: &data.OrderRequestID,
			offerID:        &data.OfferID,
			organizationID: &data.OrganizationID,
			rewardOfferID:  &data.OfferID,
		}, nil

	case *payloads.DisputeEvent:
		staff, err := c.staff(ctx)
		if err != nil {
			return plan{}, err
		}
		kind := enums.NotificationTypeDisputeUpdated
		recipients := append(as(enums.RoleBuyer, data.BuyerID), as(enums.RoleSeller, data.SellerID)...)
		switch ev.Descriptor.EventType {
		case enums.EventDisputeOpened:
			kind = enums.NotificationTypeDisputeOpened
			recipients = as(enums.RoleSeller, data.SellerID)
		case enums.EventDisputeClosed:
			kind = enums.NotificationTypeDisputeClosed
		}
		return plan{
			kind:           kind,
			recipients:     append(recipients, staff...),
			orderRequestID: &data.OrderRequestID,
			offerID:        &data.OfferID,
			organizationID: &data.OrganizationID,
			disputeID:      &data.DisputeID,
		}, nil

	default:
		return plan{}, pkgerrors.Newf(pkgerrors.CodeValidation, "no fan-out for %s", ev.Descriptor.EventType)
	}
}

func (c *Consumer) staff(ctx context.Context) ([]recipient, error) {
	ids, err := c.repo.StaffIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}
	return as(enums.RoleStaff, ids...), nil
}

func as(role enums.Role, ids ...uuid.UUID) []recipient {
	out := make([]recipient, 0, len(ids))
	for _, id := range ids {
		if id != uuid.Nil {
			out = append(out, recipient{userID: id, role: role})
		}
	}
	return out
}

// without drops the acting recipient and duplicates.
func without(recipients []recipient, actor recipient) []recipient {
	seen := make(map[recipient]struct{}, len(recipients))
	out := make([]recipient, 0, len(recipients))
	for _, r := range recipients {
		if r == actor {
			continue
		}
		if _, ok := seen[r]; ok {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return out
}
