package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
)

const currentVersion = 1

var errTxRequired = errors.New("outbox writes must join the caller's transaction")

// DomainEvent is what services hand to Emit inside their transaction.
type DomainEvent struct {
	EventType     enums.OutboxEventType
	AggregateType enums.OutboxAggregateType
	AggregateID   uuid.UUID
	Actor         *ActorRef
	Data          any
	Version       int
	OccurredAt    time.Time
}

func (e DomainEvent) validate() error {
	var err error
	if !e.EventType.IsValid() {
		err = multierr.Append(err, fmt.Errorf("unknown event type %q", e.EventType))
	}
	if !e.AggregateType.IsValid() {
		err = multierr.Append(err, fmt.Errorf("unknown aggregate type %q", e.AggregateType))
	}
	if e.AggregateID == uuid.Nil {
		err = multierr.Append(err, errors.New("aggregate id required"))
	}
	if e.Version < 0 || e.Version > currentVersion {
		err = multierr.Append(err, fmt.Errorf("%w: %d", errEnvelopeVersion, e.Version))
	}
	return err
}

// Emitter is the narrow surface domain services depend on.
type Emitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) (string, error)
}

type Service struct {
	repo    *Repository
	logg    *logger.Logger
	metrics *metrics.OutboxMetrics
	now     func() time.Time
}

type Option func(*Service)

// WithMetrics counts queued events next to the relay's outcomes.
func WithMetrics(m *metrics.OutboxMetrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(repo *Repository, logg *logger.Logger, opts ...Option) *Service {
	s := &Service{repo: repo, logg: logg, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Emit queues event on tx and returns the envelope's event id. The row
// becomes visible to the relay only when the caller commits.
func (s *Service) Emit(ctx context.Context, tx *gorm.DB, event DomainEvent) (string, error) {
	if tx == nil {
		return "", errTxRequired
	}
	if err := event.validate(); err != nil {
		return "", err
	}
	row, env, err := s.seal(event)
	if err != nil {
		return "", err
	}
	if err := s.repo.Insert(tx, row); err != nil {
		return "", fmt.Errorf("queue %s: %w", event.EventType, err)
	}

	s.metrics.Inc(string(event.EventType), metrics.OutboxQueued)
	if s.logg != nil {
		s.logg.Debug(s.logg.WithFields(ctx, map[string]any{
			"event_id":     env.EventID,
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		}), "outbox.queued")
	}
	return env.EventID, nil
}

// EmitOnce queues event unless one of the same type already exists for the
// aggregate, returning "" when it was skipped.
func (s *Service) EmitOnce(ctx context.Context, tx *gorm.DB, event DomainEvent) (string, error) {
	if tx == nil {
		return "", errTxRequired
	}
	exists, err := s.repo.ExistsTx(tx, event.EventType, event.AggregateType, event.AggregateID)
	if err != nil || exists {
		return "", err
	}
	return s.Emit(ctx, tx, event)
}

// seal wraps the event data in a versioned envelope and builds the outbox row.
func (s *Service) seal(event DomainEvent) (models.OutboxEvent, PayloadEnvelope, error) {
	data, err := json.Marshal(event.Data)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("marshal %s payload: %w", event.EventType, err)
	}
	env := PayloadEnvelope{
		Version:    event.Version,
		EventID:    uuid.NewString(),
		OccurredAt: event.OccurredAt,
		Actor:      event.Actor,
		Data:       data,
	}
	if env.Version == 0 {
		env.Version = currentVersion
	}
	if env.OccurredAt.IsZero() {
		env.OccurredAt = s.now()
	}
	env.OccurredAt = env.OccurredAt.UTC()
	if err := env.validate(); err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, fmt.Errorf("seal %s: %w", event.EventType, err)
	}

	raw, err := json.Marshal(env)
	if err != nil {
		return models.OutboxEvent{}, PayloadEnvelope{}, err
	}
	return models.OutboxEvent{
		EventType:     event.EventType,
		AggregateType: event.AggregateType,
		AggregateID:   event.AggregateID,
		Payload:       raw,
	}, env, nil
}
