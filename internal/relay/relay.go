// Package relay drains the transactional outbox into Pub/Sub.
//
// Each poll locks a batch of pending rows, hands every message to the publisher
// before waiting on any of them so the client can batch the sends, then records
// each outcome in the same transaction: published, retried later, or parked in
// the dead-letter table.
package relay

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
)

const (
	defaultBatchSize      = 50
	defaultPoll           = 500 * time.Millisecond
	defaultPublishTimeout = 15 * time.Second
	defaultMaxAttempts    = 10
	maxBackoff            = 10 * time.Second
	jitterWindow          = 250 * time.Millisecond
)

type TxRunner interface {
	WithTx(context.Context, func(tx *gorm.DB) error) error
}

type Store interface {
	FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error)
	MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error
	MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error
	MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error
}

type DeadLetters interface {
	DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error
}

type Resolver interface {
	Resolve(models.OutboxEvent) (*registry.ResolvedEvent, error)
}

// Publisher is the slice of *pubsub.Publisher the relay uses.
type Publisher interface {
	Publish(context.Context, *gcppubsub.Message) Result
}

type Result interface {
	Get(context.Context) (string, error)
}

// Check is a readiness probe run before the loop starts.
type Check struct {
	Name string
	Ping func(context.Context) error
}

type Params struct {
	Config      config.OutboxConfig
	Logger      *logger.Logger
	Tx          TxRunner
	Store       Store
	DeadLetters DeadLetters
	Resolver    Resolver
	// Publishers returns the publisher for a topic, or nil when the topic is unknown.
	Publishers func(topic string) Publisher
	Metrics    *metrics.OutboxMetrics
	Checks     []Check
}

type Relay struct {
	logg           *logger.Logger
	tx             TxRunner
	store          Store
	dead           DeadLetters
	resolver       Resolver
	publishers     func(topic string) Publisher
	metrics        *metrics.OutboxMetrics
	checks         []Check
	batchSize      int
	maxAttempts    int
	poll           time.Duration
	publishTimeout time.Duration
}

func New(p Params) (*Relay, error) {
	switch {
	case p.Logger == nil:
		return nil, errors.New("logger is required")
	case p.Tx == nil:
		return nil, errors.New("transaction runner is required")
	case p.Store == nil:
		return nil, errors.New("outbox store is required")
	case p.DeadLetters == nil:
		return nil, errors.New("dead-letter store is required")
	case p.Resolver == nil:
		return nil, errors.New("event resolver is required")
	case p.Publishers == nil:
		return nil, errors.New("publisher lookup is required")
	}
	return &Relay{
		logg:           p.Logger,
		tx:             p.Tx,
		store:          p.Store,
		dead:           p.DeadLetters,
		resolver:       p.Resolver,
		publishers:     p.Publishers,
		metrics:        p.Metrics,
		checks:         p.Checks,
		batchSize:      orDefault(p.Config.BatchSize, defaultBatchSize),
		maxAttempts:    orDefault(p.Config.MaxAttempts, defaultMaxAttempts),
		poll:           orDefault(time.Duration(p.Config.PollIntervalMS)*time.Millisecond, defaultPoll),
		publishTimeout: orDefault(p.Config.PublishTimeout, defaultPublishTimeout),
	}, nil
}

func orDefault[T int | time.Duration](v, def T) T {
	if v <= 0 {
		return def
	}
	return v
}

// Run polls until ctx is canceled. A full batch is followed immediately by the
// next poll; failed batches back off exponentially up to maxBackoff.
func (r *Relay) Run(ctx context.Context) error {
	for _, c := range r.checks {
		if err := c.Ping(ctx); err != nil {
			r.logg.Error(ctx, c.Name+" not ready", err)
			return err
		}
	}
	r.logg.Info(ctx, "outbox relay ready")

	backoff := r.poll
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		n, err := r.processBatch(ctx)
		wait := r.poll
		switch {
		case err != nil:
			r.logg.Error(ctx, "outbox batch failed", err)
			backoff = min(backoff*2, maxBackoff)
			wait = backoff
		case n >= r.batchSize:
			backoff = r.poll
			continue
		default:
			backoff = r.poll
		}
		if err := sleep(ctx, wait+rand.N(jitterWindow)); err != nil {
			return err
		}
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
