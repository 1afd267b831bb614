package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/dbtest"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/metrics"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
)

func newTestService(t *testing.T) (*Service, *Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	repo := NewRepository(conn)
	return NewService(repo, logger.New(logger.Options{ServiceName: "test"})), repo, conn
}

func TestEmitStoresEnvelope(t *testing.T) {
	svc, _, conn := newTestService(t)
	requestID := uuid.New()
	actor := &ActorRef{UserID: uuid.New(), Role: enums.RoleBuyer}

	eventID, err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOrderRequestCreated,
		AggregateType: enums.AggregateOrderRequest,
		AggregateID:   requestID,
		Actor:         actor,
		Data:          map[string]string{"order_request_id": requestID.String()},
	})
	require.NoError(t, err)
	require.NotEmpty(t, eventID)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row, "aggregate_id = ?", requestID).Error)
	assert.Equal(t, enums.EventOrderRequestCreated, row.EventType)
	assert.Nil(t, row.PublishedAt)

	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.Equal(t, eventID, env.EventID)
	assert.Equal(t, 1, env.Version)
	require.NotNil(t, env.Actor)
	assert.Equal(t, enums.RoleBuyer, env.Actor.Role)
	assert.JSONEq(t, `{"order_request_id":"`+requestID.String()+`"}`, string(env.Data))
}

func TestEmitValidatesEvent(t *testing.T) {
	svc, _, conn := newTestService(t)
	ctx := context.Background()

	_, err := svc.Emit(ctx, nil, DomainEvent{})
	require.ErrorIs(t, err, errTxRequired)

	_, err = svc.Emit(ctx, conn, DomainEvent{EventType: "bogus", AggregateType: "bogus"})
	require.Error(t, err)
	assert.Len(t, multierr.Errors(err), 3)

	_, err = svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOfferSubmitted, AggregateType: enums.AggregateOffer})
	require.ErrorContains(t, err, "aggregate id required")

	_, err = svc.Emit(ctx, conn, DomainEvent{EventType: enums.EventOfferSubmitted, AggregateType: enums.AggregateOffer, AggregateID: uuid.New(), Version: currentVersion + 1})
	require.ErrorIs(t, err, errEnvelopeVersion)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitRejectsMissingData(t *testing.T) {
	svc, _, conn := newTestService(t)
	event := DomainEvent{
		EventType:     enums.EventOfferSubmitted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   uuid.New(),
	}

	_, err := svc.Emit(context.Background(), conn, event)
	require.ErrorIs(t, err, errEnvelopeData)

	event.Data = json.RawMessage("null")
	_, err = svc.Emit(context.Background(), conn, event)
	require.ErrorIs(t, err, errEnvelopeData)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestEmitStampsClockAndCountsQueued(t *testing.T) {
	conn := dbtest.Open(t)
	reg := prometheus.NewRegistry()
	at := time.Date(2026, 2, 3, 4, 5, 6, 0, time.FixedZone("x", 7200))
	svc := NewService(NewRepository(conn), nil,
		WithClock(func() time.Time { return at }),
		WithMetrics(metrics.NewOutboxMetrics(reg)))

	_, err := svc.Emit(context.Background(), conn, DomainEvent{
		EventType:     enums.EventOfferSubmitted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   uuid.New(),
		Data:          payloads.OfferSubmittedEvent{Resubmitted: true},
	})
	require.NoError(t, err)

	var row models.OutboxEvent
	require.NoError(t, conn.First(&row).Error)
	env, err := DecodeEnvelope(row.Payload)
	require.NoError(t, err)
	assert.True(t, env.OccurredAt.Equal(at))
	assert.Equal(t, time.UTC, env.OccurredAt.Location())
	assert.Contains(t, string(env.Data), `"resubmitted":true`)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	require.Len(t, families[0].GetMetric(), 1)
	assert.Equal(t, 1.0, families[0].GetMetric()[0].GetCounter().GetValue())
}

func TestEmitOnceSkipsDuplicates(t *testing.T) {
	svc, _, conn := newTestService(t)
	event := DomainEvent{
		EventType:     enums.EventOfferCompleted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   uuid.New(),
		Data:          struct{}{},
	}

	first, err := svc.EmitOnce(context.Background(), conn, event)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := svc.EmitOnce(context.Background(), conn, event)
	require.NoError(t, err)
	require.Empty(t, second)

	var count int64
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestRepositoryPublishLifecycle(t *testing.T) {
	svc, repo, conn := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.Emit(ctx, conn, DomainEvent{
			EventType:     enums.EventOfferSubmitted,
			AggregateType: enums.AggregateOffer,
			AggregateID:   uuid.New(),
			Data:          struct{}{},
		})
		require.NoError(t, err)
	}

	rows, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	require.NoError(t, repo.MarkPublishedTx(conn, rows[0].ID))
	require.NoError(t, repo.MarkFailedTx(conn, rows[1].ID, errors.New("pubsub unavailable")))
	require.NoError(t, repo.MarkTerminalTx(conn, rows[2].ID, errors.New("bad payload"), 3))

	pending, err := repo.FetchUnpublishedForPublish(conn, 10, 3)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, rows[1].ID, pending[0].ID)
	assert.Equal(t, 1, pending[0].AttemptCount)
	require.NotNil(t, pending[0].LastError)
	assert.Equal(t, "pubsub unavailable", *pending[0].LastError)
}

func TestRepositoryDeletePublishedBefore(t *testing.T) {
	_, repo, conn := newTestService(t)
	now := time.Now().UTC()
	old := now.Add(-48 * time.Hour)

	published := models.OutboxEvent{EventType: enums.EventOfferSubmitted, AggregateType: enums.AggregateOffer, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, PublishedAt: &old}
	dead := models.OutboxEvent{EventType: enums.EventOfferSubmitted, AggregateType: enums.AggregateOffer, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 10}
	pending := models.OutboxEvent{EventType: enums.EventOfferSubmitted, AggregateType: enums.AggregateOffer, AggregateID: uuid.New(), Payload: []byte(`{}`), CreatedAt: old, AttemptCount: 1}
	for _, row := range []*models.OutboxEvent{&published, &dead, &pending} {
		require.NoError(t, conn.Create(row).Error)
	}

	deleted, err := repo.DeletePublishedBefore(context.Background(), conn, now.Add(-24*time.Hour), 5)
	require.NoError(t, err)
	require.EqualValues(t, 2, deleted)

	var remaining []models.OutboxEvent
	require.NoError(t, conn.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, pending.ID, remaining[0].ID)
}

func TestDLQRepositoryDeadLettersAndLists(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	event := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventDisputeOpened,
		AggregateType: enums.AggregateDispute,
		AggregateID:   uuid.New(),
		Payload:       []byte(`{}`),
		AttemptCount:  3,
	}

	require.NoError(t, dlq.DeadLetterTx(conn, event, enums.OutboxDLQReasonNonRetryable, errors.New(strings.Repeat("x", 1024+100))))
	require.Error(t, dlq.DeadLetterTx(conn, event, "gave_up", nil))

	rows, err := dlq.List(context.Background(), DLQFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, event.ID, rows[0].EventID)
	assert.Equal(t, 3, rows[0].AttemptCount)
	assert.Len(t, *rows[0].ErrorMessage, 1024)

	rows, err = dlq.List(context.Background(), DLQFilter{EventType: enums.EventOfferAccepted})
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestDLQRepositoryReplayRequeuesUnderOriginalID(t *testing.T) {
	conn := dbtest.Open(t)
	dlq := NewDLQRepository(conn)
	ctx := context.Background()

	kept := models.OutboxEvent{EventType: enums.EventOfferAccepted, AggregateType: enums.AggregateOffer, AggregateID: uuid.New(), Payload: []byte(`{"a":1}`), AttemptCount: 10}
	require.NoError(t, conn.Create(&kept).Error)
	require.NoError(t, dlq.DeadLetterTx(conn, kept, enums.OutboxDLQReasonMaxAttempts, errors.New("timeout")))

	purged := models.OutboxEvent{ID: uuid.New(), EventType: enums.EventDisputeClosed, AggregateType: enums.AggregateDispute, AggregateID: uuid.New(), Payload: []byte(`{"b":2}`)}
	require.NoError(t, dlq.DeadLetterTx(conn, purged, enums.OutboxDLQReasonNonRetryable, nil))

	require.NoError(t, dlq.Replay(ctx, kept.ID))
	require.NoError(t, dlq.Replay(ctx, purged.ID))
	assert.ErrorIs(t, dlq.Replay(ctx, kept.ID), ErrNotDeadLettered)

	var requeued []models.OutboxEvent
	require.NoError(t, conn.Order("created_at ASC").Find(&requeued).Error)
	require.Len(t, requeued, 2)
	for _, row := range requeued {
		assert.Zero(t, row.AttemptCount)
		assert.Nil(t, row.PublishedAt)
		assert.Nil(t, row.LastError)
	}
	ids := []uuid.UUID{requeued[0].ID, requeued[1].ID}
	assert.ElementsMatch(t, []uuid.UUID{kept.ID, purged.ID}, ids)

	var left int64
	require.NoError(t, conn.Model(&models.OutboxDLQ{}).Count(&left).Error)
	assert.Zero(t, left)
}
