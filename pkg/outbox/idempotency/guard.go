// Package idempotency dedupes at-least-once event deliveries per consumer.
package idempotency

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Store is the Redis surface a Guard needs.
type Store interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	ReleaseIfOwner(ctx context.Context, key, owner string) (bool, error)
	IdempotencyKey(scope, id string) string
}

// Guard records which events a consumer has taken on. Marks expire after ttl,
// so the window must outlast the subscription's redelivery horizon.
type Guard struct {
	store Store
	ttl   time.Duration
}

func NewGuard(store Store, ttl time.Duration) (*Guard, error) {
	if store == nil {
		return nil, errors.New("idempotency store is required")
	}
	if ttl < 0 {
		return nil, errors.New("ttl must be non-negative")
	}
	return &Guard{store: store, ttl: ttl}, nil
}

// Claim is one delivery's hold on an event.
type Claim struct {
	store Store
	key   string
	token string
}

// Claim marks eventID as taken by consumer. A nil Claim with a nil error means an
// earlier delivery already holds the event and this one should be acked.
func (g *Guard) Claim(ctx context.Context, consumer string, eventID uuid.UUID) (*Claim, error) {
	if consumer == "" {
		return nil, errors.New("consumer name is required")
	}
	if eventID == uuid.Nil {
		return nil, errors.New("event id is required")
	}
	claim := &Claim{
		store: g.store,
		key:   g.store.IdempotencyKey("evt:"+consumer, eventID.String()),
		token: uuid.NewString(),
	}
	won, err := g.store.SetNX(ctx, claim.key, claim.token, g.ttl)
	if err != nil {
		return nil, err
	}
	if !won {
		return nil, nil
	}
	return claim, nil
}

// Release gives the event back after a failed attempt so a redelivery can retry it.
// Only this claim's own mark is removed.
func (c *Claim) Release(ctx context.Context) error {
	if c == nil {
		return nil
	}
	_, err := c.store.ReleaseIfOwner(ctx, c.key, c.token)
	return err
}
