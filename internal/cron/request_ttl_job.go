package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

const (
	requestStaleDays  = 30
	requestBatchLimit = 200
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type staleRequestReader interface {
	StaleRequested(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)
}

type requestDecliner interface {
	Decline(ctx context.Context, requestID uuid.UUID, actor types.Actor) error
}

// RequestTTLJobParams configure the job that declines requests nobody answered.
type RequestTTLJobParams struct {
	Logger    *logger.Logger
	Reader    staleRequestReader
	Decliner  requestDecliner
	StaleDays int
	Limit     int
}

// NewRequestTTLJob builds the cron job that declines stale order requests.
func NewRequestTTLJob(params RequestTTLJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Reader == nil {
		return nil, fmt.Errorf("stale request reader required")
	}
	if params.Decliner == nil {
		return nil, fmt.Errorf("request decliner required")
	}
	staleDays := params.StaleDays
	if staleDays <= 0 {
		staleDays = requestStaleDays
	}
	limit := params.Limit
	if limit <= 0 {
		limit = requestBatchLimit
	}
	return &requestTTLJob{
		logg:      params.Logger,
		reader:    params.Reader,
		decliner:  params.Decliner,
		staleDays: staleDays,
		limit:     limit,
		now:       time.Now,
	}, nil
}

type requestTTLJob struct {
	logg      *logger.Logger
	reader    staleRequestReader
	decliner  requestDecliner
	staleDays int
	limit     int
	now       func() time.Time
}

func (j *requestTTLJob) Name() string { return "request-ttl" }

// systemActor declines on behalf of staff; it matches no real recipient.
var systemActor = types.Actor{Role: enums.RoleStaff}

func (j *requestTTLJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-time.Duration(j.staleDays) * 24 * time.Hour)
	ids, err := j.reader.StaleRequested(ctx, cutoff, j.limit)
	if err != nil {
		return fmt.Errorf("query stale order requests: %w", err)
	}

	var errs error
	declined := 0
	for _, id := range ids {
		if err := j.decliner.Decline(ctx, id, systemActor); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("decline %s: %w", id, err))
			continue
		}
		declined++
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":     cutoff,
		"stale_days": j.staleDays,
		"found":      len(ids),
		"declined":   declined,
	})
	j.logg.Info(logCtx, "stale order requests declined")
	return errs
}
