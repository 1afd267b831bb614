package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

const (
	notificationRetentionDays = 30
	outboxRetentionDays       = 30
	outboxMinAttempts         = 5
)

// RetentionParams are shared by every retention job. Days <= 0 picks the job's default.
type RetentionParams struct {
	Logger *logger.Logger
	Tx     txRunner
	Days   int
}

type viewedNotificationPurger interface {
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
}

type publishedOutboxPurger interface {
	DeletePublishedBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount int) (int64, error)
}

type purgeFunc func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)

// retentionJob purges one table's aged rows in a single transaction.
type retentionJob struct {
	name   string
	params RetentionParams
	purge  purgeFunc
	extra  map[string]any
	now    func() time.Time
}

// NewNotificationRetentionJob drops viewed notifications older than the window.
func NewNotificationRetentionJob(params RetentionParams, repo viewedNotificationPurger) (Job, error) {
	if repo == nil {
		return nil, errors.New("notification-retention: repository required")
	}
	params.Days = orDefault(params.Days, notificationRetentionDays)
	return newRetentionJob("notification-retention", params, repo.DeleteOlderThan, nil)
}

// NewOutboxRetentionJob drops published outbox rows, and rows that burned
// through minAttempts, once they are older than the window.
func NewOutboxRetentionJob(params RetentionParams, repo publishedOutboxPurger, minAttempts int) (Job, error) {
	if repo == nil {
		return nil, errors.New("outbox-retention: repository required")
	}
	params.Days = orDefault(params.Days, outboxRetentionDays)
	minAttempts = orDefault(minAttempts, outboxMinAttempts)
	purge := func(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
		return repo.DeletePublishedBefore(ctx, tx, cutoff, minAttempts)
	}
	return newRetentionJob("outbox-retention", params, purge, map[string]any{"min_attempts": minAttempts})
}

func newRetentionJob(name string, params RetentionParams, purge purgeFunc, extra map[string]any) (*retentionJob, error) {
	switch {
	case params.Logger == nil:
		return nil, fmt.Errorf("%s: logger required", name)
	case params.Tx == nil:
		return nil, fmt.Errorf("%s: tx runner required", name)
	}
	return &retentionJob{name: name, params: params, purge: purge, extra: extra, now: time.Now}, nil
}

func (j *retentionJob) Name() string { return j.name }

func (j *retentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().AddDate(0, 0, -j.params.Days)

	var purged int64
	if err := j.params.Tx.WithTx(ctx, func(tx *gorm.DB) (err error) {
		purged, err = j.purge(ctx, tx, cutoff)
		return err
	}); err != nil {
		return fmt.Errorf("%s: %w", j.name, err)
	}

	ctx = j.params.Logger.WithFields(ctx, map[string]any{
		"job":            j.name,
		"cutoff":         cutoff,
		"retention_days": j.params.Days,
		"purged":         purged,
	})
	if len(j.extra) > 0 {
		ctx = j.params.Logger.WithFields(ctx, j.extra)
	}
	j.params.Logger.Info(ctx, "cron.retention_done")
	return nil
}

func orDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}
