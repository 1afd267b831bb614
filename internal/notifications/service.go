// Package notifications stores per-recipient events, aggregates unread badges and fans
// domain events out to recipients.
package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// Service defines notification list, badge and read operations.
type Service interface {
	List(ctx context.Context, actor types.Actor, params ListParams) (pagination.Page[models.Notification], error)
	UnreadCounts(ctx context.Context, actor types.Actor) (Counts, error)
	MarkBucketRead(ctx context.Context, actor types.Actor, bucket enums.NotificationBucket) (int64, error)
	MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error)
}

type service struct {
	repo Repository
	logg *logger.Logger
	now  func() time.Time
}

// ListParams configures pagination for notifications.
type ListParams struct {
	Pagination pagination.Params
	UnreadOnly bool
}

// NewService wires notifications dependencies.
func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("notifications repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) List(ctx context.Context, actor types.Actor, params ListParams) (pagination.Page[models.Notification], error) {
	if err := validActor(actor); err != nil {
		return pagination.Page[models.Notification]{}, err
	}
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return pagination.Page[models.Notification]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.List(ctx, listNotificationsParams{
		UserID:     actor.UserID,
		Role:       actor.Role,
		Limit:      params.Pagination.Limit,
		Cursor:     cursor,
		UnreadOnly: params.UnreadOnly,
	})
	if err != nil {
		return pagination.Page[models.Notification]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list notifications")
	}
	return pagination.Slice(rows, params.Pagination.Limit, func(n models.Notification) pagination.Cursor {
		return pagination.Cursor{CreatedAt: n.CreatedAt, ID: n.ID}
	}), nil
}

func (s *service) UnreadCounts(ctx context.Context, actor types.Actor) (Counts, error) {
	if err := validActor(actor); err != nil {
		return Counts{}, err
	}
	rows, err := s.repo.Unread(ctx, actor.UserID, actor.Role)
	if err != nil {
		return Counts{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unread notifications")
	}
	counts, skipped := Tally(actor.Role, rows)
	if skipped > 0 {
		logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"role": actor.Role, "skipped": skipped})
		s.logg.Warn(logCtx, "unread notifications of unknown type skipped")
	}
	return counts, nil
}

// MarkBucketRead marks every unread row classified into bucket as viewed and leaves other buckets untouched.
func (s *service) MarkBucketRead(ctx context.Context, actor types.Actor, bucket enums.NotificationBucket) (int64, error) {
	if err := validActor(actor); err != nil {
		return 0, err
	}
	if _, err := enums.ParseNotificationBucket(string(bucket)); err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown bucket")
	}
	rows, err := s.repo.Unread(ctx, actor.UserID, actor.Role)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unread notifications")
	}

	var ids []uuid.UUID
	for _, row := range Dedupe(rows) {
		if got, ok := Classify(actor.Role, row); ok && got == bucket {
			ids = append(ids, row.ID)
		}
	}
	role := actor.Role
	marked, err := s.repo.MarkViewed(ctx, actor.UserID, &role, ids, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}

	logCtx := s.logg.WithUserID(ctx, actor.UserID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{"bucket": bucket, "marked": marked})
	s.logg.Info(logCtx, "notification bucket read")
	return marked, nil
}

func (s *service) MarkRead(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) (int64, error) {
	if userID == uuid.Nil {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if len(ids) == 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "notification ids required")
	}
	marked, err := s.repo.MarkViewed(ctx, userID, nil, ids, s.now())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark notifications read")
	}
	return marked, nil
}

func validActor(actor types.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if !actor.Role.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "role must be buyer, seller or staff")
	}
	return nil
}
