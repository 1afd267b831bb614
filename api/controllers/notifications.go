package controllers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/validators"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/notifications"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type updatedCount struct {
	Updated int64 `json:"updated"`
}

// ListNotifications pages the caller's inbox for the acting role, newest first.
// ?unreadOnly=true hides viewed rows.
func ListNotifications(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		unread, err := validators.ParseQueryBool(r, "unreadOnly")
		if err != nil {
			return nil, err
		}
		return svc.List(r.Context(), actor, notifications.ListParams{
			UnreadOnly: unread,
			Pagination: pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))},
		})
	})
}

func UnreadCounts(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		return svc.UnreadCounts(r.Context(), actor)
	})
}

// MarkBucketRead clears one personal-area bucket.
func MarkBucketRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		bucket, err := enums.ParseNotificationBucket(strings.TrimSpace(chi.URLParam(r, "bucket")))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid bucket")
		}
		n, err := svc.MarkBucketRead(r.Context(), actor, bucket)
		return updatedCount{Updated: n}, err
	})
}

type markReadRequest struct {
	IDs []uuid.UUID `json:"ids" validate:"required,min=1,max=100"`
}

// MarkNotificationsRead marks the listed rows viewed; ids owned by someone
// else are ignored rather than rejected.
func MarkNotificationsRead(svc notifications.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		var body markReadRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		n, err := svc.MarkRead(r.Context(), actor.UserID, body.IDs)
		return updatedCount{Updated: n}, err
	})
}
