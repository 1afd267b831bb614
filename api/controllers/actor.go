package controllers

import (
	"net/http"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/middleware"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

func actorFrom(r *http.Request) (types.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return types.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

// asActor adapts a handler that needs the caller and returns its result. The
// result is written as a 200 envelope; errors go through WriteError.
func asActor(logg *logger.Logger, h func(r *http.Request, actor types.Actor) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err == nil {
			var out any
			if out, err = h(r, actor); err == nil {
				responses.WriteSuccess(w, out)
				return
			}
		}
		responses.WriteError(r.Context(), logg, w, err)
	}
}
