package middleware

import (
	"net/http"
	"strings"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	pkgAuth "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/auth"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// RoleParam names the query parameter selecting the acting role.
const RoleParam = "role"

// TokenVerifier checks a raw bearer token.
type TokenVerifier interface {
	Verify(raw string) (*pkgAuth.AccessTokenClaims, error)
}

// Auth validates a bearer token, resolves the acting role and seeds the context with the actor.
// A token holding a single role may omit the role parameter.
func Auth(verifier TokenVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := strings.TrimSpace(r.Header.Get("Authorization"))
			token := raw
			if strings.HasPrefix(strings.ToLower(token), "bearer ") {
				token = strings.TrimSpace(token[7:])
			}
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			role, err := actingRole(claims, r.URL.Query().Get(RoleParam))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			actor := types.Actor{UserID: claims.UserID, OrganizationID: claims.OrganizationID, Role: role}
			ctx := WithActor(r.Context(), actor)
			if logg != nil {
				ctx = logg.WithUserID(ctx, actor.UserID.String())
				ctx = logg.WithActorRole(ctx, string(role))
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func actingRole(claims *pkgAuth.AccessTokenClaims, raw string) (enums.Role, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		if len(claims.Roles) == 1 {
			return claims.Roles[0], nil
		}
		return "", pkgerrors.New(pkgerrors.CodeValidation, "role parameter required").
			WithDetails(map[string]string{RoleParam: "is required when the token grants several roles"})
	}
	role, err := enums.ParseRole(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid role").
			WithDetails(map[string]string{RoleParam: "is invalid"})
	}
	if !claims.HasRole(role) {
		return "", pkgerrors.New(pkgerrors.CodeForbidden, "role not granted")
	}
	return role, nil
}
