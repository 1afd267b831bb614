package auth

import (
	"fmt"
	"slices"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

type AccessTokenPayload struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Roles          []enums.Role
	JTI            string
}

// AccessTokenClaims is the typed JWT presented by marketplace clients. A user may hold
// several roles and picks one per request.
type AccessTokenClaims struct {
	UserID         uuid.UUID    `json:"user_id"`
	OrganizationID *uuid.UUID   `json:"organization_id,omitempty"`
	Roles          []enums.Role `json:"roles"`
	jwt.RegisteredClaims
}

func (c AccessTokenClaims) HasRole(role enums.Role) bool {
	return slices.Contains(c.Roles, role)
}

// validate rejects tokens whose subject and user disagree or that grant no usable role.
func (c AccessTokenClaims) validate() error {
	if c.UserID == uuid.Nil {
		return fmt.Errorf("%w: user id missing", ErrMalformedToken)
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return fmt.Errorf("%w: subject does not match user id", ErrMalformedToken)
	}
	if len(c.Roles) == 0 {
		return fmt.Errorf("%w: no roles granted", ErrMalformedToken)
	}
	for _, role := range c.Roles {
		if !role.IsValid() {
			return fmt.Errorf("%w: unknown role %q", ErrMalformedToken, role)
		}
	}
	return nil
}
