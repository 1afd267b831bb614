package types

import (
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Actor is the authenticated caller acting under one role.
type Actor struct {
	UserID         uuid.UUID
	OrganizationID *uuid.UUID
	Role           enums.Role
}

// Is reports whether the actor acts under role.
func (a Actor) Is(role enums.Role) bool {
	return a.Role == role
}

// Organization returns the organization id or uuid.Nil.
func (a Actor) Organization() uuid.UUID {
	if a.OrganizationID == nil {
		return uuid.Nil
	}
	return *a.OrganizationID
}
