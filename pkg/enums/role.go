package enums

import "slices"

// Role is the closed set of viewing roles a user can act under.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleStaff  Role = "staff"
)

var validRoles = []Role{
	RoleBuyer,
	RoleSeller,
	RoleStaff,
}

func (r Role) String() string {
	return string(r)
}

func (r Role) IsValid() bool {
	return slices.Contains(validRoles, r)
}

func ParseRole(value string) (Role, error) {
	return parse(validRoles, value, "role")
}
