package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// User is the marketplace projection of an identity. Role is the primary role used for fan-out.
type User struct {
	ID             uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	Role           enums.Role `gorm:"column:role;not null"`
	OrganizationID *uuid.UUID `gorm:"column:organization_id;type:uuid"`
	Name           string     `gorm:"column:name;not null"`
	Lat            *float64   `gorm:"column:lat"`
	Lng            *float64   `gorm:"column:lng"`
	CreatedAt      time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	ensureID(&u.ID)
	return nil
}

// Organization is the legal entity a seller acts on behalf of.
type Organization struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Name      string    `gorm:"column:name;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (o *Organization) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
