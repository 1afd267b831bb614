package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Notification is an in-app event scoped to one (user, role) pair.
type Notification struct {
	ID             uuid.UUID              `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID              `gorm:"column:user_id;type:uuid;not null" json:"userId"`
	Role           enums.Role             `gorm:"column:role;not null" json:"role"`
	Type           enums.NotificationType `gorm:"column:type;not null" json:"type"`
	EventID        *uuid.UUID             `gorm:"column:event_id;type:uuid" json:"eventId,omitempty"`
	OrderRequestID *uuid.UUID             `gorm:"column:order_request_id;type:uuid" json:"orderRequestId,omitempty"`
	OfferID        *uuid.UUID             `gorm:"column:offer_id;type:uuid" json:"offerId,omitempty"`
	OrganizationID *uuid.UUID             `gorm:"column:organization_id;type:uuid" json:"organizationId,omitempty"`
	DisputeID      *uuid.UUID             `gorm:"column:dispute_id;type:uuid" json:"disputeId,omitempty"`
	ProductOfferID *uuid.UUID             `gorm:"column:product_offer_id;type:uuid" json:"productOfferId,omitempty"`
	ViewedAt       *time.Time             `gorm:"column:viewed_at" json:"viewedAt,omitempty"`
	CreatedAt      time.Time              `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
}

func (n *Notification) BeforeCreate(*gorm.DB) error {
	ensureID(&n.ID)
	return nil
}
