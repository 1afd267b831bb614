package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Dispute is a refund or exchange claim against one fulfilled line item.
type Dispute struct {
	ID                uuid.UUID                   `gorm:"column:id;type:uuid;primaryKey"`
	OrderRequestID    uuid.UUID                   `gorm:"column:order_request_id;type:uuid;not null"`
	OfferID           uuid.UUID                   `gorm:"column:offer_id;type:uuid;not null"`
	LineItemID        uuid.UUID                   `gorm:"column:line_item_id;type:uuid;not null"`
	Kind              enums.DisputeKind           `gorm:"column:kind;not null"`
	Status            enums.DisputeStatus         `gorm:"column:status;not null"`
	Rejected          bool                        `gorm:"column:rejected;not null;default:false"`
	RequestedQuantity int                         `gorm:"column:requested_quantity;not null"`
	ClaimedQuantity   int                         `gorm:"column:claimed_quantity;not null"`
	Reasons           datatypes.JSONSlice[string] `gorm:"column:reasons;type:jsonb;not null"`
	Comment           *string                     `gorm:"column:comment"`
	Reply             *string                     `gorm:"column:reply"`
	OpenedBy          uuid.UUID                   `gorm:"column:opened_by;type:uuid;not null"`
	ResolvedAt        *time.Time                  `gorm:"column:resolved_at"`
	ClosedAt          *time.Time                  `gorm:"column:closed_at"`
	CreatedAt         time.Time                   `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time                   `gorm:"column:updated_at;autoUpdateTime"`
}

func (d *Dispute) BeforeCreate(*gorm.DB) error {
	ensureID(&d.ID)
	return nil
}
