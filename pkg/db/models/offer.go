package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Offer is one seller's response to one order request.
type Offer struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey"`
	OrderRequestID   uuid.UUID         `gorm:"column:order_request_id;type:uuid;not null"`
	SellerID         uuid.UUID         `gorm:"column:seller_id;type:uuid;not null"`
	OrganizationID   uuid.UUID         `gorm:"column:organization_id;type:uuid;not null"`
	Status           enums.OfferStatus `gorm:"column:status;not null"`
	DistanceKm       float64           `gorm:"column:distance_km;not null;default:0"`
	Comment          *string           `gorm:"column:comment"`
	IsSelected       bool              `gorm:"column:is_selected;not null;default:false"`
	HasActiveDispute bool              `gorm:"column:has_active_dispute;not null;default:false"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Offer) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}
