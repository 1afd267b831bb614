package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Reward is the marketplace commission owed on a completed offer.
type Reward struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	OfferID           uuid.UUID       `gorm:"column:offer_id;type:uuid;not null;uniqueIndex" json:"offerId"`
	OrderRequestID    uuid.UUID       `gorm:"column:order_request_id;type:uuid;not null" json:"orderRequestId"`
	OrganizationID    uuid.UUID       `gorm:"column:organization_id;type:uuid;not null" json:"organizationId"`
	TotalPrice        decimal.Decimal `gorm:"column:total_price;type:numeric(14,2);not null" json:"totalPrice"`
	CommissionPercent decimal.Decimal `gorm:"column:commission_percent;type:numeric(5,2);not null" json:"commissionPercent"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	ExportedAt        *time.Time      `gorm:"column:exported_at" json:"exportedAt,omitempty"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (r *Reward) BeforeCreate(*gorm.DB) error {
	ensureID(&r.ID)
	return nil
}
