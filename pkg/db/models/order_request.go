package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// OrderRequest is one buyer request for quotation.
type OrderRequest struct {
	ID                  uuid.UUID                         `gorm:"column:id;type:uuid;primaryKey"`
	BuyerID             uuid.UUID                         `gorm:"column:buyer_id;type:uuid;not null"`
	DeliveryAddress     datatypes.JSONType[types.Address] `gorm:"column:delivery_address;type:jsonb;not null"`
	Comment             *string                           `gorm:"column:comment"`
	Status              enums.OrderRequestStatus          `gorm:"column:status;not null"`
	PaymentMethod       *enums.PaymentMethod              `gorm:"column:payment_method"`
	SelectedOfferID     *uuid.UUID                        `gorm:"column:selected_offer_id;type:uuid"`
	HasActiveDispute    bool                              `gorm:"column:has_active_dispute;not null;default:false"`
	BuyerLastNotifiedAt *time.Time                        `gorm:"column:buyer_last_notified_at"`
	StaffLastNotifiedAt *time.Time                        `gorm:"column:staff_last_notified_at"`
	PaidAt              *time.Time                        `gorm:"column:paid_at"`
	CompletedAt         *time.Time                        `gorm:"column:completed_at"`
	CreatedAt           time.Time                         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time                         `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *OrderRequest) BeforeCreate(*gorm.DB) error {
	ensureID(&o.ID)
	return nil
}

// RequestSelectedSeller narrows a request to explicitly chosen sellers.
type RequestSelectedSeller struct {
	OrderRequestID uuid.UUID `gorm:"column:order_request_id;type:uuid;primaryKey"`
	SellerID       uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
}

// OrderRequestHidden is a per-staff soft delete.
type OrderRequestHidden struct {
	OrderRequestID uuid.UUID `gorm:"column:order_request_id;type:uuid;primaryKey"`
	UserID         uuid.UUID `gorm:"column:user_id;type:uuid;primaryKey"`
	HiddenAt       time.Time `gorm:"column:hidden_at;autoCreateTime"`
}

func (OrderRequestHidden) TableName() string {
	return "order_request_hidden"
}
