package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RequestLineItem is either an ask (OfferID nil) or a seller's fulfillment of an ask.
type RequestLineItem struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	OrderRequestID    uuid.UUID       `gorm:"column:order_request_id;type:uuid;not null"`
	OfferID           *uuid.UUID      `gorm:"column:offer_id;type:uuid"`
	RequestedItemID   *uuid.UUID      `gorm:"column:requested_item_id;type:uuid"`
	ProductID         *uuid.UUID      `gorm:"column:product_id;type:uuid"`
	Description       *string         `gorm:"column:description"`
	BrandHint         *string         `gorm:"column:brand_hint"`
	Quantity          int             `gorm:"column:quantity;not null"`
	Count             int             `gorm:"column:count;not null;default:0"`
	UnitPrice         decimal.Decimal `gorm:"column:unit_price;type:numeric(14,2);not null;default:0"`
	InStockQuantity   int             `gorm:"column:in_stock_quantity;not null;default:0"`
	BackorderQuantity int             `gorm:"column:backorder_quantity;not null;default:0"`
	DeliveryDays      int             `gorm:"column:delivery_days;not null;default:0"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (l *RequestLineItem) BeforeCreate(*gorm.DB) error {
	ensureID(&l.ID)
	return nil
}

// IsAsk reports whether the row belongs to the request rather than an offer.
func (l RequestLineItem) IsAsk() bool {
	return l.OfferID == nil
}

// Total returns count × unit price.
func (l RequestLineItem) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Count)))
}

// LineItemCategory is a category hint attached to a described line item.
type LineItemCategory struct {
	LineItemID uuid.UUID `gorm:"column:line_item_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey"`
}
