package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// OrganizationCommission is the negotiated commission rate per payment method.
type OrganizationCommission struct {
	OrganizationID uuid.UUID           `gorm:"column:organization_id;type:uuid;primaryKey"`
	PaymentMethod  enums.PaymentMethod `gorm:"column:payment_method;primaryKey"`
	Percent        decimal.Decimal     `gorm:"column:percent;type:numeric(5,2);not null"`
}
