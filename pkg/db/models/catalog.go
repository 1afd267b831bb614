package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Category is a node of the auto-parts taxonomy.
type Category struct {
	ID       uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	ParentID *uuid.UUID `gorm:"column:parent_id;type:uuid"`
	Name     string     `gorm:"column:name;not null"`
}

func (c *Category) BeforeCreate(*gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// Product is a catalog entry a request line item may reference.
type Product struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	Article   string    `gorm:"column:article;not null"`
	Name      string    `gorm:"column:name;not null"`
	Brand     *string   `gorm:"column:brand"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	ensureID(&p.ID)
	return nil
}

// ProductCategory links a catalog product to its categories.
type ProductCategory struct {
	ProductID  uuid.UUID `gorm:"column:product_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey"`
}

// SellerCategory records which categories a seller trades in.
type SellerCategory struct {
	SellerID   uuid.UUID `gorm:"column:seller_id;type:uuid;primaryKey"`
	CategoryID uuid.UUID `gorm:"column:category_id;type:uuid;primaryKey"`
}
