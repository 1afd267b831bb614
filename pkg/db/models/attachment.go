package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Attachment links a stored file to a request or dispute.
type Attachment struct {
	ID          uuid.UUID              `gorm:"column:id;type:uuid;primaryKey"`
	EntityType  enums.AttachmentEntity `gorm:"column:entity_type;not null"`
	EntityID    uuid.UUID              `gorm:"column:entity_id;type:uuid;not null"`
	FileKey     string                 `gorm:"column:file_key;not null"`
	Name        string                 `gorm:"column:name;not null"`
	ContentType string                 `gorm:"column:content_type;not null"`
	SizeBytes   int64                  `gorm:"column:size_bytes;not null;default:0"`
	CreatedAt   time.Time              `gorm:"column:created_at;autoCreateTime"`
}

func (a *Attachment) BeforeCreate(*gorm.DB) error {
	ensureID(&a.ID)
	return nil
}
