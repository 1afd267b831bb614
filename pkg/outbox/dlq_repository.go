package outbox

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

const defaultDLQLimit = 50

// ErrNotDeadLettered is returned by Replay for an event with no dead-letter row.
var ErrNotDeadLettered = errors.New("event is not dead-lettered")

// DLQRepository keeps outbox rows the relay gave up on so an operator can inspect
// and replay them.
type DLQRepository struct {
	db *gorm.DB
}

func NewDLQRepository(db *gorm.DB) *DLQRepository {
	return &DLQRepository{db: db}
}

// DeadLetterTx records why event was abandoned.
func (r *DLQRepository) DeadLetterTx(tx *gorm.DB, event models.OutboxEvent, reason enums.OutboxDLQErrorReason, cause error) error {
	if tx == nil {
		return errors.New("transaction required")
	}
	if !reason.IsValid() {
		return fmt.Errorf("invalid dead-letter reason %q", reason)
	}
	entry := event.DeadLetter(reason, cause, time.Now())
	return tx.Create(&entry).Error
}

// DLQFilter narrows List. Zero values match everything.
type DLQFilter struct {
	EventType enums.OutboxEventType
	Limit     int
}

// List returns the newest dead letters first.
func (r *DLQRepository) List(ctx context.Context, filter DLQFilter) ([]models.OutboxDLQ, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDLQLimit
	}
	q := r.db.WithContext(ctx).Order("failed_at DESC").Limit(limit)
	if filter.EventType != "" {
		q = q.Where("event_type = ?", filter.EventType)
	}
	var rows []models.OutboxDLQ
	return rows, q.Find(&rows).Error
}

// Replay puts a dead-lettered event back in the publish queue under its original ID,
// so consumers still deduplicate it. The outbox row is recreated when retention
// already removed it.
func (r *DLQRepository) Replay(ctx context.Context, eventID uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var dead models.OutboxDLQ
		err := tx.Where("event_id = ?", eventID).Order("failed_at DESC").First(&dead).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotDeadLettered
		}
		if err != nil {
			return err
		}

		res := tx.Model(&models.OutboxEvent{}).
			Where("id = ?", eventID).
			Updates(map[string]any{
				"attempt_count": 0,
				"last_error":    nil,
				"published_at":  nil,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			requeued := dead.Requeue()
			if err := tx.Create(&requeued).Error; err != nil {
				return fmt.Errorf("recreate outbox row: %w", err)
			}
		}
		return tx.Where("event_id = ?", eventID).Delete(&models.OutboxDLQ{}).Error
	})
}
