package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
)

// Repository exposes persistence helpers for notifications.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, notification *models.Notification) (bool, error)
	List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error)
	Unread(ctx context.Context, userID uuid.UUID, role enums.Role) ([]Row, error)
	MarkViewed(ctx context.Context, userID uuid.UUID, role *enums.Role, ids []uuid.UUID, now time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error)
	StaffIDs(ctx context.Context) ([]uuid.UUID, error)
	SellersTrading(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error)
	TouchRequest(ctx context.Context, requestID uuid.UUID, column string, at time.Time) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a notifications repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

type listNotificationsParams struct {
	UserID     uuid.UUID
	Role       enums.Role
	Limit      int
	Cursor     *pagination.Cursor
	UnreadOnly bool
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

// Create inserts the row unless the same event already reached this recipient.
func (r *repositoryImpl) Create(ctx context.Context, notification *models.Notification) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:     []clause.Column{{Name: "event_id"}, {Name: "user_id"}, {Name: "role"}},
			TargetWhere: clause.Where{Exprs: []clause.Expression{clause.Expr{SQL: "event_id IS NOT NULL"}}},
			DoNothing:   true,
		}).
		Create(notification)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repositoryImpl) List(ctx context.Context, params listNotificationsParams) ([]models.Notification, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND role = ?", params.UserID, params.Role)
	if params.UnreadOnly {
		query = query.Where("viewed_at IS NULL")
	}

	var notifications []models.Notification
	err := query.Scopes(pagination.Keyset("", params.Cursor, params.Limit)).Find(&notifications).Error
	return notifications, err
}

const unreadSQL = `
SELECT n.id, n.type, n.order_request_id, n.offer_id, n.dispute_id,
	r.status AS request_status,
	CASE WHEN o.id IS NOT NULL AND r.selected_offer_id = o.id THEN TRUE ELSE FALSE END AS offer_selected
FROM notifications n
LEFT JOIN order_requests r ON r.id = n.order_request_id
LEFT JOIN offers o ON o.id = n.offer_id
	OR (o.order_request_id = n.order_request_id AND o.seller_id = n.user_id)
WHERE n.user_id = ? AND n.role = ? AND n.viewed_at IS NULL
ORDER BY n.id, offer_selected DESC`

// Unread returns unread rows; a row joined through both offer paths appears twice.
func (r *repositoryImpl) Unread(ctx context.Context, userID uuid.UUID, role enums.Role) ([]Row, error) {
	var rows []Row
	err := r.db.WithContext(ctx).Raw(unreadSQL, userID, role).Scan(&rows).Error
	return rows, err
}

func (r *repositoryImpl) MarkViewed(ctx context.Context, userID uuid.UUID, role *enums.Role, ids []uuid.UUID, now time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := r.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND id IN ? AND viewed_at IS NULL", userID, ids)
	if role != nil {
		query = query.Where("role = ?", *role)
	}
	res := query.UpdateColumn("viewed_at", now)
	return res.RowsAffected, res.Error
}

// DeleteOlderThan removes viewed notifications created before cutoff.
func (r *repositoryImpl) DeleteOlderThan(ctx context.Context, tx *gorm.DB, cutoff time.Time) (int64, error) {
	db := r.db
	if tx != nil {
		db = tx
	}
	res := db.WithContext(ctx).
		Where("created_at < ? AND viewed_at IS NOT NULL", cutoff).
		Delete(&models.Notification{})
	return res.RowsAffected, res.Error
}

func (r *repositoryImpl) StaffIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("role = ?", enums.RoleStaff).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repositoryImpl) SellersTrading(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Table("seller_categories sc").
		Joins("JOIN users u ON u.id = sc.seller_id AND u.role = ?", enums.RoleSeller).
		Where("sc.category_id IN ?", categoryIDs).
		Distinct().
		Order("sc.seller_id").
		Pluck("sc.seller_id", &ids).Error
	return ids, err
}

// TouchRequest stamps buyer_last_notified_at or staff_last_notified_at.
func (r *repositoryImpl) TouchRequest(ctx context.Context, requestID uuid.UUID, column string, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ?", requestID).
		UpdateColumn(column, at).Error
}
