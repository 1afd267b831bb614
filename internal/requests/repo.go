package requests

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/catalog"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
)

// Repository persists order requests and reads the rows their views are assembled from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateRequest(ctx context.Context, req *models.OrderRequest) error
	CreateLineItems(ctx context.Context, items []models.RequestLineItem) error
	CreateLineItemCategories(ctx context.Context, rows []models.LineItemCategory) error
	CreateSelectedSellers(ctx context.Context, rows []models.RequestSelectedSeller) error
	CreateAttachments(ctx context.Context, rows []models.Attachment) error
	CreateNotification(ctx context.Context, n *models.Notification) error
	CountUsersWithRole(ctx context.Context, ids []uuid.UUID, role enums.Role) (int64, error)

	FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	ListRequests(ctx context.Context, q ListQuery) ([]models.OrderRequest, error)
	Hide(ctx context.Context, requestID, userID uuid.UUID) error
	SellerCanSee(ctx context.Context, requestID, sellerID uuid.UUID) (bool, error)
	StaleRequested(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error)

	UpdateRequestStatus(ctx context.Context, id uuid.UUID, from []enums.OrderRequestStatus, updates map[string]any) (bool, error)
	UpdateOfferStatus(ctx context.Context, id uuid.UUID, from []enums.OfferStatus, to enums.OfferStatus) (bool, error)
	SettleDeferredPayment(ctx context.Context, id uuid.UUID, at time.Time) (bool, error)

	Asks(ctx context.Context, requestID uuid.UUID) ([]models.RequestLineItem, error)
	OffersFor(ctx context.Context, requestIDs []uuid.UUID) ([]models.Offer, error)
	FulfillmentItems(ctx context.Context, offerIDs []uuid.UUID) ([]models.RequestLineItem, error)
	Attachments(ctx context.Context, entity enums.AttachmentEntity, entityID uuid.UUID) ([]models.Attachment, error)
}

// ListQuery scopes a listing to what one viewer may see.
type ListQuery struct {
	Role     enums.Role
	ViewerID uuid.UUID
	Status   *enums.OrderRequestStatus
	Cursor   *pagination.Cursor
	Limit    int
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) CreateRequest(ctx context.Context, req *models.OrderRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) CreateLineItems(ctx context.Context, items []models.RequestLineItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&items).Error
}

func (r *repository) CreateLineItemCategories(ctx context.Context, rows []models.LineItemCategory) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *repository) CreateSelectedSellers(ctx context.Context, rows []models.RequestSelectedSeller) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func (r *repository) CreateAttachments(ctx context.Context, rows []models.Attachment) error {
	if len(rows) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

func (r *repository) CreateNotification(ctx context.Context, n *models.Notification) error {
	return r.db.WithContext(ctx).Create(n).Error
}

func (r *repository) CountUsersWithRole(ctx context.Context, ids []uuid.UUID, role enums.Role) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id IN ? AND role = ?", ids, role).
		Count(&count).Error
	return count, err
}

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	var req models.OrderRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

// ListRequests returns one page plus a lookahead row, newest first.
func (r *repository) ListRequests(ctx context.Context, q ListQuery) ([]models.OrderRequest, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderRequest{})

	switch q.Role {
	case enums.RoleBuyer:
		query = query.Where("order_requests.buyer_id = ?", q.ViewerID)
	case enums.RoleSeller:
		query = query.Where(
			"(order_requests.id IN (?) OR EXISTS (SELECT 1 FROM offers o WHERE o.order_request_id = order_requests.id AND o.seller_id = ?))",
			catalog.RoutedToSeller(q.ViewerID), q.ViewerID,
		)
	case enums.RoleStaff:
		query = query.Where(
			"NOT EXISTS (SELECT 1 FROM order_request_hidden h WHERE h.order_request_id = order_requests.id AND h.user_id = ?)",
			q.ViewerID,
		)
	default:
		panic("requests: unhandled role " + string(q.Role))
	}

	if q.Status != nil {
		query = query.Where("order_requests.status = ?", *q.Status)
	}

	var rows []models.OrderRequest
	err := query.Scopes(pagination.Keyset("order_requests", q.Cursor, q.Limit)).Find(&rows).Error
	return rows, err
}

func (r *repository) Hide(ctx context.Context, requestID, userID uuid.UUID) error {
	row := models.OrderRequestHidden{OrderRequestID: requestID, UserID: userID}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}

// SellerCanSee covers routing and sellers that already hold an offer on the request.
func (r *repository) SellerCanSee(ctx context.Context, requestID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("order_requests.id = ?", requestID).
		Where(
			"(order_requests.id IN (?) OR EXISTS (SELECT 1 FROM offers o WHERE o.order_request_id = order_requests.id AND o.seller_id = ?))",
			catalog.RoutedToSeller(sellerID), sellerID,
		).
		Count(&count).Error
	return count > 0, err
}

// StaleRequested lists REQUESTED requests created before cutoff that never received an offer.
func (r *repository) StaleRequested(ctx context.Context, cutoff time.Time, limit int) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("status = ? AND created_at < ?", enums.OrderRequestStatusRequested, cutoff).
		Where("NOT EXISTS (SELECT 1 FROM offers o WHERE o.order_request_id = order_requests.id)").
		Order("created_at ASC").
		Limit(limit).
		Pluck("id", &ids).Error
	return ids, err
}

// UpdateRequestStatus applies updates only while the row is still in one of the from states.
func (r *repository) UpdateRequestStatus(ctx context.Context, id uuid.UUID, from []enums.OrderRequestStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) UpdateOfferStatus(ctx context.Context, id uuid.UUID, from []enums.OfferStatus, to enums.OfferStatus) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SettleDeferredPayment stamps paid_at on a completed request whose payment was postponed.
func (r *repository) SettleDeferredPayment(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ? AND status = ? AND paid_at IS NULL", id, enums.OrderRequestStatusCompleted).
		Update("paid_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) Asks(ctx context.Context, requestID uuid.UUID) ([]models.RequestLineItem, error) {
	var items []models.RequestLineItem
	err := r.db.WithContext(ctx).
		Where("order_request_id = ? AND offer_id IS NULL", requestID).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) OffersFor(ctx context.Context, requestIDs []uuid.UUID) ([]models.Offer, error) {
	if len(requestIDs) == 0 {
		return []models.Offer{}, nil
	}
	var offers []models.Offer
	err := r.db.WithContext(ctx).
		Where("order_request_id IN ?", requestIDs).
		Order("created_at DESC").
		Find(&offers).Error
	return offers, err
}

func (r *repository) FulfillmentItems(ctx context.Context, offerIDs []uuid.UUID) ([]models.RequestLineItem, error) {
	if len(offerIDs) == 0 {
		return []models.RequestLineItem{}, nil
	}
	var items []models.RequestLineItem
	err := r.db.WithContext(ctx).
		Where("offer_id IN ?", offerIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&items).Error
	return items, err
}

func (r *repository) Attachments(ctx context.Context, entity enums.AttachmentEntity, entityID uuid.UUID) ([]models.Attachment, error) {
	var rows []models.Attachment
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", entity, entityID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}
