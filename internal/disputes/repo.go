package disputes

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindLineItem(ctx context.Context, id uuid.UUID) (*models.RequestLineItem, error)
	FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error)
	HasActive(ctx context.Context, lineItemID uuid.UUID) (bool, error)
	Create(ctx context.Context, dispute *models.Dispute) error
	CreateAttachments(ctx context.Context, attachments []models.Attachment) error
	Attachments(ctx context.Context, disputeID uuid.UUID) ([]models.Attachment, error)
	Transition(ctx context.Context, id uuid.UUID, from []enums.DisputeStatus, updates map[string]any) (bool, error)
	FlagActive(ctx context.Context, offerID, requestID uuid.UUID) error
	RecomputeFlags(ctx context.Context, offerID, requestID uuid.UUID) error
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

func (r *repository) FindLineItem(ctx context.Context, id uuid.UUID) (*models.RequestLineItem, error) {
	var item models.RequestLineItem
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
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

func (r *repository) FindDispute(ctx context.Context, id uuid.UUID) (*models.Dispute, error) {
	var dispute models.Dispute
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&dispute).Error; err != nil {
		return nil, err
	}
	return &dispute, nil
}

func (r *repository) HasActive(ctx context.Context, lineItemID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("line_item_id = ? AND status <> ?", lineItemID, enums.DisputeStatusClosed).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) Create(ctx context.Context, dispute *models.Dispute) error {
	return r.db.WithContext(ctx).Create(dispute).Error
}

func (r *repository) CreateAttachments(ctx context.Context, attachments []models.Attachment) error {
	if len(attachments) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&attachments).Error
}

func (r *repository) Attachments(ctx context.Context, disputeID uuid.UUID) ([]models.Attachment, error) {
	var rows []models.Attachment
	err := r.db.WithContext(ctx).
		Where("entity_type = ? AND entity_id = ?", enums.AttachmentEntityDispute, disputeID).
		Order("created_at ASC").
		Find(&rows).Error
	return rows, err
}

// Transition applies updates only while the dispute is in one of the from states.
func (r *repository) Transition(ctx context.Context, id uuid.UUID, from []enums.DisputeStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Dispute{}).
		Where("id = ? AND status IN ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) FlagActive(ctx context.Context, offerID, requestID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Model(&models.Offer{}).Where("id = ?", offerID).
		UpdateColumn("has_active_dispute", true).Error; err != nil {
		return err
	}
	return db.Model(&models.OrderRequest{}).Where("id = ?", requestID).
		UpdateColumn("has_active_dispute", true).Error
}

// RecomputeFlags derives has_active_dispute from the disputes that remain open.
func (r *repository) RecomputeFlags(ctx context.Context, offerID, requestID uuid.UUID) error {
	db := r.db.WithContext(ctx)
	err := db.Model(&models.Offer{}).Where("id = ?", offerID).
		UpdateColumn("has_active_dispute", gorm.Expr(
			"EXISTS (SELECT 1 FROM disputes d WHERE d.offer_id = ? AND d.status <> ?)",
			offerID, enums.DisputeStatusClosed)).Error
	if err != nil {
		return err
	}
	return db.Model(&models.OrderRequest{}).Where("id = ?", requestID).
		UpdateColumn("has_active_dispute", gorm.Expr(
			"EXISTS (SELECT 1 FROM disputes d WHERE d.order_request_id = ? AND d.status <> ?)",
			requestID, enums.DisputeStatusClosed)).Error
}
