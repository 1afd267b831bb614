package offers

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error)
	FindUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	Asks(ctx context.Context, requestID uuid.UUID) ([]models.RequestLineItem, error)
	FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error)
	FindOfferBySeller(ctx context.Context, requestID, sellerID uuid.UUID) (*models.Offer, error)
	UpsertOffer(ctx context.Context, offer *models.Offer) error
	ReplaceLines(ctx context.Context, offerID uuid.UUID, lines []models.RequestLineItem) error
	Lines(ctx context.Context, offerID uuid.UUID) ([]models.RequestLineItem, error)
	SelectOffer(ctx context.Context, requestID, offerID uuid.UUID) (bool, error)
	MarkAccepted(ctx context.Context, offerID uuid.UUID) (bool, error)
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

func (r *repository) FindRequest(ctx context.Context, id uuid.UUID) (*models.OrderRequest, error) {
	var req models.OrderRequest
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repository) Asks(ctx context.Context, requestID uuid.UUID) ([]models.RequestLineItem, error) {
	var items []models.RequestLineItem
	err := r.db.WithContext(ctx).
		Where("order_request_id = ? AND offer_id IS NULL", requestID).
		Find(&items).Error
	return items, err
}

func (r *repository) FindOffer(ctx context.Context, id uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindOfferBySeller(ctx context.Context, requestID, sellerID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	err := r.db.WithContext(ctx).
		Where("order_request_id = ? AND seller_id = ?", requestID, sellerID).
		First(&offer).Error
	if err != nil {
		return nil, err
	}
	return &offer, nil
}

// UpsertOffer relies on the (order_request_id, seller_id) unique constraint so concurrent
// submissions by one seller collapse into a single row.
func (r *repository) UpsertOffer(ctx context.Context, offer *models.Offer) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_request_id"}, {Name: "seller_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"distance_km", "comment", "updated_at"}),
		}).
		Create(offer).Error
}

func (r *repository) ReplaceLines(ctx context.Context, offerID uuid.UUID, lines []models.RequestLineItem) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("offer_id = ?", offerID).Delete(&models.RequestLineItem{}).Error; err != nil {
		return err
	}
	if len(lines) == 0 {
		return nil
	}
	return db.Create(&lines).Error
}

func (r *repository) Lines(ctx context.Context, offerID uuid.UUID) ([]models.RequestLineItem, error) {
	var items []models.RequestLineItem
	err := r.db.WithContext(ctx).Where("offer_id = ?", offerID).Find(&items).Error
	return items, err
}

// SelectOffer moves the request to APPROVED only while it is still REQUESTED.
func (r *repository) SelectOffer(ctx context.Context, requestID, offerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderRequest{}).
		Where("id = ? AND status = ?", requestID, enums.OrderRequestStatusRequested).
		Updates(map[string]any{
			"status":            enums.OrderRequestStatusApproved,
			"selected_offer_id": offerID,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repository) MarkAccepted(ctx context.Context, offerID uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Offer{}).
		Where("id = ? AND status = ?", offerID, enums.OfferStatusSubmitted).
		Updates(map[string]any{
			"status":      enums.OfferStatusApproved,
			"is_selected": true,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
