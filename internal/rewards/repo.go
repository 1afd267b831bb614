package rewards

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// Repository persists rewards and reads the offer facts they derive from.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOffer(ctx context.Context, offerID uuid.UUID) (*models.Offer, error)
	FindRequest(ctx context.Context, requestID uuid.UUID) (*models.OrderRequest, error)
	FulfillmentLines(ctx context.Context, offerID uuid.UUID) ([]models.RequestLineItem, error)
	Upsert(ctx context.Context, reward *models.Reward) error
	FindByOffer(ctx context.Context, offerID uuid.UUID) (*models.Reward, error)
	ListUnexported(ctx context.Context, limit int) ([]models.Reward, error)
	MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
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

func (r *repository) FindOffer(ctx context.Context, offerID uuid.UUID) (*models.Offer, error) {
	var offer models.Offer
	if err := r.db.WithContext(ctx).Where("id = ?", offerID).First(&offer).Error; err != nil {
		return nil, err
	}
	return &offer, nil
}

func (r *repository) FindRequest(ctx context.Context, requestID uuid.UUID) (*models.OrderRequest, error) {
	var req models.OrderRequest
	if err := r.db.WithContext(ctx).Where("id = ?", requestID).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FulfillmentLines(ctx context.Context, offerID uuid.UUID) ([]models.RequestLineItem, error) {
	var lines []models.RequestLineItem
	err := r.db.WithContext(ctx).
		Where("offer_id = ?", offerID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error
	return lines, err
}

// Upsert is keyed by offer_id so recomputation updates the row in place.
func (r *repository) Upsert(ctx context.Context, reward *models.Reward) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "offer_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_price", "commission_percent", "amount", "updated_at"}),
	}).Create(reward).Error
}

func (r *repository) FindByOffer(ctx context.Context, offerID uuid.UUID) (*models.Reward, error) {
	var reward models.Reward
	if err := r.db.WithContext(ctx).Where("offer_id = ?", offerID).First(&reward).Error; err != nil {
		return nil, err
	}
	return &reward, nil
}

func (r *repository) ListUnexported(ctx context.Context, limit int) ([]models.Reward, error) {
	var rewards []models.Reward
	err := r.db.WithContext(ctx).
		Where("exported_at IS NULL").
		Order("created_at ASC, id ASC").
		Limit(limit).
		Find(&rewards).Error
	return rewards, err
}

func (r *repository) MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&models.Reward{}).
		Where("id IN ? AND exported_at IS NULL", ids).
		UpdateColumn("exported_at", at)
	return res.RowsAffected, res.Error
}

// CommissionConfig resolves the commission percent owed by an organization.
type CommissionConfig interface {
	CommissionPercentFor(ctx context.Context, organizationID uuid.UUID, method *enums.PaymentMethod) (decimal.Decimal, error)
}

type commissionTable struct {
	db       *gorm.DB
	fallback decimal.Decimal
}

// NewCommissionTable reads organization_commissions and falls back to the configured default.
func NewCommissionTable(db *gorm.DB, fallbackPercent string) (CommissionConfig, error) {
	fallback, err := decimal.NewFromString(fallbackPercent)
	if err != nil {
		return nil, err
	}
	if fallback.IsNegative() {
		return nil, errors.New("default commission percent must not be negative")
	}
	return &commissionTable{db: db, fallback: fallback}, nil
}

// CommissionPercentFor prefers the organization's rate for the payment method.
// Without a method, or without a row for it, the organization's lowest
// negotiated rate applies before the configured default.
func (c *commissionTable) CommissionPercentFor(ctx context.Context, organizationID uuid.UUID, method *enums.PaymentMethod) (decimal.Decimal, error) {
	var row models.OrganizationCommission
	if method != nil {
		err := c.db.WithContext(ctx).
			Where("organization_id = ? AND payment_method = ?", organizationID, *method).
			First(&row).Error
		if err == nil {
			return row.Percent, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, err
		}
	}
	err := c.db.WithContext(ctx).
		Where("organization_id = ?", organizationID).
		Order("percent ASC").Order("payment_method ASC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.fallback, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return row.Percent, nil
}
