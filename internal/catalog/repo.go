// Package catalog is the read-only view of products, categories and the categories sellers trade in.
package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
)

// Lookup is what request and offer services need from the catalog.
type Lookup interface {
	FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindDescribedProductCategories(ctx context.Context, ids []uuid.UUID) ([]models.Category, error)
	ProductCategoryIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error)
	SellerCategoryIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error)
	SellersTrading(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error)
	SellerMatches(ctx context.Context, requestID, sellerID uuid.UUID) (bool, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

// FindProduct returns a NOT_FOUND error when the product does not exist.
func (r *Repository) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error; err != nil {
		return nil, pkgerrors.Load(err, "product")
	}
	return &product, nil
}

// FindDescribedProductCategories loads the categories hinted on described line items.
// Unknown ids are silently absent from the result; callers compare lengths.
func (r *Repository) FindDescribedProductCategories(ctx context.Context, ids []uuid.UUID) ([]models.Category, error) {
	if len(ids) == 0 {
		return []models.Category{}, nil
	}
	var categories []models.Category
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("name ASC").Find(&categories).Error; err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "find categories")
	}
	return categories, nil
}

func (r *Repository) ProductCategoryIDs(ctx context.Context, productIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(productIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.ProductCategory{}).
		Distinct("category_id").
		Where("product_id IN ?", productIDs).
		Pluck("category_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product categories")
	}
	return ids, nil
}

func (r *Repository) SellerCategoryIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SellerCategory{}).
		Where("seller_id = ?", sellerID).
		Pluck("category_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller categories")
	}
	return ids, nil
}

// SellersTrading lists sellers trading in at least one of the categories.
func (r *Repository) SellersTrading(ctx context.Context, categoryIDs []uuid.UUID) ([]uuid.UUID, error) {
	if len(categoryIDs) == 0 {
		return []uuid.UUID{}, nil
	}
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.SellerCategory{}).
		Distinct("seller_id").
		Where("category_id IN ?", categoryIDs).
		Pluck("seller_id", &ids).Error
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sellers by category")
	}
	return ids, nil
}
