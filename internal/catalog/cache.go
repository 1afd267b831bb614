package catalog

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
)

// Cache memoizes product and seller lookups for the lifetime of one request.
// Create one per call; it is never shared between requests.
type Cache struct {
	Lookup

	mu       sync.Mutex
	products map[uuid.UUID]*models.Product
	sellers  map[uuid.UUID][]uuid.UUID
}

func NewCache(lookup Lookup) *Cache {
	return &Cache{
		Lookup:   lookup,
		products: make(map[uuid.UUID]*models.Product),
		sellers:  make(map[uuid.UUID][]uuid.UUID),
	}
}

func (c *Cache) FindProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	c.mu.Lock()
	product, ok := c.products[id]
	c.mu.Unlock()
	if ok {
		return product, nil
	}

	product, err := c.Lookup.FindProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.products[id] = product
	c.mu.Unlock()
	return product, nil
}

func (c *Cache) SellerCategoryIDs(ctx context.Context, sellerID uuid.UUID) ([]uuid.UUID, error) {
	c.mu.Lock()
	ids, ok := c.sellers[sellerID]
	c.mu.Unlock()
	if ok {
		return ids, nil
	}

	ids, err := c.Lookup.SellerCategoryIDs(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.sellers[sellerID] = ids
	c.mu.Unlock()
	return ids, nil
}
