package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
)

// routedSQL selects open requests routed to one seller. Category matching applies only to
// requests without explicit targeting; a targeted request reaches its named sellers only.
const routedSQL = `
SELECT li.order_request_id FROM request_line_items li
  JOIN order_requests r ON r.id = li.order_request_id
  JOIN product_categories pc ON pc.product_id = li.product_id
  JOIN seller_categories sc ON sc.category_id = pc.category_id
 WHERE li.offer_id IS NULL AND sc.seller_id = ? AND r.status = 'REQUESTED'
   AND NOT EXISTS (SELECT 1 FROM request_selected_sellers t WHERE t.order_request_id = li.order_request_id)
UNION
SELECT li.order_request_id FROM request_line_items li
  JOIN order_requests r ON r.id = li.order_request_id
  JOIN line_item_categories lc ON lc.line_item_id = li.id
  JOIN seller_categories sc ON sc.category_id = lc.category_id
 WHERE li.offer_id IS NULL AND sc.seller_id = ? AND r.status = 'REQUESTED'
   AND NOT EXISTS (SELECT 1 FROM request_selected_sellers t WHERE t.order_request_id = li.order_request_id)
UNION
SELECT t.order_request_id FROM request_selected_sellers t
  JOIN order_requests r ON r.id = t.order_request_id
 WHERE t.seller_id = ? AND r.status = 'REQUESTED'`

// RoutedToSeller is a subquery of order request ids open to sellerID. Use it as
// Where("order_requests.id IN (?)", RoutedToSeller(id)).
func RoutedToSeller(sellerID uuid.UUID) clause.Expr {
	return gorm.Expr(routedSQL, sellerID, sellerID, sellerID)
}

// SellerMatches reports whether the request is routed to the seller right now.
func (r *Repository) SellerMatches(ctx context.Context, requestID, sellerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("order_requests").
		Where("order_requests.id = ?", requestID).
		Where("order_requests.id IN (?)", RoutedToSeller(sellerID)).
		Count(&count).Error
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "match seller to request")
	}
	return count > 0, nil
}
