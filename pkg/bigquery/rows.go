package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"
)

// RewardRow is one calculated seller reward as stored in the warehouse.
// Money columns are fixed-point strings so no precision is lost in transit.
type RewardRow struct {
	RewardID          string    `bigquery:"reward_id"`
	OfferID           string    `bigquery:"offer_id"`
	OrderRequestID    string    `bigquery:"order_request_id"`
	OrganizationID    string    `bigquery:"organization_id"`
	TotalPrice        string    `bigquery:"total_price"`
	CommissionPercent string    `bigquery:"commission_percent"`
	Amount            string    `bigquery:"amount"`
	CalculatedAt      time.Time `bigquery:"calculated_at"`
	ExportedAt        time.Time `bigquery:"exported_at"`
}

// Save keys the streaming insert on reward_id.
func (r *RewardRow) Save() (map[string]bigquery.Value, string, error) {
	return map[string]bigquery.Value{
		"reward_id":          r.RewardID,
		"offer_id":           r.OfferID,
		"order_request_id":   r.OrderRequestID,
		"organization_id":    r.OrganizationID,
		"total_price":        r.TotalPrice,
		"commission_percent": r.CommissionPercent,
		"amount":             r.Amount,
		"calculated_at":      r.CalculatedAt,
		"exported_at":        r.ExportedAt,
	}, r.RewardID, nil
}
