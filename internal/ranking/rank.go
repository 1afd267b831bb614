// Package ranking orders the offers of one request for the buyer's comparison view.
package ranking

import (
	"cmp"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// TopN is how many offers the PRICE and DELIVERY selections keep.
const TopN = 3

type Line struct {
	ProductID    *uuid.UUID
	Count        int
	UnitPrice    decimal.Decimal
	InStock      int
	Backorder    int
	DeliveryDays int
}

type Offer struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	DistanceKm float64
	Lines      []Line
}

// Total sums count × unit price over lines matching target, or all lines when target is nil.
func (o Offer) Total(target *uuid.UUID) (decimal.Decimal, bool) {
	total := decimal.Zero
	matched := false
	for _, l := range o.Lines {
		if target != nil && (l.ProductID == nil || *l.ProductID != *target) {
			continue
		}
		matched = true
		total = total.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Count))))
	}
	return total, matched
}

type deliveryStats struct {
	count, inStock, backorder, days int
}

func (o Offer) delivery() deliveryStats {
	var s deliveryStats
	for _, l := range o.Lines {
		s.count += l.Count
		s.inStock += l.InStock
		s.backorder += l.Backorder
		s.days += l.DeliveryDays
	}
	return s
}

// Rank returns the buyer-facing selection. The input slice is not modified.
func Rank(offers []Offer, filter enums.OfferFilter, target *uuid.UUID) []Offer {
	switch filter {
	case enums.OfferFilterPrice:
		return byPrice(offers, target)
	case enums.OfferFilterDelivery:
		return byDelivery(offers)
	default:
		return byRecency(offers)
	}
}

func byPrice(offers []Offer, target *uuid.UUID) []Offer {
	type priced struct {
		offer Offer
		total decimal.Decimal
	}
	candidates := make([]priced, 0, len(offers))
	for _, o := range offers {
		total, matched := o.Total(target)
		if target != nil && !matched {
			continue
		}
		candidates = append(candidates, priced{offer: o, total: total})
	}
	slices.SortStableFunc(candidates, func(a, b priced) int {
		if c := a.total.Cmp(b.total); c != 0 {
			return c
		}
		return a.offer.CreatedAt.Compare(b.offer.CreatedAt)
	})

	out := make([]Offer, 0, min(len(candidates), TopN))
	for _, c := range candidates[:min(len(candidates), TopN)] {
		out = append(out, c.offer)
	}
	return out
}

func byDelivery(offers []Offer) []Offer {
	type scored struct {
		offer Offer
		stats deliveryStats
	}
	candidates := make([]scored, 0, len(offers))
	for _, o := range offers {
		candidates = append(candidates, scored{offer: o, stats: o.delivery()})
	}
	slices.SortStableFunc(candidates, func(a, b scored) int {
		aStock, bStock := a.stats.inStock > 0, b.stats.inStock > 0
		if aStock != bStock {
			if aStock {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(a.stats.count, b.stats.count); c != 0 {
			return c
		}
		if c := cmp.Compare(a.offer.DistanceKm, b.offer.DistanceKm); c != 0 {
			return c
		}
		if c := cmp.Compare(b.stats.inStock, a.stats.inStock); c != 0 {
			return c
		}
		if c := cmp.Compare(b.stats.backorder, a.stats.backorder); c != 0 {
			return c
		}
		return cmp.Compare(a.stats.days, b.stats.days)
	})

	out := make([]Offer, 0, min(len(candidates), TopN))
	for _, c := range candidates[:min(len(candidates), TopN)] {
		out = append(out, c.offer)
	}
	return out
}

func byRecency(offers []Offer) []Offer {
	out := slices.Clone(offers)
	slices.SortStableFunc(out, func(a, b Offer) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out
}

// FromModels groups fulfillment line items under their offers.
func FromModels(offers []models.Offer, items []models.RequestLineItem) []Offer {
	linesByOffer := make(map[uuid.UUID][]Line, len(offers))
	for _, item := range items {
		if item.OfferID == nil {
			continue
		}
		linesByOffer[*item.OfferID] = append(linesByOffer[*item.OfferID], Line{
			ProductID:    item.ProductID,
			Count:        item.Count,
			UnitPrice:    item.UnitPrice,
			InStock:      item.InStockQuantity,
			Backorder:    item.BackorderQuantity,
			DeliveryDays: item.DeliveryDays,
		})
	}

	out := make([]Offer, 0, len(offers))
	for _, o := range offers {
		out = append(out, Offer{
			ID:         o.ID,
			CreatedAt:  o.CreatedAt,
			DistanceKm: o.DistanceKm,
			Lines:      linesByOffer[o.ID],
		})
	}
	return out
}

// IDs returns the offer ids in ranked order.
func IDs(offers []Offer) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.ID)
	}
	return ids
}
