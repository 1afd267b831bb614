package controllers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/validators"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/offers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/rewards"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type offerLineRequest struct {
	RequestedItemID   uuid.UUID       `json:"requestedItemId" validate:"required"`
	Quantity          int             `json:"quantity" validate:"min=0"`
	UnitPrice         decimal.Decimal `json:"unitPrice" validate:"money"`
	InStockQuantity   int             `json:"inStockQuantity" validate:"min=0"`
	BackorderQuantity int             `json:"backorderQuantity" validate:"min=0"`
	DeliveryDays      int             `json:"deliveryDays" validate:"min=0,max=365"`
}

type submitOfferRequest struct {
	LineItems  []offerLineRequest `json:"lineItems" validate:"required,min=1,dive"`
	DistanceKm *float64           `json:"distanceKm" validate:"omitempty,min=0"`
	Comment    *string            `json:"comment" validate:"omitempty,max=4000"`
}

// SubmitOffer creates or replaces the calling seller's offer on a request.
func SubmitOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body submitOfferRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := offers.SubmitInput{
			RequestID: requestID,
			Logistics: offers.Logistics{DistanceKm: body.DistanceKm},
			Comment:   body.Comment,
		}
		for _, li := range body.LineItems {
			input.LineItems = append(input.LineItems, offers.LineInput{
				RequestedItemID:   li.RequestedItemID,
				Quantity:          li.Quantity,
				UnitPrice:         li.UnitPrice,
				InStockQuantity:   li.InStockQuantity,
				BackorderQuantity: li.BackorderQuantity,
				DeliveryDays:      li.DeliveryDays,
			})
		}

		offer, err := svc.SubmitOffer(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]uuid.UUID{"offerId": offer.ID})
	}
}

// AcceptOffer selects one offer as the winner of the request.
func AcceptOffer(svc offers.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		requestID, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			return nil, err
		}
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			return nil, err
		}
		offer, err := svc.AcceptOffer(r.Context(), actor, requestID, offerID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"offerId": offer.ID, "status": offer.Status}, nil
	})
}

// OfferReward returns the marketplace reward computed for a completed offer.
func OfferReward(svc rewards.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		offerID, err := validators.ParseUUIDParam(r, "offerId")
		if err != nil {
			return nil, err
		}
		return svc.GetForOffer(r.Context(), offerID, actor)
	})
}
