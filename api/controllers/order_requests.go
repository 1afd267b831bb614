package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/validators"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type lineItemRequest struct {
	ProductID   *uuid.UUID  `json:"productId"`
	Description *string     `json:"description" validate:"omitempty,max=2000"`
	BrandHint   *string     `json:"brandHint" validate:"omitempty,max=200"`
	CategoryIDs []uuid.UUID `json:"categoryIds" validate:"max=20"`
	Quantity    int         `json:"quantity" validate:"min=1"`
}

type attachmentRequest struct {
	FileKey     string `json:"fileKey" validate:"required,max=512"`
	Name        string `json:"name" validate:"required,max=255"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"min=1"`
}

type createOrderRequestRequest struct {
	Address           types.Address       `json:"address"`
	Comment           *string             `json:"comment" validate:"omitempty,max=4000"`
	LineItems         []lineItemRequest   `json:"lineItems" validate:"required,min=1,dive"`
	Attachments       []attachmentRequest `json:"attachments" validate:"max=20,dive"`
	SelectedSellerIDs []uuid.UUID         `json:"selectedSellerIds"`
}

func (c createOrderRequestRequest) input() requests.CreateInput {
	in := requests.CreateInput{
		Address:           c.Address,
		Comment:           c.Comment,
		SelectedSellerIDs: c.SelectedSellerIDs,
	}
	for _, li := range c.LineItems {
		in.LineItems = append(in.LineItems, requests.LineItemInput{
			ProductID:   li.ProductID,
			Description: li.Description,
			BrandHint:   li.BrandHint,
			CategoryIDs: li.CategoryIDs,
			Quantity:    li.Quantity,
		})
	}
	for _, a := range c.Attachments {
		in.Attachments = append(in.Attachments, requests.AttachmentInput{
			FileKey:     a.FileKey,
			Name:        a.Name,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}
	return in
}

// CreateOrderRequest opens a request for quotation for the calling buyer.
func CreateOrderRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createOrderRequestRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.CreateRequest(r.Context(), actor, body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]uuid.UUID{"orderRequestId": created.ID})
	}
}

// ListOrderRequests returns the caller's role-scoped listing.
func ListOrderRequests(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			return nil, err
		}
		params := requests.ListParams{
			Pagination: pagination.Params{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))},
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseOrderRequestStatus(raw)
			if err != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status")
			}
			params.Status = &status
		}
		return svc.ListForRole(r.Context(), actor, params)
	})
}

// GetOrderRequest returns the flat view of one request with its ranked offers.
func GetOrderRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			return nil, err
		}
		filter, err := enums.ParseOfferFilter(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("filterBy"))))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid filterBy")
		}
		target, err := validators.ParseQueryUUID(r, "filterProductId")
		if err != nil {
			return nil, err
		}
		return svc.GetView(r.Context(), id, actor, filter, target)
	})
}

// HideOrderRequest removes a request from staff listings.
func HideOrderRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) error {
		return svc.HideForStaff(r.Context(), id, actor)
	})
}

type paymentRequest struct {
	Postponed bool    `json:"postponed"`
	Method    *string `json:"paymentMethod"`
}

// ConfirmPayment records payment, or its postponement, on the accepted offer.
func ConfirmPayment(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body paymentRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := requests.PaymentInput{Postponed: body.Postponed}
		if body.Method != nil {
			method, err := enums.ParsePaymentMethod(strings.TrimSpace(*body.Method))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
					WithDetails(map[string]string{"paymentMethod": "is invalid"}))
				return
			}
			input.Method = &method
		}
		if err := svc.ConfirmPayment(r.Context(), id, actor, input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// CompleteOrderRequest marks a paid request delivered.
func CompleteOrderRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) error {
		return svc.Complete(r.Context(), id, actor)
	})
}

// DeclineOrderRequest cancels a request that has not been paid.
func DeclineOrderRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return requestAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) error {
		return svc.Decline(r.Context(), id, actor)
	})
}

func requestAction(logg *logger.Logger, action func(*http.Request, uuid.UUID, types.Actor) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := action(r, id, actor); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
