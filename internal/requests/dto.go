package requests

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/status"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

// MaxLineItems caps the asks accepted in one request.
const MaxLineItems = 100

// LineItemInput is one ask: a catalog product or a described part.
type LineItemInput struct {
	ProductID   *uuid.UUID
	Description *string
	BrandHint   *string
	CategoryIDs []uuid.UUID
	Quantity    int
}

// AttachmentInput references a file already placed in the file store.
type AttachmentInput struct {
	FileKey     string
	Name        string
	ContentType string
	SizeBytes   int64
}

// CreateInput carries everything a buyer submits in one request.
type CreateInput struct {
	Address           types.Address
	Comment           *string
	LineItems         []LineItemInput
	Attachments       []AttachmentInput
	SelectedSellerIDs []uuid.UUID
}

// ListParams filters a role-scoped listing.
type ListParams struct {
	Status     *enums.OrderRequestStatus
	Pagination pagination.Params
}

// PaymentInput confirms or postpones payment on the accepted offer.
type PaymentInput struct {
	Postponed bool
	Method    *enums.PaymentMethod
}

// Summary is one row of a listing.
type Summary struct {
	ID               uuid.UUID                `json:"id"`
	BuyerID          uuid.UUID                `json:"buyerId"`
	Status           enums.OrderRequestStatus `json:"status"`
	Label            status.Label             `json:"label"`
	OfferCount       int                      `json:"offerCount"`
	HasActiveDispute bool                     `json:"hasActiveDispute"`
	City             string                   `json:"city"`
	CreatedAt        time.Time                `json:"createdAt"`
}

// View is the flat read model returned for one request.
type View struct {
	OrderRequest    RequestDTO  `json:"orderRequest"`
	Offers          []OfferDTO  `json:"offers"`
	RankedSelection []uuid.UUID `json:"rankedSelection"`
}

type RequestDTO struct {
	ID               uuid.UUID                `json:"id"`
	BuyerID          uuid.UUID                `json:"buyerId"`
	Status           enums.OrderRequestStatus `json:"status"`
	Label            status.Label             `json:"label"`
	DeliveryAddress  types.Address            `json:"deliveryAddress"`
	Comment          *string                  `json:"comment,omitempty"`
	PaymentMethod    *enums.PaymentMethod     `json:"paymentMethod,omitempty"`
	SelectedOfferID  *uuid.UUID               `json:"selectedOfferId,omitempty"`
	HasActiveDispute bool                     `json:"hasActiveDispute"`
	PaidAt           *time.Time               `json:"paidAt,omitempty"`
	CompletedAt      *time.Time               `json:"completedAt,omitempty"`
	CreatedAt        time.Time                `json:"createdAt"`
	LineItems        []LineItemDTO            `json:"lineItems"`
	Attachments      []AttachmentDTO          `json:"attachments"`
}

type OfferDTO struct {
	ID               uuid.UUID         `json:"id"`
	SellerID         uuid.UUID         `json:"sellerId"`
	OrganizationID   uuid.UUID         `json:"organizationId"`
	Status           enums.OfferStatus `json:"status"`
	DistanceKm       float64           `json:"distanceKm"`
	Comment          *string           `json:"comment,omitempty"`
	IsSelected       bool              `json:"isSelected"`
	HasActiveDispute bool              `json:"hasActiveDispute"`
	Total            decimal.Decimal   `json:"total"`
	CreatedAt        time.Time         `json:"createdAt"`
	LineItems        []LineItemDTO     `json:"lineItems"`
}

type LineItemDTO struct {
	ID                uuid.UUID       `json:"id"`
	RequestedItemID   *uuid.UUID      `json:"requestedItemId,omitempty"`
	ProductID         *uuid.UUID      `json:"productId,omitempty"`
	Description       *string         `json:"description,omitempty"`
	BrandHint         *string         `json:"brandHint,omitempty"`
	Quantity          int             `json:"quantity"`
	Count             int             `json:"count"`
	UnitPrice         decimal.Decimal `json:"unitPrice"`
	InStockQuantity   int             `json:"inStockQuantity"`
	BackorderQuantity int             `json:"backorderQuantity"`
	DeliveryDays      int             `json:"deliveryDays"`
}

type AttachmentDTO struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	URL         string    `json:"url,omitempty"`
}

func lineItemDTO(item models.RequestLineItem) LineItemDTO {
	return LineItemDTO{
		ID:                item.ID,
		RequestedItemID:   item.RequestedItemID,
		ProductID:         item.ProductID,
		Description:       item.Description,
		BrandHint:         item.BrandHint,
		Quantity:          item.Quantity,
		Count:             item.Count,
		UnitPrice:         item.UnitPrice,
		InStockQuantity:   item.InStockQuantity,
		BackorderQuantity: item.BackorderQuantity,
		DeliveryDays:      item.DeliveryDays,
	}
}

func lineItemDTOs(items []models.RequestLineItem) []LineItemDTO {
	out := make([]LineItemDTO, 0, len(items))
	for _, item := range items {
		out = append(out, lineItemDTO(item))
	}
	return out
}
