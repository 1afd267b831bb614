// Package payloads holds the data section of every outbox envelope.
package payloads

import (
	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// OrderRequestCreatedEvent announces a new request to staff and eligible sellers.
type OrderRequestCreatedEvent struct {
	OrderRequestID    uuid.UUID   `json:"order_request_id"`
	BuyerID           uuid.UUID   `json:"buyer_id"`
	CategoryIDs       []uuid.UUID `json:"category_ids"`
	SelectedSellerIDs []uuid.UUID `json:"selected_seller_ids,omitempty"`
	LineItemCount     int         `json:"line_item_count"`
}

// OrderRequestDeclinedEvent marks a request terminally declined.
type OrderRequestDeclinedEvent struct {
	OrderRequestID uuid.UUID                `json:"order_request_id"`
	BuyerID        uuid.UUID                `json:"buyer_id"`
	PreviousStatus enums.OrderRequestStatus `json:"previous_status"`
	SellerIDs      []uuid.UUID              `json:"seller_ids,omitempty"`
}

// OfferSubmittedEvent is emitted on first submission and on every resubmission.
type OfferSubmittedEvent struct {
	OfferID        uuid.UUID `json:"offer_id"`
	OrderRequestID uuid.UUID `json:"order_request_id"`
	BuyerID        uuid.UUID `json:"buyer_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
	Resubmitted    bool      `json:"resubmitted"`
}

// OfferAcceptedEvent is emitted when the buyer selects the winning offer.
type OfferAcceptedEvent struct {
	OfferID        uuid.UUID `json:"offer_id"`
	OrderRequestID uuid.UUID `json:"order_request_id"`
	BuyerID        uuid.UUID `json:"buyer_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	OrganizationID uuid.UUID `json:"organization_id"`
}

// PaymentConfirmedEvent is emitted for both immediate and postponed payment.
type PaymentConfirmedEvent struct {
	OfferID        uuid.UUID                `json:"offer_id"`
	OrderRequestID uuid.UUID                `json:"order_request_id"`
	BuyerID        uuid.UUID                `json:"buyer_id"`
	SellerID       uuid.UUID                `json:"seller_id"`
	OrganizationID uuid.UUID                `json:"organization_id"`
	Status         enums.OrderRequestStatus `json:"status"`
}

// OfferCompletedEvent triggers reward calculation.
type OfferCompletedEvent struct {
	OfferID        uuid.UUID           `json:"offer_id"`
	OrderRequestID uuid.UUID           `json:"order_request_id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	SellerID       uuid.UUID           `json:"seller_id"`
	OrganizationID uuid.UUID           `json:"organization_id"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method,omitempty"`
}

// DisputeEvent covers dispute_opened, dispute_updated and dispute_closed.
type DisputeEvent struct {
	DisputeID      uuid.UUID           `json:"dispute_id"`
	OrderRequestID uuid.UUID           `json:"order_request_id"`
	OfferID        uuid.UUID           `json:"offer_id"`
	LineItemID     uuid.UUID           `json:"line_item_id"`
	BuyerID        uuid.UUID           `json:"buyer_id"`
	SellerID       uuid.UUID           `json:"seller_id"`
	OrganizationID uuid.UUID           `json:"organization_id"`
	Kind           enums.DisputeKind   `json:"kind"`
	Status         enums.DisputeStatus `json:"status"`
	Rejected       bool                `json:"rejected"`
}
