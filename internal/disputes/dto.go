package disputes

import (
	"time"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

// MaxReasons caps the reasons a buyer may give.
const MaxReasons = 10

type AttachmentInput struct {
	FileKey     string
	Name        string
	ContentType string
	SizeBytes   int64
}

// OpenInput claims a quantity of one fulfilled line item.
type OpenInput struct {
	LineItemID  uuid.UUID
	Kind        enums.DisputeKind
	Quantity    int
	Reasons     []string
	Comment     *string
	Attachments []AttachmentInput
}

type DisputeDTO struct {
	ID                uuid.UUID           `json:"id"`
	OrderRequestID    uuid.UUID           `json:"orderRequestId"`
	OfferID           uuid.UUID           `json:"offerId"`
	LineItemID        uuid.UUID           `json:"lineItemId"`
	Kind              enums.DisputeKind   `json:"kind"`
	Status            enums.DisputeStatus `json:"status"`
	Rejected          bool                `json:"rejected"`
	RequestedQuantity int                 `json:"requestedQuantity"`
	ClaimedQuantity   int                 `json:"claimedQuantity"`
	Reasons           []string            `json:"reasons"`
	Comment           *string             `json:"comment,omitempty"`
	Reply             *string             `json:"reply,omitempty"`
	OpenedBy          uuid.UUID           `json:"openedBy"`
	ResolvedAt        *time.Time          `json:"resolvedAt,omitempty"`
	ClosedAt          *time.Time          `json:"closedAt,omitempty"`
	CreatedAt         time.Time           `json:"createdAt"`
	UpdatedAt         time.Time           `json:"updatedAt"`
	Attachments       []AttachmentDTO     `json:"attachments"`
}

type AttachmentDTO struct {
	ID          uuid.UUID `json:"id"`
	FileKey     string    `json:"fileKey"`
	Name        string    `json:"name"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
}

func toDTO(d *models.Dispute, attachments []models.Attachment) *DisputeDTO {
	out := &DisputeDTO{
		ID:                d.ID,
		OrderRequestID:    d.OrderRequestID,
		OfferID:           d.OfferID,
		LineItemID:        d.LineItemID,
		Kind:              d.Kind,
		Status:            d.Status,
		Rejected:          d.Rejected,
		RequestedQuantity: d.RequestedQuantity,
		ClaimedQuantity:   d.ClaimedQuantity,
		Reasons:           []string(d.Reasons),
		Comment:           d.Comment,
		Reply:             d.Reply,
		OpenedBy:          d.OpenedBy,
		ResolvedAt:        d.ResolvedAt,
		ClosedAt:          d.ClosedAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
		Attachments:       make([]AttachmentDTO, 0, len(attachments)),
	}
	if out.Reasons == nil {
		out.Reasons = []string{}
	}
	for _, a := range attachments {
		out.Attachments = append(out.Attachments, AttachmentDTO{
			ID:          a.ID,
			FileKey:     a.FileKey,
			Name:        a.Name,
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}
	return out
}
