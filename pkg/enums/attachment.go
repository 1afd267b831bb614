package enums

import "slices"

// AttachmentEntity names the aggregate an uploaded file belongs to.
type AttachmentEntity string

const (
	AttachmentEntityOrderRequest AttachmentEntity = "order_request"
	AttachmentEntityDispute      AttachmentEntity = "dispute"
)

var validAttachmentEntities = []AttachmentEntity{
	AttachmentEntityOrderRequest,
	AttachmentEntityDispute,
}

func (a AttachmentEntity) IsValid() bool {
	return slices.Contains(validAttachmentEntities, a)
}

func ParseAttachmentEntity(value string) (AttachmentEntity, error) {
	return parse(validAttachmentEntities, value, "attachment entity")
}
