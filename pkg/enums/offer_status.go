package enums

import "slices"

// OfferStatus mirrors the request lifecycle subset an offer goes through.
type OfferStatus string

const (
	OfferStatusSubmitted        OfferStatus = "SUBMITTED"
	OfferStatusApproved         OfferStatus = "APPROVED"
	OfferStatusPaid             OfferStatus = "PAID"
	OfferStatusPaymentPostponed OfferStatus = "PAYMENT_POSTPONED"
	OfferStatusCompleted        OfferStatus = "COMPLETED"
	OfferStatusDeclined         OfferStatus = "DECLINED"
)

var validOfferStatuses = []OfferStatus{
	OfferStatusSubmitted,
	OfferStatusApproved,
	OfferStatusPaid,
	OfferStatusPaymentPostponed,
	OfferStatusCompleted,
	OfferStatusDeclined,
}

func (s OfferStatus) String() string {
	return string(s)
}

func (s OfferStatus) IsValid() bool {
	return slices.Contains(validOfferStatuses, s)
}

func ParseOfferStatus(value string) (OfferStatus, error) {
	return parse(validOfferStatuses, value, "offer status")
}
