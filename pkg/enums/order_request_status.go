package enums

import "slices"

// OrderRequestStatus maps to the raw lifecycle status of a request.
type OrderRequestStatus string

const (
	OrderRequestStatusRequested        OrderRequestStatus = "REQUESTED"
	OrderRequestStatusApproved         OrderRequestStatus = "APPROVED"
	OrderRequestStatusPaid             OrderRequestStatus = "PAID"
	OrderRequestStatusPaymentPostponed OrderRequestStatus = "PAYMENT_POSTPONED"
	OrderRequestStatusCompleted        OrderRequestStatus = "COMPLETED"
	OrderRequestStatusDeclined         OrderRequestStatus = "DECLINED"
)

var validOrderRequestStatuses = []OrderRequestStatus{
	OrderRequestStatusRequested,
	OrderRequestStatusApproved,
	OrderRequestStatusPaid,
	OrderRequestStatusPaymentPostponed,
	OrderRequestStatusCompleted,
	OrderRequestStatusDeclined,
}

// OrderRequestStatuses returns every declared status in lifecycle order.
func OrderRequestStatuses() []OrderRequestStatus {
	out := make([]OrderRequestStatus, len(validOrderRequestStatuses))
	copy(out, validOrderRequestStatuses)
	return out
}

func (s OrderRequestStatus) String() string {
	return string(s)
}

func (s OrderRequestStatus) IsValid() bool {
	return slices.Contains(validOrderRequestStatuses, s)
}

// IsPaidStage reports whether goods are paid for or payment was deferred.
func (s OrderRequestStatus) IsPaidStage() bool {
	return s == OrderRequestStatusPaid || s == OrderRequestStatusPaymentPostponed
}

// IsTerminal reports whether no further lifecycle transition is possible.
func (s OrderRequestStatus) IsTerminal() bool {
	return s == OrderRequestStatusCompleted || s == OrderRequestStatusDeclined
}

func ParseOrderRequestStatus(value string) (OrderRequestStatus, error) {
	return parse(validOrderRequestStatuses, value, "order request status")
}
