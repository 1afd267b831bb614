package enums

import "slices"

// DisputeKind is the resolution the buyer asks for.
type DisputeKind string

const (
	DisputeKindRefund   DisputeKind = "REFUND"
	DisputeKindExchange DisputeKind = "EXCHANGE"
)

var validDisputeKinds = []DisputeKind{
	DisputeKindRefund,
	DisputeKindExchange,
}

func (k DisputeKind) IsValid() bool {
	return slices.Contains(validDisputeKinds, k)
}

func ParseDisputeKind(value string) (DisputeKind, error) {
	return parse(validDisputeKinds, value, "dispute kind")
}

// DisputeStatus is the refund/exchange workflow state.
type DisputeStatus string

const (
	DisputeStatusPending  DisputeStatus = "PENDING"
	DisputeStatusAgreed   DisputeStatus = "AGREED"
	DisputeStatusResolved DisputeStatus = "RESOLVED"
	DisputeStatusClosed   DisputeStatus = "CLOSED"
)

var validDisputeStatuses = []DisputeStatus{
	DisputeStatusPending,
	DisputeStatusAgreed,
	DisputeStatusResolved,
	DisputeStatusClosed,
}

func (s DisputeStatus) IsValid() bool {
	return slices.Contains(validDisputeStatuses, s)
}

// IsActive reports whether the dispute still blocks a new one on the same line item.
func (s DisputeStatus) IsActive() bool {
	return s != DisputeStatusClosed
}

func ParseDisputeStatus(value string) (DisputeStatus, error) {
	return parse(validDisputeStatuses, value, "dispute status")
}
