// Package status maps the raw lifecycle status of a request to the label each role acts on.
package status

import (
	"fmt"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

type Label string

// Buyer labels.
const (
	BuyerAwaitingOffers   Label = "AWAITING_OFFERS"
	BuyerOffersReceived   Label = "OFFERS_RECEIVED"
	BuyerAwaitingPayment  Label = "AWAITING_PAYMENT"
	BuyerTrackShipment    Label = "TRACK_SHIPMENT"
	BuyerPaymentPostponed Label = "PAYMENT_POSTPONED"
	BuyerCompleted        Label = "COMPLETED"
	BuyerDeclined         Label = "DECLINED"
	BuyerDisputeOpen      Label = "DISPUTE_OPEN"
)

// Seller labels.
const (
	SellerNewRequest              Label = "NEW_REQUEST"
	SellerOfferSubmitted          Label = "OFFER_SUBMITTED"
	SellerNotSelected             Label = "NOT_SELECTED"
	SellerAwaitingPayment         Label = "AWAITING_PAYMENT"
	SellerShipGoods               Label = "SHIP_GOODS"
	SellerShipGoodsPaymentPending Label = "SHIP_GOODS_PAYMENT_POSTPONED"
	SellerCompleted               Label = "COMPLETED"
	SellerDeclined                Label = "DECLINED"
	SellerDisputeOpen             Label = "DISPUTE_OPEN"
)

// Staff labels.
const (
	StaffCollectingOffers        Label = "COLLECTING_OFFERS"
	StaffAwaitingPayment         Label = "AWAITING_PAYMENT"
	StaffMonitorDelivery         Label = "MONITOR_DELIVERY"
	StaffMonitorPostponedPayment Label = "MONITOR_POSTPONED_PAYMENT"
	StaffCompleted               Label = "COMPLETED"
	StaffDeclined                Label = "DECLINED"
	StaffDisputeReview           Label = "DISPUTE_REVIEW"
)

// Context carries the per-viewer facts a raw status alone cannot express.
type Context struct {
	HasOffers   bool
	HasOwnOffer bool
	IsWinner    bool
	DisputeOpen bool
	// PaymentPostponed is set when a completed request still has its deferred payment outstanding.
	PaymentPostponed bool
}

// Project is total over status × role and panics on anything outside the declared enums.
func Project(raw enums.OrderRequestStatus, role enums.Role, c Context) Label {
	switch role {
	case enums.RoleBuyer:
		return buyer(raw, c)
	case enums.RoleSeller:
		return seller(raw, c)
	case enums.RoleStaff:
		return staff(raw, c)
	}
	panic(fmt.Sprintf("status: unmapped role %q", role))
}

// disputable reports whether a dispute can be open in this status.
func disputable(raw enums.OrderRequestStatus) bool {
	return raw.IsPaidStage() || raw == enums.OrderRequestStatusCompleted
}

func buyer(raw enums.OrderRequestStatus, c Context) Label {
	if c.DisputeOpen && disputable(raw) {
		return BuyerDisputeOpen
	}
	switch raw {
	case enums.OrderRequestStatusRequested:
		if c.HasOffers {
			return BuyerOffersReceived
		}
		return BuyerAwaitingOffers
	case enums.OrderRequestStatusApproved:
		return BuyerAwaitingPayment
	case enums.OrderRequestStatusPaid:
		return BuyerTrackShipment
	case enums.OrderRequestStatusPaymentPostponed:
		return BuyerPaymentPostponed
	case enums.OrderRequestStatusCompleted:
		if c.PaymentPostponed {
			return BuyerPaymentPostponed
		}
		return BuyerCompleted
	case enums.OrderRequestStatusDeclined:
		return BuyerDeclined
	}
	panic(fmt.Sprintf("status: unmapped buyer status %q", raw))
}

func seller(raw enums.OrderRequestStatus, c Context) Label {
	switch raw {
	case enums.OrderRequestStatusRequested:
		if c.HasOwnOffer {
			return SellerOfferSubmitted
		}
		return SellerNewRequest
	case enums.OrderRequestStatusDeclined:
		return SellerDeclined
	case enums.OrderRequestStatusApproved,
		enums.OrderRequestStatusPaid,
		enums.OrderRequestStatusPaymentPostponed,
		enums.OrderRequestStatusCompleted:
		if !c.IsWinner {
			return SellerNotSelected
		}
	default:
		panic(fmt.Sprintf("status: unmapped seller status %q", raw))
	}

	if c.DisputeOpen && disputable(raw) {
		return SellerDisputeOpen
	}
	switch raw {
	case enums.OrderRequestStatusApproved:
		return SellerAwaitingPayment
	case enums.OrderRequestStatusPaid:
		return SellerShipGoods
	case enums.OrderRequestStatusPaymentPostponed:
		return SellerShipGoodsPaymentPending
	default:
		return SellerCompleted
	}
}

func staff(raw enums.OrderRequestStatus, c Context) Label {
	if c.DisputeOpen && disputable(raw) {
		return StaffDisputeReview
	}
	switch raw {
	case enums.OrderRequestStatusRequested:
		return StaffCollectingOffers
	case enums.OrderRequestStatusApproved:
		return StaffAwaitingPayment
	case enums.OrderRequestStatusPaid:
		return StaffMonitorDelivery
	case enums.OrderRequestStatusPaymentPostponed:
		return StaffMonitorPostponedPayment
	case enums.OrderRequestStatusCompleted:
		if c.PaymentPostponed {
			return StaffMonitorPostponedPayment
		}
		return StaffCompleted
	case enums.OrderRequestStatusDeclined:
		return StaffDeclined
	}
	panic(fmt.Sprintf("status: unmapped staff status %q", raw))
}
