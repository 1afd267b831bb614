package status

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
)

func TestProjectBuyer(t *testing.T) {
	cases := []struct {
		raw  enums.OrderRequestStatus
		ctx  Context
		want Label
	}{
		{enums.OrderRequestStatusRequested, Context{}, BuyerAwaitingOffers},
		{enums.OrderRequestStatusRequested, Context{HasOffers: true}, BuyerOffersReceived},
		{enums.OrderRequestStatusApproved, Context{HasOffers: true}, BuyerAwaitingPayment},
		{enums.OrderRequestStatusPaid, Context{}, BuyerTrackShipment},
		{enums.OrderRequestStatusPaymentPostponed, Context{}, BuyerPaymentPostponed},
		{enums.OrderRequestStatusCompleted, Context{}, BuyerCompleted},
		{enums.OrderRequestStatusCompleted, Context{PaymentPostponed: true}, BuyerPaymentPostponed},
		{enums.OrderRequestStatusDeclined, Context{}, BuyerDeclined},
		{enums.OrderRequestStatusPaid, Context{DisputeOpen: true}, BuyerDisputeOpen},
		{enums.OrderRequestStatusRequested, Context{DisputeOpen: true}, BuyerAwaitingOffers},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Project(tc.raw, enums.RoleBuyer, tc.ctx), "%s %+v", tc.raw, tc.ctx)
	}
}

func TestProjectSellerWinnerAndLoser(t *testing.T) {
	winner := Context{HasOwnOffer: true, IsWinner: true}
	loser := Context{HasOwnOffer: true}

	assert.Equal(t, SellerNewRequest, Project(enums.OrderRequestStatusRequested, enums.RoleSeller, Context{}))
	assert.Equal(t, SellerOfferSubmitted, Project(enums.OrderRequestStatusRequested, enums.RoleSeller, loser))

	assert.Equal(t, SellerAwaitingPayment, Project(enums.OrderRequestStatusApproved, enums.RoleSeller, winner))
	assert.Equal(t, SellerShipGoods, Project(enums.OrderRequestStatusPaid, enums.RoleSeller, winner))
	assert.Equal(t, SellerShipGoodsPaymentPending, Project(enums.OrderRequestStatusPaymentPostponed, enums.RoleSeller, winner))
	assert.Equal(t, SellerCompleted, Project(enums.OrderRequestStatusCompleted, enums.RoleSeller, winner))

	for _, raw := range []enums.OrderRequestStatus{
		enums.OrderRequestStatusApproved,
		enums.OrderRequestStatusPaid,
		enums.OrderRequestStatusPaymentPostponed,
		enums.OrderRequestStatusCompleted,
	} {
		assert.Equal(t, SellerNotSelected, Project(raw, enums.RoleSeller, loser), raw)
		assert.Equal(t, SellerNotSelected, Project(raw, enums.RoleSeller, Context{DisputeOpen: true}), raw)
	}

	winner.DisputeOpen = true
	assert.Equal(t, SellerDisputeOpen, Project(enums.OrderRequestStatusPaid, enums.RoleSeller, winner))
	assert.Equal(t, SellerAwaitingPayment, Project(enums.OrderRequestStatusApproved, enums.RoleSeller, winner))
	assert.Equal(t, SellerDeclined, Project(enums.OrderRequestStatusDeclined, enums.RoleSeller, loser))
}

func TestProjectStaff(t *testing.T) {
	assert.Equal(t, StaffCollectingOffers, Project(enums.OrderRequestStatusRequested, enums.RoleStaff, Context{}))
	assert.Equal(t, StaffAwaitingPayment, Project(enums.OrderRequestStatusApproved, enums.RoleStaff, Context{}))
	assert.Equal(t, StaffMonitorDelivery, Project(enums.OrderRequestStatusPaid, enums.RoleStaff, Context{}))
	assert.Equal(t, StaffMonitorPostponedPayment, Project(enums.OrderRequestStatusPaymentPostponed, enums.RoleStaff, Context{}))
	assert.Equal(t, StaffMonitorPostponedPayment, Project(enums.OrderRequestStatusCompleted, enums.RoleStaff, Context{PaymentPostponed: true}))
	assert.Equal(t, StaffCompleted, Project(enums.OrderRequestStatusCompleted, enums.RoleStaff, Context{}))
	assert.Equal(t, StaffDeclined, Project(enums.OrderRequestStatusDeclined, enums.RoleStaff, Context{DisputeOpen: true}))
	assert.Equal(t, StaffDisputeReview, Project(enums.OrderRequestStatusCompleted, enums.RoleStaff, Context{DisputeOpen: true}))
}

func TestProjectIsTotal(t *testing.T) {
	roles := []enums.Role{enums.RoleBuyer, enums.RoleSeller, enums.RoleStaff}
	flags := []Context{
		{},
		{HasOffers: true, HasOwnOffer: true, IsWinner: true, DisputeOpen: true, PaymentPostponed: true},
		{HasOffers: true, HasOwnOffer: true},
	}
	for _, raw := range enums.OrderRequestStatuses() {
		for _, role := range roles {
			for _, c := range flags {
				assert.NotPanics(t, func() {
					assert.NotEmpty(t, Project(raw, role, c))
				}, "%s/%s", raw, role)
			}
		}
	}
}

func TestProjectPanicsOnUnknownInput(t *testing.T) {
	assert.Panics(t, func() { Project(enums.OrderRequestStatusPaid, enums.Role("admin"), Context{}) })
	assert.Panics(t, func() { Project(enums.OrderRequestStatus("SHIPPED"), enums.RoleBuyer, Context{}) })
	assert.Panics(t, func() { Project(enums.OrderRequestStatus("SHIPPED"), enums.RoleSeller, Context{IsWinner: true}) })
}
