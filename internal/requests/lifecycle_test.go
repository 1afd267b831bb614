package requests_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/catalog"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/disputes"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/offers"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/requests"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/dbtest"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type noSigner struct{}

func (noSigner) URLFor(_ context.Context, key string) (string, error) { return key, nil }

func actor(u *models.User) types.Actor {
	return types.Actor{UserID: u.ID, OrganizationID: u.OrganizationID, Role: u.Role}
}

func TestRequestLifecycleFromCreationToClosedDispute(t *testing.T) {
	client := dbtest.Client(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "test"})
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	catalogRepo := catalog.NewRepository(conn)
	ctx := context.Background()

	requestSvc, err := requests.NewService(requests.ServiceParams{
		Repo:    requests.NewRepository(conn),
		Tx:      client,
		Outbox:  emitter,
		Catalog: catalogRepo,
		Address: address.NewService(nil),
		URLs:    noSigner{},
		Logger:  logg,
	})
	require.NoError(t, err)
	offerSvc, err := offers.NewService(offers.NewRepository(conn), client, emitter, catalogRepo, logg)
	require.NoError(t, err)
	disputeSvc, err := disputes.NewService(disputes.NewRepository(conn), client, emitter, logg)
	require.NoError(t, err)

	brakes := dbtest.Category(t, conn, "Brakes")
	pad := dbtest.Product(t, conn, "BP-100", brakes.ID)
	buyer := dbtest.User(t, conn, enums.RoleBuyer, nil)
	sellerA := dbtest.User(t, conn, enums.RoleSeller, nil)
	sellerB := dbtest.User(t, conn, enums.RoleSeller, nil)
	dbtest.SellerTrades(t, conn, sellerA.ID, brakes.ID)
	dbtest.SellerTrades(t, conn, sellerB.ID, brakes.ID)

	req, err := requestSvc.CreateRequest(ctx, actor(buyer), requests.CreateInput{
		Address:   dbtest.Address(),
		LineItems: []requests.LineItemInput{{ProductID: &pad.ID, Quantity: 4}},
	})
	require.NoError(t, err)

	view, err := requestSvc.GetView(ctx, req.ID, actor(buyer), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	require.Len(t, view.OrderRequest.LineItems, 1)
	ask := view.OrderRequest.LineItems[0].ID

	submit := func(seller *models.User, price string) *models.Offer {
		offer, err := offerSvc.SubmitOffer(ctx, actor(seller), offers.SubmitInput{
			RequestID: req.ID,
			LineItems: []offers.LineInput{{
				RequestedItemID: ask,
				Quantity:        4,
				UnitPrice:       decimal.RequireFromString(price),
				InStockQuantity: 4,
				DeliveryDays:    2,
			}},
		})
		require.NoError(t, err)
		return offer
	}
	offerA := submit(sellerA, "250.00")
	offerB := submit(sellerB, "240.00")

	view, err = requestSvc.GetView(ctx, req.ID, actor(buyer), enums.OfferFilterPrice, nil)
	require.NoError(t, err)
	assert.Len(t, view.Offers, 2)

	_, err = offerSvc.AcceptOffer(ctx, actor(buyer), req.ID, offerA.ID)
	require.NoError(t, err)

	_, err = offerSvc.AcceptOffer(ctx, actor(buyer), req.ID, offerB.ID)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))

	view, err = requestSvc.GetView(ctx, req.ID, actor(buyer), enums.OfferFilterPrice, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderRequestStatusApproved, view.OrderRequest.Status)
	require.Len(t, view.Offers, 1)
	assert.Equal(t, offerA.ID, view.Offers[0].ID)
	assert.True(t, view.Offers[0].IsSelected)

	card := enums.PaymentMethodCard
	require.NoError(t, requestSvc.ConfirmPayment(ctx, req.ID, actor(buyer), requests.PaymentInput{Method: &card}))

	var fulfilled models.RequestLineItem
	require.NoError(t, conn.Where("offer_id = ?", offerA.ID).First(&fulfilled).Error)

	dispute, err := disputeSvc.Open(ctx, actor(buyer), disputes.OpenInput{
		LineItemID: fulfilled.ID,
		Kind:       enums.DisputeKindRefund,
		Quantity:   1,
		Reasons:    []string{"cracked pad"},
	})
	require.NoError(t, err)

	view, err = requestSvc.GetView(ctx, req.ID, actor(buyer), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	assert.Equal(t, enums.OrderRequestStatusPaid, view.OrderRequest.Status)
	assert.True(t, view.OrderRequest.HasActiveDispute)
	require.Len(t, view.Offers, 1)
	assert.True(t, view.Offers[0].HasActiveDispute)

	_, err = disputeSvc.Close(ctx, dispute.ID, actor(buyer))
	require.NoError(t, err)

	view, err = requestSvc.GetView(ctx, req.ID, actor(buyer), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	assert.False(t, view.OrderRequest.HasActiveDispute)
	assert.False(t, view.Offers[0].HasActiveDispute)

	var emitted []enums.OutboxEventType
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("created_at ASC").Pluck("event_type", &emitted).Error)
	assert.Contains(t, emitted, enums.EventOrderRequestCreated)
	assert.Contains(t, emitted, enums.EventOfferAccepted)
	assert.Contains(t, emitted, enums.EventDisputeOpened)
	assert.Contains(t, emitted, enums.EventDisputeClosed)
}
