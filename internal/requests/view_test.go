package requests

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/status"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/dbtest"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
)

func ids(page pagination.Page[Summary]) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(page.Items))
	for _, s := range page.Items {
		out = append(out, s.ID)
	}
	return out
}

func TestListForRoleScopesRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	otherBuyer := dbtest.User(t, f.conn, enums.RoleBuyer, nil)
	lightsOnly := dbtest.User(t, f.conn, enums.RoleSeller, nil)
	dbtest.SellerTrades(t, f.conn, lightsOnly.ID, f.lights.ID)
	otherStaff := dbtest.User(t, f.conn, enums.RoleStaff, nil)

	mine, _ := dbtest.Request(t, f.conn, f.buyer.ID, enums.OrderRequestStatusRequested, f.pad.ID)
	theirs, _ := dbtest.Request(t, f.conn, otherBuyer.ID, enums.OrderRequestStatusRequested, f.pad.ID)

	page, err := f.svc.ListForRole(ctx, actorOf(f.buyer), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mine.ID}, ids(page))
	assert.Equal(t, status.BuyerAwaitingOffers, page.Items[0].Label)
	assert.Equal(t, "Almaty", page.Items[0].City)

	page, err = f.svc.ListForRole(ctx, actorOf(f.seller), ListParams{})
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{mine.ID, theirs.ID}, ids(page))
	assert.Equal(t, status.SellerNewRequest, page.Items[0].Label)

	page, err = f.svc.ListForRole(ctx, actorOf(lightsOnly), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	require.NoError(t, f.svc.HideForStaff(ctx, theirs.ID, actorOf(f.staff)))
	page, err = f.svc.ListForRole(ctx, actorOf(f.staff), ListParams{})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{mine.ID}, ids(page))

	page, err = f.svc.ListForRole(ctx, actorOf(otherStaff), ListParams{})
	require.NoError(t, err)
	assert.Len(t, page.Items, 2, "hiding is per staff member")
}

func TestListForRoleKeepsOwnOfferAfterRoutingCloses(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, offer := f.accepted(t)

	page, err := f.svc.ListForRole(ctx, actorOf(f.seller), ListParams{})
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{req.ID}, ids(page))
	assert.Equal(t, status.SellerAwaitingPayment, page.Items[0].Label)
	assert.Equal(t, 1, page.Items[0].OfferCount)

	page, err = f.svc.ListForRole(ctx, actorOf(f.rival), ListParams{})
	require.NoError(t, err)
	assert.Empty(t, page.Items, "approved requests are no longer routed to sellers without an offer")
	_ = offer
}

func TestListForRoleStatusFilterAndCursor(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	base := time.Now().UTC().Add(-time.Hour)
	var created []uuid.UUID
	for i := 0; i < 3; i++ {
		req, _ := dbtest.Request(t, f.conn, f.buyer.ID, enums.OrderRequestStatusRequested, f.pad.ID)
		require.NoError(t, f.conn.Model(req).UpdateColumn("created_at", base.Add(time.Duration(i)*time.Minute)).Error)
		created = append(created, req.ID)
	}
	declined, _ := dbtest.Request(t, f.conn, f.buyer.ID, enums.OrderRequestStatusDeclined, f.pad.ID)

	first, err := f.svc.ListForRole(ctx, actorOf(f.buyer), ListParams{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)
	assert.Equal(t, declined.ID, first.Items[0].ID)
	assert.Equal(t, created[2], first.Items[1].ID)

	second, err := f.svc.ListForRole(ctx, actorOf(f.buyer), ListParams{Pagination: pagination.Params{Limit: 2, Cursor: first.NextCursor}})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{created[1], created[0]}, ids(second))
	assert.Empty(t, second.NextCursor)

	only := enums.OrderRequestStatusDeclined
	filtered, err := f.svc.ListForRole(ctx, actorOf(f.buyer), ListParams{Status: &only})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{declined.ID}, ids(filtered))
	assert.Equal(t, status.BuyerDeclined, filtered.Items[0].Label)

	_, err = f.svc.ListForRole(ctx, actorOf(f.buyer), ListParams{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetViewRanksAndScopesOffers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, asks := dbtest.Request(t, f.conn, f.buyer.ID, enums.OrderRequestStatusRequested, f.pad.ID)
	require.NoError(t, f.conn.Create(&models.Attachment{
		EntityType: enums.AttachmentEntityOrderRequest, EntityID: req.ID,
		FileKey: "order_request/k/photo.jpg", Name: "photo.jpg", ContentType: "image/jpeg",
	}).Error)

	cheap, _ := dbtest.Offer(t, f.conn, req, f.seller, dbtest.Line{Ask: asks[0], Count: 10, UnitPrice: "30.00", Backorder: 10, Days: 9})
	fast, _ := dbtest.Offer(t, f.conn, req, f.rival, dbtest.Line{Ask: asks[0], Count: 10, UnitPrice: "50.00", InStock: 10, Days: 1})

	view, err := f.svc.GetView(ctx, req.ID, actorOf(f.buyer), enums.OfferFilterPrice, nil)
	require.NoError(t, err)
	assert.Equal(t, status.BuyerOffersReceived, view.OrderRequest.Label)
	assert.Len(t, view.Offers, 2)
	assert.Equal(t, []uuid.UUID{cheap.ID, fast.ID}, view.RankedSelection)
	require.Len(t, view.OrderRequest.Attachments, 1)
	assert.Equal(t, "https://files.test/order_request/k/photo.jpg", view.OrderRequest.Attachments[0].URL)
	require.Len(t, view.OrderRequest.LineItems, 1)

	view, err = f.svc.GetView(ctx, req.ID, actorOf(f.buyer), enums.OfferFilterDelivery, nil)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{fast.ID, cheap.ID}, view.RankedSelection)

	view, err = f.svc.GetView(ctx, req.ID, actorOf(f.seller), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	require.Len(t, view.Offers, 1)
	assert.Equal(t, cheap.ID, view.Offers[0].ID)
	assert.Equal(t, "300", view.Offers[0].Total.String())
	assert.Equal(t, status.SellerOfferSubmitted, view.OrderRequest.Label)

	require.NoError(t, f.conn.Model(req).Updates(map[string]any{
		"status": enums.OrderRequestStatusApproved, "selected_offer_id": fast.ID,
	}).Error)

	view, err = f.svc.GetView(ctx, req.ID, actorOf(f.buyer), enums.OfferFilterPrice, nil)
	require.NoError(t, err)
	require.Len(t, view.Offers, 1, "non-selected offers drop out after acceptance")
	assert.Equal(t, fast.ID, view.Offers[0].ID)
	assert.Equal(t, []uuid.UUID{fast.ID}, view.RankedSelection)

	view, err = f.svc.GetView(ctx, req.ID, actorOf(f.seller), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	assert.Empty(t, view.Offers)
	assert.Equal(t, status.SellerNotSelected, view.OrderRequest.Label)
}

func TestGetViewHidesForeignRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	req, _ := dbtest.Request(t, f.conn, f.buyer.ID, enums.OrderRequestStatusRequested, f.pad.ID)

	stranger := dbtest.User(t, f.conn, enums.RoleBuyer, nil)
	_, err := f.svc.GetView(ctx, req.ID, actorOf(stranger), enums.OfferFilterNone, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	unrouted := dbtest.User(t, f.conn, enums.RoleSeller, nil)
	_, err = f.svc.GetView(ctx, req.ID, actorOf(unrouted), enums.OfferFilterNone, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	view, err := f.svc.GetView(ctx, req.ID, actorOf(f.staff), enums.OfferFilterNone, nil)
	require.NoError(t, err)
	assert.Equal(t, status.StaffCollectingOffers, view.OrderRequest.Label)
}
