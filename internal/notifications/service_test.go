package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/dbtest"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/idempotency"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/registry"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

func status(s enums.OrderRequestStatus) *enums.OrderRequestStatus { return &s }

func TestClassify(t *testing.T) {
	disputeID := uuid.New()
	cases := []struct {
		name string
		role enums.Role
		row  Row
		want enums.NotificationBucket
	}{
		{"dispute always refunds", enums.RoleSeller, Row{Type: enums.NotificationTypeDisputeUpdated, RequestStatus: status(enums.OrderRequestStatusPaid)}, enums.BucketRefunds},
		{"request event tied to dispute", enums.RoleBuyer, Row{Type: enums.NotificationTypeOrderCompleted, DisputeID: &disputeID, RequestStatus: status(enums.OrderRequestStatusCompleted)}, enums.BucketRefunds},
		{"missing request", enums.RoleBuyer, Row{Type: enums.NotificationTypeOfferSubmitted}, enums.BucketOrderRequests},
		{"buyer open request", enums.RoleBuyer, Row{Type: enums.NotificationTypeOfferSubmitted, RequestStatus: status(enums.OrderRequestStatusRequested)}, enums.BucketOrderRequests},
		{"buyer approved request", enums.RoleBuyer, Row{Type: enums.NotificationTypeOfferAccepted, RequestStatus: status(enums.OrderRequestStatusApproved)}, enums.BucketOrderRequests},
		{"buyer paid", enums.RoleBuyer, Row{Type: enums.NotificationTypePaymentConfirmed, RequestStatus: status(enums.OrderRequestStatusPaid)}, enums.BucketOrders},
		{"staff postponed payment", enums.RoleStaff, Row{Type: enums.NotificationTypePaymentConfirmed, RequestStatus: status(enums.OrderRequestStatusPaymentPostponed)}, enums.BucketOrders},
		{"buyer completed", enums.RoleBuyer, Row{Type: enums.NotificationTypeOrderCompleted, RequestStatus: status(enums.OrderRequestStatusCompleted)}, enums.BucketOrderHistory},
		{"staff declined", enums.RoleStaff, Row{Type: enums.NotificationTypeRequestDeclined, RequestStatus: status(enums.OrderRequestStatusDeclined)}, enums.BucketOrderHistory},
		{"winning seller paid", enums.RoleSeller, Row{Type: enums.NotificationTypePaymentConfirmed, RequestStatus: status(enums.OrderRequestStatusPaid), OfferSelected: true}, enums.BucketOrders},
		{"losing seller paid", enums.RoleSeller, Row{Type: enums.NotificationTypeRequestCreated, RequestStatus: status(enums.OrderRequestStatusPaid)}, enums.BucketOrderHistory},
		{"losing seller postponed", enums.RoleSeller, Row{Type: enums.NotificationTypeOfferSubmitted, RequestStatus: status(enums.OrderRequestStatusPaymentPostponed)}, enums.BucketOrderHistory},
		{"losing seller completed", enums.RoleSeller, Row{Type: enums.NotificationTypeOrderCompleted, RequestStatus: status(enums.OrderRequestStatusCompleted)}, enums.BucketOrderHistory},
		{"seller open request", enums.RoleSeller, Row{Type: enums.NotificationTypeRequestCreated, RequestStatus: status(enums.OrderRequestStatusApproved)}, enums.BucketOrderRequests},
		{"seller completed", enums.RoleSeller, Row{Type: enums.NotificationTypeOrderCompleted, RequestStatus: status(enums.OrderRequestStatusCompleted), OfferSelected: true}, enums.BucketOrderHistory},
		{"organization", enums.RoleStaff, Row{Type: enums.NotificationTypeOrganizationRequested}, enums.BucketOrganizations},
		{"complaint", enums.RoleStaff, Row{Type: enums.NotificationTypeUserComplaint}, enums.BucketUserComplaints},
		{"product offer", enums.RoleStaff, Row{Type: enums.NotificationTypeProductOffer}, enums.BucketProductOffers},
		{"customer", enums.RoleStaff, Row{Type: enums.NotificationTypeCustomerRegistered}, enums.BucketCustomers},
		{"seller registered", enums.RoleStaff, Row{Type: enums.NotificationTypeSellerRegistered}, enums.BucketSellers},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := Classify(tc.role, tc.row)
			require.True(t, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestClassifyRejectsUnknownType(t *testing.T) {
	_, ok := Classify(enums.RoleBuyer, Row{Type: enums.NotificationType("carrier_pigeon")})
	assert.False(t, ok)
}

func TestTallySumsToPersonalArea(t *testing.T) {
	shared := uuid.New()
	rows := []Row{
		{ID: shared, Type: enums.NotificationTypePaymentConfirmed, RequestStatus: status(enums.OrderRequestStatusPaid), OfferSelected: true},
		{ID: shared, Type: enums.NotificationTypePaymentConfirmed, RequestStatus: status(enums.OrderRequestStatusPaid)},
		{ID: uuid.New(), Type: enums.NotificationTypeRequestCreated, RequestStatus: status(enums.OrderRequestStatusRequested)},
		{ID: uuid.New(), Type: enums.NotificationTypeDisputeOpened},
		{ID: uuid.New(), Type: enums.NotificationTypeOrderCompleted, RequestStatus: status(enums.OrderRequestStatusCompleted)},
	}

	counts, skipped := Tally(enums.RoleSeller, rows)
	assert.Zero(t, skipped)
	assert.Equal(t, 1, counts.Orders, "first joined row wins")
	assert.Equal(t, 1, counts.OrderRequests)
	assert.Equal(t, 1, counts.Refunds)
	assert.Equal(t, 1, counts.OrderHistory)

	sum := 0
	for _, bucket := range enums.NotificationBuckets() {
		sum += counts.Get(bucket)
	}
	assert.Equal(t, counts.PersonalArea, sum)
	assert.Equal(t, 4, counts.PersonalArea)
}

type inbox struct {
	conn   *gorm.DB
	svc    Service
	buyer  *models.User
	req    *models.OrderRequest
	logg   *logger.Logger
	client txRunner
}

func newInbox(t *testing.T, requestStatus enums.OrderRequestStatus) *inbox {
	t.Helper()
	client := dbtest.Client(t)
	conn := client.DB()
	logg := logger.New(logger.Options{ServiceName: "test"})
	svc, err := NewService(NewRepository(conn), logg)
	require.NoError(t, err)

	buyer := dbtest.User(t, conn, enums.RoleBuyer, nil)
	brakes := dbtest.Category(t, conn, "Brakes")
	pad := dbtest.Product(t, conn, "BP-100", brakes.ID)
	req, _ := dbtest.Request(t, conn, buyer.ID, requestStatus, pad.ID)
	return &inbox{conn: conn, svc: svc, buyer: buyer, req: req, logg: logg, client: client}
}

func (b *inbox) notify(t *testing.T, userID uuid.UUID, role enums.Role, kind enums.NotificationType, requestID *uuid.UUID) models.Notification {
	t.Helper()
	n := models.Notification{UserID: userID, Role: role, Type: kind, OrderRequestID: requestID}
	require.NoError(t, b.conn.Create(&n).Error)
	return n
}

func TestUnreadCountsAndBucketRead(t *testing.T) {
	b := newInbox(t, enums.OrderRequestStatusPaid)
	ctx := context.Background()
	actor := types.Actor{UserID: b.buyer.ID, Role: enums.RoleBuyer}

	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypePaymentConfirmed, &b.req.ID)
	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypeOfferAccepted, &b.req.ID)
	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypeDisputeUpdated, &b.req.ID)
	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypeOfferSubmitted, nil)
	// same user in another role is a separate inbox
	b.notify(t, b.buyer.ID, enums.RoleStaff, enums.NotificationTypeUserComplaint, nil)

	counts, err := b.svc.UnreadCounts(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 2, counts.Orders)
	assert.Equal(t, 1, counts.Refunds)
	assert.Equal(t, 1, counts.OrderRequests)
	assert.Equal(t, 0, counts.UserComplaints)
	assert.Equal(t, 4, counts.PersonalArea)

	marked, err := b.svc.MarkBucketRead(ctx, actor, enums.BucketOrders)
	require.NoError(t, err)
	assert.Equal(t, int64(2), marked)

	counts, err = b.svc.UnreadCounts(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 0, counts.Orders)
	assert.Equal(t, 1, counts.Refunds)
	assert.Equal(t, 1, counts.OrderRequests)
	assert.Equal(t, 2, counts.PersonalArea)

	staff, err := b.svc.UnreadCounts(ctx, types.Actor{UserID: b.buyer.ID, Role: enums.RoleStaff})
	require.NoError(t, err)
	assert.Equal(t, 1, staff.UserComplaints)
}

func TestSellerBucketsFollowSelectedOffer(t *testing.T) {
	b := newInbox(t, enums.OrderRequestStatusPaid)
	ctx := context.Background()
	winner := dbtest.User(t, b.conn, enums.RoleSeller, nil)
	loser := dbtest.User(t, b.conn, enums.RoleSeller, nil)

	var asks []models.RequestLineItem
	require.NoError(t, b.conn.Where("order_request_id = ? AND offer_id IS NULL", b.req.ID).Find(&asks).Error)
	won, _ := dbtest.Offer(t, b.conn, b.req, winner, dbtest.Line{Ask: asks[0], Count: 1, UnitPrice: "10.00", InStock: 1, Days: 1})
	dbtest.Offer(t, b.conn, b.req, loser, dbtest.Line{Ask: asks[0], Count: 1, UnitPrice: "11.00", InStock: 1, Days: 1})
	require.NoError(t, b.conn.Model(b.req).Update("selected_offer_id", won.ID).Error)

	b.notify(t, winner.ID, enums.RoleSeller, enums.NotificationTypePaymentConfirmed, &b.req.ID)
	b.notify(t, loser.ID, enums.RoleSeller, enums.NotificationTypeRequestCreated, &b.req.ID)

	winning, err := b.svc.UnreadCounts(ctx, types.Actor{UserID: winner.ID, Role: enums.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, 1, winning.Orders)
	assert.Equal(t, 1, winning.PersonalArea)

	losing, err := b.svc.UnreadCounts(ctx, types.Actor{UserID: loser.ID, Role: enums.RoleSeller})
	require.NoError(t, err)
	assert.Equal(t, 1, losing.OrderHistory)
	assert.Equal(t, 0, losing.OrderRequests)
	assert.Equal(t, 0, losing.Orders)
}

func TestUnreadCountsSkipUnknownTypes(t *testing.T) {
	b := newInbox(t, enums.OrderRequestStatusRequested)
	ctx := context.Background()
	actor := types.Actor{UserID: b.buyer.ID, Role: enums.RoleBuyer}

	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypeOfferSubmitted, &b.req.ID)
	b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationType("legacy_type"), &b.req.ID)

	counts, err := b.svc.UnreadCounts(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 1, counts.OrderRequests)
	assert.Equal(t, 1, counts.PersonalArea)

	marked, err := b.svc.MarkBucketRead(ctx, actor, enums.BucketOrderRequests)
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
}

func TestListPagesNewestFirst(t *testing.T) {
	b := newInbox(t, enums.OrderRequestStatusRequested)
	ctx := context.Background()
	actor := types.Actor{UserID: b.buyer.ID, Role: enums.RoleBuyer}

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		n := models.Notification{UserID: b.buyer.ID, Role: enums.RoleBuyer, Type: enums.NotificationTypeOfferSubmitted, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, b.conn.Create(&n).Error)
	}

	page, err := b.svc.List(ctx, actor, ListParams{Pagination: pagination.Params{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)
	assert.True(t, page.Items[0].CreatedAt.After(page.Items[1].CreatedAt))
	require.NotEmpty(t, page.NextCursor)

	rest, err := b.svc.List(ctx, actor, ListParams{Pagination: pagination.Params{Limit: 2, Cursor: page.NextCursor}})
	require.NoError(t, err)
	require.Len(t, rest.Items, 1)
	assert.Empty(t, rest.NextCursor)

	_, err = b.svc.List(ctx, actor, ListParams{Pagination: pagination.Params{Cursor: "%%%"}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestMarkReadValidation(t *testing.T) {
	b := newInbox(t, enums.OrderRequestStatusRequested)
	ctx := context.Background()

	_, err := b.svc.MarkRead(ctx, b.buyer.ID, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = b.svc.MarkBucketRead(ctx, types.Actor{UserID: b.buyer.ID, Role: enums.RoleBuyer}, enums.NotificationBucket("inbox"))
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = b.svc.UnreadCounts(ctx, types.Actor{UserID: b.buyer.ID, Role: enums.Role("guest")})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	mine := b.notify(t, b.buyer.ID, enums.RoleBuyer, enums.NotificationTypeOfferSubmitted, nil)
	other := b.notify(t, uuid.New(), enums.RoleBuyer, enums.NotificationTypeOfferSubmitted, nil)
	marked, err := b.svc.MarkRead(ctx, b.buyer.ID, []uuid.UUID{mine.ID, other.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), marked)
}

type memoryStore struct {
	keys map[string]string
}

func (s *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, ok := s.keys[key]; ok {
		return false, nil
	}
	s.keys[key] = value.(string)
	return true, nil
}

func (s *memoryStore) ReleaseIfOwner(_ context.Context, key, owner string) (bool, error) {
	if s.keys[key] != owner {
		return false, nil
	}
	delete(s.keys, key)
	return true, nil
}

func (s *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type recordingTransport struct {
	deliveries []Delivery
	err        error
}

func (r *recordingTransport) Deliver(_ context.Context, d Delivery) error {
	r.deliveries = append(r.deliveries, d)
	return r.err
}

type stubRewards struct {
	offers []uuid.UUID
	err    error
}

func (s *stubRewards) Calculate(_ context.Context, offerID uuid.UUID) (*models.Reward, error) {
	s.offers = append(s.offers, offerID)
	if s.err != nil {
		return nil, s.err
	}
	return &models.Reward{OfferID: offerID}, nil
}

type fanout struct {
	*inbox
	consumer  *Consumer
	store     *memoryStore
	transport *recordingTransport
	rewards   *stubRewards
	emitter   *outbox.Service
	staff     *models.User
	trader    *models.User
	outsider  *models.User
	brakes    *models.Category
}

func newFanout(t *testing.T) *fanout {
	t.Helper()
	b := newInbox(t, enums.OrderRequestStatusRequested)
	f := &fanout{
		inbox:     b,
		store:     &memoryStore{keys: map[string]string{}},
		transport: &recordingTransport{},
		rewards:   &stubRewards{},
		emitter:   outbox.NewService(outbox.NewRepository(b.conn), b.logg),
	}
	f.staff = dbtest.User(t, b.conn, enums.RoleStaff, nil)
	f.trader = dbtest.User(t, b.conn, enums.RoleSeller, nil)
	f.outsider = dbtest.User(t, b.conn, enums.RoleSeller, nil)
	require.NoError(t, b.conn.Where("name = ?", "Brakes").First(&f.brakes).Error)
	dbtest.SellerTrades(t, b.conn, f.trader.ID, f.brakes.ID)

	guard, err := idempotency.NewGuard(f.store, time.Hour)
	require.NoError(t, err)
	reg, err := registry.NewEventRegistry(config.PubSubConfig{DomainTopic: "domain"})
	require.NoError(t, err)
	f.consumer, err = NewConsumer(ConsumerParams{
		Repo:        NewRepository(b.conn),
		Tx:          b.client,
		Idempotency: guard,
		Resolver:    reg,
		Transport:   f.transport,
		Rewards:     f.rewards,
		Logger:      b.logg,
	})
	require.NoError(t, err)
	return f
}

// message emits the event through the outbox and shapes it the way the publisher does.
func (f *fanout) message(t *testing.T, event outbox.DomainEvent) *gcppubsub.Message {
	t.Helper()
	_, err := f.emitter.Emit(context.Background(), f.conn, event)
	require.NoError(t, err)
	var row models.OutboxEvent
	require.NoError(t, f.conn.Order("rowid DESC").First(&row).Error)
	return &gcppubsub.Message{
		ID:   uuid.NewString(),
		Data: row.Payload,
		Attributes: map[string]string{
			"event_type":     string(row.EventType),
			"aggregate_type": string(row.AggregateType),
			"aggregate_id":   row.AggregateID.String(),
		},
	}
}

func (f *fanout) inboxOf(t *testing.T, userID uuid.UUID, role enums.Role) []models.Notification {
	t.Helper()
	var rows []models.Notification
	require.NoError(t, f.conn.Where("user_id = ? AND role = ?", userID, role).Find(&rows).Error)
	return rows
}

func TestConsumerFansRequestOutToStaffAndTraders(t *testing.T) {
	f := newFanout(t)
	ctx := context.Background()

	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventOrderRequestCreated,
		AggregateType: enums.AggregateOrderRequest,
		AggregateID:   f.req.ID,
		Actor:         &outbox.ActorRef{UserID: f.buyer.ID, Role: enums.RoleBuyer},
		Data: payloads.OrderRequestCreatedEvent{
			OrderRequestID: f.req.ID,
			BuyerID:        f.buyer.ID,
			CategoryIDs:    []uuid.UUID{f.brakes.ID},
			LineItemCount:  1,
		},
	})

	result := f.consumer.process(ctx, msg)
	assert.True(t, result.ack)

	assert.Len(t, f.inboxOf(t, f.staff.ID, enums.RoleStaff), 1)
	traderRows := f.inboxOf(t, f.trader.ID, enums.RoleSeller)
	require.Len(t, traderRows, 1)
	assert.Equal(t, enums.NotificationTypeRequestCreated, traderRows[0].Type)
	assert.Equal(t, f.req.ID, *traderRows[0].OrderRequestID)
	assert.Empty(t, f.inboxOf(t, f.outsider.ID, enums.RoleSeller))
	assert.Empty(t, f.inboxOf(t, f.buyer.ID, enums.RoleBuyer))
	assert.Len(t, f.transport.deliveries, 2)

	var req models.OrderRequest
	require.NoError(t, f.conn.First(&req, "id = ?", f.req.ID).Error)
	assert.NotNil(t, req.StaffLastNotifiedAt)
	assert.Nil(t, req.BuyerLastNotifiedAt)

	// redelivery is absorbed by the processed-event mark
	assert.True(t, f.consumer.process(ctx, msg).ack)
	assert.Len(t, f.transport.deliveries, 2)

	// and by the unique recipient index once the mark is gone
	f.store.keys = map[string]string{}
	assert.True(t, f.consumer.process(ctx, msg).ack)
	assert.Len(t, f.inboxOf(t, f.trader.ID, enums.RoleSeller), 1)
	assert.Len(t, f.transport.deliveries, 2)
}

func TestConsumerTargetedRequestReachesSelectedSellersOnly(t *testing.T) {
	f := newFanout(t)

	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventOrderRequestCreated,
		AggregateType: enums.AggregateOrderRequest,
		AggregateID:   f.req.ID,
		Data: payloads.OrderRequestCreatedEvent{
			OrderRequestID:    f.req.ID,
			BuyerID:           f.buyer.ID,
			CategoryIDs:       []uuid.UUID{f.brakes.ID},
			SelectedSellerIDs: []uuid.UUID{f.outsider.ID},
		},
	})
	require.True(t, f.consumer.process(context.Background(), msg).ack)

	assert.Len(t, f.inboxOf(t, f.outsider.ID, enums.RoleSeller), 1)
	assert.Empty(t, f.inboxOf(t, f.trader.ID, enums.RoleSeller))
}

func TestConsumerSkipsActingUser(t *testing.T) {
	f := newFanout(t)
	disputeID := uuid.New()
	offerID := uuid.New()

	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventDisputeUpdated,
		AggregateType: enums.AggregateDispute,
		AggregateID:   disputeID,
		Actor:         &outbox.ActorRef{UserID: f.trader.ID, Role: enums.RoleSeller},
		Data: payloads.DisputeEvent{
			DisputeID:      disputeID,
			OrderRequestID: f.req.ID,
			OfferID:        offerID,
			BuyerID:        f.buyer.ID,
			SellerID:       f.trader.ID,
			Status:         enums.DisputeStatusAgreed,
		},
	})
	require.True(t, f.consumer.process(context.Background(), msg).ack)

	buyerRows := f.inboxOf(t, f.buyer.ID, enums.RoleBuyer)
	require.Len(t, buyerRows, 1)
	assert.Equal(t, enums.NotificationTypeDisputeUpdated, buyerRows[0].Type)
	assert.Equal(t, disputeID, *buyerRows[0].DisputeID)
	assert.Len(t, f.inboxOf(t, f.staff.ID, enums.RoleStaff), 1)
	assert.Empty(t, f.inboxOf(t, f.trader.ID, enums.RoleSeller))
}

func TestConsumerCompletionCalculatesReward(t *testing.T) {
	f := newFanout(t)
	offerID := uuid.New()
	orgID := uuid.New()

	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventOfferCompleted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   offerID,
		Data: payloads.OfferCompletedEvent{
			OfferID:        offerID,
			OrderRequestID: f.req.ID,
			BuyerID:        f.buyer.ID,
			SellerID:       f.trader.ID,
			OrganizationID: orgID,
		},
	})

	f.rewards.err = errors.New("commission table unavailable")
	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.nack)
	assert.Empty(t, f.store.keys, "failed event must stay retryable")

	f.rewards.err = nil
	require.True(t, f.consumer.process(context.Background(), msg).ack)
	assert.Equal(t, []uuid.UUID{offerID, offerID}, f.rewards.offers)
	assert.Len(t, f.inboxOf(t, f.buyer.ID, enums.RoleBuyer), 1)
	assert.Len(t, f.inboxOf(t, f.trader.ID, enums.RoleSeller), 1)

	var req models.OrderRequest
	require.NoError(t, f.conn.First(&req, "id = ?", f.req.ID).Error)
	assert.NotNil(t, req.BuyerLastNotifiedAt)
}

func TestConsumerAcksPermanentFailures(t *testing.T) {
	f := newFanout(t)
	offerID := uuid.New()
	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventOfferCompleted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   offerID,
		Data: payloads.OfferCompletedEvent{
			OfferID:        offerID,
			OrderRequestID: f.req.ID,
			BuyerID:        f.buyer.ID,
			SellerID:       f.trader.ID,
			OrganizationID: uuid.New(),
		},
	})

	f.rewards.err = pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
	result := f.consumer.process(context.Background(), msg)
	assert.True(t, result.ack)
	assert.False(t, result.nack)
	assert.Len(t, f.store.keys, 1, "dropped event keeps its claim")
}

func TestConsumerDeliveryFailureStillAcks(t *testing.T) {
	f := newFanout(t)
	f.transport.err = errors.New("gateway down")

	msg := f.message(t, outbox.DomainEvent{
		EventType:     enums.EventOfferSubmitted,
		AggregateType: enums.AggregateOffer,
		AggregateID:   uuid.New(),
		Data: payloads.OfferSubmittedEvent{
			OfferID:        uuid.New(),
			OrderRequestID: f.req.ID,
			BuyerID:        f.buyer.ID,
			SellerID:       f.trader.ID,
			OrganizationID: uuid.New(),
		},
	})
	assert.True(t, f.consumer.process(context.Background(), msg).ack)
	assert.Len(t, f.inboxOf(t, f.buyer.ID, enums.RoleBuyer), 1)
	assert.Len(t, f.transport.deliveries, 1)
}

func TestConsumerDropsUndecodableMessages(t *testing.T) {
	f := newFanout(t)
	ctx := context.Background()

	bad := &gcppubsub.Message{
		Data: []byte(`{"version":1}`),
		Attributes: map[string]string{
			"event_type":     string(enums.EventOfferSubmitted),
			"aggregate_type": string(enums.AggregateOffer),
			"aggregate_id":   uuid.NewString(),
		},
	}
	assert.True(t, f.consumer.process(ctx, bad).ack)

	unknown := &gcppubsub.Message{Attributes: map[string]string{"event_type": "reservation_released", "aggregate_id": "nope"}}
	assert.True(t, f.consumer.process(ctx, unknown).ack)

	var count int64
	require.NoError(t, f.conn.Model(&models.Notification{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestRunRequiresSubscription(t *testing.T) {
	f := newFanout(t)
	assert.Error(t, f.consumer.Run(context.Background()))
}

type fakeResult struct {
	err error
}

func (r fakeResult) Get(context.Context) (string, error) { return "server-id", r.err }

type fakePublisher struct {
	messages []*gcppubsub.Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakeResult{err: p.err}
}

func TestPubSubTransportPublishesDelivery(t *testing.T) {
	pub := &fakePublisher{}
	transport := newPubSubTransport(pub)
	requestID := uuid.New()
	d := Delivery{
		NotificationID: uuid.New(),
		UserID:         uuid.New(),
		Role:           enums.RoleSeller,
		Type:           enums.NotificationTypeRequestCreated,
		OrderRequestID: &requestID,
		CreatedAt:      time.Now().UTC(),
	}

	require.NoError(t, transport.Deliver(context.Background(), d))
	require.Len(t, pub.messages, 1)
	attrs := pub.messages[0].Attributes
	assert.Equal(t, d.NotificationID.String(), attrs["notification_id"])
	assert.Equal(t, "seller", attrs["role"])
	assert.Equal(t, string(enums.NotificationTypeRequestCreated), attrs["type"])

	var decoded Delivery
	require.NoError(t, json.Unmarshal(pub.messages[0].Data, &decoded))
	assert.Equal(t, requestID, *decoded.OrderRequestID)

	pub.err = errors.New("topic not found")
	assert.Error(t, transport.Deliver(context.Background(), d))

	_, err := NewPubSubTransport(nil)
	assert.Error(t, err)
}
