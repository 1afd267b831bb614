// Package requests owns the order-request ledger: creation, role-scoped reads and the
// payment, completion and decline transitions.
package requests

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/catalog"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
	EmitOnce(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
}

type addressNormalizer interface {
	Normalize(ctx context.Context, raw types.Address) (types.Address, error)
}

// URLSigner turns a stored file key into a time-limited download URL.
type URLSigner interface {
	URLFor(ctx context.Context, key string) (string, error)
}

type Service interface {
	CreateRequest(ctx context.Context, actor types.Actor, input CreateInput) (*models.OrderRequest, error)
	ListForRole(ctx context.Context, actor types.Actor, params ListParams) (pagination.Page[Summary], error)
	HideForStaff(ctx context.Context, requestID uuid.UUID, actor types.Actor) error
	GetView(ctx context.Context, requestID uuid.UUID, actor types.Actor, filter enums.OfferFilter, target *uuid.UUID) (*View, error)
	ConfirmPayment(ctx context.Context, requestID uuid.UUID, actor types.Actor, input PaymentInput) error
	Complete(ctx context.Context, requestID uuid.UUID, actor types.Actor) error
	Decline(ctx context.Context, requestID uuid.UUID, actor types.Actor) error
}

// ServiceParams wires the ledger. URLs is optional; without it attachment URLs are omitted.
type ServiceParams struct {
	Repo    Repository
	Tx      txRunner
	Outbox  outboxEmitter
	Catalog catalog.Lookup
	Address addressNormalizer
	URLs    URLSigner
	Logger  *logger.Logger
	Now     func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxEmitter
	catalog catalog.Lookup
	address addressNormalizer
	urls    URLSigner
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("requests repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog lookup required")
	}
	if params.Address == nil {
		return nil, fmt.Errorf("address normalizer required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		repo:    params.Repo,
		tx:      params.Tx,
		outbox:  params.Outbox,
		catalog: params.Catalog,
		address: params.Address,
		urls:    params.URLs,
		logg:    params.Logger,
		now:     now,
	}, nil
}

func (s *service) CreateRequest(ctx context.Context, actor types.Actor, input CreateInput) (*models.OrderRequest, error) {
	ctx, span := tracing.Start(ctx, "requests.create", attribute.Int("line_items", len(input.LineItems)))
	defer span.End()

	if !actor.Is(enums.RoleBuyer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers create order requests")
	}
	if details := validateCreate(input); len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order request").WithDetails(details)
	}

	lookup := catalog.NewCache(s.catalog)
	if err := s.checkReferences(ctx, lookup, input); err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	addr, err := s.address.Normalize(ctx, input.Address)
	if err != nil {
		return nil, err
	}

	sellerIDs := uniqueIDs(input.SelectedSellerIDs)
	now := s.now()

	req := &models.OrderRequest{
		ID:              uuid.New(),
		BuyerID:         actor.UserID,
		DeliveryAddress: datatypes.NewJSONType(addr),
		Comment:         trimmed(input.Comment),
		Status:          enums.OrderRequestStatusRequested,
	}

	asks := make([]models.RequestLineItem, 0, len(input.LineItems))
	var hints []models.LineItemCategory
	var productIDs []uuid.UUID
	categoryIDs := map[uuid.UUID]struct{}{}
	for _, item := range input.LineItems {
		ask := models.RequestLineItem{
			ID:             uuid.New(),
			OrderRequestID: req.ID,
			ProductID:      item.ProductID,
			Description:    trimmed(item.Description),
			BrandHint:      trimmed(item.BrandHint),
			Quantity:       item.Quantity,
		}
		asks = append(asks, ask)
		if item.ProductID != nil {
			productIDs = append(productIDs, *item.ProductID)
		}
		for _, c := range uniqueIDs(item.CategoryIDs) {
			hints = append(hints, models.LineItemCategory{LineItemID: ask.ID, CategoryID: c})
			categoryIDs[c] = struct{}{}
		}
	}

	productCategories, err := lookup.ProductCategoryIDs(ctx, uniqueIDs(productIDs))
	if err != nil {
		return nil, err
	}
	for _, c := range productCategories {
		categoryIDs[c] = struct{}{}
	}

	attachments := make([]models.Attachment, 0, len(input.Attachments))
	for _, a := range input.Attachments {
		attachments = append(attachments, models.Attachment{
			EntityType:  enums.AttachmentEntityOrderRequest,
			EntityID:    req.ID,
			FileKey:     strings.TrimSpace(a.FileKey),
			Name:        strings.TrimSpace(a.Name),
			ContentType: a.ContentType,
			SizeBytes:   a.SizeBytes,
		})
	}

	selected := make([]models.RequestSelectedSeller, 0, len(sellerIDs))
	for _, id := range sellerIDs {
		selected = append(selected, models.RequestSelectedSeller{OrderRequestID: req.ID, SellerID: id})
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		if err := repo.CreateRequest(ctx, req); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order request")
		}
		if err := repo.CreateLineItems(ctx, asks); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create line items")
		}
		if err := repo.CreateLineItemCategories(ctx, hints); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create category hints")
		}
		if err := repo.CreateAttachments(ctx, attachments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create attachments")
		}
		if err := repo.CreateSelectedSellers(ctx, selected); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create selected sellers")
		}

		// The buyer's own marker row keeps the request on their timeline without counting as unread.
		marker := &models.Notification{
			UserID:         actor.UserID,
			Role:           enums.RoleBuyer,
			Type:           enums.NotificationTypeRequestMarker,
			OrderRequestID: &req.ID,
			ViewedAt:       &now,
		}
		if err := repo.CreateNotification(ctx, marker); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create request marker")
		}

		_, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRequestCreated,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   req.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderRequestCreatedEvent{
				OrderRequestID:    req.ID,
				BuyerID:           req.BuyerID,
				CategoryIDs:       keys(categoryIDs),
				SelectedSellerIDs: sellerIDs,
				LineItemCount:     len(asks),
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_request_created")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, req.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"buyer_id":        actor.UserID.String(),
		"line_item_count": len(asks),
		"targeted":        len(sellerIDs) > 0,
	})
	s.logg.Info(logCtx, "order request created")
	return req, nil
}

func validateCreate(input CreateInput) map[string]string {
	details := map[string]string{}
	switch {
	case len(input.LineItems) == 0:
		details["lineItems"] = "at least one line item is required"
	case len(input.LineItems) > MaxLineItems:
		details["lineItems"] = fmt.Sprintf("at most %d line items are allowed", MaxLineItems)
	}
	for i, item := range input.LineItems {
		field := fmt.Sprintf("lineItems[%d]", i)
		described := trimmed(item.Description) != nil
		if item.ProductID == nil && !described {
			details[field] = "productId or description is required"
			continue
		}
		if item.ProductID == nil && trimmed(item.BrandHint) == nil && len(item.CategoryIDs) == 0 {
			details[field] = "a described item needs a brand or a category hint"
			continue
		}
		if item.Quantity <= 0 {
			details[field+".quantity"] = "must be positive"
		}
	}
	for i, a := range input.Attachments {
		if strings.TrimSpace(a.FileKey) == "" || strings.TrimSpace(a.Name) == "" {
			details[fmt.Sprintf("attachments[%d]", i)] = "fileKey and name are required"
		}
	}
	return details
}

// checkReferences validates catalog products, category hints and targeted sellers.
func (s *service) checkReferences(ctx context.Context, lookup catalog.Lookup, input CreateInput) error {
	details := map[string]string{}
	var hinted []uuid.UUID
	for i, item := range input.LineItems {
		hinted = append(hinted, item.CategoryIDs...)
		if item.ProductID == nil {
			continue
		}
		if _, err := lookup.FindProduct(ctx, *item.ProductID); err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				details[fmt.Sprintf("lineItems[%d].productId", i)] = "unknown product"
				continue
			}
			return err
		}
	}

	hinted = uniqueIDs(hinted)
	if len(hinted) > 0 {
		found, err := lookup.FindDescribedProductCategories(ctx, hinted)
		if err != nil {
			return err
		}
		if len(found) != len(hinted) {
			details["lineItems.categoryIds"] = "unknown category"
		}
	}

	sellers := uniqueIDs(input.SelectedSellerIDs)
	if len(sellers) > 0 {
		count, err := s.repo.CountUsersWithRole(ctx, sellers, enums.RoleSeller)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check selected sellers")
		}
		if count != int64(len(sellers)) {
			details["selectedSellerIds"] = "every selected seller must be a registered seller"
		}
	}

	if len(details) > 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "invalid order request").WithDetails(details)
	}
	return nil
}

func (s *service) HideForStaff(ctx context.Context, requestID uuid.UUID, actor types.Actor) error {
	if !actor.Is(enums.RoleStaff) {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only staff can hide order requests")
	}
	if _, err := s.findRequest(ctx, s.repo, requestID); err != nil {
		return err
	}
	if err := s.repo.Hide(ctx, requestID, actor.UserID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "hide order request")
	}
	s.logg.Info(s.logg.WithOrderRequestID(ctx, requestID.String()), "order request hidden")
	return nil
}

func (s *service) ConfirmPayment(ctx context.Context, requestID uuid.UUID, actor types.Actor, input PaymentInput) error {
	ctx, span := tracing.Start(ctx, "requests.confirm_payment",
		attribute.String("order_request_id", requestID.String()),
		attribute.Bool("postponed", input.Postponed))
	defer span.End()

	if input.Method != nil && !input.Method.IsValid() {
		return pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method")
	}

	var confirmed enums.OrderRequestStatus
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := s.findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if err := authorizeParty(req, actor); err != nil {
			return err
		}
		offer, err := s.selectedOffer(ctx, repo, req)
		if err != nil {
			return err
		}

		now := s.now()
		switch {
		case req.Status == enums.OrderRequestStatusApproved,
			req.Status == enums.OrderRequestStatusPaymentPostponed && !input.Postponed:
			confirmed = enums.OrderRequestStatusPaid
			if input.Postponed {
				confirmed = enums.OrderRequestStatusPaymentPostponed
			}
			updates := map[string]any{"status": confirmed}
			method := input.Method
			if method == nil && input.Postponed {
				postpaid := enums.PaymentMethodPostpaid
				method = &postpaid
			}
			if method != nil {
				updates["payment_method"] = *method
			}
			if confirmed == enums.OrderRequestStatusPaid {
				updates["paid_at"] = now
			}
			ok, err := repo.UpdateRequestStatus(ctx, req.ID, []enums.OrderRequestStatus{req.Status}, updates)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order request")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "order request changed concurrently")
			}
			offerTarget := enums.OfferStatusPaid
			if confirmed == enums.OrderRequestStatusPaymentPostponed {
				offerTarget = enums.OfferStatusPaymentPostponed
			}
			ok, err = repo.UpdateOfferStatus(ctx, offer.ID,
				[]enums.OfferStatus{enums.OfferStatusApproved, enums.OfferStatusPaymentPostponed}, offerTarget)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update offer")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "offer changed concurrently")
			}
		case req.Status == enums.OrderRequestStatusCompleted && req.PaidAt == nil && !input.Postponed:
			confirmed = enums.OrderRequestStatusCompleted
			ok, err := repo.SettleDeferredPayment(ctx, req.ID, now)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle deferred payment")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeConflict, "payment already settled")
			}
		default:
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("payment cannot be confirmed for a %s order request", req.Status))
		}

		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentConfirmed,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   req.ID,
			Actor:         actorRef(actor),
			Data: payloads.PaymentConfirmedEvent{
				OfferID:        offer.ID,
				OrderRequestID: req.ID,
				BuyerID:        req.BuyerID,
				SellerID:       offer.SellerID,
				OrganizationID: offer.OrganizationID,
				Status:         confirmed,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment_confirmed")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, requestID.String())
	s.logg.Info(s.logg.WithField(logCtx, "status", confirmed), "payment confirmed")
	return nil
}

func (s *service) Complete(ctx context.Context, requestID uuid.UUID, actor types.Actor) error {
	ctx, span := tracing.Start(ctx, "requests.complete", attribute.String("order_request_id", requestID.String()))
	defer span.End()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := s.findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if err := authorizeParty(req, actor); err != nil {
			return err
		}
		if !req.Status.IsPaidStage() {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("a %s order request cannot be completed", req.Status))
		}
		offer, err := s.selectedOffer(ctx, repo, req)
		if err != nil {
			return err
		}

		paidStages := []enums.OrderRequestStatus{enums.OrderRequestStatusPaid, enums.OrderRequestStatusPaymentPostponed}
		ok, err := repo.UpdateRequestStatus(ctx, req.ID, paidStages, map[string]any{
			"status":       enums.OrderRequestStatusCompleted,
			"completed_at": s.now(),
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete order request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order request changed concurrently")
		}
		ok, err = repo.UpdateOfferStatus(ctx, offer.ID,
			[]enums.OfferStatus{enums.OfferStatusPaid, enums.OfferStatusPaymentPostponed}, enums.OfferStatusCompleted)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "complete offer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer changed concurrently")
		}

		var method enums.PaymentMethod
		if req.PaymentMethod != nil {
			method = *req.PaymentMethod
		}
		_, err = s.outbox.EmitOnce(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferCompleted,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         actorRef(actor),
			Data: payloads.OfferCompletedEvent{
				OfferID:        offer.ID,
				OrderRequestID: req.ID,
				BuyerID:        req.BuyerID,
				SellerID:       offer.SellerID,
				OrganizationID: offer.OrganizationID,
				PaymentMethod:  method,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer_completed")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	s.logg.Info(s.logg.WithOrderRequestID(ctx, requestID.String()), "order request completed")
	return nil
}

func (s *service) Decline(ctx context.Context, requestID uuid.UUID, actor types.Actor) error {
	ctx, span := tracing.Start(ctx, "requests.decline", attribute.String("order_request_id", requestID.String()))
	defer span.End()

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := s.findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if err := authorizeParty(req, actor); err != nil {
			return err
		}
		if req.Status != enums.OrderRequestStatusRequested && req.Status != enums.OrderRequestStatusApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("a %s order request cannot be declined", req.Status))
		}

		ok, err := repo.UpdateRequestStatus(ctx, req.ID, []enums.OrderRequestStatus{req.Status}, map[string]any{
			"status": enums.OrderRequestStatusDeclined,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline order request")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order request changed concurrently")
		}
		if req.SelectedOfferID != nil {
			if _, err := repo.UpdateOfferStatus(ctx, *req.SelectedOfferID,
				[]enums.OfferStatus{enums.OfferStatusApproved}, enums.OfferStatusDeclined); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decline offer")
			}
		}

		offers, err := repo.OffersFor(ctx, []uuid.UUID{req.ID})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
		}
		sellers := make([]uuid.UUID, 0, len(offers))
		for _, o := range offers {
			sellers = append(sellers, o.SellerID)
		}

		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderRequestDeclined,
			AggregateType: enums.AggregateOrderRequest,
			AggregateID:   req.ID,
			Actor:         actorRef(actor),
			Data: payloads.OrderRequestDeclinedEvent{
				OrderRequestID: req.ID,
				BuyerID:        req.BuyerID,
				PreviousStatus: req.Status,
				SellerIDs:      sellers,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit order_request_declined")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return err
	}
	s.logg.Info(s.logg.WithOrderRequestID(ctx, requestID.String()), "order request declined")
	return nil
}

func (s *service) findRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.OrderRequest, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order request id required")
	}
	req, err := repo.FindRequest(ctx, id)
	if err != nil {
		return nil, pkgerrors.Load(err, "order request")
	}
	return req, nil
}

func (s *service) selectedOffer(ctx context.Context, repo Repository, req *models.OrderRequest) (*models.Offer, error) {
	if req.SelectedOfferID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order request has no accepted offer")
	}
	offer, err := repo.FindOffer(ctx, *req.SelectedOfferID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load selected offer")
	}
	return offer, nil
}

// authorizeParty admits the owning buyer and staff to lifecycle transitions.
func authorizeParty(req *models.OrderRequest, actor types.Actor) error {
	switch actor.Role {
	case enums.RoleBuyer:
		if req.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order request belongs to another buyer")
		}
		return nil
	case enums.RoleStaff:
		return nil
	case enums.RoleSeller:
		return pkgerrors.New(pkgerrors.CodeForbidden, "sellers cannot change the order request lifecycle")
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

func actorRef(actor types.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, OrganizationID: actor.OrganizationID, Role: actor.Role}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func uniqueIDs(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func keys(set map[uuid.UUID]struct{}) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
