// Package offers handles seller submissions against open requests and the buyer's acceptance.
package offers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/address"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/outbox/payloads"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) (string, error)
}

// Router decides whether an open request is routed to a seller.
type Router interface {
	SellerMatches(ctx context.Context, requestID, sellerID uuid.UUID) (bool, error)
}

// LineInput fulfills one ask of the request.
type LineInput struct {
	RequestedItemID   uuid.UUID
	Quantity          int
	UnitPrice         decimal.Decimal
	InStockQuantity   int
	BackorderQuantity int
	DeliveryDays      int
}

// Logistics overrides values otherwise derived from seller data.
type Logistics struct {
	DistanceKm *float64
}

type SubmitInput struct {
	RequestID uuid.UUID
	LineItems []LineInput
	Logistics Logistics
	Comment   *string
}

type Service interface {
	SubmitOffer(ctx context.Context, actor types.Actor, input SubmitInput) (*models.Offer, error)
	AcceptOffer(ctx context.Context, actor types.Actor, requestID, offerID uuid.UUID) (*models.Offer, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	router Router
	logg   *logger.Logger
}

func NewService(repo Repository, tx txRunner, outbox outboxEmitter, router Router, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("offers repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if router == nil {
		return nil, fmt.Errorf("request router required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, outbox: outbox, router: router, logg: logg}, nil
}

// Clamp bounds the fulfilled count by both the offered and the asked quantity.
func Clamp(offered, asked int) int {
	return max(0, min(offered, asked))
}

func (s *service) SubmitOffer(ctx context.Context, actor types.Actor, input SubmitInput) (*models.Offer, error) {
	ctx, span := tracing.Start(ctx, "offers.submit",
		attribute.String("order_request_id", input.RequestID.String()),
		attribute.String("seller_id", actor.UserID.String()))
	defer span.End()

	if !actor.Is(enums.RoleSeller) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only sellers submit offers")
	}
	if actor.OrganizationID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller organization missing")
	}
	if details := validateSubmit(input); len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid offer").WithDetails(details)
	}

	req, err := s.findRequest(ctx, s.repo, input.RequestID)
	if err != nil {
		return nil, err
	}
	if req.Status != enums.OrderRequestStatusRequested {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "order request is no longer accepting offers")
	}

	existing, err := s.repo.FindOfferBySeller(ctx, req.ID, actor.UserID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load existing offer")
	}
	resubmitted := existing != nil
	if !resubmitted {
		eligible, err := s.router.SellerMatches(ctx, req.ID, actor.UserID)
		if err != nil {
			return nil, err
		}
		if !eligible {
			return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order request is not routed to this seller")
		}
	}

	distance, err := s.distance(ctx, req, actor.UserID, input.Logistics)
	if err != nil {
		return nil, err
	}

	var stored *models.Offer
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		// Re-read under the transaction so an acceptance racing this submission wins.
		current, err := s.findRequest(ctx, repo, req.ID)
		if err != nil {
			return err
		}
		if current.Status != enums.OrderRequestStatusRequested {
			return pkgerrors.New(pkgerrors.CodeConflict, "order request is no longer accepting offers")
		}

		asks, err := repo.Asks(ctx, req.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load asks")
		}
		askByID := make(map[uuid.UUID]models.RequestLineItem, len(asks))
		for _, a := range asks {
			askByID[a.ID] = a
		}
		unknown := map[string]string{}
		for i, line := range input.LineItems {
			if _, ok := askByID[line.RequestedItemID]; !ok {
				unknown[fmt.Sprintf("lineItems[%d].requestedItemId", i)] = "not an item of this order request"
			}
		}
		if len(unknown) > 0 {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid offer").WithDetails(unknown)
		}

		offer := &models.Offer{
			ID:             uuid.New(),
			OrderRequestID: req.ID,
			SellerID:       actor.UserID,
			OrganizationID: *actor.OrganizationID,
			Status:         enums.OfferStatusSubmitted,
			DistanceKm:     distance,
			Comment:        trimmed(input.Comment),
		}
		if err := repo.UpsertOffer(ctx, offer); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store offer")
		}
		stored, err = repo.FindOfferBySeller(ctx, req.ID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload offer")
		}

		lines := make([]models.RequestLineItem, 0, len(input.LineItems))
		for _, line := range input.LineItems {
			ask := askByID[line.RequestedItemID]
			askID := ask.ID
			offerID := stored.ID
			lines = append(lines, models.RequestLineItem{
				OrderRequestID:    req.ID,
				OfferID:           &offerID,
				RequestedItemID:   &askID,
				ProductID:         ask.ProductID,
				Description:       ask.Description,
				BrandHint:         ask.BrandHint,
				Quantity:          line.Quantity,
				Count:             Clamp(line.Quantity, ask.Quantity),
				UnitPrice:         line.UnitPrice,
				InStockQuantity:   line.InStockQuantity,
				BackorderQuantity: line.BackorderQuantity,
				DeliveryDays:      line.DeliveryDays,
			})
		}
		if err := repo.ReplaceLines(ctx, stored.ID, lines); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store offer lines")
		}

		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferSubmitted,
			AggregateType: enums.AggregateOffer,
			AggregateID:   stored.ID,
			Actor:         actorRef(actor),
			Data: payloads.OfferSubmittedEvent{
				OfferID:        stored.ID,
				OrderRequestID: req.ID,
				BuyerID:        req.BuyerID,
				SellerID:       actor.UserID,
				OrganizationID: stored.OrganizationID,
				Resubmitted:    resubmitted,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer_submitted")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, req.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"offer_id":    stored.ID.String(),
		"seller_id":   actor.UserID.String(),
		"resubmitted": resubmitted,
		"distance_km": distance,
	})
	s.logg.Info(logCtx, "offer submitted")
	return stored, nil
}

func validateSubmit(input SubmitInput) map[string]string {
	details := map[string]string{}
	if input.RequestID == uuid.Nil {
		details["orderRequestId"] = "required"
	}
	if len(input.LineItems) == 0 {
		details["lineItems"] = "at least one line item is required"
	}
	seen := make(map[uuid.UUID]struct{}, len(input.LineItems))
	for i, line := range input.LineItems {
		field := fmt.Sprintf("lineItems[%d]", i)
		if _, dup := seen[line.RequestedItemID]; dup {
			details[field+".requestedItemId"] = "each ask may be fulfilled once"
		}
		seen[line.RequestedItemID] = struct{}{}
		if line.Quantity <= 0 {
			details[field+".quantity"] = "must be positive"
		}
		if line.UnitPrice.IsNegative() {
			details[field+".unitPrice"] = "must not be negative"
		}
		if line.InStockQuantity < 0 || line.BackorderQuantity < 0 || line.DeliveryDays < 0 {
			details[field] = "stock, backorder and delivery days must not be negative"
		}
	}
	if d := input.Logistics.DistanceKm; d != nil && *d < 0 {
		details["logistics.distanceKm"] = "must not be negative"
	}
	return details
}

// distance prefers the seller's stated logistics, then the great-circle distance between the
// seller and the delivery address, and falls back to zero when either side lacks coordinates.
func (s *service) distance(ctx context.Context, req *models.OrderRequest, sellerID uuid.UUID, logistics Logistics) (float64, error) {
	if logistics.DistanceKm != nil {
		return *logistics.DistanceKm, nil
	}
	seller, err := s.repo.FindUser(ctx, sellerID)
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller")
	}
	dest := req.DeliveryAddress.Data()
	if seller.Lat == nil || seller.Lng == nil || !dest.HasCoordinates() {
		return 0, nil
	}
	return address.DistanceKm(*seller.Lat, *seller.Lng, dest.Lat, dest.Lng), nil
}

func (s *service) AcceptOffer(ctx context.Context, actor types.Actor, requestID, offerID uuid.UUID) (*models.Offer, error) {
	ctx, span := tracing.Start(ctx, "offers.accept",
		attribute.String("order_request_id", requestID.String()),
		attribute.String("offer_id", offerID.String()))
	defer span.End()

	if !actor.Is(enums.RoleBuyer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the buyer accepts offers")
	}

	var accepted *models.Offer
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		req, err := s.findRequest(ctx, repo, requestID)
		if err != nil {
			return err
		}
		if req.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order request belongs to another buyer")
		}
		if req.Status != enums.OrderRequestStatusRequested {
			return pkgerrors.New(pkgerrors.CodeConflict, "an offer was already accepted or the request is closed")
		}

		offer, err := repo.FindOffer(ctx, offerID)
		if errors.Is(err, gorm.ErrRecordNotFound) || (err == nil && offer.OrderRequestID != req.ID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "offer not found")
		}
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer")
		}

		ok, err := repo.SelectOffer(ctx, req.ID, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "select offer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "an offer was already accepted or the request is closed")
		}
		ok, err = repo.MarkAccepted(ctx, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept offer")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "offer is no longer open")
		}
		offer.Status = enums.OfferStatusApproved
		offer.IsSelected = true
		accepted = offer

		_, err = s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOfferAccepted,
			AggregateType: enums.AggregateOffer,
			AggregateID:   offer.ID,
			Actor:         actorRef(actor),
			Data: payloads.OfferAcceptedEvent{
				OfferID:        offer.ID,
				OrderRequestID: req.ID,
				BuyerID:        req.BuyerID,
				SellerID:       offer.SellerID,
				OrganizationID: offer.OrganizationID,
			},
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit offer_accepted")
		}
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, requestID.String())
	s.logg.Info(s.logg.WithField(logCtx, "offer_id", offerID.String()), "offer accepted")
	return accepted, nil
}

func (s *service) findRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.OrderRequest, error) {
	req, err := repo.FindRequest(ctx, id)
	return req, pkgerrors.Load(err, "order request")
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
