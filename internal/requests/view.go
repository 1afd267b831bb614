package requests

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/ranking"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/status"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pagination"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

func (s *service) ListForRole(ctx context.Context, actor types.Actor, params ListParams) (pagination.Page[Summary], error) {
	if !actor.Role.IsValid() {
		return pagination.Page[Summary]{}, pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return pagination.Page[Summary]{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown status filter")
	}
	cursor, err := pagination.ParseCursor(params.Pagination.Cursor)
	if err != nil {
		return pagination.Page[Summary]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	rows, err := s.repo.ListRequests(ctx, ListQuery{
		Role:     actor.Role,
		ViewerID: actor.UserID,
		Status:   params.Status,
		Cursor:   cursor,
		Limit:    params.Pagination.Limit,
	})
	if err != nil {
		return pagination.Page[Summary]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list order requests")
	}
	page := pagination.Slice(rows, params.Pagination.Limit, func(r models.OrderRequest) pagination.Cursor {
		return pagination.Cursor{CreatedAt: r.CreatedAt, ID: r.ID}
	})

	ids := make([]uuid.UUID, 0, len(page.Items))
	for _, r := range page.Items {
		ids = append(ids, r.ID)
	}
	offers, err := s.repo.OffersFor(ctx, ids)
	if err != nil {
		return pagination.Page[Summary]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offers")
	}
	byRequest := make(map[uuid.UUID][]models.Offer, len(ids))
	for _, o := range offers {
		byRequest[o.OrderRequestID] = append(byRequest[o.OrderRequestID], o)
	}

	items := make([]Summary, 0, len(page.Items))
	for _, r := range page.Items {
		reqOffers := byRequest[r.ID]
		items = append(items, Summary{
			ID:               r.ID,
			BuyerID:          r.BuyerID,
			Status:           r.Status,
			Label:            status.Project(r.Status, actor.Role, projection(&r, reqOffers, actor)),
			OfferCount:       len(reqOffers),
			HasActiveDispute: r.HasActiveDispute,
			City:             r.DeliveryAddress.Data().City,
			CreatedAt:        r.CreatedAt,
		})
	}
	return pagination.Page[Summary]{Items: items, NextCursor: page.NextCursor}, nil
}

func (s *service) GetView(ctx context.Context, requestID uuid.UUID, actor types.Actor, filter enums.OfferFilter, target *uuid.UUID) (*View, error) {
	ctx, span := tracing.Start(ctx, "requests.view",
		attribute.String("order_request_id", requestID.String()),
		attribute.String("role", string(actor.Role)))
	defer span.End()

	req, err := s.findRequest(ctx, s.repo, requestID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, req, actor); err != nil {
		return nil, err
	}

	var (
		asks        []models.RequestLineItem
		offers      []models.Offer
		attachments []models.Attachment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		asks, err = s.repo.Asks(gctx, req.ID)
		return err
	})
	g.Go(func() error {
		var err error
		offers, err = s.repo.OffersFor(gctx, []uuid.UUID{req.ID})
		return err
	})
	g.Go(func() error {
		var err error
		attachments, err = s.repo.Attachments(gctx, enums.AttachmentEntityOrderRequest, req.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		tracing.RecordError(span, err)
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assemble order request view")
	}

	visible := visibleOffers(req, offers, actor)
	offerIDs := make([]uuid.UUID, 0, len(visible))
	for _, o := range visible {
		offerIDs = append(offerIDs, o.ID)
	}
	items, err := s.repo.FulfillmentItems(ctx, offerIDs)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer line items")
	}

	itemsByOffer := make(map[uuid.UUID][]models.RequestLineItem, len(visible))
	for _, item := range items {
		if item.OfferID != nil {
			itemsByOffer[*item.OfferID] = append(itemsByOffer[*item.OfferID], item)
		}
	}

	offerDTOs := make([]OfferDTO, 0, len(visible))
	for _, o := range visible {
		lines := itemsByOffer[o.ID]
		total := decimal.Zero
		for _, l := range lines {
			total = total.Add(l.Total())
		}
		offerDTOs = append(offerDTOs, OfferDTO{
			ID:               o.ID,
			SellerID:         o.SellerID,
			OrganizationID:   o.OrganizationID,
			Status:           o.Status,
			DistanceKm:       o.DistanceKm,
			Comment:          o.Comment,
			IsSelected:       o.IsSelected,
			HasActiveDispute: o.HasActiveDispute,
			Total:            total,
			CreatedAt:        o.CreatedAt,
			LineItems:        lineItemDTOs(lines),
		})
	}

	ranked := ranking.Rank(ranking.FromModels(visible, items), filter, target)

	return &View{
		OrderRequest: RequestDTO{
			ID:               req.ID,
			BuyerID:          req.BuyerID,
			Status:           req.Status,
			Label:            status.Project(req.Status, actor.Role, projection(req, offers, actor)),
			DeliveryAddress:  req.DeliveryAddress.Data(),
			Comment:          req.Comment,
			PaymentMethod:    req.PaymentMethod,
			SelectedOfferID:  req.SelectedOfferID,
			HasActiveDispute: req.HasActiveDispute,
			PaidAt:           req.PaidAt,
			CompletedAt:      req.CompletedAt,
			CreatedAt:        req.CreatedAt,
			LineItems:        lineItemDTOs(asks),
			Attachments:      s.attachmentDTOs(ctx, attachments),
		},
		Offers:          offerDTOs,
		RankedSelection: ranking.IDs(ranked),
	}, nil
}

// authorizeRead hides requests a viewer may not see behind NOT_FOUND.
func (s *service) authorizeRead(ctx context.Context, req *models.OrderRequest, actor types.Actor) error {
	notFound := pkgerrors.New(pkgerrors.CodeNotFound, "order request not found")
	switch actor.Role {
	case enums.RoleBuyer:
		if req.BuyerID != actor.UserID {
			return notFound
		}
		return nil
	case enums.RoleSeller:
		ok, err := s.repo.SellerCanSee(ctx, req.ID, actor.UserID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check seller visibility")
		}
		if !ok {
			return notFound
		}
		return nil
	case enums.RoleStaff:
		return nil
	default:
		return pkgerrors.New(pkgerrors.CodeForbidden, "unknown role")
	}
}

// visibleOffers applies per-role offer filtering. After acceptance only the selected offer
// remains; sellers only ever see their own.
func visibleOffers(req *models.OrderRequest, offers []models.Offer, actor types.Actor) []models.Offer {
	out := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if req.SelectedOfferID != nil && o.ID != *req.SelectedOfferID {
			continue
		}
		if actor.Is(enums.RoleSeller) && o.SellerID != actor.UserID {
			continue
		}
		out = append(out, o)
	}
	return out
}

func projection(req *models.OrderRequest, offers []models.Offer, actor types.Actor) status.Context {
	c := status.Context{
		HasOffers:        len(offers) > 0,
		DisputeOpen:      req.HasActiveDispute,
		PaymentPostponed: req.Status == enums.OrderRequestStatusCompleted && req.PaidAt == nil,
	}
	if actor.Is(enums.RoleSeller) {
		for _, o := range offers {
			if o.SellerID != actor.UserID {
				continue
			}
			c.HasOwnOffer = true
			c.IsWinner = req.SelectedOfferID != nil && *req.SelectedOfferID == o.ID
		}
	}
	return c
}

func (s *service) attachmentDTOs(ctx context.Context, rows []models.Attachment) []AttachmentDTO {
	out := make([]AttachmentDTO, 0, len(rows))
	for _, a := range rows {
		dto := AttachmentDTO{ID: a.ID, Name: a.Name, ContentType: a.ContentType, SizeBytes: a.SizeBytes}
		if s.urls != nil {
			url, err := s.urls.URLFor(ctx, a.FileKey)
			if err != nil {
				s.logg.Warn(s.logg.WithField(ctx, "file_key", a.FileKey), "attachment url unavailable")
			} else {
				dto.URL = url
			}
		}
		out = append(out, dto)
	}
	return out
}
