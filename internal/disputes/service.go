// Package disputes runs the refund and exchange workflow on fulfilled line items.
package disputes

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
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

type Service interface {
	Open(ctx context.Context, actor types.Actor, input OpenInput) (*DisputeDTO, error)
	Reply(ctx context.Context, id uuid.UUID, actor types.Actor, text string) (*DisputeDTO, error)
	Agree(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error)
	Reject(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error)
	Resolve(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error)
	Close(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error)
	Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error)
}

type service struct {
	repo   Repository
	tx     txRunner
	outbox outboxEmitter
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(repo Repository, tx txRunner, outbox outboxEmitter, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("disputes repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:   repo,
		tx:     tx,
		outbox: outbox,
		logg:   logg,
		now:    func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Open(ctx context.Context, actor types.Actor, input OpenInput) (*DisputeDTO, error) {
	ctx, span := tracing.Start(ctx, "disputes.open",
		attribute.String("line_item_id", input.LineItemID.String()),
		attribute.String("kind", string(input.Kind)))
	defer span.End()

	if !actor.Is(enums.RoleBuyer) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only buyers open disputes")
	}
	reasons := cleanReasons(input.Reasons)
	if details := validateOpen(input, reasons); len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute").WithDetails(details)
	}

	var created *models.Dispute
	var attachments []models.Attachment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		item, err := repo.FindLineItem(ctx, input.LineItemID)
		if err != nil {
			return pkgerrors.Load(err, "line item")
		}
		req, err := s.findRequest(ctx, repo, item.OrderRequestID)
		if err != nil {
			return err
		}
		if req.BuyerID != actor.UserID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order request belongs to another buyer")
		}
		if item.IsAsk() || req.SelectedOfferID == nil || *item.OfferID != *req.SelectedOfferID {
			return pkgerrors.New(pkgerrors.CodeValidation, "only items of the accepted offer can be disputed").
				WithDetails(map[string]string{"lineItemId": "not a fulfilled item of the accepted offer"})
		}
		if !req.Status.IsPaidStage() && req.Status != enums.OrderRequestStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("a %s order request cannot be disputed", req.Status))
		}
		if input.Quantity > item.Count {
			return pkgerrors.New(pkgerrors.CodeValidation, "invalid dispute").
				WithDetails(map[string]string{"quantity": fmt.Sprintf("must not exceed the fulfilled count %d", item.Count)})
		}
		offer, err := s.findOffer(ctx, repo, *item.OfferID)
		if err != nil {
			return err
		}

		active, err := repo.HasActive(ctx, item.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check active disputes")
		}
		if active {
			return pkgerrors.New(pkgerrors.CodeConflict, "a dispute is already open for this line item")
		}

		created = &models.Dispute{
			ID:                uuid.New(),
			OrderRequestID:    req.ID,
			OfferID:           offer.ID,
			LineItemID:        item.ID,
			Kind:              input.Kind,
			Status:            enums.DisputeStatusPending,
			RequestedQuantity: item.Count,
			ClaimedQuantity:   input.Quantity,
			Reasons:           datatypes.JSONSlice[string](reasons),
			Comment:           trimmed(input.Comment),
			OpenedBy:          actor.UserID,
		}
		if err := repo.Create(ctx, created); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a dispute is already open for this line item")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute")
		}

		for _, a := range input.Attachments {
			attachments = append(attachments, models.Attachment{
				EntityType:  enums.AttachmentEntityDispute,
				EntityID:    created.ID,
				FileKey:     strings.TrimSpace(a.FileKey),
				Name:        strings.TrimSpace(a.Name),
				ContentType: a.ContentType,
				SizeBytes:   a.SizeBytes,
			})
		}
		if err := repo.CreateAttachments(ctx, attachments); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create dispute attachments")
		}
		if err := repo.FlagActive(ctx, offer.ID, req.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "flag active dispute")
		}
		return s.emit(ctx, tx, enums.EventDisputeOpened, actor, created, req, offer)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, created.OrderRequestID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"dispute_id": created.ID.String(),
		"kind":       created.Kind,
		"quantity":   created.ClaimedQuantity,
	})
	s.logg.Info(logCtx, "dispute opened")
	return toDTO(created, attachments), nil
}

func validateOpen(input OpenInput, reasons []string) map[string]string {
	details := map[string]string{}
	if input.LineItemID == uuid.Nil {
		details["lineItemId"] = "required"
	}
	if !input.Kind.IsValid() {
		details["kind"] = "must be REFUND or EXCHANGE"
	}
	if input.Quantity <= 0 {
		details["quantity"] = "must be positive"
	}
	switch {
	case len(reasons) == 0:
		details["reasons"] = "at least one reason is required"
	case len(reasons) > MaxReasons:
		details["reasons"] = fmt.Sprintf("at most %d reasons are allowed", MaxReasons)
	}
	for i, a := range input.Attachments {
		if strings.TrimSpace(a.FileKey) == "" || strings.TrimSpace(a.Name) == "" {
			details[fmt.Sprintf("attachments[%d]", i)] = "fileKey and name are required"
		}
	}
	return details
}

// step is one guarded move of the workflow.
type step struct {
	name    string
	from    []enums.DisputeStatus
	event   enums.OutboxEventType
	allowed func(p parties, actor types.Actor) bool
	updates func(now time.Time) map[string]any
}

func (s *service) Reply(ctx context.Context, id uuid.UUID, actor types.Actor, text string) (*DisputeDTO, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "reply text required").
			WithDetails(map[string]string{"text": "required"})
	}
	return s.apply(ctx, id, actor, step{
		name:    "reply",
		from:    []enums.DisputeStatus{enums.DisputeStatusPending, enums.DisputeStatusAgreed, enums.DisputeStatusResolved},
		event:   enums.EventDisputeUpdated,
		allowed: parties.sellerOrStaff,
		updates: func(time.Time) map[string]any { return map[string]any{"reply": text} },
	})
}

func (s *service) Agree(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error) {
	return s.apply(ctx, id, actor, step{
		name:    "agree",
		from:    []enums.DisputeStatus{enums.DisputeStatusPending},
		event:   enums.EventDisputeUpdated,
		allowed: parties.sellerOrStaff,
		updates: func(time.Time) map[string]any {
			return map[string]any{"status": enums.DisputeStatusAgreed}
		},
	})
}

func (s *service) Reject(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error) {
	return s.apply(ctx, id, actor, step{
		name:    "reject",
		from:    []enums.DisputeStatus{enums.DisputeStatusPending, enums.DisputeStatusAgreed},
		event:   enums.EventDisputeUpdated,
		allowed: parties.sellerOrStaff,
		updates: func(now time.Time) map[string]any {
			return map[string]any{"status": enums.DisputeStatusResolved, "rejected": true, "resolved_at": now}
		},
	})
}

func (s *service) Resolve(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error) {
	return s.apply(ctx, id, actor, step{
		name:    "resolve",
		from:    []enums.DisputeStatus{enums.DisputeStatusAgreed},
		event:   enums.EventDisputeUpdated,
		allowed: parties.sellerOrStaff,
		updates: func(now time.Time) map[string]any {
			return map[string]any{"status": enums.DisputeStatusResolved, "resolved_at": now}
		},
	})
}

func (s *service) Close(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error) {
	return s.apply(ctx, id, actor, step{
		name:    "close",
		from:    []enums.DisputeStatus{enums.DisputeStatusPending, enums.DisputeStatusAgreed, enums.DisputeStatusResolved},
		event:   enums.EventDisputeClosed,
		allowed: parties.buyerOrStaff,
		updates: func(now time.Time) map[string]any {
			return map[string]any{"status": enums.DisputeStatusClosed, "closed_at": now}
		},
	})
}

func (s *service) apply(ctx context.Context, id uuid.UUID, actor types.Actor, st step) (*DisputeDTO, error) {
	ctx, span := tracing.Start(ctx, "disputes."+st.name, attribute.String("dispute_id", id.String()))
	defer span.End()

	var updated *models.Dispute
	var attachments []models.Attachment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dispute, p, err := s.load(ctx, repo, id)
		if err != nil {
			return err
		}
		if !p.canSee(actor) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
		}
		if !st.allowed(p, actor) {
			return pkgerrors.New(pkgerrors.CodeForbidden, fmt.Sprintf("%s is not allowed for this role", st.name))
		}
		if !slices.Contains(st.from, dispute.Status) {
			return pkgerrors.New(pkgerrors.CodeStateConflict,
				fmt.Sprintf("cannot %s a %s dispute", st.name, dispute.Status))
		}

		ok, err := repo.Transition(ctx, dispute.ID, st.from, st.updates(s.now()))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update dispute")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dispute changed concurrently")
		}
		if st.event == enums.EventDisputeClosed {
			if err := repo.RecomputeFlags(ctx, dispute.OfferID, dispute.OrderRequestID); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "recompute dispute flags")
			}
		}

		updated, err = repo.FindDispute(ctx, dispute.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload dispute")
		}
		attachments, err = repo.Attachments(ctx, dispute.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute attachments")
		}
		return s.emit(ctx, tx, st.event, actor, updated, p.request, p.offer)
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithOrderRequestID(ctx, updated.OrderRequestID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"dispute_id": updated.ID.String(),
		"status":     updated.Status,
		"action":     st.name,
	})
	s.logg.Info(logCtx, "dispute updated")
	return toDTO(updated, attachments), nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID, actor types.Actor) (*DisputeDTO, error) {
	dispute, p, err := s.load(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if !p.canSee(actor) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dispute not found")
	}
	attachments, err := s.repo.Attachments(ctx, dispute.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dispute attachments")
	}
	return toDTO(dispute, attachments), nil
}

// parties are the request and offer a dispute hangs off.
type parties struct {
	request *models.OrderRequest
	offer   *models.Offer
}

func (p parties) isBuyer(actor types.Actor) bool {
	return actor.Is(enums.RoleBuyer) && p.request.BuyerID == actor.UserID
}

func (p parties) isSeller(actor types.Actor) bool {
	return actor.Is(enums.RoleSeller) &&
		(p.offer.SellerID == actor.UserID || actor.Organization() == p.offer.OrganizationID)
}

func (p parties) canSee(actor types.Actor) bool {
	return p.isBuyer(actor) || p.isSeller(actor) || actor.Is(enums.RoleStaff)
}

func (p parties) sellerOrStaff(actor types.Actor) bool {
	return p.isSeller(actor) || actor.Is(enums.RoleStaff)
}

func (p parties) buyerOrStaff(actor types.Actor) bool {
	return p.isBuyer(actor) || actor.Is(enums.RoleStaff)
}

func (s *service) load(ctx context.Context, repo Repository, id uuid.UUID) (*models.Dispute, parties, error) {
	if id == uuid.Nil {
		return nil, parties{}, pkgerrors.New(pkgerrors.CodeValidation, "dispute id required")
	}
	dispute, err := repo.FindDispute(ctx, id)
	if err != nil {
		return nil, parties{}, pkgerrors.Load(err, "dispute")
	}
	req, err := s.findRequest(ctx, repo, dispute.OrderRequestID)
	if err != nil {
		return nil, parties{}, err
	}
	offer, err := s.findOffer(ctx, repo, dispute.OfferID)
	if err != nil {
		return nil, parties{}, err
	}
	return dispute, parties{request: req, offer: offer}, nil
}

func (s *service) findRequest(ctx context.Context, repo Repository, id uuid.UUID) (*models.OrderRequest, error) {
	req, err := repo.FindRequest(ctx, id)
	return req, pkgerrors.Load(err, "order request")
}

func (s *service) findOffer(ctx context.Context, repo Repository, id uuid.UUID) (*models.Offer, error) {
	offer, err := repo.FindOffer(ctx, id)
	return offer, pkgerrors.Load(err, "offer")
}

func (s *service) emit(ctx context.Context, tx *gorm.DB, eventType enums.OutboxEventType, actor types.Actor, d *models.Dispute, req *models.OrderRequest, offer *models.Offer) error {
	_, err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.AggregateDispute,
		AggregateID:   d.ID,
		Actor:         &outbox.ActorRef{UserID: actor.UserID, OrganizationID: actor.OrganizationID, Role: actor.Role},
		Data: payloads.DisputeEvent{
			DisputeID:      d.ID,
			OrderRequestID: req.ID,
			OfferID:        offer.ID,
			LineItemID:     d.LineItemID,
			BuyerID:        req.BuyerID,
			SellerID:       offer.SellerID,
			OrganizationID: offer.OrganizationID,
			Kind:           d.Kind,
			Status:         d.Status,
			Rejected:       d.Rejected,
		},
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit "+string(eventType))
	}
	return nil
}

func cleanReasons(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		if r = strings.TrimSpace(r); r != "" && !slices.Contains(out, r) {
			out = append(out, r)
		}
	}
	return out
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
