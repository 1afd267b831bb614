package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/responses"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/api/validators"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/internal/disputes"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

const maxReplyLength = 4000

type openDisputeRequest struct {
	LineItemID  uuid.UUID           `json:"lineItemId" validate:"required"`
	Kind        string              `json:"kind" validate:"required"`
	Quantity    int                 `json:"quantity" validate:"min=1"`
	Reasons     []string            `json:"reasons" validate:"max=10"`
	Comment     *string             `json:"comment" validate:"omitempty,max=4000"`
	Attachments []attachmentRequest `json:"attachments" validate:"max=20,dive"`
}

// OpenDispute starts a refund or exchange claim on one fulfilled line item.
func OpenDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, err := actorFrom(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body openDisputeRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		kind, err := enums.ParseDisputeKind(strings.ToUpper(strings.TrimSpace(body.Kind)))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dispute kind").
				WithDetails(map[string]string{"kind": "is invalid"}))
			return
		}

		input := disputes.OpenInput{
			LineItemID: body.LineItemID,
			Kind:       kind,
			Quantity:   body.Quantity,
			Reasons:    body.Reasons,
			Comment:    body.Comment,
		}
		for _, a := range body.Attachments {
			input.Attachments = append(input.Attachments, disputes.AttachmentInput{
				FileKey:     a.FileKey,
				Name:        a.Name,
				ContentType: a.ContentType,
				SizeBytes:   a.SizeBytes,
			})
		}

		dispute, err := svc.Open(r.Context(), actor, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]uuid.UUID{"disputeId": dispute.ID})
	}
}

// GetDispute returns one dispute to its parties or staff.
func GetDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		return svc.Get(r.Context(), id, actor)
	})
}

type replyRequest struct {
	Text string `json:"text" validate:"notblank"`
}

// ReplyDispute records the seller's answer.
func ReplyDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		var body replyRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			return nil, err
		}
		return svc.Reply(r.Context(), id, actor, validators.CleanText(body.Text, maxReplyLength))
	})
}

func AgreeDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		return svc.Agree(r.Context(), id, actor)
	})
}

func RejectDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		return svc.Reject(r.Context(), id, actor)
	})
}

func ResolveDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		return svc.Resolve(r.Context(), id, actor)
	})
}

func CloseDispute(svc disputes.Service, logg *logger.Logger) http.HandlerFunc {
	return disputeAction(logg, func(r *http.Request, id uuid.UUID, actor types.Actor) (*disputes.DisputeDTO, error) {
		return svc.Close(r.Context(), id, actor)
	})
}

func disputeAction(logg *logger.Logger, action func(*http.Request, uuid.UUID, types.Actor) (*disputes.DisputeDTO, error)) http.HandlerFunc {
	return asActor(logg, func(r *http.Request, actor types.Actor) (any, error) {
		id, err := validators.ParseUUIDParam(r, "id")
		if err != nil {
			return nil, err
		}
		return action(r, id, actor)
	})
}
