// Package rewards computes the marketplace commission owed on completed offers.
package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/enums"
	pkgerrors "github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/errors"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/tracing"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/types"
)

var hundred = decimal.NewFromInt(100)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type Service interface {
	Calculate(ctx context.Context, offerID uuid.UUID) (*models.Reward, error)
	GetForOffer(ctx context.Context, offerID uuid.UUID, actor types.Actor) (*models.Reward, error)
}

type service struct {
	repo        Repository
	tx          txRunner
	commissions CommissionConfig
	logg        *logger.Logger
}

func NewService(repo Repository, tx txRunner, commissions CommissionConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if commissions == nil {
		return nil, fmt.Errorf("commission config required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{repo: repo, tx: tx, commissions: commissions, logg: logg}, nil
}

// ComputeAmount applies the percent with banker's rounding to whole currency units.
func ComputeAmount(total, percent decimal.Decimal) decimal.Decimal {
	return total.Mul(percent).Div(hundred).RoundBank(0)
}

// Total sums unit price × count over the offer's fulfillment lines.
func Total(lines []models.RequestLineItem) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Total())
	}
	return total
}

func (s *service) Calculate(ctx context.Context, offerID uuid.UUID) (*models.Reward, error) {
	ctx, span := tracing.Start(ctx, "rewards.calculate", attribute.String("offer_id", offerID.String()))
	defer span.End()

	if offerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "offer id required")
	}

	var result *models.Reward
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		offer, err := repo.FindOffer(ctx, offerID)
		if err != nil {
			return pkgerrors.Load(err, "offer")
		}
		if offer.Status != enums.OfferStatusCompleted {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "offer is not completed")
		}

		req, err := repo.FindRequest(ctx, offer.OrderRequestID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order request")
		}
		lines, err := repo.FulfillmentLines(ctx, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load offer lines")
		}
		percent, err := s.commissions.CommissionPercentFor(ctx, offer.OrganizationID, req.PaymentMethod)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "resolve commission")
		}

		total := Total(lines)
		reward := &models.Reward{
			OfferID:           offer.ID,
			OrderRequestID:    offer.OrderRequestID,
			OrganizationID:    offer.OrganizationID,
			TotalPrice:        total,
			CommissionPercent: percent,
			Amount:            ComputeAmount(total, percent),
		}
		if err := repo.Upsert(ctx, reward); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "store reward")
		}
		stored, err := repo.FindByOffer(ctx, offer.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload reward")
		}
		result = stored
		return nil
	})
	if err != nil {
		tracing.RecordError(span, err)
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"offer_id":        offerID.String(),
		"organization_id": result.OrganizationID.String(),
		"amount":          result.Amount.String(),
	})
	s.logg.Info(logCtx, "reward calculated")
	return result, nil
}

// GetForOffer is visible to staff and to the seller organization that owns the offer.
func (s *service) GetForOffer(ctx context.Context, offerID uuid.UUID, actor types.Actor) (*models.Reward, error) {
	reward, err := s.repo.FindByOffer(ctx, offerID)
	if err != nil {
		return nil, pkgerrors.Load(err, "reward")
	}

	switch actor.Role {
	case enums.RoleStaff:
		return reward, nil
	case enums.RoleSeller:
		if actor.Organization() == reward.OrganizationID {
			return reward, nil
		}
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "reward belongs to another organization")
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "rewards are visible to staff and the owning seller")
	}
}
