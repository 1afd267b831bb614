package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/bigquery"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

const rewardExportBatch = 200

type rewardExportRepo interface {
	ListUnexported(ctx context.Context, limit int) ([]models.Reward, error)
	MarkExported(ctx context.Context, ids []uuid.UUID, at time.Time) (int64, error)
}

type rowInserter interface {
	InsertRows(ctx context.Context, table string, rows []any) error
}

// RewardExportJobParams configure the finance export of calculated rewards.
type RewardExportJobParams struct {
	Logger    *logger.Logger
	Rewards   rewardExportRepo
	Warehouse rowInserter
	Table     string
	BatchSize int
}

func NewRewardExportJob(params RewardExportJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Rewards == nil {
		return nil, fmt.Errorf("rewards repository required")
	}
	if params.Warehouse == nil {
		return nil, fmt.Errorf("bigquery client required")
	}
	if params.Table == "" {
		return nil, fmt.Errorf("rewards table required")
	}
	batch := params.BatchSize
	if batch <= 0 {
		batch = rewardExportBatch
	}
	return &rewardExportJob{
		logg:      params.Logger,
		rewards:   params.Rewards,
		warehouse: params.Warehouse,
		table:     params.Table,
		batch:     batch,
		now:       time.Now,
	}, nil
}

type rewardExportJob struct {
	logg      *logger.Logger
	rewards   rewardExportRepo
	warehouse rowInserter
	table     string
	batch     int
	now       func() time.Time
}

func (j *rewardExportJob) Name() string { return "reward-export" }

// Run drains unexported rewards batch by batch. A batch is marked only after BigQuery accepts it,
// so a failed mark can re-send rows; reward_id is the dedupe key downstream.
func (j *rewardExportJob) Run(ctx context.Context) error {
	exported := 0
	for {
		rewards, err := j.rewards.ListUnexported(ctx, j.batch)
		if err != nil {
			return fmt.Errorf("list unexported rewards: %w", err)
		}
		if len(rewards) == 0 {
			break
		}

		now := j.now().UTC()
		rows := make([]any, 0, len(rewards))
		ids := make([]uuid.UUID, 0, len(rewards))
		for _, r := range rewards {
			rows = append(rows, &bigquery.RewardRow{
				RewardID:          r.ID.String(),
				OfferID:           r.OfferID.String(),
				OrderRequestID:    r.OrderRequestID.String(),
				OrganizationID:    r.OrganizationID.String(),
				TotalPrice:        r.TotalPrice.StringFixed(2),
				CommissionPercent: r.CommissionPercent.String(),
				Amount:            r.Amount.StringFixed(2),
				CalculatedAt:      r.CreatedAt.UTC(),
				ExportedAt:        now,
			})
			ids = append(ids, r.ID)
		}
		if err := j.warehouse.InsertRows(ctx, j.table, rows); err != nil {
			return fmt.Errorf("insert rewards into %s: %w", j.table, err)
		}
		if _, err := j.rewards.MarkExported(ctx, ids, now); err != nil {
			return fmt.Errorf("mark rewards exported: %w", err)
		}
		exported += len(rewards)
		if len(rewards) < j.batch {
			break
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{"table": j.table, "exported": exported})
	j.logg.Info(logCtx, "reward export complete")
	return nil
}
