package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/bigquery"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db/models"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

type fakeRewardRepo struct {
	pending  []models.Reward
	exported map[uuid.UUID]time.Time
}

func (f *fakeRewardRepo) ListUnexported(_ context.Context, limit int) ([]models.Reward, error) {
	var out []models.Reward
	for _, r := range f.pending {
		if _, done := f.exported[r.ID]; done {
			continue
		}
		out = append(out, r)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (f *fakeRewardRepo) MarkExported(_ context.Context, ids []uuid.UUID, at time.Time) (int64, error) {
	for _, id := range ids {
		f.exported[id] = at
	}
	return int64(len(ids)), nil
}

type fakeWarehouse struct {
	tables []string
	rows   []any
	err    error
}

func (f *fakeWarehouse) InsertRows(_ context.Context, table string, rows []any) error {
	if f.err != nil {
		return f.err
	}
	f.tables = append(f.tables, table)
	f.rows = append(f.rows, rows...)
	return nil
}

func rewardsFixture(n int) *fakeRewardRepo {
	repo := &fakeRewardRepo{exported: map[uuid.UUID]time.Time{}}
	for i := 0; i < n; i++ {
		repo.pending = append(repo.pending, models.Reward{
			ID:                uuid.New(),
			OfferID:           uuid.New(),
			OrderRequestID:    uuid.New(),
			OrganizationID:    uuid.New(),
			TotalPrice:        decimal.RequireFromString("1050"),
			CommissionPercent: decimal.RequireFromString("10"),
			Amount:            decimal.RequireFromString("105"),
		})
	}
	return repo
}

func newRewardExportJob(t *testing.T, repo *fakeRewardRepo, warehouse *fakeWarehouse, batch int) *rewardExportJob {
	t.Helper()
	jobIface, err := NewRewardExportJob(RewardExportJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Rewards:   repo,
		Warehouse: warehouse,
		Table:     "rewards",
		BatchSize: batch,
	})
	require.NoError(t, err)
	return jobIface.(*rewardExportJob)
}

func TestRewardExportJobDrainsInBatches(t *testing.T) {
	repo := rewardsFixture(5)
	warehouse := &fakeWarehouse{}
	job := newRewardExportJob(t, repo, warehouse, 2)

	require.NoError(t, job.Run(context.Background()))

	assert.Len(t, warehouse.rows, 5)
	assert.Equal(t, []string{"rewards", "rewards", "rewards"}, warehouse.tables)
	assert.Len(t, repo.exported, 5)

	row, ok := warehouse.rows[0].(*bigquery.RewardRow)
	require.True(t, ok)
	assert.Equal(t, "1050.00", row.TotalPrice)
	assert.Equal(t, "105.00", row.Amount)
	assert.Equal(t, "10", row.CommissionPercent)
	assert.Equal(t, repo.pending[0].ID.String(), row.RewardID)
}

func TestRewardExportJobLeavesRowsUnmarkedOnInsertFailure(t *testing.T) {
	repo := rewardsFixture(3)
	warehouse := &fakeWarehouse{err: errors.New("quota exceeded")}
	job := newRewardExportJob(t, repo, warehouse, 10)

	require.Error(t, job.Run(context.Background()))
	assert.Empty(t, repo.exported)
}

func TestRewardExportJobRequiresTable(t *testing.T) {
	_, err := NewRewardExportJob(RewardExportJobParams{
		Logger:    logger.New(logger.Options{ServiceName: "test"}),
		Rewards:   rewardsFixture(0),
		Warehouse: &fakeWarehouse{},
	})
	assert.Error(t, err)
}
