// Package bigquery streams marketplace finance rows into the reporting warehouse.
package bigquery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/multierr"
	"google.golang.org/api/googleapi"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/pubsub"
)

const provisionTimeout = 10 * time.Second

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errDatasetRequired   = errors.New("bigquery dataset is required")
	errTableNameRequired = errors.New("bigquery table name is required")
	errNoClient          = errors.New("bigquery client not initialized")
)

// table is a warehouse table bound to the row type that fills it. Tables are
// day-partitioned on partitionBy.
type table struct {
	name        string
	schema      bigquery.Schema
	partitionBy string
}

type Client struct {
	bq      *bigquery.Client
	dataset *bigquery.Dataset
	tables  []table
	create  bool
	logg    *logger.Logger
}

func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.BigQueryConfig, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	datasetID := strings.TrimSpace(cfg.Dataset)
	if datasetID == "" {
		return nil, errDatasetRequired
	}
	tables, err := declaredTables(cfg)
	if err != nil {
		return nil, err
	}

	bq, err := bigquery.NewClient(ctx, projectID, pubsub.ClientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating bigquery client: %w", err)
	}
	c := &Client{bq: bq, dataset: bq.Dataset(datasetID), tables: tables, create: cfg.CreateTables, logg: logg}
	if err := c.Ping(ctx); err != nil {
		_ = bq.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithFields(ctx, map[string]any{"dataset": datasetID, "tables": len(tables)}), "bigquery.ready")
	}
	return c, nil
}

func declaredTables(cfg config.BigQueryConfig) ([]table, error) {
	rewards := strings.TrimSpace(cfg.RewardsTable)
	if rewards == "" {
		return nil, errTableNameRequired
	}
	schema, err := bigquery.InferSchema(RewardRow{})
	if err != nil {
		return nil, fmt.Errorf("infer rewards schema: %w", err)
	}
	return []table{{name: rewards, schema: schema, partitionBy: "calculated_at"}}, nil
}

// Ping verifies the dataset and every declared table, provisioning missing
// tables when creation is enabled. Table problems are reported together.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.dataset == nil {
		return errNoClient
	}
	ctx, cancel := context.WithTimeout(ctx, provisionTimeout)
	defer cancel()

	if _, err := c.dataset.Metadata(ctx); err != nil {
		if notFound(err) {
			return fmt.Errorf("dataset %q does not exist", c.dataset.DatasetID)
		}
		return fmt.Errorf("checking dataset %q: %w", c.dataset.DatasetID, err)
	}
	var errs error
	for _, t := range c.tables {
		errs = multierr.Append(errs, c.provision(ctx, t))
	}
	return errs
}

func (c *Client) provision(ctx context.Context, t table) error {
	ref := c.dataset.Table(t.name)
	_, err := ref.Metadata(ctx)
	switch {
	case err == nil:
		return nil
	case !notFound(err):
		return fmt.Errorf("checking table %q: %w", t.name, err)
	case !c.create:
		return fmt.Errorf("table %q does not exist", t.name)
	}

	meta := &bigquery.TableMetadata{
		Schema:           t.schema,
		TimePartitioning: &bigquery.TimePartitioning{Type: bigquery.DayPartitioningType, Field: t.partitionBy},
	}
	if err := ref.Create(ctx, meta); err != nil {
		return fmt.Errorf("creating table %q: %w", t.name, err)
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "table", t.name), "bigquery.table_created")
	}
	return nil
}

// InsertRows streams rows into the named table. Rows that implement
// bigquery.ValueSaver supply insert IDs, which BigQuery dedupes on retry.
func (c *Client) InsertRows(ctx context.Context, name string, rows []any) error {
	if c == nil || c.bq == nil {
		return errNoClient
	}
	if name = strings.TrimSpace(name); name == "" {
		return errTableNameRequired
	}
	if len(rows) == 0 {
		return nil
	}
	err := c.dataset.Table(name).Inserter().Put(ctx, rows)
	var rejected bigquery.PutMultiError
	if errors.As(err, &rejected) {
		return fmt.Errorf("%s rejected %d of %d rows: %w", name, len(rejected), len(rows), err)
	}
	return err
}

// RewardsTable names the destination of exported rewards.
func (c *Client) RewardsTable() string {
	if c == nil || len(c.tables) == 0 {
		return ""
	}
	return c.tables[0].name
}

func (c *Client) Close() error {
	if c == nil || c.bq == nil {
		return nil
	}
	return c.bq.Close()
}

func notFound(err error) bool {
	var apiErr *googleapi.Error
	return errors.As(err, &apiErr) && apiErr.Code == http.StatusNotFound
}
