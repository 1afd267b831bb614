package migrate_test

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
)

func readMigration(t *testing.T, suffix string) string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join("migrations", "*_"+suffix+".sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1, "expected exactly one %s migration", suffix)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	return string(data)
}

func TestMigrationsContainMarketplaceConstraints(t *testing.T) {
	cases := map[string][]string{
		"create_parties": {
			"CREATE TABLE IF NOT EXISTS users",
			"CHECK (role IN ('buyer', 'seller', 'staff'))",
			"PRIMARY KEY (organization_id, payment_method)",
			"DROP TABLE IF EXISTS organizations",
		},
		"create_catalog": {
			"CREATE TABLE IF NOT EXISTS seller_categories",
			"FOREIGN KEY (seller_id) REFERENCES users(id) ON DELETE CASCADE",
		},
		"create_order_requests": {
			"delivery_address jsonb NOT NULL",
			"CREATE TABLE IF NOT EXISTS order_request_hidden",
			"CHECK (entity_type IN ('order_request', 'dispute'))",
		},
		"create_offers_and_line_items": {
			"CONSTRAINT ux_offers_request_seller UNIQUE (order_request_id, seller_id)",
			"CHECK (product_id IS NOT NULL OR description IS NOT NULL)",
			"CHECK ((offer_id IS NULL) = (requested_item_id IS NULL))",
			"unit_price numeric(14,2)",
		},
		"create_disputes_and_rewards": {
			"CREATE UNIQUE INDEX IF NOT EXISTS ux_disputes_active_line_item ON disputes (line_item_id) WHERE status <> 'CLOSED'",
			"CONSTRAINT ux_rewards_offer UNIQUE (offer_id)",
			"CHECK (claimed_quantity > 0)",
		},
		"create_notifications_and_outbox": {
			"ux_notifications_event_recipient ON notifications (event_id, user_id, role)",
			"CREATE TABLE IF NOT EXISTS outbox_events",
			"CREATE TABLE IF NOT EXISTS outbox_dlq",
		},
	}

	for suffix, checks := range cases {
		t.Run(suffix, func(t *testing.T) {
			content := readMigration(t, suffix)
			require.Contains(t, content, "-- +goose Up")
			require.Contains(t, content, "-- +goose Down")
			for _, sub := range checks {
				if !strings.Contains(content, sub) {
					t.Errorf("missing expected statement %q", sub)
				}
			}
		})
	}
}

func TestEmbeddedMigrationsMatchDirectory(t *testing.T) {
	embedded, err := migrate.Source("")
	require.NoError(t, err)
	require.NoError(t, migrate.Validate(embedded))

	onDisk, err := filepath.Glob(filepath.Join("migrations", "*.sql"))
	require.NoError(t, err)
	for _, path := range onDisk {
		_, err := fs.Stat(embedded, filepath.Base(path))
		require.NoError(t, err, "%s not embedded", path)
	}
}

func TestValidateReportsEveryProblem(t *testing.T) {
	fsys := fstest.MapFS{
		"create_things.sql":               {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"20260101000000_only_up.sql":      {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		"20260101000000_same_version.sql": {Data: []byte("-- +goose Up\n-- +goose Down\n")},
		"README.md":                       {Data: []byte("ignored")},
	}

	err := migrate.Validate(fsys)
	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 3)
	require.Contains(t, err.Error(), "invalid migration filename")
	require.Contains(t, err.Error(), "-- +goose Down")
	require.Contains(t, err.Error(), "duplicate migration version")
}

func TestCreateSlugsNameAndBumpsVersion(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	first, err := migrate.Create(dir, "Add Dispute Reasons!", now)
	require.NoError(t, err)
	require.Equal(t, "20260302090000_add_dispute_reasons.sql", filepath.Base(first))

	second, err := migrate.Create(dir, "seller ratings", now)
	require.NoError(t, err)
	require.Equal(t, "20260302090001_seller_ratings.sql", filepath.Base(second))

	require.NoError(t, migrate.Validate(os.DirFS(dir)))

	_, err = migrate.Create(dir, "!!!", now)
	require.Error(t, err)
}

func TestParseVersion(t *testing.T) {
	v, err := migrate.ParseVersion(" 20260105090300 ")
	require.NoError(t, err)
	require.Equal(t, int64(20260105090300), v)

	_, err = migrate.ParseVersion("latest")
	require.Error(t, err)
}

func TestSourceRejectsMissingDir(t *testing.T) {
	_, err := migrate.Source(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}
