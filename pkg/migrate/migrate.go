// Package migrate applies the goose SQL migrations that define the marketplace schema.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/pressly/goose/v3"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
)

// DefaultDir is where new migrations are written. Binaries apply the embedded copy.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// Commands accepted by Runner.Apply. "to" needs a target version.
const (
	CmdUp      = "up"
	CmdUpByOne = "up-by-one"
	CmdDown    = "down"
	CmdRedo    = "redo"
	CmdReset   = "reset"
	CmdStatus  = "status"
	CmdTo      = "to"
)

// Source returns the migrations to apply: the embedded set when dir is empty,
// otherwise the directory on disk.
func Source(dir string) (fs.FS, error) {
	if strings.TrimSpace(dir) == "" {
		return fs.Sub(embedded, "migrations")
	}
	if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("migrations dir %q: %w", dir, err)
	}
	return os.DirFS(dir), nil
}

// Runner applies migrations to one postgres database.
type Runner struct {
	provider *goose.Provider
	logg     *logger.Logger
}

func NewRunner(db *sql.DB, fsys fs.FS, logg *logger.Logger) (*Runner, error) {
	if db == nil {
		return nil, errors.New("db is required")
	}
	provider, err := goose.NewProvider(goose.DialectPostgres, db, fsys)
	if err != nil {
		return nil, fmt.Errorf("goose provider: %w", err)
	}
	return &Runner{provider: provider, logg: logg}, nil
}

// ParseVersion reads a YYYYMMDDHHMMSS migration version.
func ParseVersion(raw string) (int64, error) {
	v, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS)", raw)
	}
	return v, nil
}

// Apply runs one command. target is only read by CmdTo, which migrates up or
// down from the current version.
func (r *Runner) Apply(ctx context.Context, command string, target int64) error {
	var (
		results []*goose.MigrationResult
		err     error
	)
	switch command {
	case CmdUp:
		results, err = r.provider.Up(ctx)
	case CmdUpByOne:
		results, err = one(r.provider.UpByOne(ctx))
	case CmdDown:
		results, err = one(r.provider.Down(ctx))
	case CmdRedo:
		if results, err = one(r.provider.Down(ctx)); err == nil {
			var up []*goose.MigrationResult
			up, err = one(r.provider.UpByOne(ctx))
			results = append(results, up...)
		}
	case CmdReset:
		results, err = r.provider.DownTo(ctx, 0)
	case CmdTo:
		results, err = r.migrateTo(ctx, target)
	case CmdStatus:
		return r.status(ctx)
	default:
		return fmt.Errorf("unknown migrate command %q", command)
	}

	for _, res := range results {
		r.logResult(ctx, res)
	}
	if errors.Is(err, goose.ErrNoNextVersion) || errors.Is(err, goose.ErrNoCurrentVersion) {
		r.info(ctx, "nothing to migrate")
		return nil
	}
	if err != nil {
		return fmt.Errorf("goose %s: %w", command, err)
	}
	return nil
}

func (r *Runner) migrateTo(ctx context.Context, target int64) ([]*goose.MigrationResult, error) {
	current, err := r.provider.GetDBVersion(ctx)
	if err != nil {
		return nil, fmt.Errorf("get db version: %w", err)
	}
	switch {
	case current == target:
		return nil, nil
	case current < target:
		return r.provider.UpTo(ctx, target)
	default:
		return r.provider.DownTo(ctx, target)
	}
}

func (r *Runner) status(ctx context.Context) error {
	statuses, err := r.provider.Status(ctx)
	if err != nil {
		return fmt.Errorf("goose status: %w", err)
	}
	for _, st := range statuses {
		fields := map[string]any{"version": st.Source.Version, "state": string(st.State)}
		if !st.AppliedAt.IsZero() {
			fields["applied_at"] = st.AppliedAt
		}
		r.info(r.fields(ctx, fields), st.Source.Path)
	}
	return nil
}

// Close releases the provider's session lock and connection handle.
func (r *Runner) Close() error {
	return r.provider.Close()
}

func one(res *goose.MigrationResult, err error) ([]*goose.MigrationResult, error) {
	if res == nil {
		return nil, err
	}
	return []*goose.MigrationResult{res}, err
}

func (r *Runner) logResult(ctx context.Context, res *goose.MigrationResult) {
	if res == nil || res.Source == nil {
		return
	}
	ctx = r.fields(ctx, map[string]any{
		"version":     res.Source.Version,
		"direction":   res.Direction,
		"duration_ms": res.Duration.Milliseconds(),
	})
	if res.Error != nil {
		if r.logg != nil {
			r.logg.Error(ctx, "migration failed", res.Error)
		}
		return
	}
	r.info(ctx, "migration applied")
}

func (r *Runner) fields(ctx context.Context, f map[string]any) context.Context {
	if r.logg == nil {
		return ctx
	}
	return r.logg.WithFields(ctx, f)
}

func (r *Runner) info(ctx context.Context, msg string) {
	if r.logg != nil {
		r.logg.Info(ctx, msg)
	}
}
