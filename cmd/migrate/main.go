package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/config"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/db"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/logger"
	"github.com/jakkaru-devops/inf-backend-dev-sub003/pkg/migrate"
)

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", migrate.CmdUp, "up|up-by-one|down|redo|reset|status|to|create|validate")
	dir := flag.String("dir", "", "migrations directory; empty applies the migrations built into the binary")
	name := flag.String("name", "", "migration name, for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS), for -cmd=to")
	flag.Parse()

	switch *cmd {
	case "create":
		target := *dir
		if target == "" {
			target = migrate.DefaultDir
		}
		path, err := migrate.Create(target, *name, time.Now())
		if err != nil {
			fail("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		fsys, err := migrate.Source(*dir)
		if err != nil {
			fail("%v", err)
		}
		if err := migrate.Validate(fsys); err != nil {
			fail("migration validation failed:\n%v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	var target int64
	if *cmd == migrate.CmdTo {
		v, err := migrate.ParseVersion(*version)
		if err != nil {
			fail("%v", err)
		}
		target = v
	}

	cfg, err := config.Load()
	if err != nil {
		fail("load config: %v", err)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       cfg.App.LogLevel,
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": *cmd,
	})

	fsys, err := migrate.Source(*dir)
	requireResource(ctx, logg, "migrations source", err)

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	requireResource(ctx, logg, "sql database", err)

	runner, err := migrate.NewRunner(sqlDB, fsys, logg)
	requireResource(ctx, logg, "goose provider", err)
	defer runner.Close()

	if err := runner.Apply(ctx, *cmd, target); err != nil {
		logg.Error(ctx, "migration failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrations complete")
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
