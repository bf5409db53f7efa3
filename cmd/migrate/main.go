// Command migrate applies, inspects and scaffolds schema migrations.
//
//	migrate up | down | status
//	migrate version <YYYYMMDDHHMMSS>
//	migrate create <name>
//	migrate validate
//
// Database settings come from the TICKETBOOTH_DB_* environment. When
// TICKETBOOTH_DB_MIGRATIONS_DIR is unset the migrations embedded in the
// binary are applied.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/angelmondragon/ticketbooth-backend/pkg/config"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/env"
	"github.com/angelmondragon/ticketbooth-backend/pkg/logger"
	"github.com/angelmondragon/ticketbooth-backend/pkg/migrate"
	"github.com/joho/godotenv"
)

type command struct {
	args  int
	usage string
	// offline commands only touch files and never load the database config.
	offline bool
	run     func(ctx context.Context, rt *migrator, args []string) error
}

type migrator struct {
	cfg    *config.MigrateConfig
	logg   *logger.Logger
	client *db.Client
}

var commands = map[string]command{
	"up":       {run: gooseCommand("up")},
	"down":     {run: down},
	"status":   {run: gooseCommand("status")},
	"version":  {args: 1, usage: "version <YYYYMMDDHHMMSS>", run: toVersion},
	"create":   {args: 1, usage: "create <name>", offline: true, run: create},
	"validate": {offline: true, run: validate},
}

func main() {
	_ = godotenv.Load()

	logg := logger.New(logger.Options{ServiceName: "migrate"})
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}
	name, args := os.Args[1], os.Args[2:]
	cmd, ok := commands[name]
	if !ok || len(args) != cmd.args {
		usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"cmd": name})

	rt := &migrator{logg: logg}
	if !cmd.offline {
		cfg, err := config.LoadMigrate()
		requireResource(ctx, logg, "config", err)
		rt.cfg = cfg
		rt.logg = logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx = rt.logg.WithFields(ctx, map[string]any{
			"env":    cfg.App.Env,
			"driver": cfg.DB.Driver,
			"source": migrate.SourceFor(cfg.DB.MigrationsDir).String(),
		})

		client, err := db.New(ctx, cfg.DB, rt.logg)
		requireResource(ctx, rt.logg, "database", err)
		defer client.Close()
		rt.client = client
	}

	if err := cmd.run(ctx, rt, args); err != nil {
		rt.logg.Error(ctx, "migrate failed", err)
		stop()
		os.Exit(1)
	}
	rt.logg.Info(ctx, "migrate done")
}

func gooseCommand(name string) func(context.Context, *migrator, []string) error {
	return func(ctx context.Context, rt *migrator, _ []string) error {
		if rt.cfg.DB.IsSQLite() {
			return sqliteFallback(ctx, rt, name)
		}
		sqlDB, err := rt.client.DB().DB()
		if err != nil {
			return fmt.Errorf("extracting sql.DB: %w", err)
		}
		return migrate.Run(ctx, sqlDB, migrate.SourceFor(rt.cfg.DB.MigrationsDir), name)
	}
}

func down(ctx context.Context, rt *migrator, args []string) error {
	if rt.cfg.App.IsProd() && env.Get("MIGRATE_ALLOW_DOWN", "") != "true" {
		return fmt.Errorf("refusing to roll back in prod without TICKETBOOTH_MIGRATE_ALLOW_DOWN=true")
	}
	return gooseCommand("down")(ctx, rt, args)
}

func toVersion(ctx context.Context, rt *migrator, args []string) error {
	if rt.cfg.DB.IsSQLite() {
		return sqliteFallback(ctx, rt, "version")
	}
	sqlDB, err := rt.client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	return migrate.MigrateToVersion(ctx, sqlDB, migrate.SourceFor(rt.cfg.DB.MigrationsDir), args[0])
}

// sqliteFallback mirrors the dev autorun: the SQL files are Postgres only, so
// sqlite gets gorm AutoMigrate for "up" and nothing else.
func sqliteFallback(ctx context.Context, rt *migrator, name string) error {
	if name != "up" {
		return fmt.Errorf("%s is not supported on sqlite; only up (gorm automigrate) is", name)
	}
	rt.logg.Info(ctx, "running gorm automigrate (sqlite)")
	if err := rt.client.DB().WithContext(ctx).AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

func create(ctx context.Context, rt *migrator, args []string) error {
	dir := env.Get("DB_MIGRATIONS_DIR", migrate.DefaultDir)
	path, err := migrate.CreateSQLMigration(dir, args[0], time.Now())
	if err != nil {
		return err
	}
	rt.logg.Info(ctx, "created migration "+path)
	return nil
}

func validate(ctx context.Context, rt *migrator, _ []string) error {
	dir := env.Get("DB_MIGRATIONS_DIR", migrate.DefaultDir)
	if err := migrate.ValidateDir(dir); err != nil {
		return err
	}
	rt.logg.Info(ctx, "migration validation passed for "+dir)
	return nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage:")
	for _, name := range []string{"up", "down", "status", "version", "create", "validate"} {
		line := commands[name].usage
		if line == "" {
			line = name
		}
		fmt.Fprintln(os.Stderr, "  migrate", line)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
