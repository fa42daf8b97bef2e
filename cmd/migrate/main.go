package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/muxdry/storefront-backend/internal/users"
	"github.com/muxdry/storefront-backend/pkg/config"
	"github.com/muxdry/storefront-backend/pkg/db"
	"github.com/muxdry/storefront-backend/pkg/logger"
	"github.com/muxdry/storefront-backend/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "up|down|status|version|create|validate|ensure-superuser")
	flag.StringVar(&opts.dir, "dir", "", "migrations directory on disk (empty uses the migrations built into the binary)")
	flag.StringVar(&opts.name, "name", "", "migration name for -cmd=create")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	_ = godotenv.Load()

	lines, err := run(opts)
	for _, line := range lines {
		fmt.Println(line)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "migrate %s: %v\n", opts.cmd, err)
		os.Exit(1)
	}
}

// run handles the offline commands first; everything else needs the database.
func run(opts options) ([]string, error) {
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return nil, fmt.Errorf("missing -name")
		}
		dir := opts.dir
		if dir == "" {
			dir = migrate.DefaultDir
		}
		created, err := migrate.CreateSQLMigration(dir, opts.name)
		if err != nil {
			return nil, err
		}
		return []string{"created " + created}, nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return nil, err
		}
		return []string{"migrations are valid"}, nil
	case "version":
		if opts.version == "" {
			return nil, fmt.Errorf("missing -version")
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{"env": cfg.App.Env, "cmd": opts.cmd, "dir": opts.dir})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return nil, err
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.SQL()
	if err != nil {
		return nil, err
	}
	migrator, err := migrate.Open(sqlDB, opts.dir)
	if err != nil {
		return nil, err
	}

	logg.Info(ctx, "migrate ready")
	if opts.cmd == "ensure-superuser" {
		outcome, err := users.EnsureSuperuser(ctx, users.NewRepository(dbClient.DB()), cfg.Bootstrap, cfg.Password, logg)
		if err != nil {
			return nil, err
		}
		return []string{"superuser " + string(outcome)}, nil
	}
	if opts.cmd == "version" {
		return migrator.To(ctx, opts.version)
	}
	return migrator.Apply(ctx, opts.cmd)
}
