package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/utafrali/search-provisioner/internal/app"
	"github.com/utafrali/search-provisioner/internal/config"
	"github.com/utafrali/search-provisioner/pkg/logger"
)

const usage = `Usage: provisioner <command> [flags]

Commands:
  provision   create the catalog index, apply settings, and ensure API keys
  seed        index the published product catalog from the catalog database
  backup      trigger an engine dump and wait for it to finish
  serve       run the admin HTTP server

Configuration is read from environment variables (ENGINE_URL,
ENGINE_MASTER_KEY, INDEX_UID, ...).`

func main() {
	if err := run(os.Args[1:]); err != nil {
		slog.Error("fatal error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(args []string) error {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("missing command")
	}

	cmd, args := args[0], args[1:]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New("search-provisioner", cfg.LogLevel)

	// Cancel on SIGINT or SIGTERM so a half-finished run releases its lease.
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	switch cmd {
	case "provision":
		return runProvision(ctx, cfg, log, args)
	case "seed":
		return runSeed(ctx, cfg, log, args)
	case "backup":
		return runBackup(ctx, cfg, log, args)
	case "serve":
		return runServe(ctx, cfg, log, args)
	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func newApp(ctx context.Context, cfg *config.Config, log *slog.Logger) (*app.App, error) {
	application, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, fmt.Errorf("initialize application: %w", err)
	}
	return application, nil
}

func runProvision(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("provision", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	application, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Provision(ctx)
	if err != nil {
		return fmt.Errorf("provision: %w", err)
	}

	log.Info("provisioning complete",
		slog.String("index_uid", cfg.IndexUID),
		slog.Bool("index_created", report.IndexCreated),
		slog.Any("keys_created", report.KeysCreated),
		slog.Any("keys_skipped", report.KeysSkipped),
		slog.Duration("duration", report.Duration),
	)
	return nil
}

func runSeed(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	indexUID := fs.String("index", cfg.IndexUID, "index to seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	application, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Seed(ctx, *indexUID)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}

	log.Info("seeding complete",
		slog.String("index_uid", *indexUID),
		slog.Int("documents", report.Documents),
		slog.Int("batches", report.Batches),
		slog.Duration("duration", report.Duration),
	)
	return nil
}

func runBackup(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("backup", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	application, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer application.Close()

	report, err := application.Backup(ctx)
	if err != nil {
		return fmt.Errorf("backup: %w", err)
	}

	log.Info("backup complete",
		slog.Int64("task_uid", report.TaskUID),
		slog.Duration("duration", report.Duration),
	)
	return nil
}

func runServe(ctx context.Context, cfg *config.Config, log *slog.Logger, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	log.Info("starting search provisioner",
		slog.String("environment", cfg.Environment),
		slog.Int("http_port", cfg.HTTPPort),
		slog.String("engine_url", cfg.EngineURL),
	)

	application, err := newApp(ctx, cfg, log)
	if err != nil {
		return err
	}

	if err := application.Run(ctx); err != nil {
		return fmt.Errorf("run application: %w", err)
	}

	log.Info("search provisioner stopped")
	return nil
}
