package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"contactfix/internal/contacts"
	"contactfix/pkg/config"
	apperrors "contactfix/pkg/errors"
)

const JobName = "fix-all"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting contact repair job")

	os.Exit(run(ctx, cfg))
}

func run(ctx context.Context, cfg *config.Config) int {
	defer cfg.GracefulShutdown()

	components, err := contacts.NewComponents(cfg, JobName, prometheus.NewRegistry())
	if err != nil {
		cfg.Log.Error("Failed to initialize contacts", "error", err)
		return 1
	}

	result, err := components.Service.FixAll(ctx)
	if apperrors.HasCode(err, apperrors.CodeForbidden) {
		cfg.Log.Warn("No contacts available: permission to read contacts denied", "error", err)
		return 0
	}
	if err != nil && result == nil {
		cfg.Log.Error("Contact repair job failed", "error", err)
		return 1
	}

	for id, reason := range result.Failed {
		cfg.Log.Error("Contact could not be repaired", "contact_id", id, "error", reason)
	}
	cfg.Log.Info("Contact repair job finished",
		"fixed", len(result.Fixed),
		"unchanged", len(result.Unchanged),
		"failed", len(result.Failed),
	)

	if err != nil {
		cfg.Log.Error("Contact repair job interrupted", "error", err)
		return 1
	}
	if len(result.Failed) > 0 {
		return 1
	}
	return 0
}
