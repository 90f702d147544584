package main

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/spec-kit/ticketapp/internal/auth"
	"github.com/spec-kit/ticketapp/internal/cli"
	"github.com/spec-kit/ticketapp/internal/config"
	"github.com/spec-kit/ticketapp/internal/events"
	"github.com/spec-kit/ticketapp/internal/observability"
	"github.com/spec-kit/ticketapp/internal/persistence"
	"github.com/spec-kit/ticketapp/internal/service"
	"github.com/spec-kit/ticketapp/internal/worker"
	apperrors "github.com/spec-kit/ticketapp/pkg/util"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", message(err))
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if os.Getenv("LOG_LEVEL") == "" {
		cfg.Logger.Level = "warn"
	}
	if os.Getenv("LOG_FORMAT") == "" {
		cfg.Logger.Format = "console"
	}
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	ctx := context.Background()
	store, err := persistence.OpenStore(ctx, *cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	defer store.Close()

	dispatcher := events.NewInMemoryDispatcher()
	workspaces := service.NewWorkspaces(store, service.WorkspaceOptions{
		Verifier:   auth.NewVerifier(cfg.Auth),
		Tokens:     auth.NewTokenManager(cfg.Auth),
		Latency:    cfg.Session.Latency(),
		Dispatcher: dispatcher,
		Logger:     logger,
	})

	app := cli.NewApp(workspaces, os.Stdin, os.Stdout)
	worker.StartNotificationWorker(service.NewNotificationService(dispatcher, logger, cfg.Notification), app.Notify)

	return cli.NewRootCommand(app).ExecuteContext(ctx)
}

// message prefers the user-facing text of domain errors.
func message(err error) string {
	var domainErr *apperrors.DomainError
	if !errors.As(err, &domainErr) {
		return err.Error()
	}
	if len(domainErr.Details) == 0 {
		return domainErr.Message
	}
	msg := domainErr.Message
	for _, field := range slices.Sorted(maps.Keys(domainErr.Details)) {
		msg += fmt.Sprintf("\n  %s: %v", field, domainErr.Details[field])
	}
	return msg
}
