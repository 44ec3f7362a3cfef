package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ericfisherdev/gitnotify/internal/adapter/driven/console"
	sqliteadapter "github.com/ericfisherdev/gitnotify/internal/adapter/driven/sqlite"
	httphandler "github.com/ericfisherdev/gitnotify/internal/adapter/driving/http"
	"github.com/ericfisherdev/gitnotify/internal/adapter/driving/rcwatch"
	"github.com/ericfisherdev/gitnotify/internal/application"
	"github.com/ericfisherdev/gitnotify/internal/config"
	"github.com/ericfisherdev/gitnotify/internal/domain/model"
)

func newRunCmd(cfg func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Validate the configuration and poll until interrupted",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd.Context(), cfg())
		},
	}
}

func runService(ctx context.Context, cfg *config.Config) error {
	// 1. Open database (dual reader/writer with WAL mode) and migrate.
	db, err := sqliteadapter.NewDB(cfg.DBPath)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	version, err := sqliteadapter.RunMigrations(db.Writer.DB)
	if err != nil {
		return err
	}
	slog.Info("database ready", "path", db.Path(), "schema_version", version)

	// 2. Wire notice and event sinks.
	noticeStore := sqliteadapter.NewNoticeRepo(db)
	eventStore := sqliteadapter.NewReviewEventRepo(db)
	terminal := console.NewNotifier(os.Stdout)
	hub := httphandler.NewEventHub(slog.Default())

	notifier := application.Notifiers{terminal, noticeStore}

	bus := application.NewEventBus()
	bus.Subscribe(terminal.Publish)
	bus.Subscribe(eventStore.Publish)
	bus.Subscribe(hub.Publish)

	// 3. Poll service starts without a gateway; a successful check installs one.
	checker := newConfigChecker(cfg, tokenSources(cfg), notifier)
	provider := application.NewGatewayProvider(nil, model.Repository{})

	reconciler := application.NewReconciler(notifier, bus, pollSettings(cfg), nil)
	pollSvc := application.NewPollService(provider, reconciler, notifier, nil, cfg.BaseDelay)

	if result, err := checker.Check(ctx); err != nil {
		slog.Warn("polling disabled until the configuration is fixed", "error", err)
	} else {
		provider.Replace(result.Gateway, result.Repository)
		pollSvc.Start(ctx)
	}

	// 4. Re-validate when the rc file changes.
	watcher, err := rcwatch.New(cfg.RCFile, checker, provider, pollSvc, rcwatch.DefaultDebounce)
	if err != nil {
		slog.Warn("rc file watcher disabled", "error", err)
	} else {
		go func() {
			if err := watcher.Run(ctx); err != nil {
				slog.Error("rc file watcher stopped", "error", err)
			}
		}()
	}

	// 5. Local API.
	var srv *http.Server
	if cfg.ListenAddr != "" {
		apiHandler := httphandler.NewHandler(pollSvc, noticeStore, eventStore, hub, slog.Default())
		srv = &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httphandler.NewRouter(apiHandler, slog.Default()),
			ReadHeaderTimeout: 5 * time.Second,
			IdleTimeout:       120 * time.Second,

			// Shutdown does not close hijacked websocket connections; the
			// base context ends their streams.
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		go func() {
			slog.Info("http server starting", "addr", cfg.ListenAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("http server error", "error", err)
			}
		}()
	}

	slog.Info("gitnotify started",
		"repo", provider.Repository().FullName(),
		"base_delay", cfg.BaseDelay,
		"listen_addr", cfg.ListenAddr,
	)

	// 6. Wait for shutdown signal.
	<-ctx.Done()
	slog.Info("shutting down")

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("http server shutdown error", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}
