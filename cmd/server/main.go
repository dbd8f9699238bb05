package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parkpal/internal/agent"
	"parkpal/internal/config"
	"parkpal/internal/db"
	"parkpal/internal/notify"
	"parkpal/internal/repository"
	"parkpal/internal/router"
	"parkpal/internal/sched"
	"parkpal/internal/service"
	"parkpal/internal/timer"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Load()

	database, err := db.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer database.Close()

	if err := db.RunMigrations(database, cfg.MigrationsDir); err != nil {
		logger.Error("run migrations", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	userRepo := repository.NewUserRepository(database)
	sessionRepo := repository.NewSessionRepository(database)
	backupRepo := repository.NewBackupRepository(database)

	notifier := notify.NewNotifier()
	gate := notify.NewGate(notify.ParsePermission(cfg.Permission), notify.CapabilityResolver(notifier))
	inbox := notify.NewInbox(cfg.InboxSize)

	var bridge *agent.Bridge
	var adapterBridge notify.AgentBridge
	var remote timer.RemoteCanceller
	if cfg.NATSURL != "" {
		bridge, err = agent.Dial(cfg.NATSURL, cfg.AgentName, cfg.RegisterBackoff, logger)
		if err != nil {
			// The bridge is an optimization; the in-process path still works.
			logger.Warn("agent transport unavailable, staying on in-process delivery", "error", err)
		} else {
			defer bridge.Close()
			bridge.StartRegistration(ctx)
			adapterBridge = bridge
			remote = bridge
		}
	}

	adapter := notify.NewAdapter(notifier, gate, inbox, adapterBridge, cfg.VerifyDelay, logger)
	scheduler := sched.New(adapter, logger)
	timers := timer.NewManager(scheduler, backupRepo, sessionRepo, remote, logger)

	timers.Restore(ctx)
	timers.OnVisible(ctx)

	authService := service.NewAuthService(userRepo, cfg.JWTSecret, cfg.TokenTTL)
	sessionService := service.NewSessionService(sessionRepo, timers)

	engine := router.New(router.Deps{
		AuthService:    authService,
		SessionService: sessionService,
		Timers:         timers,
		Adapter:        adapter,
		Inbox:          inbox,
		Gate:           gate,
		CORSOrigins:    cfg.CORSOrigins,
	})

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: engine,
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}

	// Final snapshot so the next start can pick the schedule back up.
	timers.OnHidden(shutdownCtx)
}
