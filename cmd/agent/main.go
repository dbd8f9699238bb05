package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nats-io/nats.go"

	"parkpal/internal/agent"
	"parkpal/internal/config"
	"parkpal/internal/notify"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	cfg := config.Load()
	if cfg.NATSURL == "" {
		logger.Error("NATS_URL is required for the agent")
		os.Exit(1)
	}

	nc, err := nats.Connect(cfg.NATSURL,
		nats.Name(cfg.AgentName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		logger.Error("connect to agent transport", "error", err)
		os.Exit(1)
	}
	defer nc.Close()

	daemon := agent.NewDaemon(cfg.AgentName, notify.NewNotifier(), logger)
	if err := daemon.Listen(nc); err != nil {
		logger.Error("subscribe", "error", err)
		os.Exit(1)
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)
	<-done

	logger.Info("agent shutting down")
	daemon.Stop()
}
