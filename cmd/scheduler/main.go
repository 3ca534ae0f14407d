// Standalone email delivery worker. The API enqueues verification emails on
// Redis; this process drains the queue and sends them over SMTP. Running it
// separately lets email delivery scale and restart independently of the API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"accounts_backend/internal/email"
	"accounts_backend/internal/scheduler"
	"accounts_backend/platform/config"
	"accounts_backend/platform/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting email worker", "env", cfg.Env, "queue", cfg.GetAsynqQueueName())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var sender email.Sender = email.NoopSender{}
	if cfg.IsEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; queued emails will be dropped")
	}

	worker, err := scheduler.NewWorker(cfg, sender, log)
	if err != nil {
		log.Error("failed to initialize worker", "error", err)
		panic("failed to initialize worker: " + err.Error())
	}

	if err := worker.Start(); err != nil {
		log.Error("worker failed to start", "error", err)
		panic("worker failed to start: " + err.Error())
	}

	<-ctx.Done()
	log.Info("shutdown signal received, draining tasks")
	worker.Shutdown()
}
