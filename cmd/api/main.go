package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"accounts_backend/internal/accounts"
	"accounts_backend/internal/accounts/replica"
	"accounts_backend/internal/accounts/service"
	"accounts_backend/internal/email"
	"accounts_backend/internal/events"
	apphttp "accounts_backend/internal/http"
	"accounts_backend/internal/http/router"
	"accounts_backend/internal/scheduler"
	"accounts_backend/internal/templates"
	"accounts_backend/platform/config"
	"accounts_backend/platform/db"
	"accounts_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	redisClient, err := replica.NewClient(cfg)
	if err != nil {
		log.Error("failed to connect to replica store", "error", err)
		panic("failed to connect to replica store: " + err.Error())
	}
	defer redisClient.Close()
	log.Info("replica store connection established")

	eventBus := events.NewInMemoryBus(log)

	// ========================================================================
	// Email Delivery
	// ========================================================================

	var templateStore *templates.Store
	if cfg.IsTemplateStoreEnabled() {
		templateStore, err = templates.NewStore(cfg)
		if err != nil {
			log.Error("failed to initialize template store", "error", err)
			panic("failed to initialize template store: " + err.Error())
		}
		log.Info("template store initialized", "bucket", cfg.GetTemplateBucket())
	} else {
		log.Warn("template store not configured; verification emails disabled")
	}

	dispatcher, closeDispatcher := initDispatcher(cfg, log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}

	worker := initWorker(cfg, log)

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Wrap optional dependencies so a typed-nil pointer never reaches the
	// service's interface fields.
	var tmpl service.TemplateStore
	if templateStore != nil {
		tmpl = templateStore
	}
	var emailDispatcher service.EmailDispatcher
	if dispatcher != nil {
		emailDispatcher = dispatcher
	}

	accountsModule := accounts.NewModule(
		pool,
		redisClient,
		cfg,
		tmpl,
		emailDispatcher,
		eventBus,
		log,
	)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Primary:  db.NewPoolAdapter(pool),
		Replica:  accountsModule.Replica(),
		EventBus: eventBus,
		Modules:  []apphttp.Module{accountsModule},
	}

	engine := router.New(app)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		return engine.Run(cfg.HTTPAddr)
	})

	if worker != nil {
		group.Go(func() error {
			log.Info("email worker starting", "queue", cfg.GetAsynqQueueName())
			return worker.Start()
		})
		group.Go(func() error {
			<-groupCtx.Done()
			worker.Shutdown()
			return nil
		})
	}

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case <-groupCtx.Done():
		if err := group.Wait(); err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDispatcher builds the background email queue client. When it cannot be
// initialized, verification tokens are still minted but nothing is delivered.
func initDispatcher(cfg *config.Config, log *logger.Logger) (*scheduler.Client, func()) {
	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize email queue client", "error", err)
		return nil, nil
	}

	return client, func() {
		_ = client.Close()
	}
}

// initWorker builds the in-process email worker.
func initWorker(cfg *config.Config, log *logger.Logger) *scheduler.Worker {
	var sender email.Sender = email.NoopSender{}
	if cfg.IsEmailEnabled() {
		sender = email.NewSMTPSender(cfg)
	} else {
		log.Warn("SMTP not configured; queued emails will be dropped")
	}

	worker, err := scheduler.NewWorker(cfg, sender, log)
	if err != nil {
		log.Error("failed to initialize email worker", "error", err)
		return nil
	}
	return worker
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
