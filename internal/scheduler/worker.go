package scheduler

import (
	"context"

	"accounts_backend/internal/email"
	"accounts_backend/platform/config"
	"accounts_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker consumes queued tasks and executes them.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	log    *logger.Logger
}

// NewWorker creates a worker bound to the configured queue.
func NewWorker(cfg config.SchedulerConfig, sender email.Sender, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency <= 0 {
		concurrency = 5
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues:      map[string]int{queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Error("task failed", "type", task.Type(), "error", err)
		}),
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskVerificationEmail, handleVerificationEmail(sender, log))

	return &Worker{server: server, mux: mux, log: log}, nil
}

// Start begins processing tasks in the background.
func (w *Worker) Start() error {
	return w.server.Start(w.mux)
}

// Shutdown drains in-flight tasks and stops the worker.
func (w *Worker) Shutdown() {
	w.server.Shutdown()
}

func handleVerificationEmail(sender email.Sender, log *logger.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		payload, err := ParseVerificationEmailPayload(task.Payload())
		if err != nil {
			return err
		}
		if err := sender.Send(ctx, payload.To, payload.Subject, payload.HTMLBody, payload.TextBody); err != nil {
			log.Error("send verification email", "to", payload.To, "error", err)
			return err
		}
		log.Info("verification email sent", "to", payload.To)
		return nil
	}
}
