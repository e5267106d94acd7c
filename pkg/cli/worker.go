package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/userhub/notifier/pkg/api"
	"github.com/userhub/notifier/pkg/config"
	"github.com/userhub/notifier/pkg/mail"
	"github.com/userhub/notifier/pkg/system"
	"github.com/userhub/notifier/pkg/worker"
)

const shutdownTimeout = 30 * time.Second

func newWorkerCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the email worker",
		Long:  "Consumes notification events from Kafka and sends the corresponding emails, retrying failed sends.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWorker(cmd.Context(), opts)
		},
	}
}

func runWorker(ctx context.Context, opts *rootOptions) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("loading notifier config: %w", err)
	}

	log := system.NewLogger(opts.Debug)
	defer func() { _ = log.Sync() }()

	log.With("version", system.Version).Info("Starting notifier worker")
	if opts.Debug {
		log.Infof("%#v", cfg)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := newResultStore(ctx, cfg.Results)
	if err != nil {
		return fmt.Errorf("connecting result store: %w", err)
	}
	defer func() { _ = store.Close() }()

	sender := mail.NewSender(cfg.Mail)
	executors := worker.Executors(sender, cfg.Server.BaseURL)

	queue := worker.NewQueue(executors, store, log, cfg.Worker.MaxAttempts, cfg.Worker.RetryDelay, cfg.Worker.QueueSize)
	queue.Start()

	dispatcher := worker.NewDispatcher(queue, store, log)
	consumer := worker.NewConsumer(cfg.Broker, dispatcher, log)
	consumer.Start(ctx)

	server := api.NewServer(log.Desugar(), store, cfg.Server.ListenAddress, opts.Debug)
	serverErr := make(chan error, 1)
	go func() { serverErr <- server.Listen() }()
	log.Infow("Ops server listening", "address", cfg.Server.ListenAddress)

	select {
	case <-ctx.Done():
		log.Info("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("ops server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := consumer.Close(); err != nil {
		log.Warnw("Closing Kafka consumer", "error", err)
	}
	if err := queue.Stop(shutdownCtx); err != nil {
		log.Warnw("Draining task queue", "error", err)
	}
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warnw("Stopping ops server", "error", err)
	}

	log.Info("Notifier worker stopped")
	return nil
}

// newResultStore picks the task status backend. The literal URL "memory"
// selects the in-process store, anything else is treated as a Redis URL.
func newResultStore(ctx context.Context, cfg config.Results) (worker.ResultStore, error) {
	if cfg.URL == "memory" {
		return worker.NewMemoryResultStore(), nil
	}
	return worker.NewRedisResultStore(ctx, cfg.URL, cfg.TTL)
}
