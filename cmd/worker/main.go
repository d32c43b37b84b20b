package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/bootstrap"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/workerproc"
)

var errNoConsumer = errors.New("QUEUE_BACKEND must be nats or sqs to run the worker")

func main() {
	cfg := config.Load()
	telemetry.Init("butter-chat-worker", cfg.LogLevel)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := bootstrap.BuildWorker(cfg)
	if err != nil {
		log.Fatalf("bootstrap build: %v", err)
	}
	defer app.Close()

	consumer, err := consumerFor(app.Publisher)
	if err != nil {
		log.Fatal(err)
	}

	telemetry.Info("worker.started", map[string]any{
		"queue":       app.Config.QueueBackend,
		"subjects":    workerproc.Subjects,
		"concurrency": app.Config.WorkerConcurrency,
	})
	if err := consumer.Consume(ctx, workerproc.Subjects, newProcessor(app).Handle); err != nil {
		log.Fatalf("consume: %v", err)
	}
	telemetry.Info("worker.stopped", nil)
}

// consumerFor returns the consuming side of the configured queue backend.
func consumerFor(pub queue.Publisher) (queue.Consumer, error) {
	consumer, ok := pub.(queue.Consumer)
	if !ok {
		return nil, errNoConsumer
	}
	return consumer, nil
}

func newProcessor(app *bootstrap.App) *workerproc.Processor {
	return &workerproc.Processor{
		Documents: app.Documents,
		WebURIs:   app.WebURIs,
	}
}
