package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/resilience"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

const natsQueueGroup = "workers"

type NATSOptions struct {
	Name               string
	ConnectTimeout     time.Duration
	ReconnectWait      time.Duration
	MaxReconnects      int
	ShutdownTimeout    time.Duration
	ResilienceExecutor *resilience.Executor
}

// NATSBus publishes and consumes events over core NATS subjects.
type NATSBus struct {
	conn            *nats.Conn
	executor        *resilience.Executor
	shutdownTimeout time.Duration
}

func NewNATS(url string, options NATSOptions) (*NATSBus, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	name := options.Name
	if name == "" {
		name = "butter-chat-nest"
	}

	conn, err := nats.Connect(
		url,
		nats.Name(name),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			telemetry.Warn("queue.nats.disconnected", map[string]any{"error": err})
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			telemetry.Info("queue.nats.reconnected", map[string]any{"url": nc.ConnectedUrl()})
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATSBus{conn: conn, executor: options.ResilienceExecutor, shutdownTimeout: options.ShutdownTimeout}, nil
}

func (b *NATSBus) Publish(ctx context.Context, subject string, ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	call := func(_ context.Context) error {
		if err := b.conn.Publish(subject, payload); err != nil {
			return fmt.Errorf("nats publish %s: %w", subject, err)
		}
		return nil
	}
	if b.executor != nil {
		return b.executor.Execute(ctx, "nats.publish", call, classifyNATSError)
	}
	return call(ctx)
}

// Consume subscribes to subjects in the workers queue group and blocks until
// ctx is cancelled. It then drains the subscriptions so messages already
// delivered to this worker are still handled, waiting up to the shutdown
// timeout.
func (b *NATSBus) Consume(ctx context.Context, subjects []string, handler Handler) error {
	jobCtx, stopJobs := jobContext(ctx)
	subs := make([]*nats.Subscription, 0, len(subjects))
	for _, subject := range subjects {
		sub, err := b.conn.QueueSubscribe(subject, natsQueueGroup, func(msg *nats.Msg) {
			dispatchNATS(jobCtx, msg, handler)
		})
		if err != nil {
			stopJobs()
			return fmt.Errorf("nats subscribe %s: %w", subject, err)
		}
		subs = append(subs, sub)
	}

	if err := b.conn.Flush(); err != nil {
		stopJobs()
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	telemetry.Info("queue.nats.draining", map[string]any{"timeout": b.shutdownTimeout.String()})
	var drainErr error
	for _, sub := range subs {
		if err := sub.Drain(); err != nil {
			drainErr = errors.Join(drainErr, fmt.Errorf("nats drain %s: %w", sub.Subject, err))
		}
	}
	drained := make(chan struct{})
	go func() {
		defer close(drained)
		for _, sub := range subs {
			for sub.IsValid() {
				time.Sleep(25 * time.Millisecond)
			}
		}
	}()
	awaitDrain(drained, b.shutdownTimeout, stopJobs, "queue.nats.shutdown_timeout")
	return drainErr
}

// dispatchNATS decodes one message and runs handler. Core NATS has no
// redelivery, so failures are only logged.
func dispatchNATS(ctx context.Context, msg *nats.Msg, handler Handler) {
	ev, err := DecodeEvent(msg.Data)
	if err != nil {
		telemetry.Error("queue.nats.decode_failed", map[string]any{
			"subject":  msg.Subject,
			"body_len": len(msg.Data),
			"error":    err,
		})
		return
	}
	if err := handler(ctx, msg.Subject, ev); err != nil {
		telemetry.Error("queue.nats.handler_failed", map[string]any{
			"subject":  msg.Subject,
			"event_id": ev.ID,
			"error":    err,
		})
	}
}

func (b *NATSBus) Close() error {
	if b.conn != nil {
		b.conn.Close()
	}
	return nil
}

func classifyNATSError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	if errors.Is(err, nats.ErrNoServers) ||
		errors.Is(err, nats.ErrTimeout) ||
		errors.Is(err, nats.ErrConnectionClosed) ||
		errors.Is(err, nats.ErrDisconnected) ||
		errors.Is(err, nats.ErrConnectionReconnecting) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}

var _ Publisher = (*NATSBus)(nil)

var _ Consumer = (*NATSBus)(nil)
