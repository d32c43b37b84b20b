package queue

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/metrics"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

// Publisher sends events to a subject.
type Publisher interface {
	Publish(ctx context.Context, subject string, ev Event) error
	Close() error
}

// Handler processes one delivered event.
type Handler func(ctx context.Context, subject string, ev Event) error

// Consumer delivers events for subjects to handler until ctx is done.
type Consumer interface {
	Consume(ctx context.Context, subjects []string, handler Handler) error
}

// jobContext returns the context in-flight jobs run under. It survives the
// cancellation of parent so a job that started before shutdown can finish and
// acknowledge; stop cancels it once the drain window is over.
func jobContext(parent context.Context) (ctx context.Context, stop context.CancelFunc) {
	return context.WithCancel(context.WithoutCancel(parent))
}

// awaitDrain waits for done up to timeout, then cancels in-flight jobs.
func awaitDrain(done <-chan struct{}, timeout time.Duration, stop context.CancelFunc, event string) {
	defer stop()
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		telemetry.Warn(event, map[string]any{"timeout": timeout.String()})
	}
}

const defaultShutdownTimeout = 30 * time.Second

// ErrPermanent marks a handler failure that redelivery cannot fix.
var ErrPermanent = errors.New("permanent failure")

// Permanent wraps err so consumers drop the message instead of redelivering it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

type permanentError struct{ err error }

func (p permanentError) Error() string   { return p.err.Error() }
func (p permanentError) Unwrap() []error { return []error{p.err, ErrPermanent} }

// PublishEvent builds an envelope and publishes it. Failures are logged and
// returned so callers can decide whether they matter.
func PublishEvent(ctx context.Context, pub Publisher, subject, companyID, requestID string, payload any) error {
	if pub == nil {
		return nil
	}
	ev, err := NewEvent(subject, companyID, requestID, payload)
	if err != nil {
		return err
	}
	err = pub.Publish(ctx, subject, ev)
	metrics.IncEventPublished(subject, err)
	if err != nil {
		telemetry.Error("queue.publish.failed", map[string]any{
			"subject":    subject,
			"event_id":   ev.ID,
			"company_id": companyID,
			"request_id": requestID,
			"error":      err,
		})
	}
	return err
}

// LogPublisher logs events instead of sending them and keeps them in memory.
// It backs QUEUE_BACKEND=none and the tests.
type LogPublisher struct {
	mu     sync.Mutex
	events []Published
}

// Published is an event captured by LogPublisher.
type Published struct {
	Subject string
	Event   Event
}

func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, subject string, ev Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.mu.Lock()
	p.events = append(p.events, Published{Subject: subject, Event: ev})
	p.mu.Unlock()
	telemetry.Info("queue.publish.log", map[string]any{
		"subject":    subject,
		"event_id":   ev.ID,
		"company_id": ev.CompanyID,
		"request_id": ev.RequestID,
	})
	return nil
}

// Events returns a copy of the published events, optionally filtered by subject.
func (p *LogPublisher) Events(subject string) []Published {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Published, 0, len(p.events))
	for _, ev := range p.events {
		if subject == "" || ev.Subject == subject {
			out = append(out, ev)
		}
	}
	return out
}

func (p *LogPublisher) Close() error { return nil }

var _ Publisher = (*LogPublisher)(nil)
