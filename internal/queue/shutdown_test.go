package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/nats-io/nats.go"
)

// pollingSQS hands out one batch, then long-polls until ctx ends. Deletes
// fail on a done context like the SDK client does.
type pollingSQS struct {
	mu       sync.Mutex
	batch    []sqstypes.Message
	idle     chan struct{}
	deleted  []string
	delErrs  []error
	received bool
}

func newPollingSQS(batch ...sqstypes.Message) *pollingSQS {
	return &pollingSQS{batch: batch, idle: make(chan struct{}, 1)}
}

func (f *pollingSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func (f *pollingSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if !f.received {
		f.received = true
		batch := f.batch
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	f.mu.Unlock()
	select {
	case f.idle <- struct{}{}:
	default:
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *pollingSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		f.delErrs = append(f.delErrs, err)
		return nil, err
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func (f *pollingSQS) snapshot() ([]string, []error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.deleted...), append([]error(nil), f.delErrs...)
}

func consumeAsync(ctx context.Context, q *SQSQueue, handler Handler) <-chan error {
	done := make(chan error, 1)
	go func() { done <- q.Consume(ctx, []string{SubjectSyncResults}, handler) }()
	return done
}

func waitConsume(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Consume: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Consume did not return")
	}
}

func TestSQSConsumeFinishesInFlightJobOnShutdown(t *testing.T) {
	client := newPollingSQS(sqsMessage(t, "m1", encodedEvent(t)))
	q := NewSQSWithClient(client, "queue-url")
	q.ShutdownTimeout = time.Second

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	jobErr := make(chan error, 1)
	done := consumeAsync(ctx, q, func(ctx context.Context, subject string, ev Event) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		jobErr <- ctx.Err()
		return nil
	})

	<-started
	cancel()
	waitConsume(t, done)

	if err := <-jobErr; err != nil {
		t.Fatalf("job context ended during shutdown: %v", err)
	}
	deleted, delErrs := client.snapshot()
	if len(deleted) != 1 || deleted[0] != "r-m1" || len(delErrs) != 0 {
		t.Fatalf("deleted=%v deleteErrs=%v", deleted, delErrs)
	}
}

func TestSQSConsumeCancelsJobsAfterShutdownTimeout(t *testing.T) {
	client := newPollingSQS(sqsMessage(t, "m1", encodedEvent(t)))
	q := NewSQSWithClient(client, "queue-url")
	q.ShutdownTimeout = 20 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	started := make(chan struct{})
	jobErr := make(chan error, 1)
	done := consumeAsync(ctx, q, func(ctx context.Context, subject string, ev Event) error {
		close(started)
		<-ctx.Done()
		jobErr <- ctx.Err()
		return ctx.Err()
	})

	<-started
	cancel()
	waitConsume(t, done)

	select {
	case err := <-jobErr:
		if err == nil {
			t.Fatal("expected job context to be cancelled")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("job was not cancelled after the drain window")
	}
	if deleted, _ := client.snapshot(); len(deleted) != 0 {
		t.Fatalf("unfinished job must not be deleted, got %v", deleted)
	}
}

func TestSQSConsumeDeletesUnwantedSubjects(t *testing.T) {
	msg := sqsMessage(t, "m2", encodedEvent(t))
	msg.MessageAttributes[subjectAttribute] = sqstypes.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String("messenger.unknown"),
	}
	client := newPollingSQS(msg)
	q := NewSQSWithClient(client, "queue-url")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	called := false
	done := consumeAsync(ctx, q, func(context.Context, string, Event) error {
		called = true
		return nil
	})

	<-client.idle
	cancel()
	waitConsume(t, done)

	if called {
		t.Fatal("handler must not see unwanted subjects")
	}
	if deleted, _ := client.snapshot(); len(deleted) != 1 || deleted[0] != "r-m2" {
		t.Fatalf("expected unwanted message deleted, got %v", deleted)
	}
}

func TestNATSDispatchRunsAfterConsumerCancelled(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	jobCtx, stop := jobContext(parent)
	cancel()

	var gotSubject string
	var gotErr error
	dispatchNATS(jobCtx, &nats.Msg{Subject: SubjectSyncResults, Data: []byte(encodedEvent(t))}, func(ctx context.Context, subject string, ev Event) error {
		gotSubject = subject
		gotErr = ctx.Err()
		return nil
	})
	if gotSubject != SubjectSyncResults {
		t.Fatalf("handler not called for drained message, subject=%q", gotSubject)
	}
	if gotErr != nil {
		t.Fatalf("drained message ran on a cancelled context: %v", gotErr)
	}

	stop()
	if jobCtx.Err() == nil {
		t.Fatal("expected stop to cancel the job context")
	}
}
