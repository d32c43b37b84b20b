package queue

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/telemetry"
)

const (
	subjectAttribute         = "subject"
	defaultVisibilitySeconds = 300
	defaultWaitSeconds       = 20
)

// SQSAPI is the subset of the SQS client used here.
type SQSAPI interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// SQSQueue publishes events to one SQS queue. The subject travels in a
// message attribute so a single queue can carry every subject.
type SQSQueue struct {
	client            SQSAPI
	queueURL          string
	VisibilitySeconds int32
	Concurrency       int
	ShutdownTimeout   time.Duration
}

// NewSQS loads AWS config for region and returns a queue bound to queueURL.
func NewSQS(ctx context.Context, region, queueURL string) (*SQSQueue, error) {
	if strings.TrimSpace(queueURL) == "" {
		return nil, fmt.Errorf("SQS_QUEUE_URL is required")
	}
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return NewSQSWithClient(sqs.NewFromConfig(cfg), queueURL), nil
}

func NewSQSWithClient(client SQSAPI, queueURL string) *SQSQueue {
	return &SQSQueue{
		client:            client,
		queueURL:          queueURL,
		VisibilitySeconds: defaultVisibilitySeconds,
		Concurrency:       4,
		ShutdownTimeout:   defaultShutdownTimeout,
	}
}

func (q *SQSQueue) Publish(ctx context.Context, subject string, ev Event) error {
	payload, err := EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("encode sqs message: %w", err)
	}

	_, err = q.client.SendMessage(ctx, &sqs.SendMessageInput{
		QueueUrl:    aws.String(q.queueURL),
		MessageBody: aws.String(string(payload)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			subjectAttribute: {
				DataType:    aws.String("String"),
				StringValue: aws.String(subject),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("sqs send message: %w", err)
	}
	return nil
}

// Consume long-polls the queue until ctx is cancelled. Jobs already running
// keep a live context for up to ShutdownTimeout after that so they can finish
// and delete their message. Messages whose subject is not in subjects are
// logged and deleted.
func (q *SQSQueue) Consume(ctx context.Context, subjects []string, handler Handler) error {
	wanted := make(map[string]struct{}, len(subjects))
	for _, s := range subjects {
		wanted[s] = struct{}{}
	}
	sem := make(chan struct{}, max(1, q.Concurrency))
	var wg sync.WaitGroup
	jobCtx, stopJobs := jobContext(ctx)

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := q.client.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:              aws.String(q.queueURL),
			MaxNumberOfMessages:   10,
			WaitTimeSeconds:       defaultWaitSeconds,
			VisibilityTimeout:     q.VisibilitySeconds,
			MessageAttributeNames: []string{subjectAttribute},
			AttributeNames:        []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Error("queue.sqs.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			subject := messageSubject(msg)
			if _, ok := wanted[subject]; !ok && len(wanted) > 0 {
				telemetry.Warn("queue.sqs.unwanted_subject", baseFields(msg, subject))
				q.deleteMessage(jobCtx, msg, subject)
				continue
			}
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				q.HandleMessage(jobCtx, m, handler)
			}(msg)
		}
	}

	telemetry.Info("queue.sqs.draining", map[string]any{"timeout": q.ShutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	awaitDrain(waitDone, q.ShutdownTimeout, stopJobs, "queue.sqs.shutdown_timeout")
	return nil
}

// HandleMessage decodes and dispatches one message. It deletes the message on
// success and on failures redelivery cannot fix.
func (q *SQSQueue) HandleMessage(ctx context.Context, msg sqstypes.Message, handler Handler) {
	subject := messageSubject(msg)
	body := aws.ToString(msg.Body)
	if strings.TrimSpace(body) == "" {
		fields := baseFields(msg, subject)
		fields["body_len"] = 0
		telemetry.Error("queue.sqs.empty_body", fields)
		q.deleteMessage(ctx, msg, subject)
		return
	}

	ev, err := DecodeEvent([]byte(body))
	if err != nil {
		fields := baseFields(msg, subject)
		fields["body_len"] = len(body)
		fields["error"] = err
		telemetry.Error("queue.sqs.decode_failed", fields)
		q.deleteMessage(ctx, msg, subject)
		return
	}
	if subject == "" {
		subject = ev.Type
	}

	if err := handler(ctx, subject, ev); err != nil {
		fields := baseFields(msg, subject)
		fields["event_id"] = ev.ID
		fields["error"] = err
		if errors.Is(err, ErrPermanent) {
			telemetry.Error("queue.sqs.dropped", fields)
			q.deleteMessage(ctx, msg, subject)
			return
		}
		telemetry.Error("queue.sqs.handler_failed", fields)
		return
	}
	q.deleteMessage(ctx, msg, subject)
}

func (q *SQSQueue) deleteMessage(ctx context.Context, msg sqstypes.Message, subject string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, subject)
		fields["error"] = "missing receipt handle"
		telemetry.Error("queue.sqs.delete_failed", fields)
		return false
	}
	if _, err := q.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, subject)
		fields["error"] = err
		telemetry.Error("queue.sqs.delete_failed", fields)
		return false
	}
	return true
}

func (q *SQSQueue) Close() error { return nil }

func messageSubject(msg sqstypes.Message) string {
	if attr, ok := msg.MessageAttributes[subjectAttribute]; ok {
		return aws.ToString(attr.StringValue)
	}
	return ""
}

func baseFields(msg sqstypes.Message, subject string) map[string]any {
	return map[string]any{
		"subject":        subject,
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
}

func receiveCount(msg sqstypes.Message) int {
	if msg.Attributes == nil {
		return 0
	}
	raw := msg.Attributes["ApproximateReceiveCount"]
	if raw == "" {
		return 0
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return parsed
}

var _ Publisher = (*SQSQueue)(nil)

var _ Consumer = (*SQSQueue)(nil)
