package main

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/bootstrap"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/queue"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/shared/config"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/weburis"
	"github.com/Studio-Butterfly-HQ/butter-chat-nest-api-server/internal/workerproc"
)

type fakeSQS struct {
	deleted []string
}

func (f *fakeSQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	return &sqs.SendMessageOutput{}, nil
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func newTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	app, err := bootstrap.Build(config.Config{
		Env:           "dev",
		JWTSecret:     "test-secret",
		LocalStoreDir: t.TempDir(),
		PublicDir:     t.TempDir(),
	})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	return app
}

func message(t *testing.T, receipt, subject string, ev queue.Event) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeEvent(ev)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return sqstypes.Message{
		MessageId:     aws.String("m-" + receipt),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
		MessageAttributes: map[string]sqstypes.MessageAttributeValue{
			"subject": {DataType: aws.String("String"), StringValue: aws.String(subject)},
		},
	}
}

func TestConsumerRequiresBroker(t *testing.T) {
	if _, err := consumerFor(queue.NewLogPublisher()); !errors.Is(err, errNoConsumer) {
		t.Fatalf("expected errNoConsumer, got %v", err)
	}
	if _, err := consumerFor(queue.NewSQSWithClient(&fakeSQS{}, "queue")); err != nil {
		t.Fatalf("sqs should consume: %v", err)
	}
}

func TestWorkerAppliesSyncResult(t *testing.T) {
	app := newTestApp(t)
	ctx := context.Background()
	res, err := app.WebURIs.Create(ctx, "company-1", "https://example.com/faq")
	if err != nil {
		t.Fatalf("create weburi: %v", err)
	}

	client := &fakeSQS{}
	q := queue.NewSQSWithClient(client, "queue")
	ev, err := queue.NewEvent(queue.SubjectSyncResults, "company-1", "req-1", workerproc.SyncResult{
		Kind:       workerproc.KindWebURI,
		ResourceID: res.ID,
		Status:     "SYNCED",
	})
	if err != nil {
		t.Fatalf("event: %v", err)
	}

	q.HandleMessage(ctx, message(t, "r1", queue.SubjectSyncResults, ev), newProcessor(app).Handle)

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
	got, err := app.WebURIs.Get(ctx, "company-1", res.ID)
	if err != nil || got.Status != weburis.StatusSynced {
		t.Fatalf("expected SYNCED, got %+v %v", got, err)
	}
}

func TestWorkerDropsUnrecoverableMessages(t *testing.T) {
	app := newTestApp(t)
	client := &fakeSQS{}
	q := queue.NewSQSWithClient(client, "queue")
	ctx := context.Background()

	bad, _ := queue.NewEvent(queue.SubjectSyncResults, "company-1", "", map[string]string{"kind": "video"})
	q.HandleMessage(ctx, message(t, "r1", queue.SubjectSyncResults, bad), newProcessor(app).Handle)

	garbage := sqstypes.Message{ReceiptHandle: aws.String("r2"), Body: aws.String("not json")}
	q.HandleMessage(ctx, garbage, newProcessor(app).Handle)

	if strings.Join(client.deleted, ",") != "r1,r2" {
		t.Fatalf("expected both deleted, got %v", client.deleted)
	}
}
