package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"sst-backend/internal/notifications"
	"sst-backend/internal/queue"
)

type fakeSQS struct {
	deleted []string
	err     error
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	return &sqs.ReceiveMessageOutput{}, nil
}

func (f *fakeSQS) DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.deleted = append(f.deleted, aws.ToString(params.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

type fakeDeliverer struct {
	jobs        []notifications.EmailJob
	err         error
	hadDeadline bool
}

func (f *fakeDeliverer) Deliver(ctx context.Context, job notifications.EmailJob) error {
	_, f.hadDeadline = ctx.Deadline()
	f.jobs = append(f.jobs, job)
	return f.err
}

func emailMessage(t *testing.T, id, receipt string, receives string, msg queue.Message) sqstypes.Message {
	t.Helper()
	body, err := queue.EncodeMessage(msg)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	m := sqstypes.Message{
		MessageId:     aws.String(id),
		ReceiptHandle: aws.String(receipt),
		Body:          aws.String(string(body)),
	}
	if receives != "" {
		m.Attributes = map[string]string{"ApproximateReceiveCount": receives}
	}
	return m
}

func validMessage() queue.Message {
	return queue.Message{
		Kind:            queue.KindNotificationEmail,
		NotificationID:  12,
		RecipientUserID: "u-1",
		Title:           "Permiso Aprobado",
		Body:            "Su solicitud fue aprobada.",
		Route:           "/requests/4",
		RequestID:       "req-1",
		Version:         1,
	}
}

func TestWorkerDeletesMessageOnSuccess(t *testing.T) {
	client := &fakeSQS{}
	deliverer := &fakeDeliverer{}
	c := &consumer{client: client, queueURL: "queue", deliverer: deliverer, maxReceives: 5, sendTimeout: time.Second}

	c.handleMessage(context.Background(), emailMessage(t, "m1", "r1", "1", validMessage()))

	if len(client.deleted) != 1 || client.deleted[0] != "r1" {
		t.Fatalf("expected delete of r1, got %v", client.deleted)
	}
	if len(deliverer.jobs) != 1 {
		t.Fatalf("expected one delivery, got %d", len(deliverer.jobs))
	}
	job := deliverer.jobs[0]
	if job.NotificationID != 12 || job.Target.UserID != "u-1" || job.Title != "Permiso Aprobado" || job.Route != "/requests/4" {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !deliverer.hadDeadline {
		t.Fatalf("expected send timeout on the delivery context")
	}
}

func TestWorkerKeepsMessageOnFailure(t *testing.T) {
	client := &fakeSQS{}
	deliverer := &fakeDeliverer{err: errors.New("smtp down")}
	c := &consumer{client: client, queueURL: "queue", deliverer: deliverer, maxReceives: 5}

	c.handleMessage(context.Background(), emailMessage(t, "m2", "r2", "2", validMessage()))

	if len(client.deleted) != 0 {
		t.Fatalf("expected no delete, got %v", client.deleted)
	}
}

func TestWorkerAbandonsAfterMaxReceives(t *testing.T) {
	client := &fakeSQS{}
	deliverer := &fakeDeliverer{err: errors.New("smtp down")}
	c := &consumer{client: client, queueURL: "queue", deliverer: deliverer, maxReceives: 3}

	c.handleMessage(context.Background(), emailMessage(t, "m3", "r3", "3", validMessage()))

	if len(client.deleted) != 1 {
		t.Fatalf("expected delete after max receives, got %v", client.deleted)
	}
}

func TestWorkerDeletesUnusableMessages(t *testing.T) {
	roleAndUser := validMessage()
	roleAndUser.RecipientRole = "admin"
	unknownKind := validMessage()
	unknownKind.Kind = "analysis.requested"

	body := func(s string) sqstypes.Message {
		return sqstypes.Message{MessageId: aws.String("m"), ReceiptHandle: aws.String("r"), Body: aws.String(s)}
	}
	cases := map[string]sqstypes.Message{
		"invalid json": body("{bad-json"),
		"empty body":   body("   "),
		"two targets":  emailMessage(t, "m", "r", "", roleAndUser),
		"unknown kind": emailMessage(t, "m", "r", "", unknownKind),
	}
	for name, msg := range cases {
		t.Run(name, func(t *testing.T) {
			client := &fakeSQS{}
			deliverer := &fakeDeliverer{}
			c := &consumer{client: client, queueURL: "queue", deliverer: deliverer}

			c.handleMessage(context.Background(), msg)

			if len(client.deleted) != 1 {
				t.Fatalf("expected delete, got %v", client.deleted)
			}
			if len(deliverer.jobs) != 0 {
				t.Fatalf("expected no delivery, got %d", len(deliverer.jobs))
			}
		})
	}
}

func TestWorkerSurvivesDeleteFailure(t *testing.T) {
	client := &fakeSQS{err: errors.New("throttled")}
	deliverer := &fakeDeliverer{}
	c := &consumer{client: client, queueURL: "queue", deliverer: deliverer}

	c.handleMessage(context.Background(), emailMessage(t, "m4", "r4", "1", validMessage()))

	if len(deliverer.jobs) != 1 {
		t.Fatalf("expected delivery before delete, got %d", len(deliverer.jobs))
	}
}

func TestReceiveCount(t *testing.T) {
	if got := receiveCount(sqstypes.Message{}); got != 0 {
		t.Fatalf("expected 0 without attributes, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "x"}}); got != 0 {
		t.Fatalf("expected 0 for garbage, got %d", got)
	}
	if got := receiveCount(sqstypes.Message{Attributes: map[string]string{"ApproximateReceiveCount": "4"}}); got != 4 {
		t.Fatalf("expected 4, got %d", got)
	}
}
