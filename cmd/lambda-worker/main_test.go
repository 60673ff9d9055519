package main

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-lambda-go/events"

	"sst-backend/internal/notifications"
	"sst-backend/internal/queue"
)

type flakyDeliverer struct {
	failFor map[int64]bool
	sent    []int64
}

func (f *flakyDeliverer) Deliver(ctx context.Context, job notifications.EmailJob) error {
	if f.failFor[job.NotificationID] {
		return errors.New("smtp down")
	}
	f.sent = append(f.sent, job.NotificationID)
	return nil
}

func record(t *testing.T, id string, notificationID int64) events.SQSMessage {
	t.Helper()
	body, err := queue.EncodeMessage(queue.Message{
		Kind:            queue.KindNotificationEmail,
		NotificationID:  notificationID,
		RecipientUserID: "u-1",
		Title:           "Permiso Aprobado",
		Body:            "Su solicitud fue aprobada.",
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return events.SQSMessage{MessageId: id, Body: string(body)}
}

func TestProcessBatchReportsOnlyDeliveryFailures(t *testing.T) {
	d := &flakyDeliverer{failFor: map[int64]bool{2: true}}
	event := events.SQSEvent{Records: []events.SQSMessage{
		record(t, "m1", 1),
		record(t, "m2", 2),
		{MessageId: "m3", Body: "{bad-json"},
		record(t, "m4", 4),
	}}

	resp := processBatch(context.Background(), d, event)

	if len(resp.BatchItemFailures) != 1 || resp.BatchItemFailures[0].ItemIdentifier != "m2" {
		t.Fatalf("expected only m2 to be retried, got %+v", resp.BatchItemFailures)
	}
	if len(d.sent) != 2 || d.sent[0] != 1 || d.sent[1] != 4 {
		t.Fatalf("unexpected deliveries: %v", d.sent)
	}
}
