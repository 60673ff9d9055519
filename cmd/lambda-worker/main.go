package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=amd64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-worker

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"sst-backend/internal/bootstrap"
	"sst-backend/internal/shared/config"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/workerproc"
)

var (
	initOnce sync.Once
	initErr  error
	worker   *bootstrap.Worker
)

func initWorker() {
	cfg := config.Load()
	telemetry.Configure(cfg.Env)
	worker, initErr = bootstrap.BuildWorker(cfg)
}

func handler(ctx context.Context, event events.SQSEvent) (events.SQSEventResponse, error) {
	initOnce.Do(initWorker)
	if initErr != nil {
		telemetry.Error("lambda.bootstrap_failed", map[string]any{"error": initErr})
		failures := make([]events.SQSBatchItemFailure, 0, len(event.Records))
		for _, record := range event.Records {
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		}
		return events.SQSEventResponse{BatchItemFailures: failures}, initErr
	}
	return processBatch(ctx, worker.Deliverer, event), nil
}

// processBatch reports only delivery failures back to SQS. Messages that can
// never be delivered are logged and acknowledged.
func processBatch(ctx context.Context, d workerproc.Deliverer, event events.SQSEvent) events.SQSEventResponse {
	failures := make([]events.SQSBatchItemFailure, 0)
	for _, record := range event.Records {
		metrics.IncWorkerJob("received")
		err := workerproc.HandleMessage(ctx, d, record.Body)
		var procErr workerproc.ErrProcess
		switch {
		case err == nil:
			metrics.IncWorkerJob("completed")
		case errors.As(err, &procErr):
			telemetry.Warn("lambda.notification.failed", map[string]any{
				"sqs_message_id":  record.MessageId,
				"notification_id": procErr.NotificationID,
				"request_id":      procErr.RequestID,
				"error":           procErr.Err,
			})
			metrics.IncWorkerJob("failed")
			failures = append(failures, events.SQSBatchItemFailure{ItemIdentifier: record.MessageId})
		default:
			meta := workerproc.ComputeMeta(record.Body)
			telemetry.Error("lambda.notification.discarded", map[string]any{
				"sqs_message_id": record.MessageId,
				"body_len":       meta.BodyLen,
				"body_sha256":    meta.BodySHA,
				"error":          err,
			})
			metrics.IncWorkerJob("discarded")
		}
	}
	return events.SQSEventResponse{BatchItemFailures: failures}
}

func main() {
	lambda.Start(handler)
}
