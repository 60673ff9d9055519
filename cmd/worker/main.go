package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	sqstypes "github.com/aws/aws-sdk-go-v2/service/sqs/types"

	"sst-backend/internal/bootstrap"
	"sst-backend/internal/queue"
	"sst-backend/internal/shared/config"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
	"sst-backend/internal/workerproc"
)

const (
	defaultVisibilitySeconds  = 120
	defaultWorkerConcurrency  = 4
	defaultShutdownTimeoutSec = 30
)

func main() {
	cfg := config.Load()
	telemetry.Configure(cfg.Env)
	defer telemetry.Sync()

	queueURL := strings.TrimSpace(cfg.Notify.SQSQueueURL)
	if queueURL == "" {
		telemetry.Error("worker.config_invalid", map[string]any{"error": "NOTIFY_SQS_QUEUE_URL is required"})
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	visibilitySeconds := envInt("NOTIFY_VISIBILITY_TIMEOUT_SECONDS", defaultVisibilitySeconds)
	concurrency := envInt("NOTIFY_WORKER_CONCURRENCY", defaultWorkerConcurrency)
	shutdownTimeout := time.Duration(envInt("NOTIFY_SHUTDOWN_TIMEOUT_SECONDS", defaultShutdownTimeoutSec)) * time.Second

	awsCfg, err := queue.LoadAWSConfig(ctx, cfg.AWSRegion)
	if err != nil {
		telemetry.Error("worker.aws_config_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	var sqsClient sqsAPI = sqs.NewFromConfig(awsCfg)

	w, err := bootstrap.BuildWorker(cfg)
	if err != nil {
		telemetry.Error("worker.bootstrap_failed", map[string]any{"error": err})
		os.Exit(1)
	}
	defer w.Close()

	c := &consumer{
		client:      sqsClient,
		queueURL:    queueURL,
		deliverer:   w.Deliverer,
		maxReceives: cfg.Notify.MaxReceives,
		sendTimeout: cfg.Mail.Timeout,
	}

	sem := make(chan struct{}, max(1, concurrency))
	var wg sync.WaitGroup

	telemetry.Info("worker.started", map[string]any{
		"queue":       queueURL,
		"concurrency": concurrency,
		"visibility":  visibilitySeconds,
		"transport":   w.Deliverer.Sender.Name(),
	})

pollLoop:
	for {
		select {
		case <-ctx.Done():
			break pollLoop
		default:
		}

		resp, err := sqsClient.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
			QueueUrl:            aws.String(queueURL),
			MaxNumberOfMessages: 10,
			WaitTimeSeconds:     cfg.Notify.PollWaitSeconds,
			VisibilityTimeout:   int32(visibilitySeconds),
			AttributeNames:      []sqstypes.QueueAttributeName{sqstypes.QueueAttributeName("ApproximateReceiveCount")},
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				break pollLoop
			}
			telemetry.Warn("worker.receive_failed", map[string]any{"error": err})
			continue
		}

		for _, msg := range resp.Messages {
			select {
			case <-ctx.Done():
				break pollLoop
			case sem <- struct{}{}:
			}
			metrics.IncWorkerJob("received")
			wg.Add(1)
			go func(m sqstypes.Message) {
				defer wg.Done()
				defer func() { <-sem }()
				// In-flight sends finish even after a shutdown signal.
				c.handleMessage(context.WithoutCancel(ctx), m)
			}(msg)
		}
	}

	telemetry.Info("worker.shutdown", map[string]any{"timeout": shutdownTimeout.String()})
	waitDone := make(chan struct{})
	go func() {
		wg.Wait()
		close(waitDone)
	}()
	select {
	case <-waitDone:
	case <-time.After(shutdownTimeout):
		telemetry.Warn("worker.shutdown_timeout", map[string]any{"timeout": shutdownTimeout.String()})
	}
}

type sqsAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// consumer handles one SQS message at a time. Unparseable messages are deleted
// straight away; delivery failures are left for SQS to redeliver until
// maxReceives is reached.
type consumer struct {
	client      sqsAPI
	queueURL    string
	deliverer   workerproc.Deliverer
	maxReceives int
	sendTimeout time.Duration
}

func (c *consumer) handleMessage(ctx context.Context, msg sqstypes.Message) {
	body := aws.ToString(msg.Body)
	job, meta, err := workerproc.ParseMessage(body)
	if err != nil {
		fields := baseFields(msg, 0, "")
		fields["body_len"] = meta.BodyLen
		if meta.BodySHA != "" {
			fields["body_sha256"] = meta.BodySHA
		}
		fields["error"] = err.Error()

		var invalid workerproc.ErrInvalidJob
		switch {
		case errors.As(err, &invalid):
			if invalid.RequestID != "" {
				fields["request_id"] = invalid.RequestID
			}
			telemetry.Error("worker.notification.invalid_job", fields)
		case errors.As(err, new(workerproc.ErrEmptyBody)):
			telemetry.Error("worker.notification.empty_body", fields)
		default:
			telemetry.Error("worker.notification.decode_failed", fields)
		}
		if c.deleteMessage(ctx, msg, 0, "") {
			metrics.IncWorkerJob("discarded")
		}
		return
	}

	telemetry.Info("worker.notification.received", baseFields(msg, job.NotificationID, job.RequestID))

	sendCtx := ctx
	if c.sendTimeout > 0 {
		var cancel context.CancelFunc
		sendCtx, cancel = context.WithTimeout(ctx, c.sendTimeout)
		defer cancel()
	}
	if err := workerproc.HandleMessage(workerproc.WithParsedJob(sendCtx, job), c.deliverer, body); err != nil {
		fields := baseFields(msg, job.NotificationID, job.RequestID)
		fields["error"] = err.Error()
		if c.maxReceives > 0 && receiveCount(msg) >= c.maxReceives {
			telemetry.Error("worker.notification.abandoned", fields)
			if c.deleteMessage(ctx, msg, job.NotificationID, job.RequestID) {
				metrics.IncWorkerJob("discarded")
			}
			return
		}
		telemetry.Warn("worker.notification.failed", fields)
		metrics.IncWorkerJob("failed")
		return
	}

	if c.deleteMessage(ctx, msg, job.NotificationID, job.RequestID) {
		telemetry.Info("worker.notification.completed", baseFields(msg, job.NotificationID, job.RequestID))
		metrics.IncWorkerJob("completed")
	}
}

func (c *consumer) deleteMessage(ctx context.Context, msg sqstypes.Message, notificationID int64, requestID string) bool {
	receipt := aws.ToString(msg.ReceiptHandle)
	if receipt == "" {
		fields := baseFields(msg, notificationID, requestID)
		fields["error"] = "missing receipt handle"
		telemetry.Error("worker.notification.delete_failed", fields)
		return false
	}
	if _, err := c.client.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(c.queueURL),
		ReceiptHandle: aws.String(receipt),
	}); err != nil {
		fields := baseFields(msg, notificationID, requestID)
		fields["error"] = err.Error()
		telemetry.Error("worker.notification.delete_failed", fields)
		return false
	}
	return true
}

func baseFields(msg sqstypes.Message, notificationID int64, requestID string) map[string]any {
	fields := map[string]any{
		"sqs_message_id": aws.ToString(msg.MessageId),
		"receive_count":  receiveCount(msg),
	}
	if notificationID != 0 {
		fields["notification_id"] = notificationID
	}
	if strings.TrimSpace(requestID) != "" {
		fields["request_id"] = requestID
	}
	return fields
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

func envInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return def
	}
	return val
}
