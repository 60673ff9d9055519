package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"sst-backend/internal/queue"
	"sst-backend/internal/shared/metrics"
	"sst-backend/internal/shared/telemetry"
)

// Dispatcher hands email jobs off without blocking the caller.
type Dispatcher interface {
	Dispatch(job EmailJob)
	Close(ctx context.Context) error
}

// HandleFunc processes one job within its own deadline.
type HandleFunc func(ctx context.Context, job EmailJob) error

// Pool runs jobs on a fixed set of workers fed by a bounded buffer. When the
// buffer is full new jobs are dropped and logged.
type Pool struct {
	name    string
	jobs    chan EmailJob
	handle  HandleFunc
	timeout time.Duration
	group   *errgroup.Group

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines. timeout bounds each job.
func NewPool(name string, workers, size int, timeout time.Duration, handle HandleFunc) *Pool {
	if workers <= 0 {
		workers = 1
	}
	if size <= 0 {
		size = 100
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	p := &Pool{
		name:    name,
		jobs:    make(chan EmailJob, size),
		handle:  handle,
		timeout: timeout,
		group:   new(errgroup.Group),
	}
	for i := 0; i < workers; i++ {
		p.group.Go(func() error {
			for job := range p.jobs {
				metrics.SetEmailQueueDepth(len(p.jobs))
				p.run(job)
			}
			return nil
		})
	}
	return p
}

// Dispatch enqueues job, or drops it when the pool is full or closed.
func (p *Pool) Dispatch(job EmailJob) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		telemetry.Warn("notifications.dispatch.closed", map[string]any{"target": job.Target.String(), "pool": p.name})
		return
	}
	select {
	case p.jobs <- job:
		metrics.SetEmailQueueDepth(len(p.jobs))
	default:
		metrics.IncEmail(p.name, "dropped")
		telemetry.Warn("notifications.dispatch.dropped", map[string]any{
			"target":          job.Target.String(),
			"notification_id": job.NotificationID,
			"pool":            p.name,
		})
	}
}

func (p *Pool) run(job EmailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Error("notifications.dispatch.panic", map[string]any{"error": fmt.Sprint(rec), "pool": p.name})
		}
	}()
	if err := p.handle(ctx, job); err != nil {
		telemetry.Warn("notifications.email.failed", map[string]any{
			"target":          job.Target.String(),
			"notification_id": job.NotificationID,
			"request_id":      job.RequestID,
			"pool":            p.name,
			"error":           err,
		})
	}
}

// Close stops accepting jobs and waits for queued ones until ctx is done.
func (p *Pool) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- p.group.Wait() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Publish returns a HandleFunc that forwards jobs to a queue for cmd/worker.
func Publish(client queue.Client) HandleFunc {
	return func(ctx context.Context, job EmailJob) error {
		return client.Send(ctx, MessageFromJob(job, time.Now().UTC()))
	}
}

// MessageFromJob encodes job for the queue.
func MessageFromJob(job EmailJob, now time.Time) queue.Message {
	return queue.Message{
		Kind:            queue.KindNotificationEmail,
		NotificationID:  job.NotificationID,
		RecipientUserID: job.Target.UserID,
		RecipientRole:   job.Target.Role,
		Title:           job.Title,
		Body:            job.Message,
		Route:           job.Route,
		RequestID:       job.RequestID,
		EnqueuedAt:      now.Format(time.RFC3339),
		Version:         1,
	}
}

// JobFromMessage decodes a queue message back into a job.
func JobFromMessage(msg queue.Message) (EmailJob, error) {
	job := EmailJob{
		NotificationID: msg.NotificationID,
		Target:         Target{UserID: msg.RecipientUserID, Role: msg.RecipientRole},
		Title:          msg.Title,
		Message:        msg.Body,
		Route:          msg.Route,
		RequestID:      msg.RequestID,
	}
	if !job.Target.valid() {
		return EmailJob{}, ErrInvalidTarget
	}
	return job, nil
}
