package queue

import "context"

// Client publishes notification jobs for cmd/worker. Send returns once the
// backend has accepted the message; delivery happens later.
type Client interface {
	Send(ctx context.Context, msg Message) error
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, msg Message) error

// Send calls f.
func (f ClientFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
