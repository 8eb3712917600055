package pool

import (
	"context"

	"github.com/coxlong/zap/internal/platform"
)

// Handle is the caller's reference to an acquired window. Done is closed once
// background configuration finishes; Err then reports its outcome.
type Handle struct {
	ID    platform.WindowID
	Lease string

	done chan struct{}
	err  error
}

func newHandle(id platform.WindowID, lease string) *Handle {
	return &Handle{ID: id, Lease: lease, done: make(chan struct{})}
}

func (h *Handle) finish(err error) {
	h.err = err
	close(h.done)
}

// Done is closed when configuration has completed or failed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Err returns the configuration error. It is nil until Done is closed.
func (h *Handle) Err() error {
	select {
	case <-h.done:
		return h.err
	default:
		return nil
	}
}

// Wait blocks until configuration finishes or ctx is done.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return h.err
	case <-ctx.Done():
		return ctx.Err()
	}
}
