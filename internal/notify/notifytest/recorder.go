// Package notifytest provides an in-memory notify.Renderer for tests.
package notifytest

import (
	"context"
	"sync"

	"sysnotifd/internal/notify"
)

// Call is one recorded Render or Dismiss.
type Call struct {
	Op           string // "render" | "dismiss"
	Notification notify.Notification
	Handle       notify.Handle
}

// Recorder records calls and hands out increasing handles starting at 1.
// Set RenderErr/DismissErr to make the next calls fail.
type Recorder struct {
	mu         sync.Mutex
	calls      []Call
	next       notify.Handle
	open       map[notify.Handle]notify.Notification
	RenderErr  error
	DismissErr error
}

func New() *Recorder {
	return &Recorder{open: map[notify.Handle]notify.Notification{}}
}

func (r *Recorder) Render(ctx context.Context, n notify.Notification) (notify.Handle, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.RenderErr != nil {
		return 0, r.RenderErr
	}
	r.next++
	r.open[r.next] = n
	r.calls = append(r.calls, Call{Op: "render", Notification: n, Handle: r.next})
	return r.next, nil
}

func (r *Recorder) Dismiss(ctx context.Context, h notify.Handle) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, Call{Op: "dismiss", Handle: h})
	if r.DismissErr != nil {
		return r.DismissErr
	}
	delete(r.open, h)
	return nil
}

// SetRenderErr changes the render failure under the recorder's lock.
func (r *Recorder) SetRenderErr(err error) {
	r.mu.Lock()
	r.RenderErr = err
	r.mu.Unlock()
}

// Calls returns a copy of all recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Call(nil), r.calls...)
}

// Renders returns the successful render calls only.
func (r *Recorder) Renders() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == "render" {
			out = append(out, c)
		}
	}
	return out
}

// Dismisses returns the dismiss calls only.
func (r *Recorder) Dismisses() []Call {
	var out []Call
	for _, c := range r.Calls() {
		if c.Op == "dismiss" {
			out = append(out, c)
		}
	}
	return out
}

// Open returns the bodies of notifications rendered and not yet dismissed, keyed by handle.
func (r *Recorder) Open() map[notify.Handle]notify.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[notify.Handle]notify.Notification, len(r.open))
	for k, v := range r.open {
		out[k] = v
	}
	return out
}

// Reset forgets recorded calls but keeps open notifications.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
