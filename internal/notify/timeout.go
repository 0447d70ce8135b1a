package notify

import (
	"context"
	"time"
)

type timeoutRenderer struct {
	next Renderer
	d    time.Duration
}

// WithTimeout bounds every request to d. d <= 0 returns r unchanged.
func WithTimeout(r Renderer, d time.Duration) Renderer {
	if d <= 0 {
		return r
	}
	return &timeoutRenderer{next: r, d: d}
}

func (t *timeoutRenderer) Render(ctx context.Context, n Notification) (Handle, error) {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Render(ctx, n)
}

func (t *timeoutRenderer) Dismiss(ctx context.Context, h Handle) error {
	ctx, cancel := context.WithTimeout(ctx, t.d)
	defer cancel()
	return t.next.Dismiss(ctx, h)
}
