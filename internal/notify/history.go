package notify

import (
	"context"
	"time"

	"sysnotifd/internal/storage"
	logx "sysnotifd/pkg/logx"
)

// HistoryWriter receives one entry per render/dismiss request.
type HistoryWriter interface {
	AppendHistory(ctx context.Context, e storage.Entry) error
}

type historyRenderer struct {
	next Renderer
	w    HistoryWriter
	log  logx.Logger
}

// WithHistory records every request that goes through r.
// History write failures are logged and never fail the request itself.
func WithHistory(r Renderer, w HistoryWriter, log logx.Logger) Renderer {
	if w == nil {
		return r
	}
	return &historyRenderer{next: r, w: w, log: log}
}

func (h *historyRenderer) Render(ctx context.Context, n Notification) (Handle, error) {
	id, err := h.next.Render(ctx, n)
	e := storage.Entry{
		At:      time.Now(),
		Action:  storage.ActionRender,
		App:     n.AppName,
		Summary: n.Summary,
		Body:    n.Body,
		Urgency: n.Urgency.String(),
		Handle:  uint32(id),
	}
	if err != nil {
		e.Error = err.Error()
	}
	h.append(ctx, e)
	return id, err
}

func (h *historyRenderer) Dismiss(ctx context.Context, id Handle) error {
	err := h.next.Dismiss(ctx, id)
	e := storage.Entry{At: time.Now(), Action: storage.ActionDismiss, Handle: uint32(id)}
	if err != nil {
		e.Error = err.Error()
	}
	h.append(ctx, e)
	return err
}

func (h *historyRenderer) append(ctx context.Context, e storage.Entry) {
	// Record even when the request context already expired.
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()
	if err := h.w.AppendHistory(wctx, e); err != nil {
		h.log.Warn("history append failed", logx.String("action", string(e.Action)), logx.Err(err))
	}
}
