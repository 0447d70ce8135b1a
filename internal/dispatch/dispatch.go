// Package dispatch routes merged events to one owner goroutine per category.
package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"sysnotifd/internal/events"
	"sysnotifd/internal/runtime/supervisor"
	logx "sysnotifd/pkg/logx"
)

// Machine is the state machine of one category. Handle is only ever called from
// the category's owner goroutine.
type Machine interface {
	Handle(ctx context.Context, ev events.Event) error
	CloseAll(ctx context.Context) error
}

type Config struct {
	HandleTimeout time.Duration
	InboxSize     int
}

const (
	DefaultHandleTimeout = 10 * time.Second
	DefaultInboxSize     = 32
)

type Stats struct {
	Routed  uint64
	Handled uint64
	Failed  uint64
	Dropped uint64
}

type Dispatcher struct {
	cfg      Config
	log      logx.Logger
	machines map[events.Category]Machine

	routed  atomic.Uint64
	handled atomic.Uint64
	failed  atomic.Uint64
	dropped atomic.Uint64
}

func New(cfg Config, log logx.Logger, machines map[events.Category]Machine) *Dispatcher {
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = DefaultHandleTimeout
	}
	if cfg.InboxSize <= 0 {
		cfg.InboxSize = DefaultInboxSize
	}
	m := make(map[events.Category]Machine, len(machines))
	for c, mc := range machines {
		if mc != nil {
			m[c] = mc
		}
	}
	return &Dispatcher{cfg: cfg, log: log.With(logx.String("comp", "dispatch")), machines: m}
}

// Run consumes in until it is closed or ctx is done. When in closes, queued
// events are drained before Run returns. On cancellation queued events are dropped.
func (d *Dispatcher) Run(ctx context.Context, in <-chan events.Event) error {
	inboxes := make(map[events.Category]chan events.Event, len(d.machines))
	var wg sync.WaitGroup
	for c, m := range d.machines {
		ch := make(chan events.Event, d.cfg.InboxSize)
		inboxes[c] = ch
		wg.Add(1)
		go func(c events.Category, m Machine) {
			defer wg.Done()
			d.own(ctx, c, m, ch)
		}(c, m)
	}
	defer func() {
		for _, ch := range inboxes {
			close(ch)
		}
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-in:
			if !ok {
				return nil
			}
			ch, ok := inboxes[ev.Category]
			if !ok {
				d.dropped.Add(1)
				d.log.Warn("no handler for event", logx.String("category", ev.Category.String()), logx.String("source", ev.Source))
				continue
			}
			// Full inbox applies backpressure to the merged stream.
			select {
			case ch <- ev:
				d.routed.Add(1)
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

func (d *Dispatcher) own(ctx context.Context, c events.Category, m Machine, inbox <-chan events.Event) {
	log := d.log.With(logx.String("category", c.String()))
	for ev := range inbox {
		if ctx.Err() != nil {
			// queued events are discarded on shutdown
			continue
		}
		d.handle(ctx, log, m, ev)
	}
}

func (d *Dispatcher) handle(ctx context.Context, log logx.Logger, m Machine, ev events.Event) {
	hctx, cancel := context.WithTimeout(ctx, d.cfg.HandleTimeout)
	defer cancel()

	start := time.Now()
	err := supervisor.Protect("dispatch."+ev.Category.String(), log, func() error {
		return m.Handle(hctx, ev)
	})
	d.handled.Add(1)
	if err != nil {
		d.failed.Add(1)
		fields := []logx.Field{
			logx.String("event", ev.String()),
			logx.Duration("dur", time.Since(start)),
			logx.Err(err),
		}
		if errors.Is(err, context.DeadlineExceeded) {
			log.Warn("event handling timed out", fields...)
			return
		}
		log.Warn("event handling failed", fields...)
		return
	}
	log.Trace("event handled", logx.String("event", ev.String()), logx.Duration("dur", time.Since(start)))
}

// CloseAll dismisses every live notification. Call it only after Run returned.
func (d *Dispatcher) CloseAll(ctx context.Context) error {
	var errs []error
	for c, m := range d.machines {
		err := supervisor.Protect("closeall."+c.String(), d.log, func() error { return m.CloseAll(ctx) })
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Routed:  d.routed.Load(),
		Handled: d.handled.Load(),
		Failed:  d.failed.Load(),
		Dropped: d.dropped.Load(),
	}
}
