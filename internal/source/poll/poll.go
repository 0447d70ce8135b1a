// Package poll emits battery poll ticks on a cron schedule.
package poll

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

// DefaultSchedule matches the battery's refresh rate on most laptops.
const DefaultSchedule = "@every 8s"

// Source emits one BatteryPoll immediately and then one per schedule tick.
// Ticks that fire while the previous one is still queued are coalesced.
type Source struct {
	spec Spec
	log  logx.Logger
}

func New(spec Spec, log logx.Logger) *Source {
	return &Source{spec: spec, log: log.With(logx.String("comp", "poll"))}
}

func (s *Source) Name() string { return "poll" }

func (s *Source) Run(ctx context.Context, out chan<- events.Event) error {
	sched, err := s.spec.Schedule()
	if err != nil {
		return fmt.Errorf("poll: %w", err)
	}
	tick := make(chan struct{}, 1)
	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		select {
		case tick <- struct{}{}:
		default:
			s.log.Trace("poll tick coalesced")
		}
	}))
	c.Start()
	defer func() { <-c.Stop().Done() }()
	s.log.Debug("poll started", logx.String("schedule", s.spec.String()))

	if !events.Send(ctx, out, events.Battery(s.Name(), events.BatteryPoll)) {
		return ctx.Err()
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-tick:
			if !events.Send(ctx, out, events.Battery(s.Name(), events.BatteryPoll)) {
				return ctx.Err()
			}
		}
	}
}
