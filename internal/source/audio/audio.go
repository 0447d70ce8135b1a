// Package audio follows the default PulseAudio/PipeWire sink, natively over
// the PulseAudio protocol or through pactl.
package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

// DefaultKeepalive is how often the sink is re-read without a change signal.
const DefaultKeepalive = 30 * time.Second

// Source emits the sink's reading at start and after every sink or server change.
// Identical consecutive readings are not repeated.
//
// The keepalive read notices a dead server connection (and any missed change);
// a failed keepalive ends Run so the merger reconnects.
type Source struct {
	name      string
	dial      Dialer
	sink      string
	keepalive time.Duration
	log       logx.Logger
}

func NewSource(name string, dial Dialer, sink string, keepalive time.Duration, log logx.Logger) *Source {
	if sink == "" {
		sink = DefaultSink
	}
	return &Source{
		name:      name,
		dial:      dial,
		sink:      sink,
		keepalive: keepalive,
		log:       log.With(logx.String("comp", "audio"), logx.String("backend", name)),
	}
}

func (s *Source) Name() string { return s.name }

func (s *Source) Run(ctx context.Context, out chan<- events.Event) error {
	m, err := s.dial(ctx)
	if err != nil {
		return err
	}
	var once sync.Once
	closeMixer := func() {
		once.Do(func() {
			if err := m.Close(); err != nil {
				s.log.Debug("mixer close", logx.Err(err))
			}
		})
	}
	defer closeMixer()
	stop := context.AfterFunc(ctx, closeMixer)
	defer stop()

	// subscribe before the baseline so no change slips in between
	changes, err := m.Changes(ctx)
	if err != nil {
		return err
	}
	last, err := m.Sink(ctx, s.sink)
	if err != nil {
		return fmt.Errorf("audio baseline: %w", err)
	}
	if !events.Send(ctx, out, events.Audio(s.Name(), last)) {
		return ctx.Err()
	}

	var tick <-chan time.Time
	if s.keepalive > 0 {
		t := time.NewTicker(s.keepalive)
		defer t.Stop()
		tick = t.C
	}

	emit := func(r events.AudioReading) bool {
		if r == last {
			return true
		}
		last = r
		return events.Send(ctx, out, events.Audio(s.Name(), r))
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-changes:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("audio change subscription ended")
			}
			r, err := m.Sink(ctx, s.sink)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.log.Warn("audio snapshot failed", logx.Err(err))
				continue
			}
			if !emit(r) {
				return ctx.Err()
			}
		case <-tick:
			r, err := m.Sink(ctx, s.sink)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("audio keepalive: %w", err)
			}
			if !emit(r) {
				return ctx.Err()
			}
		}
	}
}
