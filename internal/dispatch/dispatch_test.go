package dispatch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"sysnotifd/internal/events"
	logx "sysnotifd/pkg/logx"
)

type recordingMachine struct {
	mu     sync.Mutex
	seen   []int
	closed int
	fn     func(ctx context.Context, ev events.Event) error
}

func (m *recordingMachine) Handle(ctx context.Context, ev events.Event) error {
	m.mu.Lock()
	m.seen = append(m.seen, ev.Audio.Volume)
	m.mu.Unlock()
	if m.fn != nil {
		return m.fn(ctx, ev)
	}
	return nil
}

func (m *recordingMachine) CloseAll(context.Context) error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

func (m *recordingMachine) values() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int(nil), m.seen...)
}

func feed(evs ...events.Event) <-chan events.Event {
	ch := make(chan events.Event, len(evs))
	for _, e := range evs {
		ch <- e
	}
	close(ch)
	return ch
}

func runWithTimeout(t *testing.T, d *Dispatcher, in <-chan events.Event) {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- d.Run(context.Background(), in) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run() error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after input closed")
	}
}

func TestDispatcherKeepsPerCategoryOrder(t *testing.T) {
	t.Parallel()
	audio := &recordingMachine{}
	battery := &recordingMachine{}
	d := New(Config{InboxSize: 2}, logx.Nop(), map[events.Category]Machine{
		events.CategoryAudio:   audio,
		events.CategoryBattery: battery,
	})

	var evs []events.Event
	for i := 1; i <= 20; i++ {
		evs = append(evs, events.Audio("pactl", events.AudioReading{Volume: i}))
		if i%3 == 0 {
			evs = append(evs, events.Battery("poll", events.BatteryPoll))
		}
	}
	runWithTimeout(t, d, feed(evs...))

	got := audio.values()
	if len(got) != 20 {
		t.Fatalf("audio handled %d events, want 20", len(got))
	}
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("audio order = %v", got)
		}
	}
	if n := len(battery.values()); n != 6 {
		t.Fatalf("battery handled %d events, want 6", n)
	}
	if st := d.Stats(); st.Routed != 26 || st.Handled != 26 || st.Failed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDispatcherSurvivesPanicAndErrors(t *testing.T) {
	t.Parallel()
	audio := &recordingMachine{fn: func(_ context.Context, ev events.Event) error {
		switch ev.Audio.Volume {
		case 1:
			panic("index out of range")
		case 2:
			return errors.New("notification server gone")
		}
		return nil
	}}
	brightness := &recordingMachine{}
	d := New(Config{}, logx.Nop(), map[events.Category]Machine{
		events.CategoryAudio:      audio,
		events.CategoryBrightness: brightness,
	})
	runWithTimeout(t, d, feed(
		events.Audio("pactl", events.AudioReading{Volume: 1}),
		events.Brightness("backlight"),
		events.Audio("pactl", events.AudioReading{Volume: 2}),
		events.Audio("pactl", events.AudioReading{Volume: 3}),
	))

	if got := audio.values(); len(got) != 3 || got[2] != 3 {
		t.Fatalf("audio = %v, want all three events handled", got)
	}
	if got := len(brightness.values()); got != 1 {
		t.Fatalf("brightness handled %d, want 1", got)
	}
	if st := d.Stats(); st.Failed != 2 {
		t.Fatalf("failed = %d, want 2", st.Failed)
	}
}

func TestDispatcherAppliesHandleTimeout(t *testing.T) {
	t.Parallel()
	slow := &recordingMachine{fn: func(ctx context.Context, _ events.Event) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	d := New(Config{HandleTimeout: 20 * time.Millisecond}, logx.Nop(), map[events.Category]Machine{
		events.CategoryBattery: slow,
	})
	runWithTimeout(t, d, feed(events.Battery("poll", events.BatteryPoll)))
	if st := d.Stats(); st.Failed != 1 {
		t.Fatalf("failed = %d, want 1", st.Failed)
	}
}

func TestDispatcherDropsUnroutedEvents(t *testing.T) {
	t.Parallel()
	d := New(Config{}, logx.Nop(), map[events.Category]Machine{
		events.CategoryAudio: &recordingMachine{},
	})
	runWithTimeout(t, d, feed(events.Brightness("backlight")))
	if st := d.Stats(); st.Dropped != 1 || st.Routed != 0 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestDispatcherStopsOnCancel(t *testing.T) {
	t.Parallel()
	d := New(Config{}, logx.Nop(), map[events.Category]Machine{
		events.CategoryAudio: &recordingMachine{},
	})
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan events.Event)
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx, in) }()
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("Run() err = %v, want context.Canceled", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestDispatcherCloseAll(t *testing.T) {
	t.Parallel()
	a, b := &recordingMachine{}, &recordingMachine{}
	d := New(Config{}, logx.Nop(), map[events.Category]Machine{
		events.CategoryAudio:   a,
		events.CategoryBattery: b,
	})
	if err := d.CloseAll(context.Background()); err != nil {
		t.Fatalf("CloseAll() error: %v", err)
	}
	if a.closed != 1 || b.closed != 1 {
		t.Fatalf("closed = %d/%d, want 1/1", a.closed, b.closed)
	}
}
