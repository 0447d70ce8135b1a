package app

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"sysnotifd/internal/config"
	"sysnotifd/internal/events"
	"sysnotifd/internal/notify/notifytest"
	"sysnotifd/internal/source/audio"
	"sysnotifd/internal/storage"
	logx "sysnotifd/pkg/logx"
)

type scriptSource struct {
	evs []events.Event
}

func (s scriptSource) Name() string { return "script" }

func (s scriptSource) Run(ctx context.Context, out chan<- events.Event) error {
	for _, e := range s.evs {
		if !events.Send(ctx, out, e) {
			return ctx.Err()
		}
	}
	return nil
}

type fixedBattery struct{ r events.BatteryReading }

func (f fixedBattery) Read(context.Context) (events.BatteryReading, error) { return f.r, nil }

type fixedLevel int

func (f fixedLevel) Read(context.Context) (int, error) { return int(f), nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Logging.Level = "error"
	cfg.Storage = config.StorageConfig{Driver: "file", Path: filepath.Join(t.TempDir(), "history.jsonl")}
	return cfg
}

func TestAppEndToEnd(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	rec := notifytest.New()
	a, err := New(cfg,
		WithRenderer(rec),
		WithBatteryReader(fixedBattery{events.BatteryReading{State: events.ChargeDischarging, Percentage: 3}}),
		WithBrightnessReader(fixedLevel(60)),
		WithSources(scriptSource{evs: []events.Event{
			events.Battery("script", events.BatteryPoll),
			events.Battery("script", events.BatteryPlugged),
			events.Brightness("script"),
			events.Audio("script", events.AudioReading{Volume: 25}),
		}}),
	)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	select {
	case <-a.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("app did not finish after the script ended")
	}

	bodies := map[string]bool{}
	for _, c := range rec.Renders() {
		bodies[c.Notification.AppName+":"+c.Notification.Body] = true
	}
	for _, want := range []string{"battery:Battery Critical", "battery:Plugged", "brightness:60", "volume:Unmuted", "volume:25%"} {
		if !bodies[want] {
			t.Fatalf("missing render %q in %v", want, bodies)
		}
	}
	if got := len(rec.Open()); got != 4 {
		t.Fatalf("open before stop = %d, want 4 (charging, brightness, mute, volume)", got)
	}

	if err := a.Stop(context.Background(), StopStreamEnd); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := len(rec.Open()); got != 0 {
		t.Fatalf("open after stop = %d, want 0", got)
	}

	entries, err := RecentHistory(context.Background(), cfg, 100, logx.Nop())
	if err != nil {
		t.Fatalf("RecentHistory() error: %v", err)
	}
	var renders, dismisses int
	for _, e := range entries {
		switch e.Action {
		case storage.ActionRender:
			renders++
		case storage.ActionDismiss:
			dismisses++
		}
	}
	if renders != len(rec.Renders()) || dismisses != len(rec.Dismisses()) {
		t.Fatalf("history %d/%d, recorder %d/%d", renders, dismisses, len(rec.Renders()), len(rec.Dismisses()))
	}
}

func TestAppDisabledCategories(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	off := false
	cfg.Battery.Enabled = &off
	cfg.Audio.Enabled = &off
	rec := notifytest.New()
	a, err := New(cfg, WithRenderer(rec), WithBrightnessReader(fixedLevel(10)), WithSources(scriptSource{evs: []events.Event{
		events.Battery("script", events.BatteryPlugged),
		events.Brightness("script"),
	}}))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	<-a.Done()
	if err := a.Stop(context.Background(), StopStreamEnd); err != nil {
		t.Fatalf("Stop() error: %v", err)
	}
	if got := len(rec.Renders()); got != 1 || rec.Renders()[0].Notification.AppName != "brightness" {
		t.Fatalf("renders = %+v", rec.Renders())
	}
	if st := a.disp.Stats(); st.Dropped != 1 {
		t.Fatalf("dropped = %d, want 1", st.Dropped)
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	t.Parallel()
	cfg := testConfig(t)
	cfg.Battery.Poll = "whenever"
	if _, err := New(cfg, WithRenderer(notifytest.New())); err == nil {
		t.Fatal("New() should reject a bad poll schedule")
	}

	cfg = testConfig(t)
	cfg.Notifications.RenderTimeout = "soon"
	if _, err := New(cfg, WithRenderer(notifytest.New())); err == nil {
		t.Fatal("New() should reject a bad render timeout")
	}

	cfg = testConfig(t)
	cfg.Dispatch.RestartMinBackoff = "5s"
	cfg.Dispatch.RestartMaxBackoff = "1s"
	if _, err := New(cfg, WithRenderer(notifytest.New())); err == nil {
		t.Fatal("New() should reject max backoff below min")
	}

	cfg = testConfig(t)
	cfg.Battery.LowPercentage = 1
	if _, err := New(cfg, WithRenderer(notifytest.New())); !errors.Is(err, config.ErrInvalid) {
		t.Fatalf("err = %v, want ErrInvalid", err)
	}
}

func TestRecentHistoryDisabled(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if _, err := RecentHistory(context.Background(), cfg, 5, logx.Nop()); !errors.Is(err, storage.ErrDisabled) {
		t.Fatalf("err = %v, want ErrDisabled", err)
	}
}

func TestMapMergerConfig(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	cfg.Dispatch.RestartMinBackoff = "10s"
	cfg.Dispatch.RestartMaxBackoff = "1s"
	if _, err := mapMergerConfig(cfg); err == nil {
		t.Fatal("max below min should fail")
	}
	cfg.Dispatch.RestartMaxBackoff = ""
	cfg.Dispatch.RestartLimit = 4
	mc, err := mapMergerConfig(cfg)
	if err != nil || mc.MinBackoff != 10*time.Second || mc.MaxBackoff != 30*time.Second || mc.MaxRestarts != 4 {
		t.Fatalf("mapMergerConfig() = %+v, %v", mc, err)
	}
}

func TestMapAudio(t *testing.T) {
	t.Parallel()
	cfg := config.Default()
	if name, dial := mapAudioBackend(cfg); name != "pulse" || dial == nil {
		t.Fatalf("default backend = %q", name)
	}
	cfg.Audio.Backend = "pactl"
	if name, _ := mapAudioBackend(cfg); name != "pactl" {
		t.Fatalf("backend = %q, want pactl", name)
	}
	if d, err := mapAudioKeepalive(cfg); err != nil || d != audio.DefaultKeepalive {
		t.Fatalf("keepalive = %v, %v", d, err)
	}
	cfg.Audio.Keepalive = "5s"
	if d, err := mapAudioKeepalive(cfg); err != nil || d != 5*time.Second {
		t.Fatalf("keepalive = %v, %v", d, err)
	}
}
